// Package manifest records what a run wrote so the tree can be checked after
// it has been carried across the air gap.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"airgapintel/pkg/models"
)

// FileName is the manifest's name under the output root
const FileName = "manifest.json"

// Manifest lists every feed file persisted by one run
type Manifest struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	DaysBack    int       `json:"days_back"`
	Files       []File    `json:"files"`
}

// File describes one persisted feed. Path is relative to the output root and
// always uses forward slashes.
type File struct {
	Category  string    `json:"category"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SourceURL string    `json:"source_url"`
	Size      int       `json:"size"`
	SHA256    string    `json:"sha256"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FromResult builds a manifest for the files in r. When one path was written
// more than once only the last write is listed, matching what is on disk.
func FromResult(r *models.RunResult, root string, generatedAt time.Time) *Manifest {
	m := &Manifest{
		RunID:       r.RunID,
		GeneratedAt: generatedAt.UTC(),
		DaysBack:    r.DaysBack,
		Files:       []File{},
	}

	index := make(map[string]int)
	for _, p := range r.Persisted {
		rel, err := filepath.Rel(root, p.Path)
		if err != nil {
			rel = p.Path
		}
		rel = filepath.ToSlash(rel)

		f := File{
			Category:  string(p.Task.Category),
			Name:      filepath.Base(p.Path),
			Path:      rel,
			SourceURL: p.Task.SourceURL,
			Size:      p.Size,
			SHA256:    p.SHA256,
			FetchedAt: p.FetchedAt.UTC(),
		}
		if i, ok := index[rel]; ok {
			m.Files[i] = f
			continue
		}
		index[rel] = len(m.Files)
		m.Files = append(m.Files, f)
	}

	sort.SliceStable(m.Files, func(i, j int) bool {
		return m.Files[i].Path < m.Files[j].Path
	})

	return m
}

// Marshal renders the manifest as indented JSON
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// TotalSize returns the byte count of all listed files
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += int64(f.Size)
	}
	return total
}

// Load reads a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &m, nil
}

// Problem is a file that no longer matches its manifest entry
type Problem struct {
	Path   string
	Detail string
}

// Verify re-hashes every listed file under root
func Verify(root string, m *Manifest) []Problem {
	var problems []Problem

	for _, f := range m.Files {
		full := filepath.Join(root, filepath.FromSlash(f.Path))
		sum, size, err := hashFile(full)
		switch {
		case err != nil:
			problems = append(problems, Problem{Path: f.Path, Detail: err.Error()})
		case size != int64(f.Size):
			problems = append(problems, Problem{Path: f.Path, Detail: fmt.Sprintf("size %d, expected %d", size, f.Size)})
		case sum != f.SHA256:
			problems = append(problems, Problem{Path: f.Path, Detail: "sha256 mismatch"})
		}
	}

	return problems
}

func hashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	h := sha256.New()
	n, err := io.Copy(h, file)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
