package source

import (
	"context"

	"airgapintel/pkg/models"
	"airgapintel/pkg/window"
)

// StaticEntry is one direct-download feed
type StaticEntry struct {
	Name      string
	URL       string
	UserAgent string
}

// StaticList returns a fixed set of feeds regardless of the window
type StaticList struct {
	name     string
	category models.Category
	entries  []StaticEntry
}

// NewStaticList creates a static adapter; entries keep their order
func NewStaticList(name string, category models.Category, entries []StaticEntry) *StaticList {
	return &StaticList{
		name:     name,
		category: category,
		entries:  append([]StaticEntry(nil), entries...),
	}
}

func (s *StaticList) Name() string              { return s.name }
func (s *StaticList) Category() models.Category { return s.category }

// Entries returns a copy of the catalog entries
func (s *StaticList) Entries() []StaticEntry {
	return append([]StaticEntry(nil), s.entries...)
}

// ListTasks returns one task per entry in catalog order
func (s *StaticList) ListTasks(_ context.Context, _ window.Window) ([]models.FetchTask, error) {
	tasks := make([]models.FetchTask, 0, len(s.entries))
	for _, e := range s.entries {
		tasks = append(tasks, models.FetchTask{
			Category:    s.category,
			DisplayName: e.Name,
			SourceURL:   e.URL,
			UserAgent:   e.UserAgent,
		})
	}
	return tasks, nil
}
