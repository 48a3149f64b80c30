package source

import (
	"context"
	"net/url"
	"path"
	"strings"

	"airgapintel/pkg/models"
	"airgapintel/pkg/window"
)

// DatePlaceholder is replaced with the formatted day in URL and name templates
const DatePlaceholder = "{date}"

// DateTemplatedConfig describes a provider that publishes one file per day
type DateTemplatedConfig struct {
	Name     string
	Category models.Category
	// URLTemplate contains one or more {date} placeholders
	URLTemplate string
	// NameTemplate defaults to the last path segment of the expanded URL
	NameTemplate string
	// Layout is a Go time layout; defaults to 2006-01-02
	Layout    string
	UserAgent string
}

// DateTemplated expands a URL template once per day of the window. Days the
// provider never published still produce a task and fail at fetch time.
type DateTemplated struct {
	cfg DateTemplatedConfig
}

// NewDateTemplated creates a templated adapter
func NewDateTemplated(cfg DateTemplatedConfig) *DateTemplated {
	if cfg.Layout == "" {
		cfg.Layout = "2006-01-02"
	}
	return &DateTemplated{cfg: cfg}
}

func (d *DateTemplated) Name() string              { return d.cfg.Name }
func (d *DateTemplated) Category() models.Category { return d.cfg.Category }

// URLTemplate returns the unexpanded template
func (d *DateTemplated) URLTemplate() string { return d.cfg.URLTemplate }

// ListTasks returns one task per day, oldest first
func (d *DateTemplated) ListTasks(_ context.Context, w window.Window) ([]models.FetchTask, error) {
	dates := w.Dates()
	tasks := make([]models.FetchTask, 0, len(dates))
	for _, day := range dates {
		stamp := day.Format(d.cfg.Layout)
		u := strings.ReplaceAll(d.cfg.URLTemplate, DatePlaceholder, stamp)

		name := strings.ReplaceAll(d.cfg.NameTemplate, DatePlaceholder, stamp)
		if name == "" {
			name = basename(u)
		}
		if name == "" {
			name = d.cfg.Name + " " + stamp
		}

		tasks = append(tasks, models.FetchTask{
			Category:    d.cfg.Category,
			DisplayName: name,
			SourceURL:   u,
			UserAgent:   d.cfg.UserAgent,
		})
	}
	return tasks, nil
}

// basename returns the unescaped last path segment of raw, or ""
func basename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
