// Package source turns feed providers into fetch tasks.
//
// Every provider is one of three shapes: a fixed list of URLs, a URL template
// expanded once per day of the window, or an HTML directory listing scraped
// one level deep. All three satisfy Adapter, so the orchestrator never needs
// to know which one it is talking to.
package source

import (
	"context"
	"fmt"
	"strings"

	"airgapintel/pkg/models"
	"airgapintel/pkg/window"
)

// Adapter produces the tasks for one provider. A non-nil error means the
// provider could not be enumerated at all and no tasks were produced.
type Adapter interface {
	Name() string
	Category() models.Category
	ListTasks(ctx context.Context, w window.Window) ([]models.FetchTask, error)
}

// DatePolicy controls how a listing decides whether a link is recent
type DatePolicy int

const (
	// DateNone keeps every link; the listing carries no usable dates
	DateNone DatePolicy = iota
	// DateFromLink reads the date from the link text or href
	DateFromLink
	// DateFromContext reads the date from the listing row, falling back to the link
	DateFromContext
)

func (p DatePolicy) String() string {
	switch p {
	case DateFromLink:
		return "link"
	case DateFromContext:
		return "context"
	default:
		return "none"
	}
}

// ParseDatePolicy maps a catalog value to a policy. Empty means DateNone.
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DateNone, nil
	case "link":
		return DateFromLink, nil
	case "context":
		return DateFromContext, nil
	}
	return DateNone, fmt.Errorf("unknown date policy %q", s)
}
