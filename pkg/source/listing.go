package source

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/fetch"
	"airgapintel/pkg/linkparse"
	"airgapintel/pkg/models"
	"airgapintel/pkg/sanitize"
	"airgapintel/pkg/window"
)

// LinkParser extracts anchors from a listing page
type LinkParser interface {
	Parse(body []byte) ([]linkparse.Link, error)
}

// ListingConfig describes one scraped directory listing
type ListingConfig struct {
	Name     string
	Category models.Category
	IndexURL string
	// Match filters links by text or href; nil keeps every link
	Match     *regexp.Regexp
	Policy    DatePolicy
	UserAgent string
}

// ListingScrape fetches one index page and emits a task per file it links to
type ListingScrape struct {
	cfg     ListingConfig
	fetcher fetch.Fetcher
	parser  LinkParser
}

// NewListingScrape creates a listing adapter. The index URL always gets a
// trailing slash so relative links resolve inside the directory.
func NewListingScrape(cfg ListingConfig, fetcher fetch.Fetcher, parser LinkParser) *ListingScrape {
	if !strings.HasSuffix(cfg.IndexURL, "/") {
		cfg.IndexURL += "/"
	}
	if parser == nil {
		parser = linkparse.New()
	}
	return &ListingScrape{cfg: cfg, fetcher: fetcher, parser: parser}
}

func (l *ListingScrape) Name() string              { return l.cfg.Name }
func (l *ListingScrape) Category() models.Category { return l.cfg.Category }

// IndexURL returns the normalized listing location
func (l *ListingScrape) IndexURL() string { return l.cfg.IndexURL }

// Policy returns the date policy applied to links
func (l *ListingScrape) Policy() DatePolicy { return l.cfg.Policy }

// ListTasks fetches the index and filters its links
func (l *ListingScrape) ListTasks(ctx context.Context, w window.Window) ([]models.FetchTask, error) {
	base, err := url.Parse(l.cfg.IndexURL)
	if err != nil {
		return nil, errs.Discovery("parse index url", l.cfg.IndexURL, err)
	}

	resp, err := l.fetcher.Fetch(ctx, l.cfg.IndexURL, fetch.WithUserAgent(l.cfg.UserAgent))
	if err != nil {
		return nil, errs.Discovery("fetch index", l.cfg.IndexURL, err)
	}

	links, err := l.parser.Parse(resp.Body)
	if err != nil {
		return nil, errs.Discovery("parse index", l.cfg.IndexURL, err)
	}

	return l.tasksFromLinks(base, links, w), nil
}

func (l *ListingScrape) tasksFromLinks(base *url.URL, links []linkparse.Link, w window.Window) []models.FetchTask {
	seen := make(map[string]bool)
	var tasks []models.FetchTask

	for _, link := range links {
		target, ok := resolve(base, link.Href)
		if !ok {
			continue
		}
		if l.cfg.Match != nil && !l.cfg.Match.MatchString(link.Text) && !l.cfg.Match.MatchString(link.Href) {
			continue
		}
		if !l.recent(link, w) {
			continue
		}

		key := target.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		tasks = append(tasks, models.FetchTask{
			Category:    l.cfg.Category,
			DisplayName: displayName(link, target),
			SourceURL:   key,
			UserAgent:   l.cfg.UserAgent,
		})
	}

	return tasks
}

func (l *ListingScrape) recent(link linkparse.Link, w window.Window) bool {
	switch l.cfg.Policy {
	case DateFromLink:
		return linkDateInWindow(link, w)
	case DateFromContext:
		if d, ok := window.ExtractDate(link.Context); ok {
			return w.Contains(d)
		}
		return linkDateInWindow(link, w)
	default:
		return true
	}
}

func linkDateInWindow(link linkparse.Link, w window.Window) bool {
	if d, ok := window.ExtractDate(link.Text); ok {
		return w.Contains(d)
	}
	if d, ok := window.ExtractDate(link.Href); ok {
		return w.Contains(d)
	}
	return false
}

// resolve turns href into an absolute URL of a file directly inside the
// listing directory, rejecting navigation links, subdirectories, other
// directories on the same host and anything on another host
func resolve(base *url.URL, href string) (*url.URL, bool) {
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "..") || href == "/" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	target := base.ResolveReference(ref)
	target.Fragment = ""

	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, false
	}
	if !strings.EqualFold(target.Host, base.Host) {
		return nil, false
	}
	rest, ok := strings.CutPrefix(target.Path, base.Path)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return nil, false
	}
	return target, true
}

// displayName prefers the anchor text; autoindex truncates long names with
// "..>", in which case the file name from the URL is used
func displayName(link linkparse.Link, target *url.URL) string {
	text := strings.TrimSpace(link.Text)
	if text == "" || strings.HasSuffix(text, "..>") || strings.HasSuffix(text, "...") {
		text = basename(target.String())
	}
	return sanitize.Filename(text)
}
