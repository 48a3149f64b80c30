// Package catalog defines which feeds a run harvests and how each one is
// enumerated. The built-in catalog mirrors the MISP project's default feed
// list; operators can replace it with a YAML file.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/fetch"
	"airgapintel/pkg/models"
	"airgapintel/pkg/source"
)

// Kind selects the adapter an entry becomes
type Kind string

const (
	KindStatic    Kind = "static"
	KindListing   Kind = "listing"
	KindTemplated Kind = "templated"
)

// Entry is one feed in the catalog
type Entry struct {
	Name       string          `yaml:"name" json:"name"`
	URL        string          `yaml:"url" json:"url"`
	Kind       Kind            `yaml:"kind" json:"kind"`
	Category   models.Category `yaml:"category" json:"category"`
	Match      string          `yaml:"match,omitempty" json:"match,omitempty"`
	DatePolicy string          `yaml:"date_policy,omitempty" json:"date_policy,omitempty"`
	// Layout and NameTemplate only apply to templated entries
	Layout       string `yaml:"layout,omitempty" json:"layout,omitempty"`
	NameTemplate string `yaml:"name_template,omitempty" json:"name_template,omitempty"`
	UserAgent    string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

type file struct {
	Feeds []Entry `yaml:"feeds"`
}

// Load reads a catalog file. The file replaces the built-in catalog entirely.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config("read catalog", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errs.Config("parse catalog", err)
	}
	if len(f.Feeds) == 0 {
		return nil, errs.Config("parse catalog", fmt.Errorf("%s lists no feeds", path))
	}

	for i := range f.Feeds {
		if f.Feeds[i].Kind == "" {
			f.Feeds[i].Kind = KindStatic
		}
	}
	if err := Validate(f.Feeds); err != nil {
		return nil, errs.Config("validate catalog", err)
	}

	return f.Feeds, nil
}

// Validate checks every entry and reports all problems at once
func Validate(entries []Entry) error {
	var errList []error

	for i, e := range entries {
		where := fmt.Sprintf("feed %d (%s)", i+1, e.Name)
		if strings.TrimSpace(e.Name) == "" {
			errList = append(errList, fmt.Errorf("%s: name is required", where))
		}
		if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
			errList = append(errList, fmt.Errorf("%s: url must be http or https", where))
		}
		if strings.TrimSpace(string(e.Category)) == "" {
			errList = append(errList, fmt.Errorf("%s: category is required", where))
		}
		switch e.Kind {
		case KindStatic, KindListing:
		case KindTemplated:
			if !strings.Contains(e.URL, source.DatePlaceholder) {
				errList = append(errList, fmt.Errorf("%s: templated url needs a %s placeholder", where, source.DatePlaceholder))
			}
		default:
			errList = append(errList, fmt.Errorf("%s: unknown kind %q", where, e.Kind))
		}
		if e.Match != "" {
			if _, err := regexp.Compile(e.Match); err != nil {
				errList = append(errList, fmt.Errorf("%s: bad match pattern: %w", where, err))
			}
		}
		if _, err := source.ParseDatePolicy(e.DatePolicy); err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", where, err))
		}
	}

	return errors.Join(errList...)
}

// Build turns entries into adapters. Categories keep the order of their first
// entry; all static entries of a category share one StaticList placed where
// the first of them appeared.
func Build(entries []Entry, fetcher fetch.Fetcher, parser source.LinkParser) ([]source.Adapter, error) {
	if err := Validate(entries); err != nil {
		return nil, errs.Config("build catalog", err)
	}

	// a nil adapter marks the position of the category's static list
	type slot struct {
		adapter source.Adapter
	}

	var order []models.Category
	slots := make(map[models.Category][]slot)
	statics := make(map[models.Category][]source.StaticEntry)
	hasSlot := make(map[models.Category]bool)

	for _, e := range entries {
		if _, ok := slots[e.Category]; !ok {
			order = append(order, e.Category)
			slots[e.Category] = nil
		}

		switch e.Kind {
		case KindStatic:
			statics[e.Category] = append(statics[e.Category], source.StaticEntry{
				Name:      e.Name,
				URL:       e.URL,
				UserAgent: e.UserAgent,
			})
			if !hasSlot[e.Category] {
				hasSlot[e.Category] = true
				slots[e.Category] = append(slots[e.Category], slot{})
			}

		case KindTemplated:
			slots[e.Category] = append(slots[e.Category], slot{
				adapter: source.NewDateTemplated(source.DateTemplatedConfig{
					Name:         e.Name,
					Category:     e.Category,
					URLTemplate:  e.URL,
					NameTemplate: e.NameTemplate,
					Layout:       e.Layout,
					UserAgent:    e.UserAgent,
				}),
			})

		case KindListing:
			policy, _ := source.ParseDatePolicy(e.DatePolicy)
			var match *regexp.Regexp
			if e.Match != "" {
				match = regexp.MustCompile(e.Match)
			}
			slots[e.Category] = append(slots[e.Category], slot{
				adapter: source.NewListingScrape(source.ListingConfig{
					Name:      e.Name,
					Category:  e.Category,
					IndexURL:  e.URL,
					Match:     match,
					Policy:    policy,
					UserAgent: e.UserAgent,
				}, fetcher, parser),
			})
		}
	}

	var adapters []source.Adapter
	for _, cat := range order {
		for _, s := range slots[cat] {
			if s.adapter == nil {
				adapters = append(adapters, source.NewStaticList(string(cat), cat, statics[cat]))
				continue
			}
			adapters = append(adapters, s.adapter)
		}
	}

	return adapters, nil
}

// Categories returns the distinct categories of entries in first-seen order
func Categories(entries []Entry) []models.Category {
	seen := make(map[models.Category]bool)
	var cats []models.Category
	for _, e := range entries {
		if !seen[e.Category] {
			seen[e.Category] = true
			cats = append(cats, e.Category)
		}
	}
	return cats
}
