package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/fetch"
	"airgapintel/pkg/models"
	"airgapintel/pkg/source"
	"airgapintel/pkg/window"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string, ...fetch.Option) (*fetch.Response, error) {
	return nil, errs.Fetch("", 0, os.ErrNotExist)
}

func find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func TestDefaultOrderAndValidity(t *testing.T) {
	entries := Default()
	require.NoError(t, Validate(entries))

	assert.Equal(t, CategoryOrder, Categories(entries))
	assert.Equal(t, len(mispDefaults)+len(extraFeeds)+1, len(entries))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		feed     Feed
		kind     Kind
		category models.Category
		policy   string
		name     string
	}{
		{Feed{"CIRCL OSINT Feed", "https://www.circl.lu/doc/misp/feed-osint/", "misp"}, KindListing, CategoryCIRCL, "context", "CIRCL OSINT Feed"},
		{Feed{"The Botvrij.eu Data", "https://www.botvrij.eu/data/feed-osint", "misp"}, KindListing, CategoryBotvrij, "none", "The Botvrij.eu Data"},
		{Feed{"MalwareBazaar", "https://bazaar.abuse.ch/downloads/misp/", "misp"}, KindListing, CategoryBazaar, "context", "MalwareBazaar"},
		{Feed{"Threatfox", "https://threatfox.abuse.ch/downloads/misp/", "misp"}, KindListing, CategoryThreatFox, "context", "Threatfox"},
		{Feed{"URLhaus", "https://urlhaus.abuse.ch/downloads/misp/", "misp"}, KindListing, CategoryURLhaus, "context", "URLhaus"},
		{Feed{"TweetFeed Week IP", "https://raw.githubusercontent.com/0xDanielLopez/TweetFeed/master/week.csv", "csv (IP)"}, KindStatic, CategoryTweetFeed, "", "TweetFeed Week IP.csv"},
		{Feed{"DigitalSide Threat-Intel OSINT Feed", "https://osint.digitalside.it/Threat-Intel/digitalside-misp-feed/", "directory listing"}, KindListing, CategoryOthers, "none", "DigitalSide Threat-Intel OSINT Feed"},
		{Feed{"Malware Bazaar", "https://bazaar.abuse.ch/export/txt/md5/recent/", "csv"}, KindStatic, CategoryOthers, "", "Malware Bazaar"},
		{Feed{"Feodo IP Blocklist", "https://feodotracker.abuse.ch/downloads/ipblocklist.csv", "csv"}, KindStatic, CategoryOthers, "", "Feodo IP Blocklist.csv"},
		{Feed{"blocklist.de/lists/all.txt", "https://lists.blocklist.de/lists/all.txt", "freetext"}, KindStatic, CategoryOthers, "", "blocklist.de-lists-all.txt"},
		{Feed{"cybercrime-tracker.net - all", "https://cybercrime-tracker.net/all.php", "freetext"}, KindStatic, CategoryOthers, "", "cybercrime-tracker.net - all"},
		{Feed{"firehol_level1", "https://raw.githubusercontent.com/ktsaou/blocklist-ipsets/master/firehol_level1.netset", "freetext"}, KindStatic, CategoryOthers, "", "firehol_level1.netset"},
	}

	for _, tt := range tests {
		t.Run(tt.feed.Name, func(t *testing.T) {
			e := Classify(tt.feed)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.policy, e.DatePolicy)
			assert.Equal(t, tt.name, e.Name)
			assert.Equal(t, tt.feed.URL, e.URL)
		})
	}
}

func TestClassifyUserAgents(t *testing.T) {
	assert.Equal(t, UserAgentBotvrij, Classify(Feed{"Botvrij", "https://www.botvrij.eu/data/feed-osint", "misp"}).UserAgent)
	assert.Equal(t, UserAgentURLhaus, Classify(Feed{"URLhaus", "https://urlhaus.abuse.ch/downloads/misp/", "misp"}).UserAgent)
	assert.Equal(t, UserAgentListing, Classify(Feed{"DS", "https://osint.digitalside.it/x/", "directory listing"}).UserAgent)
	assert.Empty(t, Classify(Feed{"x", "https://example.test/x.txt", "csv"}).UserAgent)
}

func TestDefaultContainsCustomFeeds(t *testing.T) {
	entries := Default()

	tor, ok := find(entries, "Tor ALL nodes.csv")
	require.True(t, ok)
	assert.Equal(t, "https://raw.githubusercontent.com/alireza-rezaee/tor-nodes/main/latest.all.csv", tor.URL)

	malshare, ok := find(entries, "Malshare daily file list")
	require.True(t, ok)
	assert.Equal(t, KindTemplated, malshare.Kind)
}

func TestBuildGroupsStaticEntries(t *testing.T) {
	entries := []Entry{
		{Name: "a.txt", URL: "https://a.test/a.txt", Kind: KindStatic, Category: "Others"},
		{Name: "Listing", URL: "https://l.test/dir/", Kind: KindListing, Category: "Listings", DatePolicy: "context"},
		{Name: "b.txt", URL: "https://b.test/b.txt", Kind: KindStatic, Category: "Others"},
		{Name: "Daily", URL: "https://d.test/{date}.txt", Kind: KindTemplated, Category: "Others"},
	}

	adapters, err := Build(entries, nopFetcher{}, nil)
	require.NoError(t, err)
	require.Len(t, adapters, 3)

	static, ok := adapters[0].(*source.StaticList)
	require.True(t, ok)
	assert.Equal(t, models.Category("Others"), static.Category())
	assert.Len(t, static.Entries(), 2)

	_, ok = adapters[1].(*source.DateTemplated)
	assert.True(t, ok)

	listing, ok := adapters[2].(*source.ListingScrape)
	require.True(t, ok)
	assert.Equal(t, source.DateFromContext, listing.Policy())

	tasks, err := adapters[1].ListTasks(context.Background(), window.New(1, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "https://d.test/2024-01-09.txt", tasks[0].SourceURL)
}

func TestBuildDefault(t *testing.T) {
	adapters, err := Build(Default(), nopFetcher{}, nil)
	require.NoError(t, err)

	var cats []models.Category
	for _, a := range adapters {
		if len(cats) == 0 || cats[len(cats)-1] != a.Category() {
			cats = append(cats, a.Category())
		}
	}
	assert.Equal(t, CategoryOrder, cats, "adapters stay grouped in category order")
}

func TestValidateReportsAllProblems(t *testing.T) {
	err := Validate([]Entry{
		{Name: "", URL: "ftp://x", Kind: KindStatic, Category: "X"},
		{Name: "t", URL: "https://x.test/feed.txt", Kind: KindTemplated, Category: "X"},
		{Name: "m", URL: "https://x.test/", Kind: KindListing, Category: "X", Match: "(", DatePolicy: "mtime"},
		{Name: "k", URL: "https://x.test/", Kind: "rss", Category: ""},
	})
	require.Error(t, err)

	for _, want := range []string{"name is required", "http or https", "placeholder", "bad match pattern", "unknown date policy", "unknown kind", "category is required"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := `feeds:
  - name: Feodo
    url: https://feodotracker.abuse.ch/downloads/ipblocklist.csv
    category: abuse.ch
  - name: CIRCL
    url: https://www.circl.lu/doc/misp/feed-osint/
    kind: listing
    category: CIRCL Feeds
    date_policy: context
  - name: Malshare
    url: https://malshare.com/daily/{date}/malshare_fileList.{date}.all.txt
    kind: templated
    category: Malshare Daily Feeds
    layout: "2006-01-02"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, KindStatic, entries[0].Kind, "kind defaults to static")
	assert.Equal(t, "context", entries[1].DatePolicy)
	assert.Equal(t, "2006-01-02", entries[2].Layout)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, errs.KindConfig, errs.KindOf(err))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("feeds: []\n"), 0644))
	_, err = Load(empty)
	assert.Equal(t, errs.KindConfig, errs.KindOf(err))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("feeds:\n  - name: x\n    url: nope\n    category: X\n"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}
