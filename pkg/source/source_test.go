package source

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/fetch"
	"airgapintel/pkg/linkparse"
	"airgapintel/pkg/models"
	"airgapintel/pkg/window"
)

type stubFetcher struct {
	pages map[string]string
	err   error
	calls []string
	uas   []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string, opts ...fetch.Option) (*fetch.Response, error) {
	s.calls = append(s.calls, url)
	s.uas = append(s.uas, fetch.ResolveUserAgent("", opts...))
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.pages[url]
	if !ok {
		return nil, errs.Fetch(url, http.StatusNotFound, errors.New("HTTP 404 Not Found"))
	}
	return &fetch.Response{Status: http.StatusOK, Body: []byte(body)}, nil
}

type failingParser struct{}

func (failingParser) Parse([]byte) ([]linkparse.Link, error) {
	return nil, errors.New("malformed listing")
}

func ref() time.Time {
	return time.Date(2024, time.January, 10, 15, 30, 0, 0, time.UTC)
}

func TestStaticListIgnoresWindow(t *testing.T) {
	s := NewStaticList("MISP defaults", "MISP Site Feeds (Others)", []StaticEntry{
		{Name: "Feodo IP Blocklist.csv", URL: "https://feodotracker.abuse.ch/downloads/ipblocklist.csv"},
		{Name: "ci-badguys.txt", URL: "https://cinsscore.com/list/ci-badguys.txt", UserAgent: "ua"},
	})

	for _, days := range []int{0, 7, 90} {
		tasks, err := s.ListTasks(context.Background(), window.New(days, ref()))
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, models.FetchTask{
			Category:    "MISP Site Feeds (Others)",
			DisplayName: "Feodo IP Blocklist.csv",
			SourceURL:   "https://feodotracker.abuse.ch/downloads/ipblocklist.csv",
		}, tasks[0])
		assert.Equal(t, "ua", tasks[1].UserAgent)
	}
}

func TestDateTemplated(t *testing.T) {
	d := NewDateTemplated(DateTemplatedConfig{
		Name:        "Malshare daily",
		Category:    "Malshare Daily Feeds",
		URLTemplate: "https://malshare.com/daily/{date}/malshare_fileList.{date}.all.txt",
	})

	tasks, err := d.ListTasks(context.Background(), window.New(2, ref()))
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "https://malshare.com/daily/2024-01-08/malshare_fileList.2024-01-08.all.txt", tasks[0].SourceURL)
	assert.Equal(t, "malshare_fileList.2024-01-08.all.txt", tasks[0].DisplayName)
	assert.Equal(t, "https://malshare.com/daily/2024-01-10/malshare_fileList.2024-01-10.all.txt", tasks[2].SourceURL)
	assert.Equal(t, models.Category("Malshare Daily Feeds"), tasks[1].Category)
}

func TestDateTemplatedNameTemplateAndLayout(t *testing.T) {
	d := NewDateTemplated(DateTemplatedConfig{
		Name:         "dumps",
		Category:     "Dumps",
		URLTemplate:  "https://example.test/dump?d={date}",
		NameTemplate: "dump-{date}.json",
		Layout:       "20060102",
	})

	tasks, err := d.ListTasks(context.Background(), window.New(0, ref()))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "https://example.test/dump?d=20240110", tasks[0].SourceURL)
	assert.Equal(t, "dump-20240110.json", tasks[0].DisplayName)
}

const circlIndex = `<html><body><table>
<tr><th><a href="?C=N;O=D">Name</a></th><th><a href="?C=M;O=A">Last modified</a></th><th>Size</th></tr>
<tr><td><img src="/icons/back.gif"></td><td><a href="/doc/misp/">Parent Directory</a></td><td>&nbsp;</td><td>-</td><td>&nbsp;</td></tr>
<tr><td><img src="/icons/text.gif"></td><td><a href="5f0e-aaaa.json">5f0e-aaaa.json</a></td><td>2024-01-09 23:10</td><td>12K</td><td>&nbsp;</td></tr>
<tr><td><img src="/icons/text.gif"></td><td><a href="6a11-bbbb.json">6a11-bbbb.json</a></td><td>2023-12-01 08:00</td><td>3K</td><td>&nbsp;</td></tr>
<tr><td><img src="/icons/text.gif"></td><td><a href="manifest.json">manifest.json</a></td><td>2024-01-10 06:00</td><td>90K</td><td>&nbsp;</td></tr>
<tr><td><img src="/icons/text.gif"></td><td><a href="5f0e-aaaa.json">5f0e-aaaa.json</a></td><td>2024-01-09 23:10</td><td>12K</td><td>&nbsp;</td></tr>
</table></body></html>`

func TestListingScrapeDateFromContext(t *testing.T) {
	const index = "https://www.circl.lu/doc/misp/feed-osint/"
	f := &stubFetcher{pages: map[string]string{index: circlIndex}}
	l := NewListingScrape(ListingConfig{
		Name:     "CIRCL OSINT Feed",
		Category: "CIRCL Feeds",
		IndexURL: "https://www.circl.lu/doc/misp/feed-osint",
		Policy:   DateFromContext,
	}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(2, ref()))
	require.NoError(t, err)

	assert.Equal(t, []string{index}, f.calls, "trailing slash is enforced")
	require.Len(t, tasks, 2)
	assert.Equal(t, "https://www.circl.lu/doc/misp/feed-osint/5f0e-aaaa.json", tasks[0].SourceURL)
	assert.Equal(t, "5f0e-aaaa.json", tasks[0].DisplayName)
	assert.Equal(t, "https://www.circl.lu/doc/misp/feed-osint/manifest.json", tasks[1].SourceURL)
}

const preIndex = `<html><body><h1>Index of /data/feed-osint</h1><pre>
<a href="../">../</a>
<a href="?C=S;O=A">Size</a>
<a href="#top">top</a>
<a href="sub/">sub/</a>
<a href="https://elsewhere.test/x.json">mirror.json</a>
<a href="0001.json">0001.json</a>                   01-Jan-2020 10:11    15K
<a href="hashes.csv">hashes.csv</a>                 10-Jan-2024 08:00   1.2M
<a href="0002.json">0002.json</a>                   02-Jan-2020 10:11    15K
</pre></body></html>`

func TestListingScrapeMatchWithoutDates(t *testing.T) {
	const index = "https://www.botvrij.eu/data/feed-osint/"
	f := &stubFetcher{pages: map[string]string{index: preIndex}}
	l := NewListingScrape(ListingConfig{
		Name:      "The Botvrij.eu Data",
		Category:  "Botvrij Feeds",
		IndexURL:  index,
		Match:     regexp.MustCompile(`\.json$`),
		Policy:    DateNone,
		UserAgent: "Mozilla/5.0 (compatible; IntelScraperBot/1.0)",
	}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(7, ref()))
	require.NoError(t, err)

	// old files are kept because the policy ignores dates; off-host and navigation links are not
	require.Len(t, tasks, 2)
	assert.Equal(t, index+"0001.json", tasks[0].SourceURL)
	assert.Equal(t, index+"0002.json", tasks[1].SourceURL)
	assert.Equal(t, "Mozilla/5.0 (compatible; IntelScraperBot/1.0)", tasks[0].UserAgent)
	assert.Equal(t, []string{"Mozilla/5.0 (compatible; IntelScraperBot/1.0)"}, f.uas)
}

func TestListingScrapeAllLinks(t *testing.T) {
	const index = "https://osint.digitalside.it/Threat-Intel/digitalside-misp-feed/"
	f := &stubFetcher{pages: map[string]string{index: preIndex}}
	l := NewListingScrape(ListingConfig{Name: "DigitalSide", Category: "Others", IndexURL: index}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(7, ref()))
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "0001.json", tasks[0].DisplayName)
	assert.Equal(t, "hashes.csv", tasks[1].DisplayName)
	assert.Equal(t, "0002.json", tasks[2].DisplayName)
}

func TestListingScrapeTruncatedText(t *testing.T) {
	const index = "https://example.test/feeds/"
	page := `<pre><a href="a-very-long-feed-file-name-that-got-cut-off.json">a-very-long-feed-file-name-tha..&gt;</a> 09-Jan-2024 10:11 1K
<a href="x.json"> </a> 09-Jan-2024 10:11 1K
</pre>`
	f := &stubFetcher{pages: map[string]string{index: page}}
	l := NewListingScrape(ListingConfig{Name: "long", Category: "Long", IndexURL: index}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(7, ref()))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a-very-long-feed-file-name-that-got-cut-off.json", tasks[0].DisplayName)
	assert.Equal(t, "x.json", tasks[1].DisplayName)
}

func TestListingScrapeDateFromLink(t *testing.T) {
	const index = "https://example.test/daily/"
	page := `<ul>
<li><a href="feed-2024-01-07.csv">feed-2024-01-07.csv</a></li>
<li><a href="feed-2024-01-08.csv">feed-2024-01-08.csv</a></li>
<li><a href="feed_20240110.csv">today</a></li>
<li><a href="latest.csv">latest.csv</a></li>
</ul>`
	f := &stubFetcher{pages: map[string]string{index: page}}
	l := NewListingScrape(ListingConfig{Name: "daily", Category: "Daily", IndexURL: index, Policy: DateFromLink}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(2, ref()))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "feed-2024-01-08.csv", tasks[0].DisplayName)
	assert.Equal(t, "today", tasks[1].DisplayName)
}

func TestListingScrapeModifiedColumnWinsOverFileName(t *testing.T) {
	const index = "https://bazaar.abuse.ch/downloads/misp/"
	page := `<table>
<tr><td><a href="report-2023-01-01.json">report-2023-01-01.json</a></td><td>2024-01-09 23:10</td><td>4K</td></tr>
<tr><td><a href="report-2024-01-09.json">report-2024-01-09.json</a></td><td>2023-06-01 10:00</td><td>4K</td></tr>
</table>`
	f := &stubFetcher{pages: map[string]string{index: page}}
	l := NewListingScrape(ListingConfig{Name: "MalwareBazaar", Category: "Malware Bazaar Feeds", IndexURL: index, Policy: DateFromContext}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(2, ref()))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, index+"report-2023-01-01.json", tasks[0].SourceURL)
}

func TestListingScrapeStaysInsideDirectory(t *testing.T) {
	const index = "https://osint.example/Threat-Intel/feed/"
	page := `<pre>
<a href="/index.html">Home</a>
<a href="/Threat-Intel/other/secret.csv">secret.csv</a>
<a href="../sibling.json">sibling.json</a>
<a href="/Threat-Intel/feed-archive/a.json">a.json</a>
<a href="nested/deep.json">deep.json</a>
<a href="/Threat-Intel/feed/absolute.json">absolute.json</a>
<a href="https://osint.example/Threat-Intel/feed/full.csv">full.csv</a>
<a href="relative.json">relative.json</a>
</pre>`
	f := &stubFetcher{pages: map[string]string{index: page}}
	l := NewListingScrape(ListingConfig{Name: "DigitalSide", Category: "Others", IndexURL: index}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(7, ref()))
	require.NoError(t, err)

	var urls []string
	for _, task := range tasks {
		urls = append(urls, task.SourceURL)
	}
	assert.Equal(t, []string{
		index + "absolute.json",
		index + "full.csv",
		index + "relative.json",
	}, urls)
}

func TestListingScrapeIdempotent(t *testing.T) {
	const index = "https://www.circl.lu/doc/misp/feed-osint/"
	f := &stubFetcher{pages: map[string]string{index: circlIndex}}
	l := NewListingScrape(ListingConfig{Name: "CIRCL", Category: "CIRCL Feeds", IndexURL: index, Policy: DateFromContext}, f, nil)
	w := window.New(30, ref())

	first, err := l.ListTasks(context.Background(), w)
	require.NoError(t, err)
	second, err := l.ListTasks(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	urls := make(map[string]bool)
	for _, task := range first {
		assert.False(t, urls[task.SourceURL], "duplicate %s", task.SourceURL)
		urls[task.SourceURL] = true
	}
}

func TestListingScrapeUnreachableIndex(t *testing.T) {
	f := &stubFetcher{err: errs.Fetch("https://down.test/", 0, errors.New("connection refused"))}
	l := NewListingScrape(ListingConfig{Name: "down", Category: "Down", IndexURL: "https://down.test/"}, f, nil)

	tasks, err := l.ListTasks(context.Background(), window.New(7, ref()))
	require.Error(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, errs.KindDiscovery, errs.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestListingScrapeParseFailure(t *testing.T) {
	const index = "https://example.test/"
	f := &stubFetcher{pages: map[string]string{index: "<html>"}}
	l := NewListingScrape(ListingConfig{Name: "x", Category: "X", IndexURL: index}, f, failingParser{})

	tasks, err := l.ListTasks(context.Background(), window.New(7, ref()))
	require.Error(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, errs.KindDiscovery, errs.KindOf(err))
}

func TestParseDatePolicy(t *testing.T) {
	for in, want := range map[string]DatePolicy{"": DateNone, "none": DateNone, "Link": DateFromLink, "context": DateFromContext} {
		got, err := ParseDatePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, "context", DateFromContext.String())
	assert.Equal(t, "none", DateNone.String())

	_, err := ParseDatePolicy("mtime")
	assert.Error(t, err)
}
