package linkparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preListing = `<html><head><title>Index of /data/feed-osint/</title></head>
<body><h1>Index of /data/feed-osint/</h1><hr><pre><a href="../">../</a>
<a href="0a1b2c3d.json">0a1b2c3d.json</a>                                      09-Jan-2024 10:11    15K
<a href="hashes.csv">hashes.csv</a>                                         10-Jan-2024 08:00   1.2M
<a href="manifest.json">manifest.json</a>
</pre><hr></body></html>`

const tableListing = `<table>
<tr><th>Name</th><th>Last modified</th><th>Size</th></tr>
<tr><td><img src="x.gif"></td><td><a href="2024-01-09.zip">2024-01-09.zip</a></td><td>2024-01-09 23:10</td><td>2.1M</td><td>&nbsp;</td></tr>
<tr><td><img src="x.gif"></td><td><a href="/downloads/misp/old.json">old.json</a></td><td>2023-11-02 01:00</td><td>7K</td><td>&nbsp;</td></tr>
</table>`

func TestParsePreListing(t *testing.T) {
	links, err := New().Parse([]byte(preListing))
	require.NoError(t, err)
	require.Len(t, links, 4)

	assert.Equal(t, Link{Text: "../", Href: "../", Context: ""}, links[0])
	assert.Equal(t, "0a1b2c3d.json", links[1].Href)
	assert.Equal(t, "09-Jan-2024 10:11 15K", links[1].Context)
	assert.Equal(t, "10-Jan-2024 08:00 1.2M", links[2].Context)
	assert.Equal(t, "", links[3].Context)
}

func TestParseTableListing(t *testing.T) {
	links, err := New().Parse([]byte(tableListing))
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "2024-01-09.zip", links[0].Text)
	assert.Contains(t, links[0].Context, "2024-01-09 23:10")
	assert.Equal(t, "/downloads/misp/old.json", links[1].Href)
	assert.Contains(t, links[1].Context, "2023-11-02")
}

func TestParseTableContextExcludesLinkCell(t *testing.T) {
	page := `<table>
<tr><td><a href="report-2023-01-01.json">report-2023-01-01.json</a></td><td>2024-01-09 23:10</td><td>4K</td></tr>
</table>`

	links, err := New().Parse([]byte(page))
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "2024-01-09 23:10 4K", links[0].Context)
	assert.NotContains(t, links[0].Context, "2023-01-01")
}

func TestParseSkipsEmptyHref(t *testing.T) {
	links, err := New().Parse([]byte(`<p><a href="">none</a><a name="x">anchor</a><a href=" a.txt ">a</a></p>`))
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "a.txt", links[0].Href)
}

func TestParseEmptyBody(t *testing.T) {
	links, err := New().Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, links)
}
