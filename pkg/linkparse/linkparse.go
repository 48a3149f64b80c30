// Package linkparse extracts anchors from HTML directory listings.
//
// Besides the anchor text and href, every Link carries the rest of the
// listing row it sits in: the other cells of the enclosing <tr> for table
// listings (CIRCL, abuse.ch), or the remainder of the line for <pre> listings
// (Apache and nginx autoindex). Last-modified dates live there; the link's
// own cell is left out so a date in the file name cannot shadow them.
package linkparse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link is one anchor found in a page
type Link struct {
	Text string
	Href string
	// Context is the row text outside the anchor's own cell or element
	Context string
}

// HTMLParser parses listing pages with goquery
type HTMLParser struct{}

// New returns a parser
func New() *HTMLParser {
	return &HTMLParser{}
}

// Parse returns every anchor with a non-empty href in document order
func (p *HTMLParser) Parse(body []byte) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		links = append(links, Link{
			Text:    collapse(a.Text()),
			Href:    href,
			Context: rowContext(a),
		})
	})

	return links, nil
}

func rowContext(a *goquery.Selection) string {
	if tr := a.Closest("tr"); tr.Length() > 0 {
		own := a.Closest("td, th")
		var cells []string
		tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			if own.Length() > 0 && c.Nodes[0] == own.Nodes[0] {
				return
			}
			cells = append(cells, c.Text())
		})
		return collapse(strings.Join(cells, " "))
	}

	// <pre> listings: "<a href=x>x</a>     09-Jan-2024 10:11    15K\n"
	if len(a.Nodes) == 0 {
		return ""
	}
	next := a.Nodes[0].NextSibling
	if next == nil || next.Type != html.TextNode {
		return ""
	}
	line := next.Data
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return collapse(line)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
