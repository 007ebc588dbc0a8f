// Package htmlutil extracts the text a reader would see from HTML documents.
package htmlutil

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/happyhackingspace/maxent/internal/textutil"
	"golang.org/x/net/html"
)

// LoadHTML parses HTML from r into a goquery Document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses an HTML string into a goquery Document.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// Title returns the normalized text of the first <title> element.
func Title(doc *goquery.Document) string {
	return clean(doc.Find("title").First().Text())
}

// MetaContent returns the content attribute of <meta name="name">.
func MetaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if n, _ := s.Attr("name"); strings.EqualFold(n, name) {
			content, _ = s.Attr("content")
			return false
		}
		return true
	})
	return clean(content)
}

// Headings returns the text of every h1, h2 and h3 element in document order.
func Headings(doc *goquery.Document) []string {
	var out []string
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if text := clean(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// skipped elements never contribute visible text.
var skipped = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

// VisibleText returns the text under sel with scripts, styles, comments and
// elements carrying the hidden attribute removed. Text chunks are joined by
// single spaces.
func VisibleText(sel *goquery.Selection) string {
	var buf []string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				buf = append(buf, textutil.NormalizeWhitespaces(text))
			}
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if skipped[n.Data] || hasAttr(n, "hidden") {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range sel.Nodes {
		visit(n)
	}
	return strings.Join(buf, " ")
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func clean(s string) string {
	return strings.TrimSpace(textutil.NormalizeWhitespaces(s))
}
