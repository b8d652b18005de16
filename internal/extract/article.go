package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ArticleReader pulls the article body out of a page of a known kind
type ArticleReader interface {
	// Name returns the reader name
	Name() string

	// CanHandle reports whether the reader understands pages at rawURL
	CanHandle(rawURL, contentType string) bool

	// ArticleText returns the article body as plain text
	ArticleText(doc *html.Node) string
}

// Readers picks an ArticleReader per page
type Readers struct {
	readers []ArticleReader
	generic ArticleReader
}

// NewReaders creates the built-in reader set with the generic reader as
// fallback
func NewReaders() *Readers {
	return &Readers{
		readers: []ArticleReader{&WikipediaReader{}},
		generic: &GenericReader{},
	}
}

// Register adds a reader ahead of the fallback
func (r *Readers) Register(reader ArticleReader) {
	r.readers = append(r.readers, reader)
}

// Find returns the first reader that can handle the page
func (r *Readers) Find(rawURL, contentType string) ArticleReader {
	for _, reader := range r.readers {
		if reader.CanHandle(rawURL, contentType) {
			return reader
		}
	}
	return r.generic
}

// ArticleText parses htmlContent and reads it with the matching reader.
// An empty result falls back to the page's visible text.
func (r *Readers) ArticleText(htmlContent, rawURL, contentType string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	if text := r.Find(rawURL, contentType).ArticleText(doc); text != "" {
		return text, nil
	}
	return strings.TrimSpace(extractVisibleText(doc)), nil
}

// GenericReader reads <article>, then <main>, then the whole page
type GenericReader struct{}

func (g *GenericReader) Name() string { return "generic" }

func (g *GenericReader) CanHandle(string, string) bool { return true }

func (g *GenericReader) ArticleText(doc *html.Node) string {
	for _, tag := range []string{"article", "main"} {
		node := findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == tag
		})
		if node == nil {
			continue
		}
		if text := extractVisibleText(node); text != "" {
			return text
		}
	}
	return extractVisibleText(doc)
}

// WikipediaReader reads the lead section and any origin, history or
// etymology sections, skipping infoboxes and navigation boxes
type WikipediaReader struct{}

func (w *WikipediaReader) Name() string { return "wikipedia" }

func (w *WikipediaReader) CanHandle(rawURL, _ string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")
}

func (w *WikipediaReader) ArticleText(doc *html.Node) string {
	content := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(hasClass(n, "mw-parser-output") || attr(n, "id") == "mw-content-text")
	})
	if content == nil {
		return ""
	}

	paragraphs := leadParagraphs(content)
	for _, header := range findAll(content, isHistoryHeader) {
		paragraphs = append(paragraphs, sectionParagraphs(header)...)
	}

	parts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if text := extractVisibleText(p); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// leadParagraphs collects <p> elements before the first <h2>
func leadParagraphs(content *html.Node) []*html.Node {
	var out []*html.Node
	inLead := true

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if !inLead {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "h2":
				inLead = false
				return
			case n.Data == "table" && (hasClass(n, "infobox") || hasClass(n, "navbox")):
				return
			case n.Data == "p":
				out = append(out, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(content)
	return out
}

func isHistoryHeader(n *html.Node) bool {
	if n.Type != html.ElementNode || (n.Data != "h2" && n.Data != "h3") {
		return false
	}
	text := strings.ToLower(extractVisibleText(n))
	return strings.Contains(text, "origin") ||
		strings.Contains(text, "history") ||
		strings.Contains(text, "etymology")
}

// sectionParagraphs collects <p> siblings after header up to the next header.
// Newer skins wrap headers in a div, so the wrapper's siblings are used.
func sectionParagraphs(header *html.Node) []*html.Node {
	start := header
	if p := header.Parent; p != nil && p.Data == "div" && hasClass(p, "mw-heading") {
		start = p
	}

	var out []*html.Node
	for sib := start.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		if sib.Data == "h2" || sib.Data == "h3" || hasClass(sib, "mw-heading") {
			break
		}
		if sib.Data == "p" {
			out = append(out, sib)
		}
	}
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if match(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}
