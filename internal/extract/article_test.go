package extract

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const wikiPage = `<html><body>
<div id="mw-content-text"><div class="mw-parser-output">
<table class="infobox"><tr><td><p>Infobox text</p></td></tr></table>
<p>Laksa is a spicy noodle soup popular in Southeast Asia.</p>
<p>It is made with rice noodles.</p>
<h2>Varieties</h2>
<p>Curry laksa uses coconut milk.</p>
<h2>Origin</h2>
<p>The origin of laksa is unclear.</p>
<h2>See also</h2>
<p>Mee siam</p>
</div></div>
<footer>Wikimedia footer</footer>
</body></html>`

func TestWikipediaReader(t *testing.T) {
	r := NewReaders()

	reader := r.Find("https://en.wikipedia.org/wiki/Laksa", "text/html")
	if reader.Name() != "wikipedia" {
		t.Fatalf("expected wikipedia reader, got %s", reader.Name())
	}

	text, err := r.ArticleText(wikiPage, "https://en.wikipedia.org/wiki/Laksa", "text/html")
	if err != nil {
		t.Fatalf("ArticleText failed: %v", err)
	}

	for _, want := range []string{"spicy noodle soup", "rice noodles", "origin of laksa is unclear"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
	for _, unwanted := range []string{"Infobox text", "coconut milk", "Mee siam", "footer"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("did not expect %q in %q", unwanted, text)
		}
	}
}

func TestWikipediaReader_CanHandle(t *testing.T) {
	w := &WikipediaReader{}
	tests := map[string]bool{
		"https://en.wikipedia.org/wiki/Go":     true,
		"https://wikipedia.org/":               true,
		"https://notwikipedia.org.example/x":   false,
		"https://example.com/?q=wikipedia.org": false,
	}
	for u, want := range tests {
		if got := w.CanHandle(u, ""); got != want {
			t.Errorf("CanHandle(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestGenericReader(t *testing.T) {
	r := NewReaders()
	page := `<html><body><nav>Menu</nav><article><h1>Launch</h1><p>NASA launched Artemis I in 2022.</p></article><aside>Ads</aside></body></html>`

	text, err := r.ArticleText(page, "https://news.example/story", "text/html")
	if err != nil {
		t.Fatalf("ArticleText failed: %v", err)
	}
	if text != "Launch NASA launched Artemis I in 2022." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestReaders_FallsBackToVisibleText(t *testing.T) {
	r := NewReaders()
	page := `<html><body><p>Plain page text.</p></body></html>`

	text, err := r.ArticleText(page, "https://en.wikipedia.org/wiki/Missing", "text/html")
	if err != nil {
		t.Fatalf("ArticleText failed: %v", err)
	}
	if text != "Plain page text." {
		t.Errorf("unexpected text %q", text)
	}
}

type pressReleaseReader struct{}

func (pressReleaseReader) Name() string { return "press-release" }

func (pressReleaseReader) CanHandle(rawURL, _ string) bool {
	return strings.Contains(rawURL, "/news-release/")
}

func (pressReleaseReader) ArticleText(doc *html.Node) string {
	node := findFirst(doc, func(n *html.Node) bool { return hasClass(n, "release-body") })
	if node == nil {
		return ""
	}
	return strings.TrimSpace(extractVisibleText(node))
}

func TestReaders_Register(t *testing.T) {
	readers := NewReaders()
	readers.Register(pressReleaseReader{})

	page := `<html><body><nav>Menu</nav><div class="release-body"><p>Artemis I lifted off at 1:47 a.m. EST.</p></div></body></html>`

	if name := readers.Find("https://www.nasa.gov/news-release/artemis-i", "text/html").Name(); name != "press-release" {
		t.Fatalf("Find picked %q", name)
	}
	if name := readers.Find("https://en.wikipedia.org/wiki/Artemis_1", "text/html").Name(); name != "wikipedia" {
		t.Errorf("registered reader must not shadow wikipedia, got %q", name)
	}

	text, err := readers.ArticleText(page, "https://www.nasa.gov/news-release/artemis-i", "text/html")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Artemis I lifted off at 1:47 a.m. EST." {
		t.Errorf("ArticleText = %q", text)
	}
}
