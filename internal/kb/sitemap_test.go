package kb

import (
	"strings"
	"testing"
)

func TestParseSitemap(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://docs.example.com/</loc></url>
  <url><loc>  https://docs.example.com/guide </loc></url>
  <url><loc></loc></url>
</urlset>`)

	urls, err := parseSitemap(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://docs.example.com/", "https://docs.example.com/guide"}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestParseSitemapMalformed(t *testing.T) {
	if _, err := parseSitemap([]byte("not xml at all")); err == nil {
		t.Fatal("expected error for malformed sitemap")
	}
}

func TestStripHTML(t *testing.T) {
	html := `<html><head><style>body { color: red }</style>
<script>var x = "<div>";</script></head>
<body><h1>Title</h1><p>Some   <b>bold</b> text.</p></body></html>`

	got := stripHTML(html)
	if got != "Title Some bold text." {
		t.Errorf("stripHTML = %q", got)
	}
}

func TestChunkText(t *testing.T) {
	text := strings.Repeat("word ", 100) // 500 bytes
	chunks := chunkText(text, 120)

	if len(chunks) < 4 {
		t.Fatalf("len(chunks) = %d, want >= 4", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 120 {
			t.Errorf("chunk %d is %d bytes, exceeds limit", i, len(c))
		}
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d has surrounding whitespace: %q", i, c)
		}
	}
	if joined := strings.Join(chunks, " "); joined != strings.TrimSpace(text) {
		t.Error("chunks do not reassemble to the original text")
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := chunkText("   ", 100); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestChunkTextMultibyte(t *testing.T) {
	text := strings.Repeat("héllo ", 50)
	for _, c := range chunkText(text, 64) {
		if !strings.HasPrefix(c, "h") {
			t.Errorf("chunk split inside a rune: %q", c)
		}
	}
}
