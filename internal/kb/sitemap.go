package kb

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// chunkSize bounds each indexed excerpt, in bytes of UTF-8 text.
	chunkSize = 2000

	// maxPageBytes caps how much of a page body we read.
	maxPageBytes = 2 << 20

	fetchTimeout = 30 * time.Second
)

var httpClient = &http.Client{Timeout: fetchTimeout}

// sitemapIndex matches both <urlset> and <sitemapindex> documents; nested
// sitemaps are not followed.
type sitemapDoc struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// fetchSitemap downloads a sitemap.xml and returns the page URLs it lists.
func fetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	body, err := fetchBody(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	return parseSitemap(body)
}

func parseSitemap(data []byte) ([]string, error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	urls := make([]string, 0, len(doc.URLs))
	for _, u := range doc.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// fetchPageText downloads a page and reduces it to plain text.
func fetchPageText(ctx context.Context, pageURL string) (string, error) {
	body, err := fetchBody(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return stripHTML(string(body)), nil
}

func fetchBody(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

var (
	scriptRE = regexp.MustCompile(`(?is)<(script|style)\b.*?</(script|style)>`)
	tagRE    = regexp.MustCompile(`<[^>]*>`)
	spaceRE  = regexp.MustCompile(`\s+`)
)

// stripHTML removes script and style blocks, then all tags, and collapses
// whitespace. Crude but sufficient for indexing documentation pages.
func stripHTML(html string) string {
	text := scriptRE.ReplaceAllString(html, " ")
	text = tagRE.ReplaceAllString(text, " ")
	text = spaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// chunkText splits text into pieces of at most size bytes, breaking on
// word boundaries where one exists and never inside a UTF-8 sequence.
func chunkText(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > size {
		cut := size
		if i := strings.LastIndexByte(text[:cut], ' '); i > size/2 {
			cut = i
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
