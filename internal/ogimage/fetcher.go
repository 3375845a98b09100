package ogimage

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultTimeout bounds the whole fetch; slow pages never hold up a search response.
	DefaultTimeout = 5 * time.Second

	// maxBodyBytes caps how much markup is scanned for the meta tag. og:image
	// tags live in <head>, so a page that exceeds this simply yields nothing.
	maxBodyBytes = 1 << 20
)

// Fetcher extracts a page's og:image preview URL. It is strictly best-effort:
// every failure path returns the empty string and never an error, so a broken
// or slow target page cannot fail the surrounding search request.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// Fetch returns the absolute og:image URL for pageURL, or "" when the page is
// unreachable, is not HTML, has no og:image tag, or the tag's value is not an
// absolute HTTP(S) URL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) string {
	if !isHTTPURL(pageURL) {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Printf("Preview image fetch failed for %s: %v", pageURL, err)
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return ""
	}

	imageURL := extractOGImage(io.LimitReader(resp.Body, maxBodyBytes))
	if !isHTTPURL(imageURL) {
		return ""
	}
	return imageURL
}

// extractOGImage scans markup for <meta property="og:image" content="...">.
// Tokenizer errors (truncated or malformed HTML) end the scan silently.
func extractOGImage(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch string(key) {
				case "property":
					property = string(val)
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}
			if property == "og:image" && content != "" {
				return content
			}
		}
	}
}

func isHTTPURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
