package status

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"genart/internal/domain"
)

// maxStatusBody caps the status document read from the remote store.
const maxStatusBody int64 = 1 << 20

// Fetcher retrieves the current status document.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.StatusDocument, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (domain.StatusDocument, error)

func (f FetcherFunc) Fetch(ctx context.Context) (domain.StatusDocument, error) { return f(ctx) }

// HTTPError wraps non-2xx responses from the status URL.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status fetch: status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPFetcher reads the status document over HTTP, bypassing caches.
type HTTPFetcher struct {
	URL        string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Timeout: timeout, HTTPClient: &http.Client{Timeout: timeout}}
}

// Fetch is safe for concurrent use; a zero HTTPClient gets a per-call client.
func (f *HTTPFetcher) Fetch(ctx context.Context) (domain.StatusDocument, error) {
	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: f.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return domain.StatusDocument{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	resp, err := client.Do(req)
	if err != nil {
		return domain.StatusDocument{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return domain.StatusDocument{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.StatusDocument{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return domain.DecodeStatus(body)
}
