package genartsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal genart gallery API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Artwork is one gallery entry.
type Artwork struct {
	Key         string   `json:"key"`
	Date        string   `json:"date"`
	Period      int      `json:"period"`
	PeriodLabel string   `json:"period_label"`
	Theme       string   `json:"theme"`
	Score       *float64 `json:"score,omitempty"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Timestamp   string   `json:"timestamp"`
	ImageURL    string   `json:"image_url"`
	CodeURL     string   `json:"code_url"`
	MetadataURL string   `json:"metadata_url"`
}

// ArtworkList wraps list responses.
type ArtworkList struct {
	Items []Artwork `json:"items"`
	Count int       `json:"count"`
}

// StatusDocument is the generator's published status.
type StatusDocument struct {
	Agent     string `json:"agent"`
	Task      string `json:"task"`
	Progress  string `json:"progress,omitempty"`
	Timestamp string `json:"timestamp"`
	NextCycle string `json:"next_cycle,omitempty"`
}

// Status is the server's view of the latest status poll.
type Status struct {
	State     string          `json:"state"`
	Loading   bool            `json:"loading"`
	Status    *StatusDocument `json:"status,omitempty"`
	NextCycle string          `json:"next_cycle,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health returns nil when the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	if err := c.do(ctx, "health", &resp); err != nil {
		return err
	}
	if resp["status"] != "ok" {
		return fmt.Errorf("unexpected health status %q", resp["status"])
	}
	return nil
}

// ListArtworks returns artworks most recent first. limit <= 0 returns all.
func (c *Client) ListArtworks(ctx context.Context, limit int) (ArtworkList, error) {
	endpoint := "artworks"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var resp ArtworkList
	err := c.do(ctx, endpoint, &resp)
	return resp, err
}

// Dates returns the gallery's date folders, newest first.
func (c *Client) Dates(ctx context.Context) ([]string, error) {
	var resp struct {
		Items []string `json:"items"`
	}
	err := c.do(ctx, "dates", &resp)
	return resp.Items, err
}

// Archive returns the archived attempts kept for date (YYYY-MM-DD).
func (c *Client) Archive(ctx context.Context, date string) (ArtworkList, error) {
	var resp ArtworkList
	err := c.do(ctx, fmt.Sprintf("dates/%s/archive", url.PathEscape(date)), &resp)
	return resp, err
}

// Status returns the latest status snapshot held by the server.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.do(ctx, "status", &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
