package genartsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v0/artworks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "1" {
			w.Write([]byte(`{"items":[{"key":"2026-01-25-1","date":"2026-01-25","period":1,"theme":"Dawn","score":7.5}],"count":1}`))
			return
		}
		w.Write([]byte(`{"items":[{"key":"2026-01-25-1"},{"key":"2026-01-24-4"}],"count":2}`))
	})
	mux.HandleFunc("/v0/dates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":["2026-01-25","2026-01-24"]}`))
	})
	mux.HandleFunc("/v0/dates/2026-01-25/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"key":"2026-01-25-1","theme":"First try","image_url":"/gallery/2026-01-25/archive/period_1_014431.png"}],"count":1}`))
	})
	mux.HandleFunc("/v0/dates/nope/archive", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"bad_request","message":"invalid date folder name"}}`))
	})
	mux.HandleFunc("/v0/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"idle","loading":false,"status":{"agent":"Idle","task":"Waiting","timestamp":"2026-01-24T12:00:00"},"next_cycle":"in 5h 0m"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := newTestAPI(t)
	c := New(srv.URL + "/")
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	all, err := c.ListArtworks(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)

	one, err := c.ListArtworks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one.Items, 1)
	require.NotNil(t, one.Items[0].Score)
	assert.Equal(t, 7.5, *one.Items[0].Score)

	dates, err := c.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-25", "2026-01-24"}, dates)

	archive, err := c.Archive(ctx, "2026-01-25")
	require.NoError(t, err)
	assert.Equal(t, "First try", archive.Items[0].Theme)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", st.State)
	require.NotNil(t, st.Status)
	assert.Equal(t, "Idle", st.Status.Agent)
	assert.Equal(t, "in 5h 0m", st.NextCycle)
}

func TestClientAPIError(t *testing.T) {
	srv := newTestAPI(t)
	_, err := New(srv.URL).Archive(context.Background(), "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad_request")
}
