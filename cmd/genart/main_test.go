package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"genart/internal/config"
	"genart/internal/domain"
	"genart/internal/schedule"
	"genart/internal/status"
)

func mustCycle(t *testing.T) *schedule.Schedule {
	t.Helper()
	c, err := schedule.Parse(schedule.DefaultCycle)
	require.NoError(t, err)
	return c
}

func TestRenderBannerHiddenUntilFetched(t *testing.T) {
	assert.Empty(t, renderBanner(status.Snapshot{State: status.StateLoading, Loading: true}, nil, time.Now()))
	assert.Empty(t, renderBanner(status.Snapshot{State: status.StateUnavailable, LastError: "boom"}, nil, time.Now()))
}

func TestRenderBannerActive(t *testing.T) {
	doc := domain.StatusDocument{Agent: "PixelBot", Task: "Rendering", Progress: "2/8", Timestamp: "2026-01-24T13:32:03"}
	out := renderBanner(status.Snapshot{State: status.StateActive, Doc: &doc}, mustCycle(t), time.Now())
	assert.Contains(t, out, "PixelBot")
	assert.Contains(t, out, "Rendering")
	assert.Contains(t, out, "2/8")
	assert.Contains(t, out, "Updated: 13:32:03")
	assert.NotContains(t, out, "Next cycle")
}

func TestRenderBannerIdle(t *testing.T) {
	now := time.Date(2026, 1, 24, 16, 30, 0, 0, time.UTC)
	doc := domain.StatusDocument{Agent: "Idle", Task: "Waiting", Timestamp: "2026-01-24T16:00:00"}
	out := renderBanner(status.Snapshot{State: status.StateIdle, Doc: &doc}, mustCycle(t), now)
	assert.Contains(t, out, "Next cycle: in 1h 30m")

	doc.NextCycle = "18:00"
	out = renderBanner(status.Snapshot{State: status.StateIdle, Doc: &doc}, mustCycle(t), now)
	assert.Contains(t, out, "Next cycle: 18:00")
}

func TestRenderArtworks(t *testing.T) {
	var buf bytes.Buffer
	renderArtworks(&buf, nil)
	assert.Equal(t, emptyGalleryText+"\n", buf.String())

	score := 8.0
	buf.Reset()
	renderArtworks(&buf, []listItem{{Key: "2026-01-24-3", Period: 3, Label: "Evening", Theme: "Tides", Score: &score}})
	out := buf.String()
	assert.Contains(t, out, "2026-01-24-3")
	assert.Contains(t, out, "3 (Evening)")
	assert.Contains(t, out, "8/10")
	assert.Contains(t, out, "1 artworks")
}

func TestTruncate(t *testing.T) {
	items := []listItem{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	assert.Len(t, truncate(items, 0), 3)
	assert.Len(t, truncate(items, 2), 2)
	assert.Len(t, truncate(items, 9), 3)
	assert.NotNil(t, truncate(nil, 0))
}

func TestWatchStatusPrintsUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	f := status.FetcherFunc(func(context.Context) (domain.StatusDocument, error) {
		calls++
		if calls < 3 {
			return domain.StatusDocument{}, errors.New("offline")
		}
		cancel()
		return domain.StatusDocument{Agent: "Curator", Task: "Scoring"}, nil
	})
	cfg := config.Default()
	cfg.Status.Interval = 10 * time.Millisecond

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- watchStatus(ctx, &buf, f, cfg, mustCycle(t), zap.NewNop()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
	assert.True(t, strings.HasPrefix(buf.String(), "status unavailable: offline"))
}
