package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCycle(t *testing.T) {
	s, err := Parse(DefaultCycle)
	require.NoError(t, err)

	now := time.Date(2026, 1, 24, 13, 48, 30, 0, time.UTC)
	assert.WithinDuration(t, time.Date(2026, 1, 24, 18, 0, 0, 0, time.UTC), s.Next(now), 0)
	assert.Equal(t, "in 4h 11m", s.Until(now))

	late := time.Date(2026, 1, 24, 23, 30, 0, 0, time.UTC)
	assert.WithinDuration(t, time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC), s.Next(late), 0)
	assert.Equal(t, "in 0h 30m", s.Until(late))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("every six hours")
	assert.Error(t, err)
}

func TestPeriodAt(t *testing.T) {
	for hour, want := range map[int]int{0: 1, 5: 1, 6: 2, 11: 2, 12: 3, 17: 3, 18: 4, 23: 4} {
		assert.Equal(t, want, PeriodAt(time.Date(2026, 1, 1, hour, 59, 0, 0, time.UTC)), "hour %d", hour)
	}
}

func TestFormatWait(t *testing.T) {
	assert.Equal(t, "in 0h 0m", FormatWait(-time.Minute))
	assert.Equal(t, "in 6h 0m", FormatWait(6*time.Hour))
}
