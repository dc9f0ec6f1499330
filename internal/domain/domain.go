package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"

	"genart/internal/schedule"
)

// ErrInvalidSidecar marks a metadata file that is not a JSON object.
var ErrInvalidSidecar = errors.New("invalid sidecar")

// DefaultIdleAgent is the agent name the generator publishes while it waits for the next cycle.
const DefaultIdleAgent = "Idle"

var periodLabels = map[int]string{
	1: "Morning",
	2: "Afternoon",
	3: "Evening",
	4: "Night",
}

type ArtworkRecord struct {
	Date      string   `json:"date" example:"2026-01-24"`
	Period    int      `json:"period" enum:"1,2,3,4"`
	Theme     string   `json:"theme"`
	Score     *float64 `json:"score,omitempty" doc:"Curator score out of 10"`
	Reasoning string   `json:"reasoning,omitempty"`
	Timestamp string   `json:"timestamp" format:"date-time"`
}

type StatusDocument struct {
	Agent     string `json:"agent"`
	Task      string `json:"task"`
	Progress  string `json:"progress,omitempty"`
	Timestamp string `json:"timestamp"`
	NextCycle string `json:"next_cycle,omitempty"`
}

// ParseArtwork decodes a sidecar. dir is the name of the containing date
// folder and fills in a missing date. A missing or out-of-range period is
// taken from the timestamp, or 1 when that cannot be read either.
func ParseArtwork(data []byte, dir string) (ArtworkRecord, error) {
	var rec ArtworkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ArtworkRecord{}, err
	}
	if rec.Date == "" {
		rec.Date = dir
	}
	if _, ok := periodLabels[rec.Period]; !ok {
		rec.Period = 1
		if t, ok := rec.Time(); ok {
			rec.Period = schedule.PeriodAt(t)
		}
	}
	return rec, nil
}

// UnmarshalJSON accepts the loosely typed sidecars the generator writes.
// Fields that cannot be coerced are left at their zero value.
func (a *ArtworkRecord) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null document", ErrInvalidSidecar)
	}
	var raw struct {
		Date      any `json:"date"`
		Period    any `json:"period"`
		Theme     any `json:"theme"`
		Score     any `json:"score"`
		Reasoning any `json:"reasoning"`
		Timestamp any `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	period, _ := cast.ToIntE(raw.Period)
	*a = ArtworkRecord{
		Date:      cast.ToString(raw.Date),
		Period:    period,
		Theme:     cast.ToString(raw.Theme),
		Score:     ParseScore(raw.Score),
		Reasoning: cast.ToString(raw.Reasoning),
		Timestamp: cast.ToString(raw.Timestamp),
	}
	return nil
}

// ParseScore converts a raw score to the canonical out-of-10 number. It
// accepts numbers, numeric strings and "7/10". Anything else, including the
// generator's "N/A", means no score.
func ParseScore(v any) *float64 {
	switch x := v.(type) {
	case nil, bool:
		return nil
	case string:
		s := strings.TrimSpace(x)
		if num, denom, found := strings.Cut(s, "/"); found {
			d, err := strconv.ParseFloat(strings.TrimSpace(denom), 64)
			if err != nil || d == 0 {
				return nil
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil {
				return nil
			}
			return finite(n * 10 / d)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return finite(f)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Key is the display key of a record; unique per rendered set by convention only.
func (a ArtworkRecord) Key() string {
	return fmt.Sprintf("%s-%d", a.Date, a.Period)
}

func (a ArtworkRecord) PeriodLabel() string {
	return PeriodLabel(a.Period)
}

// ImagePath is the companion image relative to the gallery root.
func (a ArtworkRecord) ImagePath() string {
	return path.Join(a.Date, fmt.Sprintf("period_%d.png", a.Period))
}

// CodePath is the companion source file relative to the gallery root.
func (a ArtworkRecord) CodePath() string {
	return path.Join(a.Date, fmt.Sprintf("period_%d.py", a.Period))
}

// MetadataPath is the sidecar itself relative to the gallery root.
func (a ArtworkRecord) MetadataPath() string {
	return path.Join(a.Date, fmt.Sprintf("period_%d.json", a.Period))
}

// ScoreText renders the score as "7/10", or "" when unscored.
func (a ArtworkRecord) ScoreText() string {
	if a.Score == nil {
		return ""
	}
	return strconv.FormatFloat(*a.Score, 'f', -1, 64) + "/10"
}

// Time parses Timestamp. The zero time and false are returned when it cannot be parsed.
func (a ArtworkRecord) Time() (time.Time, bool) {
	return ParseTimestamp(a.Timestamp)
}

func PeriodLabel(period int) string {
	if l, ok := periodLabels[period]; ok {
		return l
	}
	return ""
}

// ParseTimestamp reads RFC 3339 and zone-less ISO 8601 (as written by Python's
// isoformat) plus the other layouts dateparse knows. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ClockTime renders a timestamp as HH:MM:SS, or returns it unchanged when it
// cannot be parsed.
func ClockTime(ts string) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Format("15:04:05")
}

// DuplicateKeys reports display keys that occur more than once, in first-seen order.
func DuplicateKeys(records []ArtworkRecord) []string {
	seen := make(map[string]int, len(records))
	var dups []string
	for _, r := range records {
		k := r.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// DecodeStatus decodes a status document, coercing missing or oddly typed
// fields to strings. Only a body that is not a JSON object is an error.
func DecodeStatus(data []byte) (StatusDocument, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return StatusDocument{}, fmt.Errorf("decode status: %w", err)
	}
	if raw == nil {
		return StatusDocument{}, errors.New("decode status: empty document")
	}
	return StatusDocument{
		Agent:     cast.ToString(raw["agent"]),
		Task:      cast.ToString(raw["task"]),
		Progress:  cast.ToString(raw["progress"]),
		Timestamp: cast.ToString(raw["timestamp"]),
		NextCycle: cast.ToString(raw["next_cycle"]),
	}, nil
}

// IsIdle reports whether the document names the idle agent.
func (s StatusDocument) IsIdle(idleAgent string) bool {
	if idleAgent == "" {
		idleAgent = DefaultIdleAgent
	}
	return s.Agent == idleAgent
}
