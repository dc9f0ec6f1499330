package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"genart/internal/domain"
)

func writeSidecar(t testing.TB, root, date string, period int, ts string) {
	t.Helper()
	dir := filepath.Join(root, date)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	body := fmt.Sprintf(`{"date":%q,"period":%d,"theme":"theme %d","score":8,"timestamp":%q}`, date, period, period, ts)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("period_%d.json", period)), []byte(body), 0o644))
}

func writeFile(t testing.TB, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScanMissingRoot(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "nope"), zaptest.NewLogger(t))
	recs, err := s.Scan()
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestScanRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "gallery")
	writeFile(t, root, "not a dir")
	_, err := NewScanner(root, nil).Scan()
	assert.Error(t, err)
}

func TestScanSortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 3, "2026-01-24T13:32:03.123456")
	writeSidecar(t, root, "2026-01-24", 4, "2026-01-24T19:02:10")
	writeSidecar(t, root, "2026-01-25", 1, "2026-01-25T01:44:31")
	writeSidecar(t, root, "2026-01-23", 2, "2026-01-23T09:00:00Z")

	recs, err := NewScanner(root, zaptest.NewLogger(t)).Scan()
	require.NoError(t, err)
	var keys []string
	for _, r := range recs {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []string{"2026-01-25-1", "2026-01-24-4", "2026-01-24-3", "2026-01-23-2"}, keys)
}

func TestScanSkipsCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 1, "2026-01-24T01:00:00")
	writeSidecar(t, root, "2026-01-24", 2, "2026-01-24T07:00:00")
	writeFile(t, filepath.Join(root, "2026-01-24", "period_3.json"), `{"date": "2026-01-24", "period": 3,`)

	recs, err := NewScanner(root, zaptest.NewLogger(t)).Scan()
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestScanKeepsLooselyTypedSidecars(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 1, "2026-01-24T01:00:00")
	writeFile(t, filepath.Join(root, "2026-01-24", "period_2.json"),
		`{"date":"2026-01-24","period":2,"theme":"unscored","score":"N/A","reasoning":"","timestamp":"2026-01-24T07:00:00"}`)
	writeFile(t, filepath.Join(root, "2026-01-24", "period_3.json"),
		`{"date":"2026-01-24","theme":"no period","timestamp":"2026-01-24T13:00:00"}`)

	recs, err := NewScanner(root, zaptest.NewLogger(t)).Scan()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "no period", recs[0].Theme)
	assert.Equal(t, 3, recs[0].Period)
	assert.Equal(t, "unscored", recs[1].Theme)
	assert.Nil(t, recs[1].Score)
	assert.Equal(t, "theme 1", recs[2].Theme)
}

func TestScanIgnoresNonSidecars(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 1, "2026-01-24T01:00:00")
	writeFile(t, filepath.Join(root, "2026-01-24", "period_1.png"), "png")
	writeFile(t, filepath.Join(root, "2026-01-24", "period_1.py"), "print('hi')")
	writeFile(t, filepath.Join(root, "README.json"), `{"period":1}`)
	writeFile(t, filepath.Join(root, "2026-01-24", "archive", "period_1_010203.json"),
		`{"date":"2026-01-24","period":1,"theme":"old","timestamp":"2026-01-24T01:02:03"}`)

	recs, err := NewScanner(root, nil).Scan()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "theme 1", recs[0].Theme)
}

func TestScanUnparsableTimestampsSinkInOrder(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 1, "garbage")
	writeSidecar(t, root, "2026-01-24", 2, "2026-01-24T07:00:00")
	writeSidecar(t, root, "2026-01-24", 3, "")

	recs, err := NewScanner(root, nil).Scan()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 2, recs[0].Period)
	assert.Equal(t, 1, recs[1].Period)
	assert.Equal(t, 3, recs[2].Period)
}

func TestScanArchive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2026-01-26", "archive", "period_2_094327.json"),
		`{"date":"2026-01-26","period":2,"theme":"first","timestamp":"2026-01-26T09:43:27"}`)
	writeFile(t, filepath.Join(root, "2026-01-26", "archive", "period_2_095152.json"),
		`{"date":"2026-01-26","period":2,"theme":"second","timestamp":"2026-01-26T09:51:52"}`)
	writeSidecar(t, root, "2026-01-27", 1, "2026-01-27T00:10:00")

	s := NewScanner(root, nil)
	recs, err := s.ScanArchive("2026-01-26")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0].Record.Theme)
	assert.Equal(t, "period_2_095152", recs[0].Base)
	assert.Equal(t, "2026-01-26/archive/period_2_095152.png", recs[0].ImagePath())
	assert.Equal(t, "2026-01-26/archive/period_2_095152.py", recs[0].CodePath())
	assert.Equal(t, "2026-01-26/archive/period_2_095152.json", recs[0].MetadataPath())

	recs, err = s.ScanArchive("2026-01-27")
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = s.ScanArchive("../etc")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDates(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 1, "2026-01-24T01:00:00")
	writeSidecar(t, root, "2026-02-02", 1, "2026-02-02T01:00:00")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")

	dates, err := NewScanner(root, nil).Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-02", "2026-01-24"}, dates)
}

type recordingObserver struct {
	records, skipped int
	err              error
}

func (o *recordingObserver) ScanFinished(records, skipped int, _ time.Duration, err error) {
	o.records, o.skipped, o.err = records, skipped, err
}

func TestScanReportsToObserver(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "2026-01-24", 1, "2026-01-24T01:00:00")
	writeFile(t, filepath.Join(root, "2026-01-24", "period_2.json"), `{"period": 2, "theme": `)

	obs := &recordingObserver{}
	s := NewScanner(root, nil)
	s.Observer = obs
	_, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, 1, obs.records)
	assert.Equal(t, 1, obs.skipped)
}

// Any mix of valid and corrupt sidecars yields exactly the valid ones, sorted
// newest first, and a second scan returns the same sequence.
func TestScanProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		root, err := os.MkdirTemp("", "gallery-prop-")
		if err != nil {
			rt.Fatalf("temp dir: %v", err)
		}
		defer os.RemoveAll(root)

		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		days := rapid.IntRange(0, 5).Draw(rt, "days")
		valid := 0
		for d := 0; d < days; d++ {
			date := base.AddDate(0, 0, d).Format("2006-01-02")
			dir := filepath.Join(root, date)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				rt.Fatalf("mkdir: %v", err)
			}
			for p := 1; p <= 4; p++ {
				kind := rapid.IntRange(0, 2).Draw(rt, fmt.Sprintf("kind_%d_%d", d, p))
				var body string
				switch kind {
				case 0:
					continue
				case 1:
					offset := rapid.IntRange(0, 72*60).Draw(rt, fmt.Sprintf("min_%d_%d", d, p))
					ts := base.Add(time.Duration(offset) * time.Minute).Format("2006-01-02T15:04:05")
					body = fmt.Sprintf(`{"date":%q,"period":%d,"theme":"t","timestamp":%q}`, date, p, ts)
					valid++
				case 2:
					body = `{"period":`
				}
				if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("period_%d.json", p)), []byte(body), 0o644); err != nil {
					rt.Fatalf("write: %v", err)
				}
			}
		}

		s := NewScanner(root, nil)
		first, err := s.Scan()
		if err != nil {
			rt.Fatalf("scan: %v", err)
		}
		if len(first) != valid {
			rt.Fatalf("got %d records, want %d", len(first), valid)
		}
		for i := 0; i+1 < len(first); i++ {
			a, _ := first[i].Time()
			b, _ := first[i+1].Time()
			if a.Before(b) {
				rt.Fatalf("records %d and %d out of order: %s < %s", i, i+1, a, b)
			}
		}
		second, err := s.Scan()
		if err != nil {
			rt.Fatalf("rescan: %v", err)
		}
		if len(first) != len(second) {
			rt.Fatalf("rescan length changed")
		}
		for i := range first {
			if first[i].Key() != second[i].Key() || first[i].Timestamp != second[i].Timestamp {
				rt.Fatalf("rescan differs at %d", i)
			}
		}
	})
}

func TestSortByTimestampStable(t *testing.T) {
	recs := []domain.ArtworkRecord{
		{Date: "a", Period: 1, Timestamp: "2026-01-01T00:00:00Z"},
		{Date: "b", Period: 1, Timestamp: "2026-01-02T00:00:00Z"},
		{Date: "c", Period: 1, Timestamp: "2026-01-01T00:00:00Z"},
	}
	SortByTimestamp(recs)
	assert.Equal(t, "b", recs[0].Date)
	assert.Equal(t, "a", recs[1].Date)
	assert.Equal(t, "c", recs[2].Date)
}
