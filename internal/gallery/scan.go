// Package gallery reads artwork sidecars from the on-disk gallery tree:
//
//	<root>/<date>/period_<N>.json|png|py
//	<root>/<date>/archive/period_<N>_<HHMMSS>.json|png|py
package gallery

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"genart/internal/domain"
)

const (
	metadataExt = ".json"
	archiveDir  = "archive"
)

// Scanner walks a gallery root. Observer is optional.
type Scanner struct {
	Root     string
	Logger   *zap.Logger
	Observer Observer
}

// Observer receives scan outcomes, typically for metrics.
type Observer interface {
	ScanFinished(records, skipped int, took time.Duration, err error)
}

func NewScanner(root string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{Root: root, Logger: logger.With(zap.String("component", "gallery"))}
}

// Scan returns every parsable sidecar under the root's date folders, most
// recent first. A missing root yields an empty slice and no error.
func (s *Scanner) Scan() ([]domain.ArtworkRecord, error) {
	start := time.Now()
	records, skipped, err := s.scan()
	if s.Observer != nil {
		s.Observer.ScanFinished(len(records), skipped, time.Since(start), err)
	}
	return records, err
}

func (s *Scanner) scan() ([]domain.ArtworkRecord, int, error) {
	dates, err := s.Dates()
	if err != nil {
		return nil, 0, err
	}
	// Dates is newest first; collect in lexical order so ties keep file order.
	sort.Strings(dates)
	records := []domain.ArtworkRecord{}
	skipped := 0
	for _, date := range dates {
		found, n, err := s.readDir(filepath.Join(s.Root, date), date)
		if err != nil {
			return nil, 0, err
		}
		for _, f := range found {
			records = append(records, f.Record)
		}
		skipped += n
	}
	SortByTimestamp(records)
	return records, skipped, nil
}

// Dates lists the date folders under the root, newest first.
func (s *Scanner) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	dates := []string{}
	for _, e := range entries {
		if isDir(s.Root, e) {
			dates = append(dates, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Entry is a parsed sidecar. Base is the sidecar file name
// without extension; the companions share it.
type Entry struct {
	Record domain.ArtworkRecord
	Base   string
}

// ImagePath is the archived image relative to the gallery root.
func (e Entry) ImagePath() string {
	return path.Join(e.Record.Date, archiveDir, e.Base+".png")
}

// CodePath is the archived source relative to the gallery root.
func (e Entry) CodePath() string {
	return path.Join(e.Record.Date, archiveDir, e.Base+".py")
}

// MetadataPath is the archived sidecar relative to the gallery root.
func (e Entry) MetadataPath() string {
	return path.Join(e.Record.Date, archiveDir, e.Base+metadataExt)
}

// ScanArchive returns the historical sidecars kept for one date, most recent first.
func (s *Scanner) ScanArchive(date string) ([]Entry, error) {
	if !validDate(date) {
		return nil, ErrInvalidDate
	}
	found, _, err := s.readDir(filepath.Join(s.Root, date, archiveDir), date)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, err
	}
	recs := make([]domain.ArtworkRecord, len(found))
	for i, f := range found {
		recs[i] = f.Record
	}
	order := sortOrder(recs)
	entries := make([]Entry, len(found))
	for i, j := range order {
		entries[i] = found[j]
	}
	return entries, nil
}

// ErrInvalidDate rejects anything that is not a YYYY-MM-DD folder name.
var ErrInvalidDate = errors.New("invalid date folder name")

const dateLayout = "2006-01-02"

func validDate(date string) bool {
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

func (s *Scanner) readDir(dir, date string) ([]Entry, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	var records []Entry
	skipped := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metadataExt) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(p)
		if err != nil {
			s.Logger.Warn("skipping unreadable sidecar", zap.String("path", p), zap.Error(err))
			skipped++
			continue
		}
		rec, err := domain.ParseArtwork(data, date)
		if err != nil {
			s.Logger.Warn("skipping invalid sidecar", zap.String("path", p), zap.Error(err))
			skipped++
			continue
		}
		records = append(records, Entry{Record: rec, Base: strings.TrimSuffix(e.Name(), metadataExt)})
	}
	return records, skipped, nil
}

// SortByTimestamp orders records most recent first. The sort is stable and
// unparsable timestamps count as the zero time.
func SortByTimestamp(records []domain.ArtworkRecord) {
	order := sortOrder(records)
	sorted := make([]domain.ArtworkRecord, len(records))
	for i, j := range order {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

// sortOrder returns the indexes of records in most-recent-first order.
func sortOrder(records []domain.ArtworkRecord) []int {
	keys := make([]time.Time, len(records))
	order := make([]int, len(records))
	for i, r := range records {
		keys[i], _ = r.Time()
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]].After(keys[order[b]])
	})
	return order
}

// isDir follows symlinks so a linked date folder still counts.
func isDir(root string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && info.IsDir()
}
