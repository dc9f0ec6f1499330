// Package schedule knows when the generator runs: four periods a day on a cron cycle.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCycle starts a generation at the top of every period.
const DefaultCycle = "0 0,6,12,18 * * *"

type Schedule struct {
	spec cron.Schedule
	expr string
}

// Parse reads a standard five-field cron expression.
func Parse(expr string) (*Schedule, error) {
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cycle %q: %w", expr, err)
	}
	return &Schedule{spec: spec, expr: expr}, nil
}

func (s *Schedule) String() string { return s.expr }

// Next is the first cycle start strictly after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.spec.Next(t)
}

// Until renders the wait for the next cycle as "in 3h 12m".
func (s *Schedule) Until(now time.Time) string {
	return FormatWait(s.Next(now).Sub(now))
}

func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("in %dh %dm", h, m)
}

// PeriodAt is the period slot (1-4) that t falls in.
func PeriodAt(t time.Time) int {
	return t.Hour()/6 + 1
}
