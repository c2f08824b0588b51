package schema

import (
	"fmt"
	"math"
	"time"
)

const (
	ColumnCases  = "cases"
	ColumnDeaths = "deaths"
)

var (
	ErrSeriesUnordered   = fmt.Errorf("series dates not strictly increasing")
	ErrSeriesNegative    = fmt.Errorf("series contains negative value")
	ErrSeriesNonFinite   = fmt.Errorf("series contains non-finite value")
	ErrSeriesShape       = fmt.Errorf("series point width differs from columns")
	ErrSeriesLeadingZero = fmt.Errorf("series starts with an all-zero date")
)

// Point is the set of daily values of a series at one date, in column order.
type Point struct {
	Date   time.Time `json:"date" yaml:"date"`
	Values []float64 `json:"values" yaml:"values"`
}

// IsZero reports whether every value of the point is zero.
func (p Point) IsZero() bool {
	for _, v := range p.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

// Series is a date indexed daily incidence series with named columns.
type Series struct {
	Columns []string `json:"columns" yaml:"columns"`
	Points  []Point  `json:"points" yaml:"points"`
}

func (s Series) Len() int {
	return len(s.Points)
}

// Dates returns the dates of the series in order.
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// ColumnIndex returns the position of a named column, or -1.
func (s Series) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of a named column.
func (s Series) Column(name string) ([]float64, bool) {
	idx := s.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}

	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Values[idx]
	}
	return values, true
}

// Validate checks the normalized series invariants: strictly increasing
// dates, one value per column, finite non-negative values and no leading
// all-zero date.
func (s Series) Validate() error {
	for i, p := range s.Points {
		if len(p.Values) != len(s.Columns) {
			return fmt.Errorf("%w at %s", ErrSeriesShape, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%w at %s", ErrSeriesUnordered, p.Date.Format(DateLayout))
		}
		for _, v := range p.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w at %s", ErrSeriesNonFinite, p.Date.Format(DateLayout))
			}
			if v < 0 {
				return fmt.Errorf("%w at %s", ErrSeriesNegative, p.Date.Format(DateLayout))
			}
		}
	}

	if len(s.Points) > 0 && s.Points[0].IsZero() {
		return ErrSeriesLeadingZero
	}

	return nil
}

// DateLayout is the canonical day format used in logs, file names and
// archive names.
const DateLayout = "2006-01-02"

// Day truncates a time to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
