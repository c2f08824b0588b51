package series

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

const logPrefix = "series"

// Sample is one raw observation of cumulative counts, in column order.
type Sample struct {
	Date   time.Time
	Values []float64
}

// FromCumulative turns cumulative samples into a normalized incidence
// series. Samples are sorted by date, duplicate dates keep the per-column
// maximum, values are differenced with a zero prior, negative corrections
// are floored to zero and the leading all-zero dates are trimmed.
func FromCumulative(columns []string, samples []Sample) schema.Series {
	collapsed := collapse(len(columns), samples)

	points := make([]schema.Point, len(collapsed))
	for i, s := range collapsed {
		points[i] = schema.Point{Date: s.Date, Values: make([]float64, len(columns))}
	}

	for c := range columns {
		cumulative := make([]float64, len(collapsed))
		for i, s := range collapsed {
			cumulative[i] = s.Values[c]
		}

		incident, floored := FloorNegative(Difference(cumulative))
		if floored > 0 {
			log.WithFields(log.Fields{
				"prefix":  logPrefix,
				"column":  columns[c],
				"floored": floored,
			}).Debug("negative daily count from data revision")
		}

		for i, v := range incident {
			points[i].Values[c] = v
		}
	}

	return TrimLeadingZeros(schema.Series{
		Columns: append([]string{}, columns...),
		Points:  points,
	})
}

// collapse sorts samples by day and merges repeated days.
func collapse(width int, samples []Sample) []Sample {
	sorted := make([]Sample, len(samples))
	for i, s := range samples {
		values := make([]float64, width)
		copy(values, s.Values)
		sorted[i] = Sample{Date: schema.Day(s.Date), Values: values}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	result := make([]Sample, 0, len(sorted))
	for _, s := range sorted {
		if n := len(result); n > 0 && result[n-1].Date.Equal(s.Date) {
			last := result[n-1]
			for c, v := range s.Values {
				if v > last.Values[c] {
					last.Values[c] = v
				}
			}
			continue
		}
		result = append(result, s)
	}
	return result
}

// Difference returns first-order differences of a cumulative sequence. The
// value before the first date is taken as zero, so the first incident value
// equals the first cumulative value.
func Difference(cumulative []float64) []float64 {
	incident := make([]float64, len(cumulative))
	prev := float64(0)
	for i, v := range cumulative {
		incident[i] = v - prev
		prev = v
	}
	return incident
}

// FloorNegative replaces negative values with zero and reports how many
// were replaced.
func FloorNegative(values []float64) ([]float64, int) {
	floored := 0
	result := make([]float64, len(values))
	for i, v := range values {
		if v < 0 {
			floored++
			v = 0
		}
		result[i] = v
	}
	return result, floored
}

// TrimLeadingZeros drops the leading run of dates whose values are all
// zero. A series of zeros becomes empty.
func TrimLeadingZeros(s schema.Series) schema.Series {
	first := len(s.Points)
	for i, p := range s.Points {
		if !p.IsZero() {
			first = i
			break
		}
	}

	return schema.Series{
		Columns: s.Columns,
		Points:  append([]schema.Point{}, s.Points[first:]...),
	}
}
