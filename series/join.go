package series

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

// Source yields one normalized series.
type Source interface {
	Series(ctx context.Context) (schema.Series, error)
}

// Join merges series with an outer join on date. The result has the
// union of the input dates once each in chronological order, the input
// columns concatenated, and zero wherever an input has no value.
func Join(series ...schema.Series) schema.Series {
	columns := make([]string, 0)
	offsets := make([]int, len(series))
	for i, s := range series {
		offsets[i] = len(columns)
		columns = append(columns, s.Columns...)
	}

	byDate := make(map[time.Time][]float64)
	for i, s := range series {
		for _, p := range s.Points {
			d := schema.Day(p.Date)
			values, ok := byDate[d]
			if !ok {
				values = make([]float64, len(columns))
				byDate[d] = values
			}
			copy(values[offsets[i]:offsets[i]+len(s.Columns)], p.Values)
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	points := make([]schema.Point, len(dates))
	for i, d := range dates {
		points[i] = schema.Point{Date: d, Values: byDate[d]}
	}

	return schema.Series{Columns: columns, Points: points}
}

// Build acquires every source in order and joins the results. The first
// acquisition error is returned as is.
func Build(ctx context.Context, sources ...Source) (schema.Series, error) {
	all := make([]schema.Series, 0, len(sources))
	for _, src := range sources {
		s, err := src.Series(ctx)
		if nil != err {
			return schema.Series{}, err
		}
		log.WithFields(log.Fields{
			"prefix":  logPrefix,
			"columns": s.Columns,
			"days":    s.Len(),
		}).Debug("source series acquired")
		all = append(all, s)
	}

	return Join(all...), nil
}
