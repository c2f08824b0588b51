package region

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/schema"
	"github.com/bitmark-inc/autonomy-rt/series"
	"github.com/bitmark-inc/autonomy-rt/utils"
)

const logPrefix = "region"

var columns = []string{schema.ColumnCases, schema.ColumnDeaths}

// unitKey identifies the rows of one unit by normalized names.
type unitKey struct {
	placeType string
	state     string
	city      string
}

// Selector holds a regional dataset indexed by unit, so row names are
// normalized once per dataset rather than once per selection. It is safe
// for concurrent use once built.
type Selector struct {
	country string
	index   map[unitKey][]series.Sample
}

// NewSelector indexes the rows of ds by place type, state and city.
func NewSelector(ds schema.RegionDataset) *Selector {
	index := make(map[unitKey][]series.Sample)
	for _, row := range ds.Rows {
		k := unitKey{placeType: row.PlaceType, state: utils.NameKey(row.State)}
		if row.PlaceType == schema.LevelCity {
			k.city = utils.NameKey(row.City)
		}
		index[k] = append(index[k], series.Sample{
			Date:   row.Date,
			Values: []float64{row.Confirmed, row.Deaths},
		})
	}

	log.WithFields(log.Fields{"prefix": logPrefix, "rows": len(ds.Rows), "units": len(index)}).Debug("dataset indexed")

	return &Selector{
		country: utils.NameKey(ds.Country),
		index:   index,
	}
}

// Select extracts the incidence series of one state or city. A key without
// city selects the state aggregate rows.
func (s *Selector) Select(key schema.RegionKey) (schema.Series, error) {
	if key.State == "" {
		return schema.Series{}, schema.NewError(schema.KindRegionNotFound, key.String(), fmt.Errorf("state required"))
	}
	if s.country != utils.NameKey(key.Country) {
		return schema.Series{}, schema.NewError(schema.KindRegionNotFound, key.String(), fmt.Errorf("dataset covers another country"))
	}

	k := unitKey{placeType: schema.LevelState, state: utils.NameKey(key.State)}
	if key.City != "" {
		k.placeType = schema.LevelCity
		k.city = utils.NameKey(key.City)
	}

	samples := s.index[k]
	if len(samples) == 0 {
		log.WithFields(log.Fields{"prefix": logPrefix, "unit": key.String()}).Warn("no rows match unit")
		return schema.Series{}, schema.NewError(schema.KindRegionNotFound, key.String(), fmt.Errorf("no matching rows"))
	}

	out := series.FromCumulative(columns, samples)
	if err := out.Validate(); nil != err {
		return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, key.String(), err)
	}
	return out, nil
}

// Select extracts one unit from ds without keeping an index.
func Select(ds schema.RegionDataset, key schema.RegionKey) (schema.Series, error) {
	return NewSelector(ds).Select(key)
}
