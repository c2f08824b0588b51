package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/schema"
	"github.com/bitmark-inc/autonomy-rt/series"
)

const csseCountryColumn = "Country/Region"

// CSSE - adapter of the JHU CSSE global time series, one row per
// country/province and one column per date with cumulative counts
type CSSE struct {
	Fetcher Fetcher
	URL     string
	Country string
	Column  string
}

// NewCSSE - new adapter producing a single named column for one country
func NewCSSE(f Fetcher, url, country, column string) *CSSE {
	return &CSSE{
		Fetcher: f,
		URL:     url,
		Country: country,
		Column:  column,
	}
}

func (c *CSSE) Series(ctx context.Context) (schema.Series, error) {
	data, err := ReadAll(ctx, c.Fetcher, c.URL, "")
	if nil != err {
		return schema.Series{}, err
	}

	s, err := ParseCSSE(bytes.NewReader(data), c.Country, c.Column)
	if nil != err {
		log.WithFields(log.Fields{"prefix": logPrefix, "url": c.URL, "country": c.Country, "error": err}).Error("parse csse time series")
		return schema.Series{}, err
	}

	log.WithFields(log.Fields{
		"prefix":  logPrefix,
		"country": c.Country,
		"column":  c.Column,
		"days":    s.Len(),
	}).Info("csse time series")

	return s, nil
}

// ParseCSSE reshapes the date columns of every row of a country into a
// normalized incidence series. Province rows of the country are summed.
func ParseCSSE(r io.Reader, country, column string) (schema.Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if nil != err {
		return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, "read csse header", err)
	}

	countryIdx := -1
	dateIdx := make([]int, 0, len(header))
	dates := make([]time.Time, 0, len(header))
	for i, h := range header {
		if h == csseCountryColumn {
			countryIdx = i
			continue
		}
		if d, err := time.Parse("1/2/06", h); err == nil {
			dateIdx = append(dateIdx, i)
			dates = append(dates, d)
		}
	}

	if countryIdx < 0 {
		return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, "read csse header", fmt.Errorf("column %q not found", csseCountryColumn))
	}
	if len(dateIdx) == 0 {
		return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, "read csse header", fmt.Errorf("no date columns"))
	}

	totals := make([]float64, len(dateIdx))
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if nil != err {
			return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, "read csse row", err)
		}
		if countryIdx >= len(record) || record[countryIdx] != country {
			continue
		}

		rows++
		for j, idx := range dateIdx {
			if idx >= len(record) {
				continue
			}
			v, err := parseCount(record[idx])
			if nil != err {
				return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, "read csse count", err)
			}
			totals[j] += v
		}
	}

	if rows == 0 {
		return schema.Series{}, schema.NewError(schema.KindSchemaMismatch, "filter csse rows", fmt.Errorf("country %q not present", country))
	}

	samples := make([]series.Sample, len(dates))
	for i, d := range dates {
		samples[i] = series.Sample{Date: d, Values: []float64{totals[i]}}
	}

	return series.FromCumulative([]string{column}, samples), nil
}
