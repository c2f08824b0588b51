package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bitmark-inc/autonomy-rt/schema"
	"github.com/bitmark-inc/autonomy-rt/utils"
)

const (
	fieldDate      = "date"
	fieldState     = "state"
	fieldCity      = "city"
	fieldPlaceType = "place_type"
	fieldConfirmed = "confirmed"
	fieldDeaths    = "deaths"
)

// accepted header spellings of regional sources, compared by name key
var fieldAliases = map[string][]string{
	fieldDate:      {"date", "data", "dia"},
	fieldState:     {"state", "estado", "uf"},
	fieldCity:      {"city", "cidade", "municipio", "unidade"},
	fieldPlaceType: {"place_type", "tipo"},
	fieldConfirmed: {"confirmed", "confirmados", "casos", "cases"},
	fieldDeaths:    {"deaths", "obitos", "mortes"},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/06",
	"1/2/2006",
	"01-02-06",
}

// columnIndex maps field names to header positions. A missing required
// field is a schema mismatch.
func columnIndex(header []string, required []string, optional ...string) (map[string]int, error) {
	positions := make(map[string]int)
	for i, h := range header {
		positions[utils.EnNameToKey(h)] = i
	}

	index := make(map[string]int)
	lookup := func(field string) bool {
		for _, alias := range fieldAliases[field] {
			if i, ok := positions[alias]; ok {
				index[field] = i
				return true
			}
		}
		return false
	}

	for _, field := range required {
		if !lookup(field) {
			return nil, schema.NewError(schema.KindSchemaMismatch, "locate column", fmt.Errorf("column %q not found", field))
		}
	}
	for _, field := range optional {
		lookup(field)
	}
	return index, nil
}

// cell returns the trimmed value of a field, empty when the row is short.
func cell(row []string, index map[string]int, field string) string {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var ErrNonFiniteCount = fmt.Errorf("non-finite count")

// parseCount reads a count cell, an empty cell counts as zero. NaN and
// infinities are rejected.
func parseCount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if nil != err {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonFiniteCount, s)
	}
	return v, nil
}

// parseDate accepts the textual layouts seen in upstream feeds and Excel
// serial day numbers. Slash dates are read month first.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return schema.Day(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return schema.Day(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unknown date format %q", s)
}
