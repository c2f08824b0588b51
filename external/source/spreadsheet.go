package source

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

var spreadsheetColumns = []string{fieldDate, fieldState, fieldCity, fieldConfirmed, fieldDeaths}

// ReadSpreadsheet reads a regional dataset from one sheet of an xlsx
// workbook. The first non-empty row is the header; place type is optional
// and defaults to city.
func ReadSpreadsheet(r io.Reader, sheet, country string) (schema.RegionDataset, error) {
	book, err := excelize.OpenReader(r)
	if nil != err {
		return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, "open workbook", err)
	}
	defer func() {
		if err := book.Close(); nil != err {
			log.WithFields(log.Fields{"prefix": logPrefix, "error": err}).Warn("close workbook")
		}
	}()

	if idx, err := book.GetSheetIndex(sheet); nil != err || idx < 0 {
		return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, "open sheet", fmt.Errorf("sheet %q not found", sheet))
	}

	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if nil != err {
		return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, "read sheet "+sheet, err)
	}

	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, "read sheet "+sheet, fmt.Errorf("empty sheet"))
	}

	index, err := columnIndex(rows[start], spreadsheetColumns, fieldPlaceType)
	if nil != err {
		return schema.RegionDataset{}, err
	}

	ds := schema.RegionDataset{Country: country, Rows: make([]schema.RegionRow, 0, len(rows)-start-1)}
	for i := start + 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		row, err := regionRow(rows[i], index)
		if nil != err {
			return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, fmt.Sprintf("sheet %s row %d", sheet, i+1), err)
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
