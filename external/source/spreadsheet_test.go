package source_test

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bitmark-inc/autonomy-rt/external/source"
	"github.com/bitmark-inc/autonomy-rt/schema"
)

func workbook(t *testing.T, sheet string, rows [][]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	require.NoError(t, err)
	f.SetActiveSheet(idx)

	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, axis, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadSpreadsheet(t *testing.T) {
	buf := workbook(t, "Tereos", [][]interface{}{
		{"Data", "Estado", "Cidade", "Casos", "Óbitos"},
		{"2020-04-01", "SP", "Tereos Andrade", 2, 0},
		{"2020-04-02", "SP", "Tereos Andrade", 5, 1},
		{},
		{time.Date(2020, 4, 3, 0, 0, 0, 0, time.UTC), "SP", "Tereos Mandu", 1, 0},
	})

	ds, err := source.ReadSpreadsheet(buf, "Tereos", "Brazil")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 3)

	assert.Equal(t, schema.RegionRow{
		Date:      time.Date(2020, 4, 2, 0, 0, 0, 0, time.UTC),
		State:     "SP",
		City:      "Tereos Andrade",
		PlaceType: schema.LevelCity,
		Confirmed: 5,
		Deaths:    1,
	}, ds.Rows[1])
	assert.Equal(t, time.Date(2020, 4, 3, 0, 0, 0, 0, time.UTC), ds.Rows[2].Date)
	assert.Equal(t, "Tereos Mandu", ds.Rows[2].City)
}

func TestReadSpreadsheetMissingSheet(t *testing.T) {
	buf := workbook(t, "Other", [][]interface{}{{"date", "state", "city", "confirmed", "deaths"}})

	_, err := source.ReadSpreadsheet(buf, "Tereos", "Brazil")
	assert.True(t, errors.Is(err, schema.ErrSchemaMismatch))
}

func TestReadSpreadsheetMissingColumn(t *testing.T) {
	buf := workbook(t, "Tereos", [][]interface{}{{"date", "state", "confirmed"}})

	_, err := source.ReadSpreadsheet(buf, "Tereos", "Brazil")
	assert.True(t, errors.Is(err, schema.ErrSchemaMismatch))
}

func TestDatasetLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dados.xlsx")
	buf := workbook(t, "Tereos", [][]interface{}{
		{"date", "state", "city", "confirmed", "deaths"},
		{"2020-04-01", "SP", "Tereos Tanabi", 1, 0},
	})
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	f := source.NewFetcher(nil)
	ds, err := source.Dataset{Kind: source.KindSpreadsheet, Location: path, Sheet: "Tereos"}.Load(context.Background(), f, "Brazil")
	assert.NoError(t, err)
	assert.Len(t, ds.Rows, 1)

	_, err = source.Dataset{Kind: "parquet", Location: path}.Load(context.Background(), f, "Brazil")
	assert.True(t, errors.Is(err, source.ErrUnknownDatasetKind))

	_, err = source.Dataset{Kind: source.KindRegistry, Location: filepath.Join(dir, "none.csv")}.Load(context.Background(), f, "Brazil")
	assert.True(t, errors.Is(err, schema.ErrDataUnavailable))
}
