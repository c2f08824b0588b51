package source

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

const defaultPlaceType = schema.LevelCity

var registryColumns = []string{fieldDate, fieldState, fieldCity, fieldPlaceType, fieldConfirmed, fieldDeaths}

// ReadRegistry reads a brasil.io style case registry, one row per place and
// report date with cumulative counts. Gzip payloads are detected by their
// magic bytes.
func ReadRegistry(r io.Reader, country string) (schema.RegionDataset, error) {
	buffered := bufio.NewReader(r)
	var input io.Reader = buffered
	if magic, err := buffered.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if nil != err {
			return schema.RegionDataset{}, schema.NewError(schema.KindDataUnavailable, "gunzip registry", err)
		}
		defer gz.Close()
		input = gz
	}

	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if nil != err {
		return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, "read registry header", err)
	}
	index, err := columnIndex(header, registryColumns)
	if nil != err {
		return schema.RegionDataset{}, err
	}

	ds := schema.RegionDataset{Country: country, Rows: make([]schema.RegionRow, 0)}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if nil != err {
			return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, "read registry row", err)
		}

		row, err := regionRow(record, index)
		if nil != err {
			return schema.RegionDataset{}, schema.NewError(schema.KindSchemaMismatch, fmt.Sprintf("registry line %d", line), err)
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

func regionRow(record []string, index map[string]int) (schema.RegionRow, error) {
	date, err := parseDate(cell(record, index, fieldDate))
	if nil != err {
		return schema.RegionRow{}, err
	}
	confirmed, err := parseCount(cell(record, index, fieldConfirmed))
	if nil != err {
		return schema.RegionRow{}, err
	}
	deaths, err := parseCount(cell(record, index, fieldDeaths))
	if nil != err {
		return schema.RegionRow{}, err
	}

	placeType := cell(record, index, fieldPlaceType)
	if placeType == "" {
		placeType = defaultPlaceType
	}

	return schema.RegionRow{
		Date:      date,
		State:     cell(record, index, fieldState),
		City:      cell(record, index, fieldCity),
		PlaceType: placeType,
		Confirmed: confirmed,
		Deaths:    deaths,
	}, nil
}
