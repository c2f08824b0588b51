package source

import (
	"bytes"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

type DatasetKind string

const (
	KindRegistry    DatasetKind = "registry"
	KindSpreadsheet DatasetKind = "spreadsheet"
)

var ErrUnknownDatasetKind = fmt.Errorf("unknown dataset kind")

// Dataset describes where a regional dataset comes from.
type Dataset struct {
	Kind     DatasetKind `mapstructure:"kind" yaml:"kind"`
	Location string      `mapstructure:"location" yaml:"location"`
	Sheet    string      `mapstructure:"sheet" yaml:"sheet,omitempty"`
	SaveTo   string      `mapstructure:"save_to" yaml:"save_to,omitempty"`
}

// Load fetches and reads the dataset for a country.
func (d Dataset) Load(ctx context.Context, f Fetcher, country string) (schema.RegionDataset, error) {
	data, err := ReadAll(ctx, f, d.Location, d.SaveTo)
	if nil != err {
		return schema.RegionDataset{}, err
	}

	var ds schema.RegionDataset
	switch d.Kind {
	case KindRegistry:
		ds, err = ReadRegistry(bytes.NewReader(data), country)
	case KindSpreadsheet:
		ds, err = ReadSpreadsheet(bytes.NewReader(data), d.Sheet, country)
	default:
		err = schema.NewError(schema.KindSchemaMismatch, string(d.Kind), ErrUnknownDatasetKind)
	}
	if nil != err {
		log.WithFields(log.Fields{"prefix": logPrefix, "location": d.Location, "kind": d.Kind, "error": err}).Error("read regional dataset")
		return schema.RegionDataset{}, err
	}

	log.WithFields(log.Fields{
		"prefix":   logPrefix,
		"location": d.Location,
		"kind":     d.Kind,
		"rows":     len(ds.Rows),
	}).Info("regional dataset")

	return ds, nil
}
