package source

import (
	"github.com/bitmark-inc/autonomy-rt/series"
)

// Adapter - normalizes one raw feed into a daily incidence series
type Adapter interface {
	series.Source
}

const (
	logPrefix = "source"
)

var _ Adapter = (*CSSE)(nil)
