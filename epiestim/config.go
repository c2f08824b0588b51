package epiestim

import (
	"fmt"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

const (
	DefaultWindowSize = 7
	DefaultMeanPrior  = 5.0
	DefaultStdPrior   = 5.0
)

var (
	ErrInvalidSerialInterval = fmt.Errorf("serial interval mean must exceed 1 and std must be positive")
	ErrInvalidWindow         = fmt.Errorf("window size must be at least 1")
	ErrInvalidPrior          = fmt.Errorf("prior mean and std must be positive")
)

// Config holds the parametric serial interval and the sliding window
// settings of an estimation.
type Config struct {
	MeanSI     float64 `mapstructure:"mean_si" yaml:"mean_si"`
	StdSI      float64 `mapstructure:"std_si" yaml:"std_si"`
	WindowSize int     `mapstructure:"window" yaml:"window"`
	MeanPrior  float64 `mapstructure:"mean_prior" yaml:"mean_prior"`
	StdPrior   float64 `mapstructure:"std_prior" yaml:"std_prior"`
	Column     string  `mapstructure:"column" yaml:"column"`
}

// MakeConfig returns a weekly window configuration on the cases column.
func MakeConfig(meanSI, stdSI float64) Config {
	return Config{
		MeanSI:     meanSI,
		StdSI:      stdSI,
		WindowSize: DefaultWindowSize,
		MeanPrior:  DefaultMeanPrior,
		StdPrior:   DefaultStdPrior,
		Column:     schema.ColumnCases,
	}
}

// Validate checks the configuration can drive an estimation.
func (c Config) Validate() error {
	if c.MeanSI <= 1 || c.StdSI <= 0 {
		return ErrInvalidSerialInterval
	}
	if c.WindowSize < 1 {
		return ErrInvalidWindow
	}
	if c.MeanPrior <= 0 || c.StdPrior <= 0 {
		return ErrInvalidPrior
	}
	return nil
}
