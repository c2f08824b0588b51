package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bitmark-inc/autonomy-rt/consts"
	"github.com/bitmark-inc/autonomy-rt/epiestim"
	"github.com/bitmark-inc/autonomy-rt/external/source"
	"github.com/bitmark-inc/autonomy-rt/metrics"
)

var (
	ErrEmptyCountry    = fmt.Errorf("empty country code or name")
	ErrEmptySource     = fmt.Errorf("empty national source url")
	ErrEmptyPath       = fmt.Errorf("empty output or archive root")
	ErrInvalidWorkers  = fmt.Errorf("workers must be at least 1")
	ErrInvalidDataset  = fmt.Errorf("invalid batch dataset")
	ErrEmptyState      = fmt.Errorf("empty state")
	ErrEmptyCity       = fmt.Errorf("empty city")
	ErrDuplicateState  = fmt.Errorf("duplicate state in batch")
	ErrDuplicateCity   = fmt.Errorf("duplicate city in state")
	ErrDuplicateOutput = fmt.Errorf("duplicate unit output path")
	ErrArchiveInOutput = fmt.Errorf("archive root inside output root")
	ErrUnsafeOutput    = fmt.Errorf("output root would remove protected path")
	ErrInvalidTimeout  = fmt.Errorf("negative http timeout")
	ErrInvalidMetrics  = fmt.Errorf("invalid metrics settings")
)

type Country struct {
	Code string `mapstructure:"code" yaml:"code"`
	Name string `mapstructure:"name" yaml:"name"`
}

// Sources are the national cumulative feeds joined into the base dataset.
type Sources struct {
	Confirmed string `mapstructure:"confirmed" yaml:"confirmed"`
	Deaths    string `mapstructure:"deaths" yaml:"deaths"`
}

type Output struct {
	Root      string `mapstructure:"root" yaml:"root"`
	Extension string `mapstructure:"extension" yaml:"extension"`
	Workers   int    `mapstructure:"workers" yaml:"workers"`
}

// HTTP configures the client used by remote fetches. A zero timeout
// leaves requests unbounded.
type HTTP struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type Metrics struct {
	Reporter string        `mapstructure:"reporter" yaml:"reporter"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type Archive struct {
	Root     string `mapstructure:"root" yaml:"root"`
	Label    string `mapstructure:"label" yaml:"label"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// Batch is one regional dataset and the units analyzed from it.
type Batch struct {
	Name    string         `mapstructure:"name" yaml:"name"`
	Dataset source.Dataset `mapstructure:"dataset" yaml:"dataset"`
	Regions Regions        `mapstructure:"regions" yaml:"regions"`
}

type Config struct {
	Country  Country         `mapstructure:"country" yaml:"country"`
	Sources  Sources         `mapstructure:"sources" yaml:"sources"`
	Epiestim epiestim.Config `mapstructure:"epiestim" yaml:"epiestim"`
	Output   Output          `mapstructure:"output" yaml:"output"`
	Archive  Archive         `mapstructure:"archive" yaml:"archive"`
	Batches  []Batch         `mapstructure:"batches" yaml:"batches"`
	HTTP     HTTP            `mapstructure:"http" yaml:"http"`
	Metrics  Metrics         `mapstructure:"metrics" yaml:"metrics"`

	// File is the configuration file in use, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// SetDefaults registers the default values of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("country.code", "BR")
	v.SetDefault("country.name", "Brazil")
	v.SetDefault("sources.confirmed", consts.CSSEConfirmedURL)
	v.SetDefault("sources.deaths", consts.CSSEDeathsURL)
	v.SetDefault("epiestim.mean_si", consts.DefaultMeanSI)
	v.SetDefault("epiestim.std_si", consts.DefaultStdSI)
	v.SetDefault("epiestim.window", epiestim.DefaultWindowSize)
	v.SetDefault("epiestim.mean_prior", epiestim.DefaultMeanPrior)
	v.SetDefault("epiestim.std_prior", epiestim.DefaultStdPrior)
	v.SetDefault("output.root", "plots")
	v.SetDefault("output.extension", "png")
	v.SetDefault("output.workers", 1)
	v.SetDefault("archive.root", "output")
	v.SetDefault("archive.label", "covid-rt")
	v.SetDefault("archive.timezone", "GMT-3")
	v.SetDefault("http.timeout", 0)
	v.SetDefault("metrics.reporter", metrics.ReporterLog)
	v.SetDefault("metrics.interval", "10s")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var c Config
	if err := v.Unmarshal(&c); nil != err {
		return Config{}, errors.Wrap(err, "decode configuration")
	}
	c.Output.Extension = strings.TrimPrefix(c.Output.Extension, ".")
	c.File = v.ConfigFileUsed()

	if err := c.Validate(); nil != err {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the whole configuration, regions included.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Country.Code) == "" || strings.TrimSpace(c.Country.Name) == "" {
		return ErrEmptyCountry
	}
	if c.Sources.Confirmed == "" || c.Sources.Deaths == "" {
		return ErrEmptySource
	}
	if c.Output.Root == "" || c.Archive.Root == "" {
		return ErrEmptyPath
	}
	if err := c.CheckOutputRoot(); nil != err {
		return err
	}
	if within(c.Output.Root, c.Archive.Root) {
		return errors.Wrap(ErrArchiveInOutput, c.Archive.Root)
	}
	if c.Output.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.HTTP.Timeout < 0 {
		return ErrInvalidTimeout
	}
	switch c.Metrics.Reporter {
	case metrics.ReporterLog, metrics.ReporterNone:
	default:
		return errors.Wrapf(ErrInvalidMetrics, "reporter %q", c.Metrics.Reporter)
	}
	if c.Metrics.Interval <= 0 {
		return errors.Wrap(ErrInvalidMetrics, "interval")
	}
	if err := c.Epiestim.Validate(); nil != err {
		return errors.Wrap(err, "epiestim")
	}

	outputs := make(map[string]string)
	for i, b := range c.Batches {
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}

		if err := validateDataset(b.Dataset); nil != err {
			return errors.Wrapf(err, "batch %s", name)
		}
		if err := b.Regions.Validate(); nil != err {
			return errors.Wrapf(err, "batch %s", name)
		}

		for _, p := range b.Regions.paths() {
			if other, ok := outputs[p]; ok {
				return errors.Wrapf(ErrDuplicateOutput, "%s in batches %s and %s", p, other, name)
			}
			outputs[p] = name
		}
	}

	return nil
}

func validateDataset(d source.Dataset) error {
	switch d.Kind {
	case source.KindRegistry:
	case source.KindSpreadsheet:
		if d.Sheet == "" {
			return errors.Wrap(ErrInvalidDataset, "spreadsheet without sheet")
		}
	default:
		return errors.Wrapf(ErrInvalidDataset, "kind %q", d.Kind)
	}

	if d.Location == "" {
		return errors.Wrap(ErrInvalidDataset, "empty location")
	}
	return nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if nil != err {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// CheckOutputRoot rejects an output root whose removal would take the
// filesystem root, the home or working directory, the configuration file
// or a local dataset with it.
func (c Config) CheckOutputRoot() error {
	root, err := filepath.Abs(c.Output.Root)
	if nil != err {
		return errors.Wrap(err, "output root")
	}

	protected := make([]string, 0, len(c.Batches)+3)
	if wd, err := os.Getwd(); nil == err {
		protected = append(protected, wd)
	}
	if home, err := os.UserHomeDir(); nil == err {
		protected = append(protected, home)
	}
	if c.File != "" {
		protected = append(protected, c.File)
	}
	for _, b := range c.Batches {
		if p, ok := localPath(b.Dataset.Location); ok {
			protected = append(protected, p)
		}
	}

	if filepath.Dir(root) == root {
		return errors.Wrap(ErrUnsafeOutput, root)
	}
	for _, p := range protected {
		abs, err := filepath.Abs(p)
		if nil != err {
			continue
		}
		if within(root, abs) {
			return errors.Wrapf(ErrUnsafeOutput, "%s contains %s", root, abs)
		}
	}
	return nil
}

// localPath returns the filesystem path of a dataset location, or false
// for a remote one.
func localPath(location string) (string, bool) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return "", false
	case strings.HasPrefix(location, "file://"):
		return strings.TrimPrefix(location, "file://"), true
	case location == "":
		return "", false
	}
	return location, true
}
