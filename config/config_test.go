package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"

	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/consts"
	"github.com/bitmark-inc/autonomy-rt/external/source"
	"github.com/bitmark-inc/autonomy-rt/metrics"
	"github.com/bitmark-inc/autonomy-rt/schema"
)

const sampleConfig = `
country:
  code: BR
  name: Brazil
output:
  root: plots
  extension: .png
batches:
  - name: brasilio
    dataset:
      kind: registry
      location: https://data.brasil.io/dataset/covid19/caso.csv.gz
    regions:
      - state: ES
        include_state: true
        cities: [Colatina]
      - state: SP
        include_state: true
        cities:
          - São José do Rio Preto
          - Barretos
  - name: tereos
    dataset:
      kind: spreadsheet
      location: data/Dados R(t) Tereos.xlsx
      sheet: Tereos
    regions:
      - state: SP
        cities: [Tereos Andrade, Tereos Mandu]
`

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) load(content string) (config.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	s.Require().NoError(v.ReadConfig(bytes.NewBufferString(content)))
	return config.Load(v)
}

func (s *ConfigTestSuite) TestLoad() {
	c, err := s.load(sampleConfig)
	s.Require().NoError(err)

	s.Equal("BR", c.Country.Code)
	s.Equal(consts.CSSEConfirmedURL, c.Sources.Confirmed)
	s.Equal("png", c.Output.Extension)
	s.Equal(1, c.Output.Workers)
	s.Equal("covid-rt", c.Archive.Label)
	s.Equal(4.7, c.Epiestim.MeanSI)
	s.Equal(7, c.Epiestim.WindowSize)

	s.Len(c.Batches, 2)
	s.Equal(source.KindSpreadsheet, c.Batches[1].Dataset.Kind)
	s.Equal("Tereos", c.Batches[1].Dataset.Sheet)

	units := c.Batches[0].Regions.Units(c.Country.Name)
	s.Equal([]schema.RegionKey{
		{Country: "Brazil", State: "ES"},
		{Country: "Brazil", State: "ES", City: "Colatina"},
		{Country: "Brazil", State: "SP"},
		{Country: "Brazil", State: "SP", City: "São José do Rio Preto"},
		{Country: "Brazil", State: "SP", City: "Barretos"},
	}, units)
	s.Len(c.Batches[1].Regions.Units(c.Country.Name), 2)
}

func (s *ConfigTestSuite) TestEmptyCountry() {
	_, err := s.load("country:\n  code: \"\"\n")
	s.True(errors.Is(err, config.ErrEmptyCountry))
}

func (s *ConfigTestSuite) TestDuplicateCity() {
	_, err := s.load(`
batches:
  - name: b
    dataset: {kind: registry, location: caso.csv}
    regions:
      - state: SP
        cities: [Olímpia, olimpia]
`)
	s.True(errors.Is(err, config.ErrDuplicateCity))
}

func (s *ConfigTestSuite) TestDuplicateOutputAcrossBatches() {
	_, err := s.load(`
batches:
  - name: a
    dataset: {kind: registry, location: caso.csv}
    regions:
      - {state: SP, cities: [Barretos]}
  - name: b
    dataset: {kind: registry, location: other.csv}
    regions:
      - {state: SP, include_state: true, cities: [Barretos]}
`)
	s.True(errors.Is(err, config.ErrDuplicateOutput))
}

func (s *ConfigTestSuite) TestInvalidDataset() {
	_, err := s.load(`
batches:
  - name: a
    dataset: {kind: spreadsheet, location: dados.xlsx}
`)
	s.True(errors.Is(err, config.ErrInvalidDataset))

	_, err = s.load(`
batches:
  - name: a
    dataset: {kind: parquet, location: dados.parquet}
`)
	s.True(errors.Is(err, config.ErrInvalidDataset))
}

func (s *ConfigTestSuite) TestInvalidWorkers() {
	_, err := s.load("output:\n  workers: 0\n")
	s.True(errors.Is(err, config.ErrInvalidWorkers))
}

func (s *ConfigTestSuite) TestArchiveInsideOutput() {
	_, err := s.load("output:\n  root: plots\narchive:\n  root: plots/zips\n")
	s.True(errors.Is(err, config.ErrArchiveInOutput))

	_, err = s.load("output:\n  root: plots\narchive:\n  root: plots-archive\n")
	s.NoError(err)
}

func (s *ConfigTestSuite) TestHTTPTimeout() {
	c, err := s.load(sampleConfig)
	s.Require().NoError(err)
	s.Equal(time.Duration(0), c.HTTP.Timeout)

	c, err = s.load("http:\n  timeout: 90s\n")
	s.Require().NoError(err)
	s.Equal(90*time.Second, c.HTTP.Timeout)

	_, err = s.load("http:\n  timeout: -1s\n")
	s.True(errors.Is(err, config.ErrInvalidTimeout))
}

func (s *ConfigTestSuite) TestMetrics() {
	c, err := s.load(sampleConfig)
	s.Require().NoError(err)
	s.Equal(metrics.ReporterLog, c.Metrics.Reporter)
	s.Equal(10*time.Second, c.Metrics.Interval)

	c, err = s.load("metrics:\n  reporter: none\n")
	s.Require().NoError(err)
	s.Equal(metrics.ReporterNone, c.Metrics.Reporter)

	_, err = s.load("metrics:\n  reporter: statsd\n")
	s.True(errors.Is(err, config.ErrInvalidMetrics))
}

func (s *ConfigTestSuite) TestUnsafeOutputRoot() {
	wd, err := os.Getwd()
	s.Require().NoError(err)

	roots := []string{"/", ".", "..", wd}
	if home, err := os.UserHomeDir(); nil == err {
		roots = append(roots, home)
	}
	for _, root := range roots {
		_, err := s.load("output:\n  root: " + root + "\narchive:\n  root: /nonexistent/archive\n")
		s.True(errors.Is(err, config.ErrUnsafeOutput), root)
	}
}

func (s *ConfigTestSuite) TestOutputRootHoldingInputs() {
	_, err := s.load(`
output:
  root: plots
batches:
  - name: a
    dataset: {kind: registry, location: plots/caso.csv}
`)
	s.True(errors.Is(err, config.ErrUnsafeOutput))

	_, err = s.load(`
output:
  root: plots
batches:
  - name: a
    dataset: {kind: registry, location: "file://plots/caso.csv"}
`)
	s.True(errors.Is(err, config.ErrUnsafeOutput))

	_, err = s.load(`
output:
  root: plots
batches:
  - name: a
    dataset: {kind: registry, location: "https://example.com/plots/caso.csv"}
`)
	s.NoError(err)

	c, err := s.load(sampleConfig)
	s.Require().NoError(err)
	c.File = filepath.Join("plots", "config.yaml")
	s.True(errors.Is(c.Validate(), config.ErrUnsafeOutput))
}

func (s *ConfigTestSuite) TestRegionsValidate() {
	s.True(errors.Is(config.Regions{{State: ""}}.Validate(), config.ErrEmptyState))
	s.True(errors.Is(config.Regions{{State: "SP"}, {State: "sp"}}.Validate(), config.ErrDuplicateState))
	s.True(errors.Is(config.Regions{{State: "SP", Cities: []string{" "}}}.Validate(), config.ErrEmptyCity))
	s.NoError(config.Regions{{State: "SP", IncludeState: true, Cities: []string{"Bebedouro", "Colina"}}}.Validate())
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
