package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/epiestim"
	"github.com/bitmark-inc/autonomy-rt/schema"
)

type mockEstimator struct {
	mock.Mock
}

func (m *mockEstimator) Estimate(s schema.Series, cfg epiestim.Config) ([]schema.Window, error) {
	args := m.Called(s, cfg)
	windows, _ := args.Get(0).([]schema.Window)
	return windows, args.Error(1)
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(s schema.Series, result schema.AnalysisResult) (io.WriterTo, error) {
	args := m.Called(s, result)
	fig, _ := args.Get(0).(io.WriterTo)
	return fig, args.Error(1)
}

type mockSelector struct {
	mock.Mock
}

func (m *mockSelector) Select(key schema.RegionKey) (schema.Series, error) {
	args := m.Called(key)
	s, _ := args.Get(0).(schema.Series)
	return s, args.Error(1)
}

// figure writes its content, then fails when err is set.
type figure struct {
	content string
	err     error
}

func (f figure) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.content)
	if nil != err {
		return int64(n), err
	}
	return int64(n), f.err
}

type OrchestratorTestSuite struct {
	suite.Suite
	root      string
	estimator *mockEstimator
	renderer  *mockRenderer
	selector  *mockSelector
	scope     tally.TestScope
	now       time.Time
	series    schema.Series
	windows   []schema.Window
	config    epiestim.Config
}

func (s *OrchestratorTestSuite) SetupTest() {
	root, err := ioutil.TempDir("", "analysis")
	s.Require().NoError(err)

	s.root = filepath.Join(root, "plots")
	s.estimator = new(mockEstimator)
	s.renderer = new(mockRenderer)
	s.selector = new(mockSelector)
	s.scope = tally.NewTestScope("rt", nil)
	s.now = time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	s.config = epiestim.MakeConfig(4.7, 2.9)
	s.series = schema.Series{
		Columns: []string{schema.ColumnCases},
		Points: []schema.Point{
			{Date: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), Values: []float64{3}},
			{Date: time.Date(2020, 5, 2, 0, 0, 0, 0, time.UTC), Values: []float64{5}},
		},
	}
	s.windows = []schema.Window{
		{Start: s.series.Points[0].Date, End: s.series.Points[1].Date, Mean: 1.2, Lower: 0.9, Median: 1.2, Upper: 1.5},
	}
}

func (s *OrchestratorTestSuite) TearDownTest() {
	os.RemoveAll(filepath.Dir(s.root))
}

func (s *OrchestratorTestSuite) orchestrator(workers int, onOutcome func(schema.UnitOutcome)) *Orchestrator {
	return New(s.estimator, s.renderer, Options{
		OutputRoot: s.root,
		Extension:  "png",
		Config:     s.config,
		Workers:    workers,
		Scope:      s.scope,
		Now:        func() time.Time { return s.now },
		OnOutcome:  onOutcome,
	})
}

func (s *OrchestratorTestSuite) counter(name string) int64 {
	total := int64(0)
	for _, c := range s.scope.Snapshot().Counters() {
		if c.Name() == "rt."+name {
			total += c.Value()
		}
	}
	return total
}

func (s *OrchestratorTestSuite) assertNoTemporaryFiles(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, ".unit-*.tmp"))
	s.NoError(err)
	s.Empty(matches)
}

func (s *OrchestratorTestSuite) TestRunRecordsUnitFailure() {
	state := schema.RegionKey{Country: "Brazil", State: "SP"}
	cityA := schema.RegionKey{Country: "Brazil", State: "SP", City: "A"}
	cityB := schema.RegionKey{Country: "Brazil", State: "SP", City: "B"}

	s.selector.On("Select", state).Return(s.series, nil)
	s.selector.On("Select", cityA).Return(s.series, nil)
	s.selector.On("Select", cityB).Return(nil, schema.NewError(schema.KindRegionNotFound, "select", fmt.Errorf("no rows")))
	s.estimator.On("Estimate", s.series, s.config).Return(s.windows, nil)
	s.renderer.On("Render", s.series, mock.Anything).Return(figure{content: "png"}, nil)

	seen := make([]schema.UnitOutcome, 0)
	o := s.orchestrator(1, func(outcome schema.UnitOutcome) {
		seen = append(seen, outcome)
	})

	regions := config.Regions{{State: "SP", IncludeState: true, Cities: []string{"A", "B"}}}
	report, err := o.Run(context.Background(), "brasilio", s.selector, regions, "Brazil")
	s.Require().NoError(err)

	s.Equal("brasilio", report.Name)
	s.Equal(2, report.Processed())
	s.Equal(1, report.Failed())
	s.Require().Len(report.Outcomes, 3)
	s.Equal(state, report.Outcomes[0].Key)
	s.Equal(cityA, report.Outcomes[1].Key)
	s.Equal(cityB, report.Outcomes[2].Key)

	failure := report.Failures()[0]
	s.Equal(cityB, failure.Key)
	s.Equal(schema.StatusFailed, failure.Status)
	s.Equal(schema.KindRegionNotFound, failure.Kind)
	s.True(errors.Is(failure.Err, schema.ErrRegionNotFound))
	s.Nil(failure.Artifact)

	dir := filepath.Join(s.root, "SP")
	s.Equal([]schema.Artifact{
		{Key: state, Path: filepath.Join(dir, "SP.png")},
		{Key: cityA, Path: filepath.Join(dir, "A.png")},
	}, report.Artifacts())

	content, err := ioutil.ReadFile(filepath.Join(dir, "A.png"))
	s.NoError(err)
	s.Equal("png", string(content))
	_, err = os.Stat(filepath.Join(dir, "B.png"))
	s.True(os.IsNotExist(err))

	s.Equal(s.now, report.Outcomes[0].Result.GeneratedAt)
	s.Equal(s.windows, report.Outcomes[0].Result.Windows)

	s.Len(seen, 3)
	s.Equal(int64(2), s.counter("units_complete"))
	s.Equal(int64(1), s.counter("units_failed"))
	s.estimator.AssertNumberOfCalls(s.T(), "Estimate", 2)
}

func (s *OrchestratorTestSuite) TestRunClassifiesCollaboratorErrors() {
	key := schema.RegionKey{Country: "Brazil", State: "ES", City: "Colatina"}
	s.selector.On("Select", key).Return(s.series, nil)
	s.estimator.On("Estimate", s.series, s.config).Return(nil, fmt.Errorf("diverged"))

	report, err := s.orchestrator(1, nil).Run(context.Background(), "b", s.selector, config.Regions{{State: "ES", Cities: []string{"Colatina"}}}, "Brazil")
	s.Require().NoError(err)
	s.Require().Len(report.Outcomes, 1)
	s.Equal(schema.KindEstimationFailure, report.Outcomes[0].Kind)
	s.renderer.AssertNotCalled(s.T(), "Render", mock.Anything, mock.Anything)
}

func (s *OrchestratorTestSuite) TestRenderFailureLeavesNoFile() {
	key := schema.RegionKey{Country: "Brazil", State: "SP", City: "A"}
	s.selector.On("Select", key).Return(s.series, nil)
	s.estimator.On("Estimate", s.series, s.config).Return(s.windows, nil)
	s.renderer.On("Render", s.series, mock.Anything).Return(figure{content: "partial", err: fmt.Errorf("disk full")}, nil)

	report, err := s.orchestrator(1, nil).Run(context.Background(), "b", s.selector, config.Regions{{State: "SP", Cities: []string{"A"}}}, "Brazil")
	s.Require().NoError(err)
	s.Equal(0, report.Processed())
	s.Equal(1, report.Failed())
	s.Equal(schema.KindRenderFailure, report.Outcomes[0].Kind)

	dir := filepath.Join(s.root, "SP")
	_, err = os.Stat(filepath.Join(dir, "A.png"))
	s.True(os.IsNotExist(err))
	s.assertNoTemporaryFiles(dir)
}

func (s *OrchestratorTestSuite) TestRunFailsOnStateDirectory() {
	s.Require().NoError(os.MkdirAll(s.root, 0755))
	s.Require().NoError(ioutil.WriteFile(filepath.Join(s.root, "SP"), []byte("file"), 0644))

	report, err := s.orchestrator(1, nil).Run(context.Background(), "b", s.selector, config.Regions{{State: "SP", IncludeState: true}}, "Brazil")
	s.Error(err)
	s.True(errors.Is(err, ErrOutputDirectory))
	s.Empty(report.Outcomes)
	s.selector.AssertNotCalled(s.T(), "Select", mock.Anything)
}

func (s *OrchestratorTestSuite) TestRunParallelKeepsOrder() {
	cities := make([]string, 0)
	for i := 0; i < 12; i++ {
		city := fmt.Sprintf("City %02d", i)
		cities = append(cities, city)
		s.selector.On("Select", schema.RegionKey{Country: "Brazil", State: "SP", City: city}).Return(s.series, nil)
	}
	s.selector.On("Select", schema.RegionKey{Country: "Brazil", State: "ES"}).Return(s.series, nil)
	s.estimator.On("Estimate", s.series, s.config).Return(s.windows, nil)
	s.renderer.On("Render", s.series, mock.Anything).Return(figure{content: "png"}, nil)

	var mu sync.Mutex
	calls := 0
	o := s.orchestrator(4, func(schema.UnitOutcome) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	regions := config.Regions{
		{State: "SP", Cities: cities},
		{State: "ES", IncludeState: true},
	}
	report, err := o.Run(context.Background(), "b", s.selector, regions, "Brazil")
	s.Require().NoError(err)
	s.Equal(13, report.Processed())
	s.Equal(13, calls)

	for i, key := range regions.Units("Brazil") {
		s.Equal(key, report.Outcomes[i].Key)
	}
	for _, city := range cities {
		_, err := os.Stat(filepath.Join(s.root, "SP", city+".png"))
		s.NoError(err)
	}
}

func (s *OrchestratorTestSuite) TestRunCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.orchestrator(1, nil).Run(ctx, "b", s.selector, config.Regions{{State: "SP", IncludeState: true}}, "Brazil")
	s.Require().NoError(err)
	s.Equal(1, report.Failed())
	s.True(errors.Is(report.Outcomes[0].Err, context.Canceled))
	s.selector.AssertNotCalled(s.T(), "Select", mock.Anything)
}

func (s *OrchestratorTestSuite) TestAnalyzeCountry() {
	key := schema.RegionKey{Country: "Brazil"}
	s.estimator.On("Estimate", s.series, s.config).Return(s.windows, nil)
	s.renderer.On("Render", s.series, mock.Anything).Return(figure{content: "png"}, nil)

	outcome, err := s.orchestrator(1, nil).AnalyzeCountry(context.Background(), key, s.series)
	s.Require().NoError(err)
	s.Equal(schema.StatusComplete, outcome.Status)
	s.Equal(filepath.Join(s.root, "Brazil.png"), outcome.Artifact.Path)

	latest, ok := outcome.Result.Latest()
	s.True(ok)
	s.Equal(1.2, latest.Mean)
}

func (s *OrchestratorTestSuite) TestAnalyzeCountryFailureIsReturned() {
	key := schema.RegionKey{Country: "Brazil"}
	s.estimator.On("Estimate", s.series, s.config).Return(nil, schema.NewError(schema.KindEstimationFailure, "estimate", fmt.Errorf("too short")))

	outcome, err := s.orchestrator(1, nil).AnalyzeCountry(context.Background(), key, s.series)
	s.Error(err)
	s.True(errors.Is(err, schema.ErrEstimationFailure))
	s.Equal(schema.StatusFailed, outcome.Status)
}

func (s *OrchestratorTestSuite) TestFail() {
	seen := 0
	o := s.orchestrator(1, func(schema.UnitOutcome) { seen++ })
	cause := schema.NewError(schema.KindDataUnavailable, "fetch", fmt.Errorf("status 500"))

	regions := config.Regions{{State: "SP", IncludeState: true, Cities: []string{"A", "B"}}}
	report := o.Fail("tereos", regions, "Brazil", cause)
	s.Equal(0, report.Processed())
	s.Equal(3, report.Failed())
	s.Equal(3, seen)
	for _, outcome := range report.Outcomes {
		s.Equal(schema.KindDataUnavailable, outcome.Kind)
	}
	s.Equal(int64(3), s.counter("units_failed"))
}

func TestOrchestrator(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}
