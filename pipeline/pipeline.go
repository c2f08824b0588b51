package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/autonomy-rt/analysis"
	"github.com/bitmark-inc/autonomy-rt/archive"
	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/epiestim"
	"github.com/bitmark-inc/autonomy-rt/external/source"
	"github.com/bitmark-inc/autonomy-rt/region"
	"github.com/bitmark-inc/autonomy-rt/render"
	"github.com/bitmark-inc/autonomy-rt/schema"
	"github.com/bitmark-inc/autonomy-rt/series"
	"github.com/bitmark-inc/autonomy-rt/utils"
)

const logPrefix = "pipeline"

// RunReport summarizes a finished run.
type RunReport struct {
	ID        string               `yaml:"id"`
	StartedAt time.Time            `yaml:"started_at"`
	Country   schema.UnitOutcome   `yaml:"country"`
	Archive   string               `yaml:"archive"`
	Entries   []string             `yaml:"entries"`
	Batches   []schema.BatchReport `yaml:"batches"`
}

// Failures returns every failed unit of every batch in order.
func (r *RunReport) Failures() []schema.UnitOutcome {
	failures := make([]schema.UnitOutcome, 0)
	for _, b := range r.Batches {
		failures = append(failures, b.Failures()...)
	}
	return failures
}

type Options struct {
	Fetcher   source.Fetcher
	Estimator analysis.Estimator
	Renderer  analysis.Renderer
	Scope     tally.Scope
	Now       func() time.Time
	OnOutcome func(schema.UnitOutcome)
}

// Pipeline runs a whole configured analysis: national series, country
// unit, every batch, then the archive.
type Pipeline struct {
	config config.Config
	opts   Options
}

func New(cfg config.Config, opts Options) *Pipeline {
	if opts.Fetcher == nil {
		opts.Fetcher = source.NewFetcher(nil)
	}
	if opts.Estimator == nil {
		opts.Estimator = epiestim.New()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.New()
	}
	if opts.Scope == nil {
		opts.Scope = tally.NoopScope
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pipeline{
		config: cfg,
		opts:   opts,
	}
}

// Run executes every stage in order. A *StageError is returned for a
// fatal condition, in which case no archive is written. Unit failures
// inside batches are reported, not returned.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		ID:        uuid.New().String(),
		StartedAt: p.opts.Now().UTC(),
		Batches:   make([]schema.BatchReport, 0, len(p.config.Batches)),
	}
	logger := log.WithFields(log.Fields{"prefix": logPrefix, "run": report.ID})
	logger.Info("run started")

	if err := p.prepare(); nil != err {
		return report, stageError(StagePrepare, err)
	}

	countryName := p.config.Country.Name
	national, err := series.Build(ctx,
		source.NewCSSE(p.opts.Fetcher, p.config.Sources.Confirmed, countryName, schema.ColumnCases),
		source.NewCSSE(p.opts.Fetcher, p.config.Sources.Deaths, countryName, schema.ColumnDeaths),
	)
	if nil != err {
		return report, stageError(StageNational, err)
	}
	logger.WithField("days", national.Len()).Info("national series")

	orchestrator := analysis.New(p.opts.Estimator, p.opts.Renderer, analysis.Options{
		OutputRoot: p.config.Output.Root,
		Extension:  p.config.Output.Extension,
		Config:     p.config.Epiestim,
		Workers:    p.config.Output.Workers,
		Scope:      p.opts.Scope,
		Now:        p.opts.Now,
		OnOutcome:  p.opts.OnOutcome,
	})

	report.Country, err = orchestrator.AnalyzeCountry(ctx, schema.RegionKey{Country: countryName}, national)
	if nil != err {
		return report, stageError(StageCountry, err)
	}

	for _, b := range p.config.Batches {
		batchLogger := logger.WithField("batch", b.Name)

		ds, err := b.Dataset.Load(ctx, p.opts.Fetcher, countryName)
		if nil != err {
			batchLogger.WithField("error", err).Error("batch dataset unavailable")
			report.Batches = append(report.Batches, orchestrator.Fail(b.Name, b.Regions, countryName, err))
			continue
		}

		br, err := orchestrator.Run(ctx, b.Name, region.NewSelector(ds), b.Regions, countryName)
		report.Batches = append(report.Batches, br)
		if nil != err {
			return report, stageError(StageBatches, err)
		}
	}
	if err := ctx.Err(); nil != err {
		return report, stageError(StageBatches, err)
	}

	date := utils.LocalDate(p.opts.Now(), p.config.Archive.Timezone)
	path := archive.Name(p.config.Archive.Root, date, p.config.Archive.Label)
	entries, err := archive.Package(p.config.Output.Root, path)
	if nil != err {
		return report, stageError(StageArchive, err)
	}
	report.Archive = path
	report.Entries = entries

	manifestPath := ManifestPath(path)
	if err := writeManifest(manifestPath, newManifest(report, p.opts.Now().UTC())); nil != err {
		logger.WithFields(log.Fields{"manifest": manifestPath, "error": err}).Error("write manifest")
	}

	logger.WithFields(log.Fields{
		"archive":  path,
		"entries":  len(entries),
		"failures": len(report.Failures()),
	}).Info("run finished")

	return report, nil
}

// prepare clears the output root of a previous run and makes sure both
// roots exist.
func (p *Pipeline) prepare() error {
	if err := p.config.CheckOutputRoot(); nil != err {
		return err
	}
	if err := os.RemoveAll(p.config.Output.Root); nil != err {
		return errors.Wrap(err, "clear output root")
	}
	if err := analysis.EnsureDir(p.config.Output.Root); nil != err {
		return err
	}
	return analysis.EnsureDir(p.config.Archive.Root)
}
