package analysis

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/epiestim"
	"github.com/bitmark-inc/autonomy-rt/schema"
	"github.com/bitmark-inc/autonomy-rt/utils"
)

const (
	logPrefix        = "analysis"
	defaultExtension = "png"
)

var ErrOutputDirectory = fmt.Errorf("prepare output directory")

// Estimator - reproduction number estimation of one incidence series
type Estimator interface {
	Estimate(s schema.Series, cfg epiestim.Config) ([]schema.Window, error)
}

// Renderer - draws the figure of one unit
type Renderer interface {
	Render(s schema.Series, result schema.AnalysisResult) (io.WriterTo, error)
}

// Selector - yields the incidence series of one unit
type Selector interface {
	Select(key schema.RegionKey) (schema.Series, error)
}

type Options struct {
	OutputRoot string
	Extension  string
	Config     epiestim.Config
	Workers    int
	Scope      tally.Scope
	Now        func() time.Time
	// OnOutcome is called once per finished unit, never concurrently.
	OnOutcome func(schema.UnitOutcome)
}

// Orchestrator analyzes and renders configured units one by one, or on a
// bounded pool, recording a failure per unit instead of aborting.
type Orchestrator struct {
	estimator Estimator
	renderer  Renderer
	opts      Options

	mu sync.Mutex
}

func New(estimator Estimator, renderer Renderer, opts Options) *Orchestrator {
	if opts.Extension == "" {
		opts.Extension = defaultExtension
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Scope == nil {
		opts.Scope = tally.NoopScope
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		estimator: estimator,
		renderer:  renderer,
		opts:      opts,
	}
}

// AnalyzeCountry processes the whole-country unit from the national
// series, writing it directly under the output root. A failure here is
// returned as an error since nothing else stands in for the base dataset.
func (o *Orchestrator) AnalyzeCountry(ctx context.Context, key schema.RegionKey, s schema.Series) (schema.UnitOutcome, error) {
	if err := EnsureDir(o.opts.OutputRoot); nil != err {
		return schema.UnitOutcome{Key: key, Status: schema.StatusFailed, Kind: schema.KindOf(err), Err: err}, err
	}

	outcome := o.process(ctx, key, o.opts.OutputRoot, func() (schema.Series, error) {
		return s, nil
	})
	return outcome, outcome.Err
}

// Run processes every configured unit of a batch in configuration order.
// Unit failures are recorded in the report. The only error returned is a
// state directory that cannot be created, in which case the report holds
// the units finished so far.
func (o *Orchestrator) Run(ctx context.Context, name string, selector Selector, regions config.Regions, country string) (schema.BatchReport, error) {
	units := regions.Units(country)
	outcomes := make([]schema.UnitOutcome, len(units))
	p := newPool(o.opts.Workers)

	submitted := 0
	for _, state := range regions {
		dir := filepath.Join(o.opts.OutputRoot, utils.FileName(state.State))
		if err := EnsureDir(dir); nil != err {
			p.Wait()
			log.WithFields(log.Fields{"prefix": logPrefix, "batch": name, "dir": dir, "error": err}).Error("state directory")
			return schema.BatchReport{Name: name, Outcomes: outcomes[:submitted]}, err
		}

		for _, key := range state.Units(country) {
			idx, key := submitted, key
			p.Submit(func() {
				outcomes[idx] = o.process(ctx, key, dir, func() (schema.Series, error) {
					return selector.Select(key)
				})
			})
			submitted++
		}
	}
	p.Wait()

	report := schema.BatchReport{Name: name, Outcomes: outcomes}
	log.WithFields(log.Fields{
		"prefix":    logPrefix,
		"batch":     name,
		"processed": report.Processed(),
		"failed":    report.Failed(),
	}).Info("batch finished")

	return report, nil
}

// Fail records every configured unit of a batch as failed with err, for a
// batch whose dataset could not be obtained.
func (o *Orchestrator) Fail(name string, regions config.Regions, country string, err error) schema.BatchReport {
	report := schema.BatchReport{Name: name, Outcomes: make([]schema.UnitOutcome, 0)}
	for _, key := range regions.Units(country) {
		outcome := schema.UnitOutcome{
			Key:    key,
			Status: schema.StatusFailed,
			Kind:   schema.KindOf(err),
			Err:    err,
		}
		o.finish(outcome)
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}

func (o *Orchestrator) process(ctx context.Context, key schema.RegionKey, dir string, load func() (schema.Series, error)) schema.UnitOutcome {
	outcome := schema.UnitOutcome{Key: key, Status: schema.StatusPending}
	logger := log.WithFields(log.Fields{"prefix": logPrefix, "unit": key.String()})

	if err := ctx.Err(); nil != err {
		return o.fail(outcome, err)
	}

	outcome.Status = schema.StatusRunning
	logger.WithField("status", outcome.Status).Debug("unit started")
	stopwatch := o.opts.Scope.Timer("unit_duration").Start()
	defer stopwatch.Stop()

	s, err := load()
	if nil != err {
		return o.fail(outcome, classify(schema.KindDataUnavailable, "load series", err))
	}

	windows, err := o.estimator.Estimate(s, o.opts.Config)
	if nil != err {
		return o.fail(outcome, classify(schema.KindEstimationFailure, "estimate", err))
	}
	result := &schema.AnalysisResult{
		Key:         key,
		GeneratedAt: o.opts.Now().UTC(),
		Windows:     windows,
	}

	fig, err := o.renderer.Render(s, *result)
	if nil != err {
		return o.fail(outcome, classify(schema.KindRenderFailure, "render", err))
	}

	path := filepath.Join(dir, utils.FileName(key.Name())+"."+o.opts.Extension)
	if err := writeFile(path, fig); nil != err {
		return o.fail(outcome, classify(schema.KindRenderFailure, "write "+path, err))
	}

	outcome.Status = schema.StatusComplete
	outcome.Result = result
	outcome.Artifact = &schema.Artifact{Key: key, Path: path}

	fields := log.Fields{"status": outcome.Status, "path": path}
	if latest, ok := result.Latest(); ok {
		fields["rt"] = fmt.Sprintf("%.2f [%.2f, %.2f]", latest.Mean, latest.Lower, latest.Upper)
	}
	logger.WithFields(fields).Info("unit complete")

	o.finish(outcome)
	return outcome
}

func (o *Orchestrator) fail(outcome schema.UnitOutcome, err error) schema.UnitOutcome {
	outcome.Status = schema.StatusFailed
	outcome.Kind = schema.KindOf(err)
	outcome.Err = err

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"unit":   outcome.Key.String(),
		"status": outcome.Status,
		"kind":   outcome.Kind,
		"error":  err,
	}).Warn("unit failed")

	o.finish(outcome)
	return outcome
}

func (o *Orchestrator) finish(outcome schema.UnitOutcome) {
	if outcome.Succeeded() {
		o.opts.Scope.Counter("units_complete").Inc(1)
	} else {
		o.opts.Scope.Tagged(map[string]string{"kind": string(outcome.Kind)}).Counter("units_failed").Inc(1)
	}

	if o.opts.OnOutcome == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts.OnOutcome(outcome)
}

// classify keeps the kind of an already classified error and gives kind to
// anything else.
func classify(kind schema.ErrorKind, op string, err error) error {
	if schema.KindOf(err) != schema.KindUnknown {
		return err
	}
	return schema.NewError(kind, op, err)
}

// EnsureDir creates dir and its parents when absent. It is safe to call
// repeatedly.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); nil != err {
		return errors.Wrapf(ErrOutputDirectory, "%s: %s", dir, err)
	}
	return nil
}

// writeFile writes the figure next to its destination and renames it in
// place, so a failed write leaves nothing at path.
func writeFile(path string, fig io.WriterTo) error {
	tmp, err := ioutil.TempFile(filepath.Dir(path), ".unit-*.tmp")
	if nil != err {
		return err
	}

	if _, err := fig.WriteTo(tmp); nil != err {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); nil != err {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); nil != err {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
