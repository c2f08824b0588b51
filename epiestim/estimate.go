package epiestim

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

var ErrSeriesTooShort = fmt.Errorf("series too short for one estimation window")

// Estimator computes reproduction number estimates over weekly sliding
// windows with a gamma posterior, after Cori et al. (2013).
type Estimator struct{}

func New() *Estimator {
	return &Estimator{}
}

// Estimate returns one window per sliding position. Windows start at the
// second day of the series.
func (e *Estimator) Estimate(s schema.Series, cfg Config) ([]schema.Window, error) {
	if err := cfg.Validate(); nil != err {
		return nil, schema.NewError(schema.KindEstimationFailure, "config", err)
	}

	column := cfg.Column
	if column == "" {
		column = schema.ColumnCases
	}
	incidence, ok := s.Column(column)
	if !ok {
		return nil, schema.NewError(schema.KindEstimationFailure, "select column", fmt.Errorf("column %q not in series", column))
	}

	n := len(incidence)
	if n < cfg.WindowSize+1 {
		return nil, schema.NewError(schema.KindEstimationFailure, fmt.Sprintf("%d days", n), ErrSeriesTooShort)
	}

	si := DiscreteSerialInterval(cfg.MeanSI, cfg.StdSI, n)
	lambda := Infectivity(incidence, si)

	priorShape := math.Pow(cfg.MeanPrior/cfg.StdPrior, 2)
	priorScale := cfg.StdPrior * cfg.StdPrior / cfg.MeanPrior

	windows := make([]schema.Window, 0, n-cfg.WindowSize)
	for start := 1; start+cfg.WindowSize-1 < n; start++ {
		end := start + cfg.WindowSize - 1

		sumI, err := stats.Sum(incidence[start : end+1])
		if nil != err {
			return nil, schema.NewError(schema.KindEstimationFailure, "window incidence", err)
		}
		sumL, err := stats.Sum(lambda[start : end+1])
		if nil != err {
			return nil, schema.NewError(schema.KindEstimationFailure, "window infectivity", err)
		}

		shape := priorShape + sumI
		scale := 1 / (1/priorScale + sumL)
		posterior := distuv.Gamma{Alpha: shape, Beta: 1 / scale}

		w := schema.Window{
			Start:  s.Points[start].Date,
			End:    s.Points[end].Date,
			Mean:   shape * scale,
			Std:    math.Sqrt(shape) * scale,
			Lower:  posterior.Quantile(0.025),
			Median: posterior.Quantile(0.5),
			Upper:  posterior.Quantile(0.975),
		}
		if math.IsNaN(w.Mean) || math.IsInf(w.Mean, 0) {
			return nil, schema.NewError(schema.KindEstimationFailure, w.End.Format(schema.DateLayout), fmt.Errorf("non finite estimate"))
		}
		windows = append(windows, w)
	}

	return windows, nil
}

// DiscreteSerialInterval discretises a gamma serial interval offset by one
// day over n days. Index k holds the probability of a k day interval; the
// value at 0 is always 0.
func DiscreteSerialInterval(mean, std float64, n int) []float64 {
	shape := math.Pow((mean-1)/std, 2)
	scale := std * std / (mean - 1)

	cdf := func(x, a float64) float64 {
		if x <= 0 {
			return 0
		}
		return distuv.Gamma{Alpha: a, Beta: 1 / scale}.CDF(x)
	}

	w := make([]float64, n)
	for i := 1; i < n; i++ {
		k := float64(i)
		v := k*cdf(k, shape) + (k-2)*cdf(k-2, shape) - 2*(k-1)*cdf(k-1, shape)
		v += shape * scale * (2*cdf(k-1, shape+1) - cdf(k-2, shape+1) - cdf(k, shape+1))
		w[i] = math.Max(0, v)
	}
	return w
}

// Infectivity returns the total infectiousness of each day, the incidence of
// the previous days weighted by the serial interval.
func Infectivity(incidence, si []float64) []float64 {
	lambda := make([]float64, len(incidence))
	for t := range incidence {
		for s := 1; s <= t && s < len(si); s++ {
			lambda[t] += incidence[t-s] * si[s]
		}
	}
	return lambda
}
