package schema

import "time"

// Window is the reproduction number estimate over one sliding time window.
type Window struct {
	Start  time.Time `json:"t_start" yaml:"t_start"`
	End    time.Time `json:"t_end" yaml:"t_end"`
	Mean   float64   `json:"mean" yaml:"mean"`
	Std    float64   `json:"std" yaml:"std"`
	Lower  float64   `json:"quantile_0_025" yaml:"quantile_0_025"`
	Median float64   `json:"median" yaml:"median"`
	Upper  float64   `json:"quantile_0_975" yaml:"quantile_0_975"`
}

// AnalysisResult holds the estimator output of one unit.
type AnalysisResult struct {
	Key         RegionKey `json:"key" yaml:"key"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Windows     []Window  `json:"windows" yaml:"windows"`
}

// Latest returns the most recent window, false when there is none.
func (r AnalysisResult) Latest() (Window, bool) {
	if len(r.Windows) == 0 {
		return Window{}, false
	}
	return r.Windows[len(r.Windows)-1], true
}

// Artifact is a rendered image of one unit.
type Artifact struct {
	Key  RegionKey `json:"key" yaml:"key"`
	Path string    `json:"path" yaml:"path"`
}
