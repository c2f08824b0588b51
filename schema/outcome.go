package schema

// UnitStatus is the state of one unit during orchestration.
type UnitStatus string

const (
	StatusPending  UnitStatus = "pending"
	StatusRunning  UnitStatus = "running"
	StatusComplete UnitStatus = "complete"
	StatusFailed   UnitStatus = "failed"
)

// UnitOutcome records what happened to one configured unit.
type UnitOutcome struct {
	Key      RegionKey       `yaml:"key"`
	Status   UnitStatus      `yaml:"status"`
	Artifact *Artifact       `yaml:"artifact,omitempty"`
	Result   *AnalysisResult `yaml:"-"`
	Kind     ErrorKind       `yaml:"kind,omitempty"`
	Err      error           `yaml:"-"`
}

// Succeeded reports whether the unit produced an artifact.
func (o UnitOutcome) Succeeded() bool {
	return o.Status == StatusComplete
}

// BatchReport collects unit outcomes in configuration order.
type BatchReport struct {
	Name     string        `yaml:"name"`
	Outcomes []UnitOutcome `yaml:"outcomes"`
}

// Processed returns the number of units that completed.
func (r BatchReport) Processed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of units that failed.
func (r BatchReport) Failed() int {
	return len(r.Failures())
}

// Failures returns the failed outcomes in order.
func (r BatchReport) Failures() []UnitOutcome {
	failures := make([]UnitOutcome, 0)
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failures = append(failures, o)
		}
	}
	return failures
}

// Artifacts returns the artifacts of completed units in order.
func (r BatchReport) Artifacts() []Artifact {
	artifacts := make([]Artifact, 0)
	for _, o := range r.Outcomes {
		if o.Succeeded() && o.Artifact != nil {
			artifacts = append(artifacts, *o.Artifact)
		}
	}
	return artifacts
}
