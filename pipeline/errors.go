package pipeline

import "fmt"

const (
	StagePrepare  = "prepare"
	StageNational = "national"
	StageCountry  = "country"
	StageBatches  = "batches"
	StageArchive  = "archive"
)

// StageError is a fatal error that stopped the run at Stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
