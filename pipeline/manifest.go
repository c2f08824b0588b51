package pipeline

import (
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

const manifestSuffix = ".manifest.yaml"

type manifestFailure struct {
	Unit  string           `yaml:"unit"`
	Kind  schema.ErrorKind `yaml:"kind"`
	Error string           `yaml:"error"`
}

type manifestBatch struct {
	Name      string            `yaml:"name"`
	Processed int               `yaml:"processed"`
	Failed    int               `yaml:"failed"`
	Failures  []manifestFailure `yaml:"failures,omitempty"`
}

type manifest struct {
	ID         string          `yaml:"id"`
	StartedAt  time.Time       `yaml:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at"`
	Country    string          `yaml:"country"`
	Archive    string          `yaml:"archive"`
	Entries    []string        `yaml:"entries"`
	Batches    []manifestBatch `yaml:"batches"`
}

// ManifestPath returns the path of the run manifest kept next to archive.
func ManifestPath(archive string) string {
	return archive + manifestSuffix
}

func newManifest(report *RunReport, finishedAt time.Time) manifest {
	m := manifest{
		ID:         report.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: finishedAt,
		Archive:    report.Archive,
		Entries:    report.Entries,
		Batches:    make([]manifestBatch, 0, len(report.Batches)),
	}
	if report.Country.Artifact != nil {
		m.Country = report.Country.Artifact.Path
	}

	for _, b := range report.Batches {
		mb := manifestBatch{
			Name:      b.Name,
			Processed: b.Processed(),
			Failed:    b.Failed(),
		}
		for _, f := range b.Failures() {
			mf := manifestFailure{Unit: f.Key.String(), Kind: f.Kind}
			if nil != f.Err {
				mf.Error = f.Err.Error()
			}
			mb.Failures = append(mb.Failures, mf)
		}
		m.Batches = append(m.Batches, mb)
	}
	return m
}

func writeManifest(path string, m manifest) error {
	data, err := yaml.Marshal(m)
	if nil != err {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}
