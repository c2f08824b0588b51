package main

import (
	"context"
	"net/url"
	"path"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/external/source"
	"github.com/bitmark-inc/autonomy-rt/utils"
)

type Cron interface {
	Name() string
	Run(ctx context.Context) error
}

// snapshot mirrors one configured feed into a local file.
type snapshot struct {
	fetcher  source.Fetcher
	name     string
	location string
	saveTo   string
}

func (s snapshot) Name() string {
	return s.name
}

func (s snapshot) Run(ctx context.Context) error {
	data, err := source.ReadAll(ctx, s.fetcher, s.location, "")
	if nil != err {
		log.WithFields(log.Fields{
			"prefix":   logPrefix,
			"source":   s.name,
			"location": s.location,
			"error":    err,
		}).Error("fetch source")
		return err
	}

	if err := source.SaveCopy(data, s.saveTo); nil != err {
		log.WithFields(log.Fields{"prefix": logPrefix, "source": s.name, "path": s.saveTo, "error": err}).Error("save snapshot")
		return err
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"source": s.name,
		"path":   s.saveTo,
		"bytes":  len(data),
	}).Info("snapshot saved")
	return nil
}

// newSnapshot - new cron job saving location under dir, named after the
// source and the last element of the location
func newSnapshot(f source.Fetcher, name, location, dir string) Cron {
	return &snapshot{
		fetcher:  f,
		name:     name,
		location: location,
		saveTo:   filepath.Join(dir, utils.FileName(name)+"-"+utils.FileName(baseName(location))),
	}
}

func baseName(location string) string {
	if u, err := url.Parse(location); nil == err && u.Path != "" {
		return path.Base(u.Path)
	}
	return filepath.Base(location)
}

// snapshots returns one job per national feed and batch dataset.
func snapshots(cfg config.Config, f source.Fetcher, dir string) []Cron {
	jobs := []Cron{
		newSnapshot(f, "confirmed", cfg.Sources.Confirmed, dir),
		newSnapshot(f, "deaths", cfg.Sources.Deaths, dir),
	}
	for _, b := range cfg.Batches {
		jobs = append(jobs, newSnapshot(f, b.Name, b.Dataset.Location, dir))
	}
	return jobs
}
