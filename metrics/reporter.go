package metrics

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
)

const logPrefix = "metrics"

const (
	ReporterLog  = "log"
	ReporterNone = "none"
)

var ErrUnknownReporter = fmt.Errorf("unknown metrics reporter")

// NewReporter returns the stats reporter registered under name.
func NewReporter(name string, logger log.FieldLogger) (tally.StatsReporter, error) {
	switch name {
	case ReporterLog, "":
		return NewLogReporter(logger), nil
	case ReporterNone:
		return tally.NullStatsReporter, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReporter, name)
}

// LogReporter writes every reported metric as a structured log entry.
type LogReporter struct {
	logger log.FieldLogger
}

func NewLogReporter(logger log.FieldLogger) *LogReporter {
	if nil == logger {
		logger = log.StandardLogger()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) entry(kind, name string, tags map[string]string) log.FieldLogger {
	fields := log.Fields{
		"prefix": logPrefix,
		"metric": name,
		"type":   kind,
	}
	for k, v := range tags {
		fields["tag."+k] = v
	}
	return r.logger.WithFields(fields)
}

func (r *LogReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.entry("counter", name, tags).WithField("value", value).Info("metric")
}

func (r *LogReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.entry("gauge", name, tags).WithField("value", value).Info("metric")
}

func (r *LogReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.entry("timer", name, tags).WithField("value", interval.String()).Debug("metric")
}

func (r *LogReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound,
	bucketUpperBound float64,
	samples int64,
) {
	r.entry("histogram", name, tags).WithFields(log.Fields{
		"lower":   bucketLowerBound,
		"upper":   bucketUpperBound,
		"samples": samples,
	}).Info("metric")
}

func (r *LogReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	buckets tally.Buckets,
	bucketLowerBound,
	bucketUpperBound time.Duration,
	samples int64,
) {
	r.entry("histogram", name, tags).WithFields(log.Fields{
		"lower":   bucketLowerBound.String(),
		"upper":   bucketUpperBound.String(),
		"samples": samples,
	}).Info("metric")
}

func (r *LogReporter) Capabilities() tally.Capabilities {
	return capabilities{}
}

// Flush is a no-op, entries are written as they are reported.
func (r *LogReporter) Flush() {}

type capabilities struct{}

func (capabilities) Reporting() bool { return true }
func (capabilities) Tagging() bool   { return true }
