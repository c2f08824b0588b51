package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/uber-go/tally"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/external/source"
	"github.com/bitmark-inc/autonomy-rt/metrics"
	"github.com/bitmark-inc/autonomy-rt/pipeline"
	"github.com/bitmark-inc/autonomy-rt/schema"
)

func initLog() {
	logLevel, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func loadConfig(file string) {
	// Config from file
	viper.SetConfigType("yaml")
	if file != "" {
		viper.SetConfigFile(file)
	}

	viper.AddConfigPath("/.config/")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("No config file. Read config from env.")
		viper.AllowEmptyEnv(false)
	}

	// Config from env if possible
	viper.AutomaticEnv()
	viper.SetEnvPrefix("rt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func countUnits(cfg config.Config) int {
	total := 1
	for _, b := range cfg.Batches {
		total += len(b.Regions.Units(cfg.Country.Name))
	}
	return total
}

func reportFailure(outcome schema.UnitOutcome) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("unit", outcome.Key.String())
		scope.SetTag("kind", string(outcome.Kind))
		sentry.CaptureException(outcome.Err)
	})
}

func main() {
	var configFile string

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.WithField("prefix", "main").Info("Cancelling run")
		cancel()
	}()

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	// Sentry
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              viper.GetString("sentry.dsn"),
		AttachStacktrace: true,
		Environment:      viper.GetString("sentry.environment"),
		Dist:             viper.GetString("sentry.dist"),
	}); err != nil {
		log.Error(err)
	}
	log.WithField("prefix", "init").Info("Initialized sentry")
	defer sentry.Flush(5 * time.Second)

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.WithField("prefix", "init").Fatalf("load configuration: %s", err)
	}
	log.WithFields(log.Fields{"prefix": "init", "country": cfg.Country.Name, "batches": len(cfg.Batches)}).Info("Loaded configuration")

	reporter, err := metrics.NewReporter(cfg.Metrics.Reporter, log.StandardLogger())
	if err != nil {
		log.WithField("prefix", "init").Fatalf("metrics reporter: %s", err)
	}
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:   "rt",
		Reporter: reporter,
	}, cfg.Metrics.Interval)
	defer closer.Close()

	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout,
	}

	bar := progressbar.NewOptions(countUnits(cfg),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("units"),
		progressbar.OptionShowCount(),
	)

	p := pipeline.New(cfg, pipeline.Options{
		Fetcher: source.NewFetcher(httpClient),
		Scope:   scope,
		OnOutcome: func(outcome schema.UnitOutcome) {
			bar.Add(1)
			if !outcome.Succeeded() {
				reportFailure(outcome)
			}
		},
	})

	report, err := p.Run(ctx)
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
		log.WithField("prefix", "main").Fatalf("run %s failed: %s", report.ID, err)
	}

	for _, f := range report.Failures() {
		fmt.Printf("failed %s: %s\n", f.Key, f.Err)
	}
	fmt.Printf("archive: %s (%d files)\n", report.Archive, len(report.Entries))
}
