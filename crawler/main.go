package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/bitmark-inc/autonomy-rt/config"
	"github.com/bitmark-inc/autonomy-rt/external/source"
)

const logPrefix = "crawler"

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

// run executes every job and returns the number of failures.
func run(ctx context.Context, jobs []Cron) int {
	failed := 0
	for _, job := range jobs {
		if err := job.Run(ctx); nil != err {
			failed++
		}
	}
	return failed
}

func main() {
	var configFile, outputDir string

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.StringVar(&outputDir, "o", "data", "[optional] directory receiving the snapshots")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	cfg, err := config.Load(viper.GetViper())
	if nil != err {
		log.WithField("prefix", logPrefix).Fatalf("load configuration: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := source.NewFetcher(&http.Client{Timeout: cfg.HTTP.Timeout})
	if failed := run(ctx, snapshots(cfg, f, outputDir)); failed > 0 {
		log.WithFields(log.Fields{"prefix": logPrefix, "failed": failed}).Error("snapshots incomplete")
		cancel()
		os.Exit(1)
	}
}
