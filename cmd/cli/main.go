package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"

	"shotclassifier/internal/commander"
	"shotclassifier/internal/config"
	"shotclassifier/internal/data"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/metrics"
	"shotclassifier/internal/pipeline"
)

func main() {
	dataFile := flag.String("data", "", "Dataset path, overrides SHOTS_DATA_PATH")
	flag.Parse()

	if err := run(*dataFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(1)
	}
}

func run(dataFile string) error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if dataFile != "" {
		cfg.DataPath = dataFile
	}

	logger.Init()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	m := metrics.NewManager(metrics.WithNamespace(cfg.MetricsNamespace))
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Named("cli").Error(ctx, "metrics server stopped", logger.Error(err))
			}
		}()
		defer srv.Close()
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Metrics = m

	csvOptions := data.DefaultCSVOptions()
	csvOptions.Delimiter = cfg.DelimiterRune()
	cache := data.NewCache(csvOptions, m)
	return commander.NewCommander(cache, cfg.DataPath, opts, os.Stdout).Start(ctx, os.Stdin)
}
