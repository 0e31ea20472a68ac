package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"shotclassifier/internal/commander"
	"shotclassifier/internal/config"
	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/experiment"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/metrics"
	"shotclassifier/internal/pipeline"
	"shotclassifier/internal/shots"
)

func main() {
	dataFile := flag.String("data", "", "Dataset path (.csv or .parquet), overrides SHOTS_DATA_PATH")
	modelList := flag.String("models", "", "Comma separated models to evaluate (logistic,knn,tree,forest,bayes)")
	start := flag.String("start", "", "First season of the range, e.g. 2000-01")
	end := flag.String("end", "", "Last season of the range")
	trainOnRange := flag.Bool("train-on-range", false, "Restrict training to the season range as well")
	gridsFile := flag.String("grids", "", "YAML file with hyperparameter grids")
	reportFile := flag.String("report", "", "Write the results as CSV to this file")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.Parse()

	if err := run(*dataFile, *modelList, *start, *end, *trainOnRange, *gridsFile, *reportFile, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(1)
	}
}

func run(dataFile, modelList, start, end string, trainOnRange bool, gridsFile, reportFile, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if dataFile != "" {
		cfg.DataPath = dataFile
	}
	if modelList != "" {
		cfg.Models = config.SplitList(modelList)
	}
	if gridsFile != "" {
		cfg.GridsPath = gridsFile
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	cfg.TrainOnSeasonRange = cfg.TrainOnSeasonRange || trainOnRange
	if err := cfg.Validate(); err != nil {
		return err
	}
	seasons, err := seasonRange(start, end)
	if err != nil {
		return err
	}

	logger.Init()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Named("train")

	// Batch runs grid-search every tree model, so stages take minutes.
	m := metrics.NewManager(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithHistogramBuckets(prometheus.ExponentialBuckets(0.01, 4, 9)),
	)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server stopped", logger.Error(err))
			}
		}()
		defer srv.Close()
		log.Info(ctx, "serving metrics", logger.String("addr", cfg.MetricsAddr))
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Seasons = seasons
	opts.Logger = log
	opts.Metrics = m

	csvOptions := data.DefaultCSVOptions()
	csvOptions.Delimiter = cfg.DelimiterRune()
	cache := data.NewCache(csvOptions, m)
	raw, err := cache.Get(ctx, cfg.DataPath)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, raw, opts)
	if err != nil {
		return err
	}
	commander.NewPrinter(os.Stdout).Report(result)

	if reportFile != "" {
		if err := experiment.ExportResults(result.Results(), reportFile); err != nil {
			return err
		}
		fmt.Printf("Results saved to: %s\n", reportFile)
	}
	return nil
}

// seasonRange builds the range from the -start and -end flags; both or
// neither must be set.
func seasonRange(start, end string) (shots.SeasonRange, error) {
	if (start == "") != (end == "") {
		return shots.SeasonRange{}, perrors.NewConfigError("train", "-start and -end must be given together")
	}
	return shots.SeasonRange{Start: start, End: end}, nil
}
