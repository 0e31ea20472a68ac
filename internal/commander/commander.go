// Package commander is the interactive shell over the shot pipeline. The
// dataset is held in a data.Cache, so changing the season range or the model
// list re-runs the pipeline without reading the file again.
package commander

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"shotclassifier/internal/data"
	perrors "shotclassifier/internal/errors"
	"shotclassifier/internal/experiment"
	"shotclassifier/internal/explore"
	"shotclassifier/internal/jobs"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/models"
	"shotclassifier/internal/pipeline"
	"shotclassifier/internal/shots"
)

const evaluateJob = "evaluate"

type Commander struct {
	cache    *data.Cache
	dataPath string
	opts     pipeline.Options
	jobs     *jobs.Manager
	log      logger.Logger
	*Printer
}

// NewCommander returns a shell reading datasets through cache and writing to
// out. dataPath is the dataset used until a load command names another.
func NewCommander(cache *data.Cache, dataPath string, opts pipeline.Options, out io.Writer) *Commander {
	return &Commander{
		cache:    cache,
		dataPath: dataPath,
		opts:     opts,
		jobs:     jobs.NewManager(),
		log:      logger.Named("commander"),
		Printer:  NewPrinter(out),
	}
}

// Start reads commands from in until quit or end of input. An interrupt
// cancels the running evaluation instead of ending the shell.
func (c *Commander) Start(ctx context.Context, in io.Reader) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			if c.jobs.CancelRunning() == 0 {
				c.printf("\n%s\n", c.yellow("type 'quit' to exit"))
			}
		}
	}()

	c.printWelcome()
	scanner := bufio.NewScanner(in)
	for {
		c.printf("%s", c.yellow("\nshots> "))
		if !scanner.Scan() {
			c.println()
			return scanner.Err()
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if !c.ExecuteCommand(ctx, strings.ToLower(parts[0]), parts[1:]) {
			return nil
		}
	}
}

// ExecuteCommand runs one command and reports whether the shell should
// keep going.
func (c *Commander) ExecuteCommand(ctx context.Context, command string, args []string) bool {
	switch command {
	case "help", "h":
		c.showHelp()
	case "load":
		c.load(ctx, args)
	case "info":
		c.info(ctx)
	case "seasons":
		c.seasons(ctx)
	case "range":
		c.setRange(ctx, args)
	case "actions":
		c.actions(ctx, args)
	case "zones":
		c.zones(ctx)
	case "periods":
		c.periods(ctx)
	case "evaluate":
		c.evaluate(ctx, args)
	case "tree":
		c.tree()
	case "predict":
		c.predict(args)
	case "report":
		c.report(args)
	case "history":
		c.history()
	case "invalidate":
		c.invalidate(args)
	case "quit", "exit", "q":
		return false
	default:
		c.Fail("unknown command %q, type 'help'", command)
	}
	return true
}

func (c *Commander) printWelcome() {
	c.println(c.cyan("╔══════════════════════════════════════════╗"))
	c.println(c.cyan("║          Shot Outcome Commander          ║"))
	c.println(c.cyan("╚══════════════════════════════════════════╝"))
	c.println("Type 'help' for available commands")
}

func (c *Commander) showHelp() {
	c.println(c.blue("\nAvailable Commands:"))

	c.println("\n" + c.cyan("Data:"))
	c.println("  load [file]            - Load a dataset (.csv or .parquet)")
	c.println("  info                   - Show the loaded dataset")
	c.println("  invalidate [all]       - Drop the cached dataset so the next command reloads it")

	c.println("\n" + c.cyan("Exploration:"))
	c.println("  seasons                - List seasons and the current selection")
	c.println("  range <start> <end>    - Select an inclusive season range ('range all' resets)")
	c.println("  actions [n]            - Most frequent action types")
	c.println("  zones                  - Shot zone areas")
	c.println("  periods                - Shots by minute remaining, per period")

	c.println("\n" + c.cyan("Models:"))
	c.println("  evaluate [model...]    - Cross-validate models (" + strings.Join(models.Algorithms, ", ") + ")")
	c.println("  tree                   - Show the fitted decision tree")
	c.println("  predict [n]            - Held-out probabilities from the best model")
	c.println("  report <file>          - Export the last evaluation as CSV")
	c.println("  history                - List evaluation runs")

	c.println("\n" + c.cyan("System:"))
	c.println("  help                   - Show this help message")
	c.println("  quit                   - Exit program")
}

// showError prints err, telling configuration problems apart from bad data.
func (c *Commander) showError(err error) {
	c.Fail("%v", err)
	switch {
	case errors.Is(err, perrors.ErrConfiguration):
		c.printf("  %s\n", c.yellow("change the selection and try again"))
	case errors.Is(err, perrors.ErrInput):
		c.printf("  %s\n", c.yellow("the dataset cannot be used as is"))
	}
}

func (c *Commander) table(ctx context.Context) (*data.Table, error) {
	return c.cache.Get(ctx, c.dataPath)
}

// selection cleans the dataset and applies the season range.
func (c *Commander) selection(ctx context.Context) (cleaned, selected *data.Table, err error) {
	raw, err := c.table(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cleaned, err = shots.Clean(raw); err != nil {
		return nil, nil, err
	}
	if selected, err = shots.FilterSeasons(cleaned, c.opts.Seasons); err != nil {
		return nil, nil, err
	}
	return cleaned, selected, nil
}

func (c *Commander) load(ctx context.Context, args []string) {
	if len(args) > 0 {
		c.dataPath = args[0]
	}
	c.printf("Loading data from %s...\n", c.dataPath)
	t, err := c.table(ctx)
	if err != nil {
		c.showError(err)
		return
	}
	c.Success("loaded %d rows x %d columns", t.Len(), t.Width())
}

func (c *Commander) invalidate(args []string) {
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		c.cache.Reset()
		c.Success("dropped every cached dataset")
		return
	}
	c.cache.Invalidate(c.dataPath)
	c.Success("dropped cached copy of %s", c.dataPath)
}

func (c *Commander) info(ctx context.Context) {
	changed := c.cache.Stale(c.dataPath)
	t, err := c.table(ctx)
	if err != nil {
		c.showError(err)
		return
	}
	if changed {
		c.Warn("%s changed on disk, reloaded", c.dataPath)
	}
	c.println(strings.Repeat("─", 50))
	c.printf("File:       %s\n", c.dataPath)
	if fp, ok := c.cache.Fingerprint(c.dataPath); ok {
		c.printf("Size:       %.2f KB (xxh64 %016x)\n", float64(fp.Size)/1024, fp.Digest)
	}
	c.printf("Rows:       %d\n", t.Len())
	c.printf("Numeric:    %s\n", strings.Join(t.NamesOfKind(data.Numeric), ", "))
	c.printf("Categories: %s\n", strings.Join(t.NamesOfKind(data.Categorical), ", "))
	c.printf("Seasons:    %s\n", c.opts.Seasons)
	c.printf("Models:     %s\n", strings.Join(c.opts.Models, ", "))
	c.println(strings.Repeat("─", 50))
}

func (c *Commander) seasons(ctx context.Context) {
	cleaned, selected, err := c.selection(ctx)
	if err != nil {
		c.showError(err)
		return
	}
	all, err := shots.Seasons(cleaned)
	if err != nil {
		c.showError(err)
		return
	}
	chosen, err := shots.Seasons(selected)
	if err != nil {
		c.showError(err)
		return
	}
	for _, s := range all {
		if slices.Contains(chosen, s) {
			c.printf("  %s %s\n", c.green("●"), s)
		} else {
			c.printf("  ○ %s\n", s)
		}
	}
	c.printf("%d of %d seasons selected (%d rows)\n", len(chosen), len(all), selected.Len())
}

func (c *Commander) setRange(ctx context.Context, args []string) {
	var r shots.SeasonRange
	switch {
	case len(args) == 1 && strings.EqualFold(args[0], "all"):
	case len(args) == 2:
		r = shots.SeasonRange{Start: args[0], End: args[1]}
	default:
		c.Fail("Usage: range <start> <end> | range all")
		return
	}

	previous := c.opts.Seasons
	c.opts.Seasons = r
	_, selected, err := c.selection(ctx)
	if err != nil {
		c.opts.Seasons = previous
		c.showError(err)
		return
	}
	c.Success("selected %s (%d rows)", r, selected.Len())

	if _, ok := c.jobs.Latest(evaluateJob); ok {
		c.evaluate(ctx, nil)
	}
}

func (c *Commander) actions(ctx context.Context, args []string) {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			c.Fail("Usage: actions [n]")
			return
		}
		limit = n
	}
	_, selected, err := c.selection(ctx)
	if err != nil {
		c.showError(err)
		return
	}
	counts, err := explore.ActionCounts(selected)
	if err != nil {
		c.showError(err)
		return
	}
	c.println(c.cyan("Action types in " + c.opts.Seasons.String() + ":"))
	c.Actions(counts, limit)
}

func (c *Commander) zones(ctx context.Context) {
	_, selected, err := c.selection(ctx)
	if err != nil {
		c.showError(err)
		return
	}
	zones, err := explore.Distinct(selected, shots.ColShotZoneArea)
	if err != nil {
		c.showError(err)
		return
	}
	c.println(c.cyan("Shot zone areas:"))
	for _, z := range zones {
		c.printf("  %s\n", z)
	}
}

func (c *Commander) periods(ctx context.Context) {
	_, selected, err := c.selection(ctx)
	if err != nil {
		c.showError(err)
		return
	}
	histograms, err := explore.PeriodHistograms(selected)
	if err != nil {
		c.showError(err)
		return
	}
	c.Periods(histograms)
}

func (c *Commander) evaluate(ctx context.Context, args []string) {
	if len(args) > 0 {
		for _, m := range args {
			if !slices.Contains(models.Algorithms, m) {
				c.Fail("unknown model %q (choose from %s)", m, strings.Join(models.Algorithms, ", "))
				return
			}
		}
		c.opts.Models = args
	}

	raw, err := c.table(ctx)
	if err != nil {
		c.showError(err)
		return
	}

	job := c.jobs.CreateJob(evaluateJob, fmt.Sprintf("%s on %s", strings.Join(c.opts.Models, ","), c.opts.Seasons))
	c.printf("Evaluating %s on %s (Ctrl-C cancels)...\n", strings.Join(c.opts.Models, ", "), c.opts.Seasons)
	out, err := c.jobs.Run(ctx, job, func(ctx context.Context) (any, error) {
		return pipeline.Run(ctx, raw, c.opts)
	})
	if err != nil {
		if job.GetStatus() == jobs.JobCancelled {
			c.Warn("evaluation cancelled")
			return
		}
		c.showError(err)
		return
	}
	result := out.(*pipeline.Result)
	job.AddLog(fmt.Sprintf("run %s finished with %d sections", result.RunID, len(result.Sections)))
	c.log.Debug(ctx, "evaluation finished", logger.String("job", job.ID), logger.String("run_id", result.RunID))
	c.Report(result)
}

// latest returns the result of the most recent successful evaluation.
func (c *Commander) latest() (*pipeline.Result, bool) {
	job, ok := c.jobs.Latest(evaluateJob)
	if !ok {
		c.Fail("nothing evaluated yet, run 'evaluate' first")
		return nil, false
	}
	return job.Result().(*pipeline.Result), true
}

func (c *Commander) tree() {
	result, ok := c.latest()
	if !ok {
		return
	}
	s, ok := result.Section(models.AlgorithmTree)
	if !ok {
		c.Fail("the last evaluation did not include the tree, run 'evaluate tree'")
		return
	}
	if s.Failed() {
		c.showError(s.Err)
		return
	}
	c.Tree(s)
}

func (c *Commander) predict(args []string) {
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			c.Fail("Usage: predict [n]")
			return
		}
		n = v
	}
	result, ok := c.latest()
	if !ok {
		return
	}
	best, ok := result.Best()
	if !ok {
		c.Fail("every model failed in the last evaluation")
		return
	}
	if len(best.HeldOut) == 0 {
		c.Warn("no unlabeled shots to score")
		return
	}
	c.Predictions(best, n)
}

func (c *Commander) report(args []string) {
	if len(args) != 1 {
		c.Fail("Usage: report <file>")
		return
	}
	result, ok := c.latest()
	if !ok {
		return
	}
	if err := experiment.ExportResults(result.Results(), args[0]); err != nil {
		c.Fail("writing report: %v", err)
		return
	}
	c.Success("results saved to %s", args[0])
}

func (c *Commander) history() {
	all := c.jobs.ListJobs()
	if len(all) == 0 {
		c.println("No evaluations yet")
		return
	}
	for _, job := range all {
		status := string(job.GetStatus())
		switch job.GetStatus() {
		case jobs.JobCompleted:
			status = c.green(status)
		case jobs.JobFailed, jobs.JobCancelled:
			status = c.red(status)
		}
		c.printf("  %s  %-10s %-8s %s\n", job.ID[:8], status, job.Duration().Round(time.Millisecond), job.Description)
		if err := job.Err(); err != nil {
			c.printf("            %v\n", err)
		}
		for _, line := range job.GetLogs() {
			c.printf("            %s\n", line)
		}
	}
}
