package commander

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotclassifier/internal/data"
	"shotclassifier/internal/evaluation"
	"shotclassifier/internal/experiment"
	"shotclassifier/internal/logger"
	"shotclassifier/internal/models"
	"shotclassifier/internal/pipeline"
	"shotclassifier/internal/shots/shotstest"
)

type observer struct{ hits, misses int }

func (o *observer) CacheHit()  { o.hits++ }
func (o *observer) CacheMiss() { o.misses++ }

func newTestCommander(t *testing.T) (*Commander, *bytes.Buffer, *observer) {
	t.Helper()
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "shots.csv")
	require.NoError(t, shotstest.WriteCSV(path, shotstest.Generate(shotstest.DefaultOptions())))

	opts := pipeline.DefaultOptions()
	opts.Models = []string{models.AlgorithmBayes}
	opts.Folds = 5
	opts.Workers = 2
	opts.Logger = logger.Nop()
	opts.Grids = experiment.Grids{models.AlgorithmTree: evaluation.ParamGrid{"max_depth": {2, 3}}}

	obs := &observer{}
	out := &bytes.Buffer{}
	return NewCommander(data.NewCache(data.DefaultCSVOptions(), obs), path, opts, out), out, obs
}

func run(c *Commander, out *bytes.Buffer, line string) string {
	out.Reset()
	parts := strings.Fields(line)
	c.ExecuteCommand(context.Background(), parts[0], parts[1:])
	return out.String()
}

func TestExplorationCommands(t *testing.T) {
	c, out, obs := newTestCommander(t)

	assert.Contains(t, run(c, out, "load"), "loaded 200 rows x 25 columns")
	assert.Contains(t, run(c, out, "info"), "Rows:       200")

	seasons := run(c, out, "seasons")
	assert.Contains(t, seasons, shotstest.Season(0))
	assert.Contains(t, seasons, "4 of 4 seasons selected (200 rows)")

	assert.Contains(t, run(c, out, "range "+shotstest.Season(1)+" "+shotstest.Season(2)), "selected "+shotstest.Season(1)+" to "+shotstest.Season(2))
	assert.Contains(t, run(c, out, "seasons"), "2 of 4 seasons selected")

	bad := run(c, out, "range "+shotstest.Season(3)+" "+shotstest.Season(0))
	assert.Contains(t, bad, "✗")
	assert.Contains(t, bad, "change the selection")
	assert.Contains(t, run(c, out, "seasons"), "2 of 4 seasons selected")

	assert.Contains(t, run(c, out, "range all"), "selected all seasons (200 rows)")
	assert.Contains(t, run(c, out, "range"), "Usage: range")

	actions := run(c, out, "actions 2")
	assert.Contains(t, actions, "Action types")
	assert.Contains(t, actions, "more")
	assert.Contains(t, run(c, out, "actions x"), "Usage: actions")

	assert.Contains(t, run(c, out, "zones"), "Center(C)")

	periods := run(c, out, "periods")
	for _, p := range []string{"Period 1", "Period 2", "Period 3", "Period 4"} {
		assert.Contains(t, periods, p)
	}
	assert.Contains(t, periods, "11-12 min")

	assert.Equal(t, 1, obs.misses)
	assert.Positive(t, obs.hits)

	assert.Contains(t, run(c, out, "invalidate"), "dropped cached copy")
	assert.NotContains(t, run(c, out, "info"), "changed on disk")
	assert.Equal(t, 2, obs.misses)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(c.dataPath, later, later))
	assert.Contains(t, run(c, out, "info"), "changed on disk, reloaded")
	assert.Equal(t, 3, obs.misses)

	assert.Contains(t, run(c, out, "invalidate all"), "dropped every cached dataset")
	run(c, out, "seasons")
	assert.Equal(t, 4, obs.misses)
}

func TestEvaluationCommands(t *testing.T) {
	c, out, _ := newTestCommander(t)

	assert.Contains(t, run(c, out, "tree"), "nothing evaluated yet")
	assert.Contains(t, run(c, out, "predict"), "nothing evaluated yet")

	report := run(c, out, "evaluate")
	assert.Contains(t, report, "Shot outcome model report")
	assert.Contains(t, report, "Gaussian Naive Bayes")
	assert.Contains(t, report, "Best model: Gaussian Naive Bayes")

	assert.Contains(t, run(c, out, "tree"), "did not include the tree")

	assert.Contains(t, run(c, out, "evaluate svm"), "unknown model")

	report = run(c, out, "evaluate tree bayes")
	assert.Contains(t, report, "Decision Tree")
	assert.Contains(t, report, "grid search: 2 combinations, 0 failed")
	assert.Contains(t, report, "validation on 35 rows:")
	assert.Contains(t, report, "Precision: ")
	assert.Contains(t, report, "true       missed     made")

	tree := run(c, out, "tree")
	assert.Contains(t, tree, "Decision Tree")
	assert.Contains(t, tree, "leaf:")
	assert.Regexp(t, `depth \d, \d+ leaves`, tree)

	predictions := run(c, out, "predict 3")
	assert.Contains(t, predictions, "P(made) for 3 of 28 held-out shots")

	path := filepath.Join(t.TempDir(), "report.csv")
	assert.Contains(t, run(c, out, "report "+path), "results saved")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(raw), "\n"))
	assert.Contains(t, run(c, out, "report"), "Usage: report")

	// A range change re-runs the last evaluation on the cached table.
	rerun := run(c, out, "range "+shotstest.Season(0)+" "+shotstest.Season(1))
	assert.Contains(t, rerun, "Shot outcome model report")
	assert.Contains(t, rerun, shotstest.Season(0)+" to "+shotstest.Season(1))

	history := run(c, out, "history")
	assert.Equal(t, 3, strings.Count(history, "completed"))
	assert.Equal(t, 3, strings.Count(history, "finished with"))
	assert.Contains(t, history, "finished with 2 sections")
}

func TestEvaluateReportsInputErrors(t *testing.T) {
	c, out, _ := newTestCommander(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	loaded := run(c, out, "load "+missing)
	assert.Contains(t, loaded, "✗")
	assert.Contains(t, loaded, "the dataset cannot be used as is")

	assert.Contains(t, run(c, out, "evaluate"), "✗")
	assert.Contains(t, run(c, out, "history"), "No evaluations yet")
}

func TestStart(t *testing.T) {
	c, out, _ := newTestCommander(t)

	err := c.Start(context.Background(), strings.NewReader("help\n\nbogus\nquit\ninfo\n"))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Shot Outcome Commander")
	assert.Contains(t, text, "Available Commands")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.NotContains(t, text, "Rows:")

	out.Reset()
	require.NoError(t, c.Start(context.Background(), strings.NewReader("help\n")))
	assert.Contains(t, out.String(), "Available Commands")
}
