package commander

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"shotclassifier/internal/experiment"
	"shotclassifier/internal/explore"
	"shotclassifier/internal/pipeline"
)

// Printer renders pipeline output as colored text.
type Printer struct {
	out io.Writer

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	blue   func(a ...any) string
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:    out,
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		blue:   color.New(color.FgBlue).SprintFunc(),
	}
}

func (p *Printer) printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

func (p *Printer) println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Success prints a green check line.
func (p *Printer) Success(format string, a ...any) {
	p.printf("%s %s\n", p.green("✓"), fmt.Sprintf(format, a...))
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(format string, a ...any) {
	p.printf("%s %s\n", p.yellow("⚠"), fmt.Sprintf(format, a...))
}

// Fail prints a red cross line.
func (p *Printer) Fail(format string, a ...any) {
	p.printf("%s %s\n", p.red("✗"), fmt.Sprintf(format, a...))
}

// Report prints the run summary and one row per model section.
func (p *Printer) Report(r *pipeline.Result) {
	p.println(p.blue("\nShot outcome model report"))
	p.println(strings.Repeat("═", 78))
	p.printf("Run:          %s\n", r.RunID)
	p.printf("Dataset:      %d rows x %d columns (cleaned)\n", r.Dataset.Rows, r.Dataset.Columns)
	p.printf("Seasons:      %s (%d rows explored)\n", r.Range, r.Views.Shape.Rows)
	p.printf("Labeled:      %d (train %d / validation %d)\n", r.LabeledRows, r.TrainRows, r.ValidationRows)
	p.printf("Unlabeled:    %d\n", r.UnlabeledRows)
	p.println(strings.Repeat("─", 78))

	best, _ := r.Best()
	p.printf("%-22s %-20s %-14s %-10s %-8s\n", "Model", "CV log-loss", "Validation", "Accuracy", "Time")
	p.println(strings.Repeat("─", 78))
	for _, s := range r.Sections {
		name := s.Name()
		if s.Failed() {
			p.printf("%-22s %s\n", name, p.red("failed: "+s.Err.Error()))
			continue
		}
		line := fmt.Sprintf("%-22s %-20s %-14s %-10s %-8s",
			name,
			experiment.Round(s.CV.Mean, 5)+" +- "+experiment.Round(s.CV.Std, 5),
			experiment.Round(s.Validation.LogLoss, 5),
			experiment.Round(s.Validation.Accuracy, 4),
			s.Duration.Round(time.Millisecond).String(),
		)
		if s == best {
			line = p.green(line + " *")
		}
		p.println(line)
	}
	p.println(strings.Repeat("─", 78))

	for _, s := range r.Sections {
		if s.Failed() {
			continue
		}
		p.printf("%s %s\n", p.cyan(s.Name()+":"), s.Params)
		if s.Grid != nil {
			p.printf("  grid search: %d combinations, %d failed, best %s\n",
				len(s.Grid.Candidates), s.Grid.Failed(), s.Grid.BestParams)
		}
		p.printf("  validation on %d rows:\n", s.Validation.NumSamples)
		for _, line := range strings.Split(strings.TrimRight(s.Validation.FormatMetrics(), "\n"), "\n") {
			p.printf("    %s\n", line)
		}
		for _, column := range sortedKeys(s.UnknownCategories) {
			p.Warn("%d held-out values of %s were not seen in training", s.UnknownCategories[column], column)
		}
	}
	if best != nil {
		p.printf("\nBest model: %s (CV log-loss %s)\n", p.green(best.Name()), experiment.Round(best.CV.Mean, 5))
	}
}

// Actions prints the most frequent action types.
func (p *Printer) Actions(counts []explore.Count, limit int) {
	if limit <= 0 || limit > len(counts) {
		limit = len(counts)
	}
	width := 0
	for _, c := range counts[:limit] {
		width = max(width, len(c.Value))
	}
	for _, c := range counts[:limit] {
		p.printf("  %-*s %6d\n", width, c.Value, c.Count)
	}
	if limit < len(counts) {
		p.printf("  ... %d more\n", len(counts)-limit)
	}
}

// Periods prints one bar chart per period of shots by minute remaining.
func (p *Printer) Periods(histograms []explore.Histogram) {
	const barWidth = 40
	for _, h := range histograms {
		p.printf("%s (%d shots, %.1fs bins)\n", p.cyan(fmt.Sprintf("Period %d", h.Period)), h.Total, h.BinWidthSeconds())
		minutes := make([]float64, explore.PeriodMinutes)
		for i, count := range h.Counts {
			m := min(int(h.Dividers[i]), explore.PeriodMinutes-1)
			minutes[m] += count
		}
		peak := 0.0
		for _, v := range minutes {
			peak = math.Max(peak, v)
		}
		for m := len(minutes) - 1; m >= 0; m-- {
			bar := 0
			if peak > 0 {
				bar = int(math.Round(minutes[m] / peak * barWidth))
			}
			p.printf("  %2d-%2d min %s %d\n", m, m+1, strings.Repeat("█", bar), int(minutes[m]))
		}
	}
}

// Tree prints a fitted tree section.
func (p *Printer) Tree(s *pipeline.Section) {
	p.printf("%s %s, depth %d, %d leaves\n", p.cyan(s.Name()), s.Params, s.TreeDepth, s.TreeLeaves)
	p.print(s.Tree)
}

func (p *Printer) print(s string) {
	fmt.Fprint(p.out, s)
	if !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(p.out)
	}
}

// Predictions prints the first n held-out probabilities of a section.
func (p *Printer) Predictions(s *pipeline.Section, n int) {
	if n <= 0 || n > len(s.HeldOut) {
		n = len(s.HeldOut)
	}
	p.printf("%s P(made) for %d of %d held-out shots\n", p.cyan(s.Name()), n, len(s.HeldOut))
	for i, prob := range s.HeldOut[:n] {
		p.printf("  %4d  %s\n", i, experiment.Round(prob, 4))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
