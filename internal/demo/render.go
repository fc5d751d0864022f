package demo

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
)

// Timing is the outcome of running one batch of tasks in one execution mode.
type Timing struct {
	Mode    string
	Elapsed time.Duration
	Tasks   int
	Failed  int
}

func colorPrintLn(w io.Writer, c *color.Color, a ...any) {
	_, _ = c.Fprintln(w, a...)
}

func colorPrintf(w io.Writer, c *color.Color, format string, a ...any) {
	_, _ = c.Fprintf(w, format, a...)
}

// PrintSectionHeader prints a bold banner followed by description lines.
func PrintSectionHeader(w io.Writer, title string, descriptions ...string) {
	_, _ = fmt.Fprintln(w)
	colorPrintLn(w, Bold, "═══════════════════════════════════════════════════════════")
	colorPrintLn(w, Bold, title)
	colorPrintLn(w, Bold, "═══════════════════════════════════════════════════════════")
	for _, desc := range descriptions {
		_, _ = fmt.Fprintln(w, desc)
	}
	_, _ = fmt.Fprintln(w)
}

// NewProgressBar returns a bar counting n tasks, styled like the benchmark runner.
func NewProgressBar(w io.Writer, n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

// RenderTimings prints a ranking table of the given timings, fastest first.
func RenderTimings(w io.Writer, title string, timings []Timing) error {
	if len(timings) == 0 {
		return nil
	}

	ranked := slices.Clone(timings)
	slices.SortStableFunc(ranked, func(a, b Timing) int {
		return cmp.Compare(a.Elapsed, b.Elapsed)
	})
	fastest := ranked[0].Elapsed

	PrintSectionHeader(w, title)

	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Mode", "Time", "Tasks/sec", "Failed", "vs Fastest")

	for i, t := range ranked {
		_ = table.Append(
			getRankIcon(i+1),
			t.Mode,
			t.Elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%.1f", tasksPerSecond(t)),
			fmt.Sprintf("%d", t.Failed),
			getVsFastestStr(t.Elapsed, fastest, i+1),
		)
	}

	if err := table.Render(); err != nil {
		colorPrintLn(w, Red, "Error in rendering timings table")
		return fmt.Errorf("rendering timings: %w", err)
	}
	return nil
}

func tasksPerSecond(t Timing) float64 {
	if t.Elapsed <= 0 {
		return 0
	}
	return float64(t.Tasks) / t.Elapsed.Seconds()
}

func getRankIcon(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

func getVsFastestStr(total, fastest time.Duration, rank int) string {
	if rank == 1 || fastest <= 0 {
		return "baseline"
	}
	return fmt.Sprintf("%.2fx", float64(total)/float64(fastest))
}
