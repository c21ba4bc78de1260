package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nao1215/mediatrack/internal/model"
)

// maxURLWidth bounds the image column; data URL digests and long CDN
// URLs would otherwise dominate the table.
const maxURLWidth = 60

// TableWriter outputs summaries as a terminal table.
// This format is designed for human review in a terminal.
//
// Design decision: Colour is opt-in through WithColor rather than detected
// here, so the writer never inspects the file it writes to and piped
// output stays free of escape sequences.
type TableWriter struct {
	baseWriter

	// colorize tints the verdict column. Callers enable it only for terminals.
	colorize bool

	// limit caps the number of rows; zero shows every tally.
	limit int
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithColor enables coloured verdicts.
func WithColor(enabled bool) TableWriterOption {
	return func(w *TableWriter) {
		w.colorize = enabled
	}
}

// WithLimit caps the number of rows shown.
func WithLimit(n int) TableWriterOption {
	return func(w *TableWriter) {
		w.limit = n
	}
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer, opts ...TableWriterOption) *TableWriter {
	w := &TableWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary as a table followed by a totals line.
func (w *TableWriter) Write(summary *model.VoteSummary) (int, error) {
	var sb strings.Builder

	if !summary.HasVotes() {
		sb.WriteString("No votes recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Image", "Fake", "Real", "Verdict", "Last Updated"})

	rows := summary.Tallies
	if w.limit > 0 && len(rows) > w.limit {
		rows = rows[:w.limit]
	}
	for _, t := range rows {
		tw.AppendRow(table.Row{
			truncateString(t.ImageURL, maxURLWidth),
			strconv.Itoa(t.FakeVotes),
			strconv.Itoa(t.RealVotes),
			w.verdict(t),
			t.LastUpdated.Local().Format("2006-01-02 15:04"),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	sb.WriteString(tw.Render())
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%d image(s), %d fake vote(s), %d real vote(s)\n",
		summary.Images, summary.FakeVotes, summary.RealVotes)
	if hidden := len(summary.Tallies) - len(rows); hidden > 0 {
		fmt.Fprintf(&sb, "(%d more not shown)\n", hidden)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *TableWriter) verdict(t model.Tally) string {
	v := verdict(t)
	if !w.colorize {
		return v
	}
	c := color.New(color.FgRed)
	if t.LeansFake() {
		c = color.New(color.FgGreen)
	}
	c.EnableColor()
	return c.Sprint(v)
}
