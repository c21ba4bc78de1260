package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/mediatrack/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We build the document with nao1215/markdown rather
// than string templates so tables and the mermaid pie chart stay valid
// Markdown whatever the image URLs contain.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.VoteSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTallies(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the totals table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.VoteSummary) {
	md.H1("Media Vote Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Images", strconv.Itoa(summary.Images)},
			{"Fake Votes", strconv.Itoa(summary.FakeVotes)},
			{"Real Votes", strconv.Itoa(summary.RealVotes)},
			{"Leaning Fake", strconv.Itoa(summary.LeaningFake)},
			{"Leaning Real", strconv.Itoa(summary.LeaningReal)},
		},
	})
	md.PlainText("")

	if summary.HasVotes() {
		w.writePieChart(md, summary)
	}
}

// writePieChart writes a mermaid pie chart of the vote split.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.VoteSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Vote Distribution"),
		piechart.WithShowData(true),
	)
	if summary.FakeVotes > 0 {
		chart.LabelAndIntValue("Fake", uint64(summary.FakeVotes))
	}
	if summary.RealVotes > 0 {
		chart.LabelAndIntValue("Real", uint64(summary.RealVotes))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTallies writes one row per voted identity.
func (w *MarkdownWriter) writeTallies(md *markdown.Markdown, summary *model.VoteSummary) {
	md.H2("Images")
	md.PlainText("")

	if !summary.HasVotes() {
		md.Note("No votes recorded yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Tallies))
	for i, t := range summary.Tallies {
		rows[i] = []string{
			"`" + truncateString(t.ImageURL, maxURLWidth) + "`",
			strconv.Itoa(t.FakeVotes),
			strconv.Itoa(t.RealVotes),
			verdict(t),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Image", "Fake", "Real", "Verdict"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [mediatrack](https://github.com/nao1215/mediatrack)*")
}
