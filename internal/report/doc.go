// Package report renders vote summaries.
//
// This package contains writers for different output formats:
//   - TableWriter: a table for terminal display
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: a Markdown document for sharing
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
