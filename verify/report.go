package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// BlockReport is the verification outcome of one block.
type BlockReport struct {
	ID     string
	Before int // instructions before optimization
	After  int // instructions after optimization
	Issues []Issue
	Err    error // optimization or equivalence failure
}

// OK reports whether the block optimized and verified cleanly.
func (b BlockReport) OK() bool {
	return b.Err == nil
}

// Report collects the outcome of every block of a run.
type Report struct {
	Blocks []BlockReport
}

// Add appends the outcome of one block.
func (r *Report) Add(b BlockReport) {
	r.Blocks = append(r.Blocks, b)
}

// Failed counts the blocks that did not optimize or verify.
func (r *Report) Failed() int {
	n := 0
	for _, b := range r.Blocks {
		if !b.OK() {
			n++
		}
	}
	return n
}

// WriteReport writes a formatted report to a writer
func (r *Report) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "BLOCK OPTIMIZATION REPORT")
	fmt.Fprintln(w, separator)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Block", "Before", "After", "Lint", "Status"})

	before, after, issues := 0, 0, 0
	for _, b := range r.Blocks {
		status := "OK"
		if !b.OK() {
			status = "FAILED: " + b.Err.Error()
		}

		t.AppendRow(table.Row{b.ID, b.Before, b.After, len(b.Issues), status})

		before += b.Before
		after += b.After
		issues += len(b.Issues)
	}
	t.AppendFooter(table.Row{"Total", before, after, issues, fmt.Sprintf("%d failed", r.Failed())})
	t.Render()

	for _, b := range r.Blocks {
		for _, issue := range b.Issues {
			fmt.Fprintf(w, "  block %s %s\n", b.ID, issue)
		}
	}

	fmt.Fprintln(w)
}

// SaveReportToFile saves the report to a file
func (r *Report) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
