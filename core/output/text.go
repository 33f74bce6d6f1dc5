package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/opensdd/sprintwatch/core/report"
)

const noIssuesLine = "  No matching issues found."

// Text writes the human-readable report: the sprint name, then one block
// per engineer in configured order, blocks separated by a blank line.
func Text(w io.Writer, r *report.SprintReport) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, r.Sprint.Name)
	fmt.Fprintln(bw)
	for i, e := range r.Engineers {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, e.Name())
		switch {
		case e.Failed():
			fmt.Fprintf(bw, "  Error: %v\n", e.Err)
		case len(e.Issues) == 0:
			fmt.Fprintln(bw, noIssuesLine)
		default:
			for _, u := range e.URLs() {
				fmt.Fprintf(bw, "  %s\n", u)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
