package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/slok/sbxsmoke/internal/model"
)

// TablePrinter prints run information in a table format.
type TablePrinter struct {
	writer io.Writer
}

var _ Printer = &TablePrinter{}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRuns prints runs in a table format.
func (t *TablePrinter) PrintRuns(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "ID\tFLOW\tSTATUS\tSANDBOX\tARTIFACT\tCREATED")

	// Print rows.
	for _, r := range runs {
		artifact := "-"
		if r.Artifact != nil {
			artifact = fmt.Sprintf("%s (%s)", r.Artifact.LocalPath, FormatBytes(int64(r.Artifact.Bytes)))
		}
		sandboxID := r.SandboxID
		if sandboxID == "" {
			sandboxID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Flow, r.Status, sandboxID, artifact, TimeAgo(r.CreatedAt))
	}

	return nil
}

// PrintRun prints detailed run information with its phases.
func (t *TablePrinter) PrintRun(run model.Run, tasks []model.Task) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Flow:       %s\n", run.Flow)
	fmt.Fprintf(t.writer, "Status:     %s\n", run.Status)
	if run.SandboxID != "" {
		fmt.Fprintf(t.writer, "Sandbox:    %s\n", run.SandboxID)
	}
	if run.Artifact != nil {
		fmt.Fprintf(t.writer, "Artifact:   %s\n", run.Artifact.LocalPath)
		fmt.Fprintf(t.writer, "Size:       %s\n", FormatBytes(int64(run.Artifact.Bytes)))
		if run.Artifact.MIME != "" {
			fmt.Fprintf(t.writer, "MIME:       %s\n", run.Artifact.MIME)
		}
	}
	if run.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", run.Error)
	}
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(run.CreatedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(*run.FinishedAt))
		fmt.Fprintf(t.writer, "Duration:   %s\n", run.FinishedAt.Sub(run.CreatedAt).Round(time.Millisecond))
	}

	if len(tasks) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tPHASE\tSTATUS\tERROR")
	for _, tsk := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", tsk.Sequence, tsk.Name, tsk.Status, tsk.Error)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
