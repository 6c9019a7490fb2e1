package printer

import "github.com/slok/sbxsmoke/internal/model"

// Printer knows how to print run information in different formats.
type Printer interface {
	PrintRuns(runs []model.Run) error
	PrintRun(run model.Run, tasks []model.Task) error
	PrintMessage(msg string) error
}
