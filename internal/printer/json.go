package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/sbxsmoke/internal/model"
)

// JSONPrinter prints run information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

var _ Printer = &JSONPrinter{}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// runOutput represents a run in the output.
type runOutput struct {
	ID         string          `json:"id"`
	Flow       string          `json:"flow"`
	Status     string          `json:"status"`
	SandboxID  string          `json:"sandbox_id,omitempty"`
	Artifact   *artifactOutput `json:"artifact,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Tasks      []taskOutput    `json:"tasks,omitempty"`
}

type artifactOutput struct {
	Kind       string `json:"kind"`
	RemotePath string `json:"remote_path"`
	LocalPath  string `json:"local_path"`
	Bytes      int    `json:"bytes"`
	MIME       string `json:"mime,omitempty"`
}

type taskOutput struct {
	Sequence int    `json:"sequence"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRuns prints runs in JSON format.
func (j *JSONPrinter) PrintRuns(runs []model.Run) error {
	items := make([]runOutput, len(runs))
	for i, r := range runs {
		items[i] = newRunOutput(r)
	}

	return j.encode(items)
}

// PrintRun prints a run with its phases in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run, tasks []model.Task) error {
	output := newRunOutput(run)
	for _, t := range tasks {
		output.Tasks = append(output.Tasks, taskOutput{
			Sequence: t.Sequence,
			Name:     t.Name,
			Status:   string(t.Status),
			Error:    t.Error,
		})
	}

	return j.encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRunOutput(r model.Run) runOutput {
	output := runOutput{
		ID:        r.ID,
		Flow:      string(r.Flow),
		Status:    string(r.Status),
		SandboxID: r.SandboxID,
		Error:     r.Error,
		CreatedAt: r.CreatedAt.UTC(),
	}

	if r.Artifact != nil {
		output.Artifact = &artifactOutput{
			Kind:       string(r.Artifact.Kind),
			RemotePath: r.Artifact.RemotePath,
			LocalPath:  r.Artifact.LocalPath,
			Bytes:      r.Artifact.Bytes,
			MIME:       r.Artifact.MIME,
		}
	}

	if r.FinishedAt != nil {
		utcTime := r.FinishedAt.UTC()
		output.FinishedAt = &utcTime
	}

	return output
}
