package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/printer"
)

func runFixture() model.Run {
	createdAt := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	finishedAt := createdAt.Add(90 * time.Second)
	return model.Run{
		ID:        "01JA2QWERTYASDFGZXCVBNMLKJ",
		Flow:      model.FlowVideo,
		Status:    model.RunStatusSucceeded,
		SandboxID: "sbxsmoke-01ja2qwerty",
		Artifact: &model.Artifact{
			Kind:       model.ArtifactKindVideo,
			RemotePath: "/tmp/rlx-cdp.webm",
			LocalPath:  "artifacts/rlx-cdp-2026-10-15T10-01-30-000Z.webm",
			Bytes:      2048,
			MIME:       "video/webm",
		},
		CreatedAt:  createdAt,
		FinishedAt: &finishedAt,
	}
}

func tasksFixture() []model.Task {
	return []model.Task{
		{Sequence: 1, Name: model.TaskBuildImage, Status: model.TaskStatusDone},
		{Sequence: 2, Name: model.TaskCreateSandbox, Status: model.TaskStatusFailed, Error: "boom"},
	}
}

func TestTablePrinterPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRuns([]model.Run{runFixture(), {ID: "other", Flow: model.FlowSmoke, Status: model.RunStatusFailed}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "FLOW")
	assert.Contains(t, lines[1], "artifacts/rlx-cdp-2026-10-15T10-01-30-000Z.webm (2.0 KB)")
	assert.Contains(t, lines[2], "smoke")
}

func TestTablePrinterPrintRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintRuns(nil))
	assert.Empty(t, buf.String())
}

func TestTablePrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRun(runFixture(), tasksFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Flow:       video")
	assert.Contains(t, out, "Size:       2.0 KB")
	assert.Contains(t, out, "Duration:   1m30s")
	assert.Contains(t, out, "create_sandbox")
	assert.Contains(t, out, "boom")
}

func TestJSONPrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintRun(runFixture(), tasksFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"flow": "video"`)
	assert.Contains(t, out, `"local_path": "artifacts/rlx-cdp-2026-10-15T10-01-30-000Z.webm"`)
	assert.Contains(t, out, `"name": "build_image"`)
	assert.Contains(t, out, `"error": "boom"`)
}

func TestJSONPrinterPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintRuns(nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
