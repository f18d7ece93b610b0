package export

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestProgress_Follow(t *testing.T) {
	events := make(chan scan.Event, 8)
	events <- scan.Event{Type: scan.EventState, State: scan.StateCredentialed}
	events <- scan.Event{Type: scan.EventTotal, Total: 1}
	events <- scan.Event{Type: scan.EventFinding, Finding: &domain.EvidenceFinding{
		ControlID: "CC6.1", Resource: "arn:aws:s3:::logs", Status: domain.FindingStatusError,
	}}
	events <- scan.Event{Type: scan.EventState, State: scan.StateCompleted}
	events <- scan.Event{Type: scan.EventDone, Result: &scan.Result{
		ScanID:   "scan-1",
		State:    scan.StateCompleted,
		Warnings: []string{"region lookup failed for logs"},
		Findings: []domain.EvidenceFinding{{Status: domain.FindingStatusError}},
	}}
	close(events)

	var out bytes.Buffer
	res, err := NewProgress(&out).Follow(events)
	require.NoError(t, err)
	assert.Equal(t, "scan-1", res.ScanID)

	text := out.String()
	assert.Contains(t, text, "[STATE] CREDENTIALED")
	assert.NotContains(t, text, "[STATE] COMPLETED")
	assert.Contains(t, text, "ERROR CC6.1 arn:aws:s3:::logs")
	assert.Contains(t, text, "warning: region lookup failed for logs")
	assert.Contains(t, text, "Findings: 1 evaluated, 1 not passing")
}

func TestProgress_NoResult(t *testing.T) {
	events := make(chan scan.Event)
	close(events)

	_, err := NewProgress(&bytes.Buffer{}).Follow(events)
	assert.Error(t, err)
}
