package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	tests := []struct {
		name     string
		findings []map[string]any
		want     string
	}{
		{
			name:     "no findings renders nothing",
			findings: nil,
			want:     "",
		},
		{
			name: "columns are reordered and extras dropped",
			findings: []map[string]any{{
				"description": "S3 bucket Public Access Block is enabled",
				"resource":    "arn:aws:s3:::logs",
				"status":      "PASS",
				"control_id":  "CC6.1",
				"evidence":    map[string]any{"BlockPublicAcls": true},
				"freshness":   "FRESH",
			}},
			want: "control_id,status,resource,description\n" +
				"CC6.1,PASS,arn:aws:s3:::logs,S3 bucket Public Access Block is enabled\n",
		},
		{
			name: "missing fields are N/A",
			findings: []map[string]any{
				{"control_id": "CC6.1", "status": "FAIL"},
				{"resource": "arn:aws:s3:::data", "description": nil},
			},
			want: "control_id,status,resource,description\n" +
				"CC6.1,FAIL,N/A,N/A\n" +
				"N/A,N/A,arn:aws:s3:::data,N/A\n",
		},
		{
			name: "values with commas are quoted",
			findings: []map[string]any{{
				"control_id":  "CC6.1",
				"status":      "ERROR",
				"resource":    "arn:aws:s3:::logs",
				"description": "Could not check bucket 'logs', access denied.",
			}},
			want: "control_id,status,resource,description\n" +
				"CC6.1,ERROR,arn:aws:s3:::logs,\"Could not check bucket 'logs', access denied.\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RenderCSV(&buf, tt.findings))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderScanCSV(t *testing.T) {
	blob, err := json.Marshal([]domain.EvidenceFinding{{
		ControlID:   "CC6.1",
		Resource:    "arn:aws:s3:::logs",
		Status:      domain.FindingStatusFail,
		Description: "S3 bucket does not have a Public Access Block configured.",
		Evidence:    map[string]any{"error": "NoSuchPublicAccessBlockConfiguration"},
		Timestamp:   time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC),
		Freshness:   domain.FreshnessFresh,
	}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderScanCSV(&buf, blob))
	assert.Equal(t, "control_id,status,resource,description\n"+
		"CC6.1,FAIL,arn:aws:s3:::logs,S3 bucket does not have a Public Access Block configured.\n", buf.String())

	buf.Reset()
	require.NoError(t, RenderScanCSV(&buf, []byte("[]")))
	assert.Empty(t, buf.String())

	assert.Error(t, RenderScanCSV(&buf, []byte("{not json")))
}
