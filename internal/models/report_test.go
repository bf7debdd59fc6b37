package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportContentStatusDerivation(t *testing.T) {
	cases := []struct {
		name    string
		content ReportContent
		want    ReportStatus
	}{
		{"nil content", nil, ReportStatusPending},
		{"empty content", ReportContent{}, ReportStatusPending},
		{"pending", ReportContent{"status": "pending"}, ReportStatusPending},
		{"assigned", ReportContent{"status": "assigned"}, ReportStatusAssigned},
		{"completed", ReportContent{"status": "completed"}, ReportStatusCompleted},
		{"unknown tag falls back", ReportContent{"status": "archived"}, ReportStatusPending},
		{"non-string tag falls back", ReportContent{"status": 7}, ReportStatusPending},
		{"null tag falls back", ReportContent{"status": nil}, ReportStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.content.Status())
		})
	}
}

func TestReportContentScanRoundTrip(t *testing.T) {
	original := ReportContent{
		"status":           "assigned",
		"assigned_to":      "user-1",
		"pdf_storage_path": "inst-42/2026-08-31/a.pdf",
	}
	value, err := original.Value()
	require.NoError(t, err)

	var decoded ReportContent
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, ReportStatusAssigned, decoded.Status())

	path, ok := decoded.String(ContentKeyPDFPath)
	require.True(t, ok)
	assert.Equal(t, "inst-42/2026-08-31/a.pdf", path)
}

func TestReportContentScanEmpty(t *testing.T) {
	var decoded ReportContent
	require.NoError(t, decoded.Scan(nil))
	assert.Equal(t, ReportStatusPending, decoded.Status())
}
