package converter_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/mkapulica/Time-is-Money/pkg/converter"
	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() converter.Report {
	return converter.Report{
		Summary: converter.ReportSummary{
			RunID:             "4f1c1f0e-0000-4000-8000-000000000001",
			InputPath:         "saved",
			OutputPath:        "out",
			Enabled:           true,
			Wage:              15,
			HoursLabel:        "h",
			Prices:            worktime.Stats{Visited: 10, Changed: 3, Matches: 4},
			TotalFilesScanned: 3,
			ProcessedCount:    2,
			CachedCount:       1,
			SkippedCount:      1,
			ErrorCount:        1,
			DurationSeconds:   0.5,
			Timestamp:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			SchemaVersion:     converter.ReportSchemaVersion,
		},
		ProcessedFiles: []converter.FileInfo{
			{Path: "index.html", OutputPath: "index.html", Format: converter.FormatHTML, Title: "Shop", Regions: 1,
				Prices: worktime.Stats{Matches: 4, Changed: 3}, CacheStatus: converter.CacheStatusMiss},
		},
		SkippedFiles: []converter.SkippedInfo{{Path: "big.html", Reason: converter.SkipReasonLarge, Details: "too big"}},
		Errors:       []converter.ErrorInfo{{Path: "broken.html", Error: "failed to read file", IsFatal: false}},
	}
}

func TestReport_WriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Write(&buf, converter.OutputFormatText))

	out := buf.String()
	assert.Contains(t, out, "4f1c1f0e-0000-4000-8000-000000000001")
	assert.Contains(t, out, "15.00 per h")
	assert.Contains(t, out, "3 scanned, 2 processed (1 cached), 1 skipped, 1 errors")
	assert.Contains(t, out, "4 rewritten in 3 text nodes")
	assert.Contains(t, out, "broken.html: failed to read file")
}

func TestReport_WriteTextDisabled(t *testing.T) {
	r := sampleReport()
	r.Summary.Enabled = false
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, ""))
	assert.Contains(t, buf.String(), "substitution disabled")
}

func TestReport_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Write(&buf, converter.OutputFormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, "4f1c1f0e-0000-4000-8000-000000000001", summary["runId"])
	assert.Equal(t, float64(4), summary["prices"].(map[string]any)["matches"])
	files := decoded["processedFiles"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "html", files[0].(map[string]any)["format"])
	assert.Equal(t, "Shop", files[0].(map[string]any)["title"])
}

func TestReport_WriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Write(&buf, converter.OutputFormatYAML))

	var decoded struct {
		Summary struct {
			RunID  string `yaml:"runId"`
			Prices struct {
				Matches int `yaml:"matches"`
			} `yaml:"prices"`
		} `yaml:"summary"`
		SkippedFiles []converter.SkippedInfo `yaml:"skippedFiles"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "4f1c1f0e-0000-4000-8000-000000000001", decoded.Summary.RunID)
	assert.Equal(t, 4, decoded.Summary.Prices.Matches)
	require.Len(t, decoded.SkippedFiles, 1)
	assert.Equal(t, converter.SkipReasonLarge, decoded.SkippedFiles[0].Reason)
}

func TestReport_WriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := sampleReport().Write(&buf, converter.OutputFormat("xml"))
	assert.ErrorIs(t, err, converter.ErrConfigValidation)
}
