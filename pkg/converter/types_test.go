package converter_test

import (
	"testing"

	"github.com/mkapulica/Time-is-Money/pkg/converter"
	"github.com/stretchr/testify/assert"
)

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, "pending", string(converter.StatusPending))
	assert.Equal(t, "processing", string(converter.StatusProcessing))
	assert.Equal(t, "success", string(converter.StatusSuccess))
	assert.Equal(t, "failed", string(converter.StatusFailed))
	assert.Equal(t, "skipped", string(converter.StatusSkipped))
	assert.Equal(t, "cached", string(converter.StatusCached))
}

func TestModeValidity(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
		got   bool
	}{
		{"onError continue", true, converter.OnErrorContinue.IsValid()},
		{"onError stop", true, converter.OnErrorStop.IsValid()},
		{"onError bogus", false, converter.OnErrorMode("ignore").IsValid()},
		{"binary skip", true, converter.BinarySkip.IsValid()},
		{"binary copy", true, converter.BinaryCopy.IsValid()},
		{"binary error", true, converter.BinaryError.IsValid()},
		{"binary placeholder", false, converter.BinaryMode("placeholder").IsValid()},
		{"large skip", true, converter.LargeFileSkip.IsValid()},
		{"large copy", true, converter.LargeFileCopy.IsValid()},
		{"large error", true, converter.LargeFileError.IsValid()},
		{"large truncate", false, converter.LargeFileMode("truncate").IsValid()},
		{"format text", true, converter.OutputFormatText.IsValid()},
		{"format json", true, converter.OutputFormatJSON.IsValid()},
		{"format yaml", true, converter.OutputFormatYAML.IsValid()},
		{"format empty", false, converter.OutputFormat("").IsValid()},
		{"mode html", true, converter.OutputModeHTML.IsValid()},
		{"mode markdown", true, converter.OutputModeMarkdown.IsValid()},
		{"mode pdf", false, converter.OutputMode("pdf").IsValid()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.got)
		})
	}
}
