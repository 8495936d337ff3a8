package converter

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"gopkg.in/yaml.v3"
)

// Report summarizes the result of a single Convert run.
type Report struct {
	Summary        ReportSummary `json:"summary" yaml:"summary"`
	ProcessedFiles []FileInfo    `json:"processedFiles" yaml:"processedFiles"`
	SkippedFiles   []SkippedInfo `json:"skippedFiles" yaml:"skippedFiles"`
	Errors         []ErrorInfo   `json:"errors" yaml:"errors"`
}

// ReportSummary contains aggregated statistics for a run.
type ReportSummary struct {
	RunID              string         `json:"runId" yaml:"runId"`
	InputPath          string         `json:"inputPath" yaml:"inputPath"`
	OutputPath         string         `json:"outputPath" yaml:"outputPath"`
	ProfileUsed        string         `json:"profileUsed,omitempty" yaml:"profileUsed,omitempty"`
	ConfigFilePath     string         `json:"configFilePath,omitempty" yaml:"configFilePath,omitempty"`
	Enabled            bool           `json:"enabled" yaml:"enabled"`
	Wage               float64        `json:"wage" yaml:"wage"`
	HoursLabel         string         `json:"hoursLabel" yaml:"hoursLabel"`
	Prices             worktime.Stats `json:"prices" yaml:"prices"`
	TotalFilesScanned  int            `json:"totalFilesScanned" yaml:"totalFilesScanned"`
	ProcessedCount     int            `json:"processedCount" yaml:"processedCount"`
	CachedCount        int            `json:"cachedCount" yaml:"cachedCount"`
	SkippedCount       int            `json:"skippedCount" yaml:"skippedCount"`
	WarningCount       int            `json:"warningCount" yaml:"warningCount"`
	ErrorCount         int            `json:"errorCount" yaml:"errorCount"`
	FatalErrorOccurred bool           `json:"fatalError" yaml:"fatalError"`
	DurationSeconds    float64        `json:"durationSeconds" yaml:"durationSeconds"`
	CacheEnabled       bool           `json:"cacheEnabled" yaml:"cacheEnabled"`
	Concurrency        int            `json:"concurrency" yaml:"concurrency"`
	Timestamp          time.Time      `json:"timestamp" yaml:"timestamp"`
	SchemaVersion      string         `json:"schemaVersion,omitempty" yaml:"schemaVersion,omitempty"`
}

// FileInfo details a file that was written or found up to date in the cache.
type FileInfo struct {
	Path               string         `json:"path" yaml:"path"`
	OutputPath         string         `json:"outputPath" yaml:"outputPath"`
	Format             DocumentFormat `json:"format" yaml:"format"`
	Language           string         `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageConfidence float64        `json:"languageConfidence,omitempty" yaml:"languageConfidence,omitempty"`
	Encoding           string         `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Title              string         `json:"title,omitempty" yaml:"title,omitempty"`
	Regions            int            `json:"regions,omitempty" yaml:"regions,omitempty"`
	Prices             worktime.Stats `json:"prices" yaml:"prices"`
	SizeBytes          int64          `json:"sizeBytes" yaml:"sizeBytes"`
	ModTime            time.Time      `json:"modTime" yaml:"modTime"`
	CacheStatus        string         `json:"cacheStatus" yaml:"cacheStatus"`
	DurationMs         int64          `json:"durationMs" yaml:"durationMs"`
}

// SkippedInfo details a file that was intentionally not converted.
type SkippedInfo struct {
	Path    string `json:"path" yaml:"path"`
	Reason  string `json:"reason" yaml:"reason"`
	Details string `json:"details" yaml:"details"`
}

// ErrorInfo details an error encountered while processing a file.
type ErrorInfo struct {
	Path    string `json:"path" yaml:"path"`
	Error   string `json:"error" yaml:"error"`
	IsFatal bool   `json:"isFatal" yaml:"isFatal"`
}

// Write renders the report to w in format. Text is a short human readable
// summary; JSON and YAML carry the full report.
func (r Report) Write(w io.Writer, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case OutputFormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("%w: unknown report format %q", ErrConfigValidation, format)
	}
}

func (r Report) writeText(w io.Writer) error {
	s := r.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", s.RunID)
	fmt.Fprintf(tw, "Input:\t%s\n", s.InputPath)
	fmt.Fprintf(tw, "Output:\t%s\n", s.OutputPath)
	if s.Enabled {
		fmt.Fprintf(tw, "Wage:\t%s per %s\n", worktime.Wage(s.Wage), s.HoursLabel)
	} else {
		fmt.Fprintf(tw, "Wage:\tsubstitution disabled\n")
	}
	fmt.Fprintf(tw, "Files:\t%d scanned, %d processed (%d cached), %d skipped, %d errors\n",
		s.TotalFilesScanned, s.ProcessedCount, s.CachedCount, s.SkippedCount, s.ErrorCount)
	fmt.Fprintf(tw, "Prices:\t%d rewritten in %d text nodes\n", s.Prices.Matches, s.Prices.Changed)
	fmt.Fprintf(tw, "Duration:\t%.2fs\n", s.DurationSeconds)
	for _, e := range r.Errors {
		prefix := "Error"
		if e.IsFatal {
			prefix = "Fatal"
		}
		fmt.Fprintf(tw, "%s:\t%s: %s\n", prefix, e.Path, e.Error)
	}
	return tw.Flush()
}
