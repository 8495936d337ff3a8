package converter

import "github.com/mkapulica/Time-is-Money/pkg/worktime"

// Default values for configuration options. The CLI registers these as viper
// defaults.
const (
	// DefaultConcurrency determines the default number of workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultCacheEnabled is the default state for caching.
	DefaultCacheEnabled = true
	// DefaultTuiEnabled is the default state for the terminal UI.
	DefaultTuiEnabled = true
	// DefaultOnErrorMode is the default behavior on non-fatal file errors.
	DefaultOnErrorMode = OnErrorContinue
	// DefaultLargeFileThresholdMB is the default size limit in MB.
	DefaultLargeFileThresholdMB = 100
	// DefaultLargeFileMode is the default handling for large files.
	DefaultLargeFileMode = LargeFileSkip
	// DefaultBinaryMode is the default handling for binary files.
	DefaultBinaryMode = BinaryCopy
	// DefaultOutputFormat is the default format for the run report.
	DefaultOutputFormat = OutputFormatText
	// DefaultOutputMode is the default output for HTML documents.
	DefaultOutputMode = OutputModeHTML
	// DefaultSelector scopes HTML rewriting to the page body.
	DefaultSelector = "body"
	// DefaultEnabled is the default state of the substitution switch.
	DefaultEnabled = true
	// DefaultTraversal is the default tree walking strategy.
	DefaultTraversal = string(worktime.StrategyIterative)
	// DefaultStripSpaces is the default for removing thousands spaces before parsing.
	DefaultStripSpaces = true
	// DefaultHoursLabel is the default suffix of rewritten amounts.
	DefaultHoursLabel = worktime.DefaultHoursLabel
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
	// DefaultForceOverwrite is the default state for overwriting output.
	DefaultForceOverwrite = false
)

// IgnoreFileName is the per-tree ignore file the walker looks for, searching
// upwards from the input directory.
const IgnoreFileName = ".timeismoneyignore"

// ReportSchemaVersion indicates the version of the JSON/YAML report structure.
const ReportSchemaVersion = "1.0"

// Cache status strings used in the Report.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
)

// Skip reasons used in the Report.
const (
	SkipReasonBinary = "binary_file"
	SkipReasonLarge  = "large_file"
)
