package converter

// Status defines the possible processing states of a file during a run.
type Status string

// Constants representing the defined file processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusCached     Status = "cached"
)

// OnErrorMode defines the behavior when a non-fatal error occurs during file processing.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// BinaryMode defines how detected binary files are handled. Saved pages
// usually sit next to their images and fonts, so "copy" mirrors them
// unchanged into the output tree.
type BinaryMode string

const (
	BinarySkip  BinaryMode = "skip"
	BinaryCopy  BinaryMode = "copy"
	BinaryError BinaryMode = "error"
)

// LargeFileMode defines how files exceeding the configured size threshold are handled.
type LargeFileMode string

const (
	LargeFileSkip  LargeFileMode = "skip"
	LargeFileCopy  LargeFileMode = "copy"
	LargeFileError LargeFileMode = "error"
)

// OutputFormat defines the format of the run report printed when the TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// OutputMode selects what is written for HTML documents.
type OutputMode string

const (
	// OutputModeHTML writes the rewritten document as HTML.
	OutputModeHTML OutputMode = "html"
	// OutputModeMarkdown converts the rewritten document to Markdown.
	OutputModeMarkdown OutputMode = "markdown"
)

// DocumentFormat is the processing route chosen for a file.
type DocumentFormat string

const (
	FormatHTML     DocumentFormat = "html"
	FormatMarkdown DocumentFormat = "markdown"
	FormatText     DocumentFormat = "text"
	FormatBinary   DocumentFormat = "binary"
	// FormatOther covers code and data files, which are copied unchanged.
	FormatOther DocumentFormat = "other"
)

// IsValid reports whether m is one of the defined modes.
func (m OnErrorMode) IsValid() bool {
	return m == OnErrorContinue || m == OnErrorStop
}

// IsValid reports whether m is one of the defined modes.
func (m BinaryMode) IsValid() bool {
	return m == BinarySkip || m == BinaryCopy || m == BinaryError
}

// IsValid reports whether m is one of the defined modes.
func (m LargeFileMode) IsValid() bool {
	return m == LargeFileSkip || m == LargeFileCopy || m == LargeFileError
}

// IsValid reports whether f is one of the defined formats.
func (f OutputFormat) IsValid() bool {
	return f == OutputFormatText || f == OutputFormatJSON || f == OutputFormatYAML
}

// IsValid reports whether m is one of the defined modes.
func (m OutputMode) IsValid() bool {
	return m == OutputModeHTML || m == OutputModeMarkdown
}
