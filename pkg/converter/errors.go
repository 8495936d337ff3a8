package converter

import "errors"

// Errors returned by Convert or recorded in Report.Errors. Callers check them
// with errors.Is.
var (
	// ErrReadFailed indicates a failure to read a source file.
	ErrReadFailed = errors.New("failed to read file")

	// ErrStatFailed indicates a failure to stat a source file.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrBinaryFile is reported for binary files when BinaryMode is "error".
	ErrBinaryFile = errors.New("binary file encountered")

	// ErrLargeFile is reported for files above the threshold when
	// LargeFileMode is "error".
	ErrLargeFile = errors.New("large file encountered")

	// ErrParseFailed indicates a document that could not be parsed or rendered.
	ErrParseFailed = errors.New("failed to parse document")

	// ErrRewriteFailed wraps errors from the price substitution pass.
	ErrRewriteFailed = errors.New("failed to rewrite prices")

	// ErrMkdirFailed indicates a failure to create an output subdirectory.
	ErrMkdirFailed = errors.New("failed to create output directory")

	// ErrWriteFailed indicates a failure to write an output file.
	ErrWriteFailed = errors.New("failed to write output file")

	// ErrConfigValidation indicates that Options failed validation. It is
	// returned directly by Convert and NewEngine.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrWageUnavailable indicates that no usable hourly wage could be
	// resolved for an enabled run.
	ErrWageUnavailable = errors.New("hourly wage unavailable")
)
