package worktime

import "errors"

// Errors returned by the engine and the wage provider. Callers can check
// against these using errors.Is.
var (
	// ErrInvalidWage indicates a wage that is zero, negative, NaN or infinite.
	// Apply refuses to run with such a wage since every hour value it would
	// produce is meaningless.
	ErrInvalidWage = errors.New("invalid hourly wage")

	// ErrNoSettings indicates that no wage settings were supplied.
	ErrNoSettings = errors.New("no settings found")

	// ErrZeroWorkHours indicates settings that yield zero monthly work hours.
	ErrZeroWorkHours = errors.New("settings yield zero monthly work hours")

	// ErrNilRoot is returned by Apply when no tree root is given.
	ErrNilRoot = errors.New("nil tree root")
)
