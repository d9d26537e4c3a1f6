// Package apperr defines the error kinds shared across the conversion pipeline.
//
// Startup kinds (config, input, output, connection) abort the run. Lookup and
// invalid-record kinds are isolated to the record that raised them.
package apperr

import "errors"

var (
	ErrConfig     = errors.New("config error")
	ErrInput      = errors.New("input error")
	ErrOutput     = errors.New("output error")
	ErrConnection = errors.New("connection error")
	ErrLookup     = errors.New("lookup error")

	// ErrInvalidRecord marks a record that cannot be converted on its own merits:
	// a malformed authority key, a missing control number, broken ISO 2709 framing.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrAllRecordsFailed is returned when a run read records but converted none.
	ErrAllRecordsFailed = errors.New("all records failed")
)

// Fatal reports whether err belongs to a kind that must abort the run.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrInput) ||
		errors.Is(err, ErrOutput) ||
		errors.Is(err, ErrConnection)
}
