// Package storage defines the output directory abstraction for converted
// MARC-XML files.
package storage

import "time"

// Provider is the interface for output file operations. Names are relative
// to the output directory.
type Provider interface {
	// Exists reports whether name is present.
	Exists(name string) (bool, error)
	// ModTime returns the modification time of name.
	ModTime(name string) (time.Time, error)
	// Read returns the raw bytes of name.
	Read(name string) ([]byte, error)
	// Write atomically writes content to name, replacing any existing file.
	Write(name string, content []byte) error
	// Path returns the absolute path of name.
	Path(name string) (string, error)
}
