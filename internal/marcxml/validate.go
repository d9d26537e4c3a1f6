// Package marcxml validates MARC-XML documents against the MARC21 slim schema.
package marcxml

import (
	"embed"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jacoelho/xsd"

	"github.com/starford/marctoxml/internal/apperr"
)

// SchemaFile is the embedded schema's name.
const SchemaFile = "MARC21slim.xsd"

//go:embed MARC21slim.xsd
var schemaFS embed.FS

var loadSchema = sync.OnceValues(func() (*xsd.Schema, error) {
	return xsd.LoadWithOptions(schemaFS, SchemaFile, xsd.NewLoadOptions())
})

// ValidationError reports a document that does not conform to the schema.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("marcxml: Invalid content was found: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateFile validates the MARC-XML document at path. A file that cannot be
// opened yields an error matching apperr.ErrInput.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: marcxml: %w", apperr.ErrInput, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: marcxml: %s is not a file", apperr.ErrInput, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: marcxml: %w", apperr.ErrInput, err)
	}
	defer f.Close()
	return Validate(f)
}

// Validate reads a whole MARC-XML document from r. Any schema violation or
// malformed XML is returned as a *ValidationError.
func Validate(r io.Reader) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("marcxml: load %s: %w", SchemaFile, err)
	}
	if err := schema.Validate(r); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
