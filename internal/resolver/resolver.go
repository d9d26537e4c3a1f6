// Package resolver rewrites authority-key subfields of MARC records into
// subfield 0 authority URIs.
//
// A '=' subfield carries an authority key behind a two-character sigil. The
// key is resolved to an authority identifier, each URI tag of that authority
// is appended to the field as a '0' subfield, and the '=' subfield is removed.
// A '?' subfield marks a key with no resolution requested and is dropped.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/starford/marctoxml/internal/apperr"
	"github.com/starford/marctoxml/internal/marc"
)

// Subfield codes with special meaning to the resolver.
const (
	CodeResolve byte = '='
	CodeDrop    byte = '?'
	CodeURI     byte = '0'
)

// keySigilLen is the sigil length in characters, not bytes.
const keySigilLen = 2

// URITags are the authority tag numbers holding URIs, in injection order.
var URITags = []string{"920", "921", "922"}

// AuthorityLookup resolves authority keys and URIs.
type AuthorityLookup interface {
	ResolveAuthorityID(ctx context.Context, key string) (string, error)
	ResolveAuthorityURI(ctx context.Context, authorityID, tagNumber string) (string, error)
}

// Resolver mutates records in place using an AuthorityLookup.
type Resolver struct {
	lookup AuthorityLookup
	logger *slog.Logger
}

// New returns a Resolver backed by lookup.
func New(lookup AuthorityLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// ResolveAuthorities rewrites every data field of rec and returns rec.
// On error the record may be partially rewritten and must not be written out.
func (r *Resolver) ResolveAuthorities(ctx context.Context, rec *marc.Record) (*marc.Record, error) {
	for _, field := range rec.DataFields() {
		if err := r.resolveField(ctx, field); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func (r *Resolver) resolveField(ctx context.Context, field *marc.Field) error {
	// Iterate a snapshot: the loop removes and appends subfields.
	snapshot := append([]*marc.Subfield(nil), field.Subfields...)

	for _, sf := range snapshot {
		switch sf.Code {
		case CodeDrop:
			field.RemoveSubfield(sf)
		case CodeResolve:
			if err := r.resolveKey(ctx, field, sf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) resolveKey(ctx context.Context, field *marc.Field, sf *marc.Subfield) error {
	key, ok := stripSigil(sf.Value)
	if !ok {
		return fmt.Errorf("%w: field %s: authority key %q shorter than sigil", apperr.ErrInvalidRecord, field.Tag, sf.Value)
	}

	id, err := r.lookup.ResolveAuthorityID(ctx, key)
	if err != nil {
		return err
	}

	for _, tag := range URITags {
		uri, err := r.lookup.ResolveAuthorityURI(ctx, id, tag)
		if err != nil {
			return err
		}
		if uri != "" {
			field.AddSubfield(CodeURI, uri)
		}
	}
	field.RemoveSubfield(sf)

	r.logger.Debug("authority key resolved",
		slog.String("field", field.Tag),
		slog.String("key", key),
		slog.String("authority_id", id))
	return nil
}

func stripSigil(v string) (string, bool) {
	for range keySigilLen {
		if v == "" {
			return "", false
		}
		_, size := utf8.DecodeRuneInString(v)
		v = v[size:]
	}
	return v, true
}
