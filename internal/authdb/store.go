package authdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/marctoxml/internal/apperr"
)

// Store runs the authority lookups over a Session. Zero matching rows is not
// an error and yields an empty string.
//
// When several rows match, the last row returned by the cursor wins. No
// ORDER BY is applied, so which row that is depends on the database.
type Store struct {
	session *Session
	dialect dialect
}

// NewStore returns a Store reading through session.
func NewStore(session *Session) (*Store, error) {
	d, ok := dialects[session.Driver()]
	if !ok {
		return nil, fmt.Errorf("%w: authdb: unknown driver %q", apperr.ErrConfig, session.Driver())
	}
	return &Store{session: session, dialect: d}, nil
}

// ResolveAuthorityID returns the authority identifier whose key equals key.
func (s *Store) ResolveAuthorityID(ctx context.Context, key string) (string, error) {
	id, err := s.queryLast(ctx, s.dialect.idQuery, key)
	if err != nil {
		return "", fmt.Errorf("%w: authdb: authority id for key %q: %w", apperr.ErrLookup, key, err)
	}
	return id, nil
}

// ResolveAuthorityURI returns the URI stored under tagNumber for the authority.
func (s *Store) ResolveAuthorityURI(ctx context.Context, authorityID, tagNumber string) (string, error) {
	uri, err := s.queryLast(ctx, s.dialect.uriQuery, authorityID, tagNumber)
	if err != nil {
		return "", fmt.Errorf("%w: authdb: authority uri for %q tag %s: %w", apperr.ErrLookup, authorityID, tagNumber, err)
	}
	return uri, nil
}

func (s *Store) queryLast(ctx context.Context, query string, args ...any) (string, error) {
	conn, err := s.session.Conn()
	if err != nil {
		return "", err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var result string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return "", err
		}
		result = strings.TrimSpace(v.String)
	}
	return result, rows.Err()
}
