// Package authdb provides read-only access to the authority database: a
// single-connection session and the two lookup queries used to resolve
// authority keys.
package authdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/marctoxml/internal/apperr"
)

// ErrSessionClosed is returned when a query is attempted without an open session.
var ErrSessionClosed = errors.New("authdb: session not open")

// Session owns the one database connection used by a conversion run.
// It is not safe for concurrent use.
type Session struct {
	target Target
	logger *slog.Logger

	db   *sql.DB
	conn *sql.Conn
}

// NewSession returns a session for target. No connection is made until Open.
func NewSession(target Target, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{target: target, logger: logger}
}

// Driver returns the configured driver name.
func (s *Session) Driver() string {
	return s.target.Driver
}

// Open connects if no connection is held and returns the live connection.
// Calling Open again returns the same connection.
func (s *Session) Open(ctx context.Context) (*sql.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	d, ok := dialects[s.target.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: authdb: unknown driver %q", apperr.ErrConnection, s.target.Driver)
	}
	dsn, err := s.target.DSN()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConnection, err)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: authdb: open %s: %w", apperr.ErrConnection, s.target, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: authdb: connect %s: %w", apperr.ErrConnection, s.target, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("%w: authdb: ping %s: %w", apperr.ErrConnection, s.target, err)
	}

	s.db, s.conn = db, conn
	s.logger.Info("authority database connected", slog.String("target", s.target.String()))
	return conn, nil
}

// Conn returns the held connection, or ErrSessionClosed.
func (s *Session) Conn() (*sql.Conn, error) {
	if s.conn == nil {
		return nil, ErrSessionClosed
	}
	return s.conn, nil
}

// IsOpen reports whether a connection is held.
func (s *Session) IsOpen() bool {
	return s.conn != nil
}

// Close releases the connection and resets the session. Closing a session
// that is not open is a no-op.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	s.conn, s.db = nil, nil
	s.logger.Info("authority database closed", slog.String("target", s.target.String()))
	return errors.Join(connErr, dbErr)
}
