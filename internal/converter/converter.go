// Package converter drives the record-by-record conversion of a MARC stream
// into MARC-XML, deciding per record whether to write and isolating
// per-record failures from the rest of the run.
package converter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/marctoxml/internal/apperr"
	"github.com/starford/marctoxml/internal/marc"
	"github.com/starford/marctoxml/internal/storage"
)

// OutputExt is appended to the file name derived from a control number.
const OutputExt = ".xml"

// RecordResolver rewrites a record's authority subfields in place.
type RecordResolver interface {
	ResolveAuthorities(ctx context.Context, rec *marc.Record) (*marc.Record, error)
}

// Session is the authority database connection owned by a run.
type Session interface {
	Open(ctx context.Context) (*sql.Conn, error)
	Close() error
}

// Source yields records until it returns io.EOF.
type Source interface {
	Next() (*marc.Record, error)
}

// RecordWriter receives converted records in stream mode.
type RecordWriter interface {
	Write(rec *marc.Record) error
}

// Outcome is the result of converting one record.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeWritten
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Summary counts record outcomes for a run.
type Summary struct {
	Read    int
	Written int
	Skipped int
	Failed  int
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeWritten:
		s.Written++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Driver converts records one at a time. It is not safe for concurrent use.
type Driver struct {
	resolver RecordResolver
	session  Session
	out      storage.Provider
	replace  bool
	logger   *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithOutput sets the output directory used by ConvertAll and ConvertOne.
func WithOutput(out storage.Provider) Option {
	return func(d *Driver) { d.out = out }
}

// WithReplace makes the driver overwrite existing output files.
func WithReplace(replace bool) Option {
	return func(d *Driver) { d.replace = replace }
}

// WithLogger sets the logger for per-record events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// New returns a Driver resolving records with resolver over session.
func New(resolver RecordResolver, session Session, opts ...Option) *Driver {
	d := &Driver{resolver: resolver, session: session, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decide reports whether a record should be written: when its output does
// not exist yet, or when replace is set.
func Decide(exists, replace bool) bool {
	return !exists || replace
}

// OutputFileName derives the output file name from the record's control
// number: spaces become underscores, the result is lowercased.
func OutputFileName(rec *marc.Record) (string, error) {
	cn := rec.ControlNumber()
	if strings.TrimSpace(cn) == "" {
		return "", fmt.Errorf("%w: record has no control number", apperr.ErrInvalidRecord)
	}
	return strings.ToLower(strings.ReplaceAll(cn, " ", "_")) + OutputExt, nil
}

// ConvertOne converts a single record into its output file. Errors are
// logged and reported as OutcomeFailed; they never escape.
func (d *Driver) ConvertOne(ctx context.Context, rec *marc.Record) (outcome Outcome) {
	logger := d.logger.With(slog.String("control_number", rec.ControlNumber()))
	defer func() {
		if p := recover(); p != nil {
			logger.Error("record conversion failed", slog.Any("panic", p))
			outcome = OutcomeFailed
		}
	}()

	if err := d.convertOne(ctx, rec, logger); err != nil {
		if errors.Is(err, errSkipped) {
			return OutcomeSkipped
		}
		logger.Error("record conversion failed", slog.String("error", err.Error()))
		return OutcomeFailed
	}
	return OutcomeWritten
}

var errSkipped = errors.New("skipped")

func (d *Driver) convertOne(ctx context.Context, rec *marc.Record, logger *slog.Logger) error {
	if d.out == nil {
		return fmt.Errorf("%w: converter: no output directory", apperr.ErrOutput)
	}
	name, err := OutputFileName(rec)
	if err != nil {
		return err
	}
	path, err := d.out.Path(name)
	if err != nil {
		return err
	}
	exists, err := d.out.Exists(name)
	if err != nil {
		return err
	}
	if !Decide(exists, d.replace) {
		logger.Info("Skipped MARC-XML file", slog.String("path", path))
		return errSkipped
	}

	if _, err := d.resolver.ResolveAuthorities(ctx, rec); err != nil {
		return err
	}
	data, err := marc.MarshalCollection(rec)
	if err != nil {
		return err
	}
	if err := d.out.Write(name, data); err != nil {
		return err
	}
	logger.Info("Output MARC-XML file", slog.String("path", path))
	return nil
}

// ConvertAll opens the session, converts every record of src into the output
// directory and closes the session exactly once, whatever stops the loop.
func (d *Driver) ConvertAll(ctx context.Context, src Source) (Summary, error) {
	return d.run(ctx, src, func(ctx context.Context, rec *marc.Record) (Outcome, error) {
		return d.ConvertOne(ctx, rec), nil
	})
}

// Stream resolves every record of src and writes it to w. Failed records are
// logged and left out; a write failure on w stops the run.
func (d *Driver) Stream(ctx context.Context, src Source, w RecordWriter) (Summary, error) {
	return d.run(ctx, src, func(ctx context.Context, rec *marc.Record) (Outcome, error) {
		if _, err := d.resolver.ResolveAuthorities(ctx, rec); err != nil {
			d.logger.Error("record conversion failed",
				slog.String("control_number", rec.ControlNumber()),
				slog.String("error", err.Error()))
			return OutcomeFailed, nil
		}
		if err := w.Write(rec); err != nil {
			return OutcomeFailed, fmt.Errorf("%w: converter: write record: %w", apperr.ErrOutput, err)
		}
		return OutcomeWritten, nil
	})
}

// convertFunc converts one record. A non-nil error is fatal for the run.
type convertFunc func(ctx context.Context, rec *marc.Record) (Outcome, error)

func (d *Driver) run(ctx context.Context, src Source, convert convertFunc) (sum Summary, err error) {
	if _, err := d.session.Open(ctx); err != nil {
		return sum, err
	}
	defer func() {
		if cerr := d.session.Close(); cerr != nil {
			d.logger.Warn("closing authority session failed", slog.String("error", cerr.Error()))
		}
		d.logger.Info("conversion finished",
			slog.Int("read", sum.Read),
			slog.Int("written", sum.Written),
			slog.Int("skipped", sum.Skipped),
			slog.Int("failed", sum.Failed))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var recErr *marc.RecordError
			if errors.As(err, &recErr) {
				sum.Read++
				sum.Failed++
				d.logger.Error("record conversion failed",
					slog.Int("record", recErr.Index),
					slog.String("error", err.Error()))
				continue
			}
			return sum, err
		}

		sum.Read++
		outcome, err := convert(ctx, rec)
		sum.add(outcome)
		if err != nil {
			return sum, err
		}
	}

	if sum.Read > 0 && sum.Failed == sum.Read {
		return sum, apperr.ErrAllRecordsFailed
	}
	return sum, nil
}
