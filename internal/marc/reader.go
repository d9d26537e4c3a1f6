package marc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/starford/marctoxml/internal/apperr"
)

const (
	lengthPrefixLen = 5
	dirEntryLen     = 12
)

// RecordError reports a record whose framing was readable but whose content
// is malformed. The stream stays aligned, so the caller may skip the record
// and keep reading.
type RecordError struct {
	Index int // 1-based position in the stream
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("marc: record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{apperr.ErrInvalidRecord, e.Err}
}

// Reader decodes ISO 2709 records from a byte stream.
type Reader struct {
	r     *bufio.Reader
	count int
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF when the stream is
// exhausted and a *RecordError for a malformed but skippable record. Any other
// error means the stream can no longer be read.
func (rd *Reader) Next() (*Record, error) {
	if err := rd.skipLineBreaks(); err != nil {
		return nil, err
	}

	prefix := make([]byte, lengthPrefixLen)
	if _, err := io.ReadFull(rd.r, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: marc: read record length: %w", apperr.ErrInput, err)
	}
	total, err := strconv.Atoi(string(prefix))
	if err != nil || total <= LeaderLen {
		return nil, fmt.Errorf("%w: marc: bad record length %q", apperr.ErrInput, prefix)
	}

	data := make([]byte, total)
	copy(data, prefix)
	if _, err := io.ReadFull(rd.r, data[lengthPrefixLen:]); err != nil {
		return nil, fmt.Errorf("%w: marc: truncated record: %w", apperr.ErrInput, err)
	}

	rd.count++
	rec, err := Decode(data)
	if err != nil {
		return nil, &RecordError{Index: rd.count, Err: err}
	}
	return rec, nil
}

// skipLineBreaks discards newlines some exports place between records.
func (rd *Reader) skipLineBreaks() error {
	for {
		b, err := rd.r.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("%w: marc: %w", apperr.ErrInput, err)
		}
		if b[0] != '\n' && b[0] != '\r' {
			return nil
		}
		_, _ = rd.r.ReadByte()
	}
}

// Decode parses one complete ISO 2709 record, terminator included. Field
// data is converted to UTF-8 according to leader/09 and the returned leader
// is marked as Unicode.
func Decode(data []byte) (*Record, error) {
	if len(data) <= LeaderLen {
		return nil, errors.New("record shorter than leader")
	}
	if data[len(data)-1] != RecordTerminator {
		return nil, errors.New("missing record terminator")
	}

	leader := string(data[:LeaderLen])
	base, err := strconv.Atoi(leader[12:17])
	if err != nil {
		return nil, fmt.Errorf("bad base address %q", leader[12:17])
	}
	if base <= LeaderLen || base > len(data)-1 {
		return nil, fmt.Errorf("base address %d out of range", base)
	}
	if data[base-1] != FieldTerminator {
		return nil, errors.New("directory not terminated")
	}

	dir := data[LeaderLen : base-1]
	if len(dir)%dirEntryLen != 0 {
		return nil, fmt.Errorf("directory length %d is not a multiple of %d", len(dir), dirEntryLen)
	}

	text := textDecoder(leader)
	rec := &Record{Leader: unicodeLeader(leader)}
	body := data[base : len(data)-1]
	for i := 0; i < len(dir); i += dirEntryLen {
		entry := dir[i : i+dirEntryLen]
		tag := string(entry[:3])
		length, err := strconv.Atoi(string(entry[3:7]))
		if err != nil {
			return nil, fmt.Errorf("field %s: bad length %q", tag, entry[3:7])
		}
		start, err := strconv.Atoi(string(entry[7:12]))
		if err != nil {
			return nil, fmt.Errorf("field %s: bad offset %q", tag, entry[7:12])
		}
		if start < 0 || length < 0 || start+length > len(body) {
			return nil, fmt.Errorf("field %s: bounds %d+%d exceed body", tag, start, length)
		}
		raw := bytes.TrimSuffix(body[start:start+length], []byte{FieldTerminator})

		if isControlTag(tag) {
			value, err := text(raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", tag, err)
			}
			rec.AddControlField(tag, value)
			continue
		}
		f, err := decodeDataField(tag, raw, text)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec, nil
}

func decodeDataField(tag string, raw []byte, text func([]byte) (string, error)) (*Field, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("field %s: missing indicators", tag)
	}
	f := &Field{Tag: tag, Ind1: raw[0], Ind2: raw[1]}
	parts := bytes.Split(raw[2:], []byte{SubfieldDelimiter})
	// parts[0] precedes the first delimiter and carries no subfield.
	for _, p := range parts[1:] {
		if len(p) == 0 {
			continue
		}
		value, err := text(p[1:])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", tag, err)
		}
		f.AddSubfield(p[0], value)
	}
	return f, nil
}
