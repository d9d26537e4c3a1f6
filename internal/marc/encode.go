package marc

import (
	"bytes"
	"fmt"
)

const (
	maxRecordLen = 99999
	maxFieldLen  = 9999
)

// Encode renders rec in ISO 2709 framing. The record length, base address and
// entry map of the leader are recomputed; the remaining leader positions are
// kept from rec.Leader (or DefaultLeader when it is not 24 bytes long).
func Encode(rec *Record) ([]byte, error) {
	var dir, body bytes.Buffer

	for _, f := range rec.Fields {
		if len(f.Tag) != 3 {
			return nil, fmt.Errorf("marc: encode: bad tag %q", f.Tag)
		}
		start := body.Len()
		if f.IsControl() {
			body.WriteString(f.Value)
		} else {
			body.WriteByte(indicator(f.Ind1))
			body.WriteByte(indicator(f.Ind2))
			for _, sf := range f.Subfields {
				body.WriteByte(SubfieldDelimiter)
				body.WriteByte(sf.Code)
				body.WriteString(sf.Value)
			}
		}
		body.WriteByte(FieldTerminator)

		length := body.Len() - start
		if length > maxFieldLen {
			return nil, fmt.Errorf("marc: encode: field %s is %d bytes", f.Tag, length)
		}
		fmt.Fprintf(&dir, "%s%04d%05d", f.Tag, length, start)
	}
	dir.WriteByte(FieldTerminator)

	base := LeaderLen + dir.Len()
	total := base + body.Len() + 1
	if total > maxRecordLen {
		return nil, fmt.Errorf("marc: encode: record is %d bytes", total)
	}

	leader := []byte(rec.Leader)
	if len(leader) != LeaderLen {
		leader = []byte(DefaultLeader)
	}
	copy(leader[0:5], fmt.Sprintf("%05d", total))
	leader[10], leader[11] = '2', '2'
	copy(leader[12:17], fmt.Sprintf("%05d", base))
	copy(leader[20:24], "4500")

	out := make([]byte, 0, total)
	out = append(out, leader...)
	out = append(out, dir.Bytes()...)
	out = append(out, body.Bytes()...)
	out = append(out, RecordTerminator)
	return out, nil
}

func indicator(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}
