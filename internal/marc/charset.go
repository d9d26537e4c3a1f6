package marc

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Leader position 09 names the character coding scheme: 'a' is UCS/Unicode,
// anything else is read as ISO 8859-1.
const (
	charsetPos     = 9
	charsetUnicode = 'a'
)

// textDecoder returns a function converting raw field bytes to a UTF-8
// string according to the leader's coding scheme.
func textDecoder(leader string) func([]byte) (string, error) {
	if leader[charsetPos] == charsetUnicode {
		return func(b []byte) (string, error) { return string(b), nil }
	}
	dec := charmap.ISO8859_1.NewDecoder()
	return func(b []byte) (string, error) {
		out, err := dec.Bytes(b)
		if err != nil {
			return "", fmt.Errorf("decode ISO 8859-1: %w", err)
		}
		return string(out), nil
	}
}

// unicodeLeader marks leader as UTF-8 encoded.
func unicodeLeader(leader string) string {
	if len(leader) != LeaderLen || leader[charsetPos] == charsetUnicode {
		return leader
	}
	b := []byte(leader)
	b[charsetPos] = charsetUnicode
	return string(b)
}
