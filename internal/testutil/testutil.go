// Package testutil provides shared test helpers for authority databases,
// MARC input files and output directories.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/marctoxml/internal/marc"
)

const authoritySchemaSQL = `
CREATE TABLE authority (
	authority_id  TEXT,
	authority_key TEXT,
	ved_offset    INTEGER
);

CREATE TABLE authorved (
	"offset"   INTEGER,
	tag_number TEXT,
	tag        TEXT
);
`

// Authority is one seeded authority row and its linked URIs by tag number.
type Authority struct {
	ID   string
	Key  string
	URIs map[string]string
}

// AuthorityDB creates a temporary SQLite authority database seeded with the
// given authorities, in order, and returns its path.
func AuthorityDB(t *testing.T, seeds ...Authority) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authority.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(authoritySchemaSQL); err != nil {
		t.Fatalf("apply authority schema: %v", err)
	}
	for i, a := range seeds {
		offset := i + 1
		if _, err := db.Exec(`INSERT INTO authority (authority_id, authority_key, ved_offset) VALUES (?, ?, ?)`,
			a.ID, a.Key, offset); err != nil {
			t.Fatalf("seed authority %s: %v", a.ID, err)
		}
		for tag, uri := range a.URIs {
			if _, err := db.Exec(`INSERT INTO authorved ("offset", tag_number, tag) VALUES (?, ?, ?)`,
				offset, tag, uri); err != nil {
				t.Fatalf("seed authorved %s/%s: %v", a.ID, tag, err)
			}
		}
	}
	return path
}

// PropertyFile writes a connection property file pointing at a SQLite
// authority database and returns its path.
func PropertyFile(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.conf")
	content := "SERVER=" + dbPath + "\nSERVICE_NAME=\nUSER=\nPASS=\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// MARCFile writes recs as an ISO 2709 file and returns its path.
func MARCFile(t *testing.T, recs ...*marc.Record) string {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range recs {
		data, err := marc.Encode(rec)
		if err != nil {
			t.Fatalf("encode record: %v", err)
		}
		buf.Write(data)
	}
	path := filepath.Join(t.TempDir(), "input.mrc")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Record builds a record with a control number and the given data fields.
func Record(controlNumber string, fields ...*marc.Field) *marc.Record {
	rec := marc.NewRecord()
	rec.AddControlField(marc.ControlNumberTag, controlNumber)
	rec.Fields = append(rec.Fields, fields...)
	return rec
}
