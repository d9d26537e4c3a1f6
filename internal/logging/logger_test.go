package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "marctoxml.log")

	l, err := New(Options{Level: slog.LevelInfo, File: path}, nil)
	require.NoError(t, err)
	l.Info("Output MARC-XML file", slog.String("path", "/out/a1.xml"))
	l.Debug("filtered")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Output MARC-XML file", entry["msg"])
	assert.Equal(t, l.RunID, entry["run_id"])
	assert.Equal(t, "/out/a1.xml", entry["path"])
}

func TestNew_TextToFallback(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: slog.LevelDebug, Format: "TEXT"}, &buf)
	require.NoError(t, err)
	l.Debug("authority key resolved", slog.String("key", "n79021164"))
	require.NoError(t, l.Close())

	out := buf.String()
	assert.Contains(t, out, "msg=\"authority key resolved\"")
	assert.Contains(t, out, "run_id="+l.RunID)
}

func TestNew_DistinctRunIDs(t *testing.T) {
	var buf bytes.Buffer
	a, err := New(Options{}, &buf)
	require.NoError(t, err)
	b, err := New(Options{}, &buf)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestNew_UnwritableLogDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := New(Options{File: filepath.Join(blocker, "sub", "x.log")}, nil)
	assert.Error(t, err)
}
