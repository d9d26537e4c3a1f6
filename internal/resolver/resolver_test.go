package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marctoxml/internal/apperr"
	"github.com/starford/marctoxml/internal/marc"
)

// fakeLookup serves IDs and URIs from maps and records every call.
type fakeLookup struct {
	ids   map[string]string
	uris  map[string]string // "id/tag" -> uri
	fail  map[string]error  // key -> error from ResolveAuthorityID
	calls []string
}

func (f *fakeLookup) ResolveAuthorityID(_ context.Context, key string) (string, error) {
	f.calls = append(f.calls, "id:"+key)
	if err, ok := f.fail[key]; ok {
		return "", err
	}
	return f.ids[key], nil
}

func (f *fakeLookup) ResolveAuthorityURI(_ context.Context, id, tag string) (string, error) {
	f.calls = append(f.calls, fmt.Sprintf("uri:%s/%s", id, tag))
	return f.uris[id+"/"+tag], nil
}

func newResolver(l *fakeLookup) *Resolver {
	return New(l, slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func codes(f *marc.Field) string {
	out := make([]byte, len(f.Subfields))
	for i, sf := range f.Subfields {
		out[i] = sf.Code
	}
	return string(out)
}

func TestIdentityOnCleanRecord(t *testing.T) {
	rec := marc.NewRecord()
	rec.AddControlField("001", "clean1")
	rec.AddDataField("245", '1', '0', marc.NewSubfield('a', "Title"), marc.NewSubfield('c', "Author"))
	rec.AddDataField("650", ' ', '0', marc.NewSubfield('a', "Subject"))
	want := rec.Clone()

	l := &fakeLookup{}
	got, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)

	assert.Same(t, rec, got)
	assert.Equal(t, want, got)
	assert.Empty(t, l.calls)
}

func TestDropSubfieldWithoutLookup(t *testing.T) {
	rec := marc.NewRecord()
	f := rec.AddDataField("100", '1', ' ',
		marc.NewSubfield('a', "Twain, Mark"),
		marc.NewSubfield('?', "^A999"),
		marc.NewSubfield('d', "1835-1910"),
	)

	l := &fakeLookup{}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "ad", codes(f))
	assert.Empty(t, l.calls)
}

func TestUnresolvableKeyRemovedWithoutURI(t *testing.T) {
	rec := marc.NewRecord()
	f := rec.AddDataField("100", '1', ' ', marc.NewSubfield('a', "Nobody"), marc.NewSubfield('=', "^AUNKNOWN"))

	l := &fakeLookup{}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "a", codes(f))
	assert.Equal(t, "id:UNKNOWN", l.calls[0])
}

func TestTagOrderedInjection(t *testing.T) {
	rec := marc.NewRecord()
	f := rec.AddDataField("100", '1', ' ', marc.NewSubfield('=', "^A42"), marc.NewSubfield('a', "Name"))

	l := &fakeLookup{
		ids: map[string]string{"42": "auth42"},
		uris: map[string]string{
			"auth42/922": "http://viaf.org/viaf/42",
			"auth42/920": "http://id.loc.gov/authorities/names/n42",
		},
	}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)

	require.Equal(t, "a00", codes(f))
	assert.Equal(t, "http://id.loc.gov/authorities/names/n42", f.Subfields[1].Value)
	assert.Equal(t, "http://viaf.org/viaf/42", f.Subfields[2].Value)
	assert.Nil(t, f.Subfield('='))
	assert.Equal(t, []string{"id:42", "uri:auth42/920", "uri:auth42/921", "uri:auth42/922"}, l.calls)
}

func TestMultipleKeysInOneField(t *testing.T) {
	rec := marc.NewRecord()
	f := rec.AddDataField("600", '1', '0',
		marc.NewSubfield('=', "^A1"),
		marc.NewSubfield('a', "One"),
		marc.NewSubfield('?', "^A2"),
		marc.NewSubfield('=', "^A3"),
	)
	l := &fakeLookup{
		ids:  map[string]string{"1": "i1", "3": "i3"},
		uris: map[string]string{"i1/921": "u1", "i3/920": "u3"},
	}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)

	require.Equal(t, "a00", codes(f))
	assert.Equal(t, "u1", f.Subfields[1].Value)
	assert.Equal(t, "u3", f.Subfields[2].Value)
}

func TestControlFieldsNeverInspected(t *testing.T) {
	rec := marc.NewRecord()
	rec.AddControlField("001", "=^Anot-a-subfield")
	l := &fakeLookup{}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, l.calls)
	assert.Equal(t, "=^Anot-a-subfield", rec.ControlNumber())
}

func TestLookupErrorAbortsRecord(t *testing.T) {
	boom := fmt.Errorf("%w: connection reset", apperr.ErrLookup)
	rec := marc.NewRecord()
	rec.AddDataField("100", '1', ' ', marc.NewSubfield('=', "^ABAD"))
	second := rec.AddDataField("700", '1', ' ', marc.NewSubfield('=', "^AGOOD"))

	l := &fakeLookup{fail: map[string]error{"BAD": boom}, ids: map[string]string{"GOOD": "g"}}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrLookup))
	assert.Equal(t, []string{"id:BAD"}, l.calls)
	assert.Equal(t, "=", codes(second), "later fields must not be processed")
}

func TestShortKeyIsInvalidRecord(t *testing.T) {
	rec := marc.NewRecord()
	rec.AddDataField("100", '1', ' ', marc.NewSubfield('=', "^"))

	l := &fakeLookup{}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	assert.ErrorIs(t, err, apperr.ErrInvalidRecord)
	assert.Empty(t, l.calls)
}

func TestSigilCountedInCharacters(t *testing.T) {
	rec := marc.NewRecord()
	rec.AddDataField("100", '1', ' ', marc.NewSubfield('=', "§Ån79021164"))

	l := &fakeLookup{}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	require.NoError(t, err)
	require.NotEmpty(t, l.calls)
	assert.Equal(t, "id:n79021164", l.calls[0])
}

func TestSingleMultibyteCharacterIsShortKey(t *testing.T) {
	rec := marc.NewRecord()
	rec.AddDataField("100", '1', ' ', marc.NewSubfield('=', "§"))

	l := &fakeLookup{}
	_, err := newResolver(l).ResolveAuthorities(context.Background(), rec)
	assert.ErrorIs(t, err, apperr.ErrInvalidRecord)
	assert.Empty(t, l.calls)
}
