package marcxml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marctoxml/internal/apperr"
	"github.com/starford/marctoxml/internal/marc"
)

const validRecord = `<?xml version="1.0" encoding="UTF-8"?>
<record xmlns="http://www.loc.gov/MARC21/slim">
  <leader>01103cam a2200277 a 4500</leader>
  <controlfield tag="001">a1</controlfield>
  <controlfield tag="008">860506s1957    nyua     b    000 0 eng  </controlfield>
  <datafield tag="100" ind1="1" ind2=" ">
    <subfield code="a">Author, A.</subfield>
    <subfield code="0">http://id.loc.gov/authorities/names/n79021164</subfield>
  </datafield>
</record>
`

func TestValidate_ConverterOutput(t *testing.T) {
	rec := marc.NewRecord()
	rec.AddControlField("001", "a12345")
	rec.AddDataField("245", '1', '0',
		marc.NewSubfield('a', "Title /"),
		marc.NewSubfield('c', "by someone."))
	rec.AddDataField("650", ' ', '0', marc.NewSubfield('0', "http://example.org/auth/1"))

	data, err := marc.MarshalCollection(rec, rec.Clone())
	require.NoError(t, err)
	assert.NoError(t, Validate(strings.NewReader(string(data))))
}

func TestValidate_SingleRecordRoot(t *testing.T) {
	assert.NoError(t, Validate(strings.NewReader(validRecord)))
}

func TestValidate_AuthorityKeySubfieldCodes(t *testing.T) {
	doc := `<record xmlns="http://www.loc.gov/MARC21/slim"><leader>01103cam a2200277 a 4500</leader>` +
		`<datafield tag="650" ind1=" " ind2="0"><subfield code="=">^A1</subfield><subfield code="?">^A2</subfield></datafield></record>`
	assert.NoError(t, Validate(strings.NewReader(doc)))
}

func TestValidate_EmptyCollection(t *testing.T) {
	doc := `<collection xmlns="http://www.loc.gov/MARC21/slim"></collection>`
	assert.NoError(t, Validate(strings.NewReader(doc)))
}

func TestValidate_Invalid(t *testing.T) {
	wrap := func(body string) string {
		return `<collection xmlns="http://www.loc.gov/MARC21/slim"><record><leader>01103cam a2200277 a 4500</leader>` + body + `</record></collection>`
	}
	cases := map[string]string{
		"no namespace":       `<collection><record></record></collection>`,
		"wrong root":         `<marc xmlns="http://www.loc.gov/MARC21/slim"/>`,
		"bad leader":         `<record xmlns="http://www.loc.gov/MARC21/slim"><leader>too short</leader></record>`,
		"missing leader":     `<record xmlns="http://www.loc.gov/MARC21/slim"><controlfield tag="001">a</controlfield></record>`,
		"bad control tag":    wrap(`<controlfield tag="100">x</controlfield>`),
		"bad data tag":       wrap(`<datafield tag="1" ind1=" " ind2=" "><subfield code="a">x</subfield></datafield>`),
		"bad indicator":      wrap(`<datafield tag="245" ind1="AB" ind2=" "><subfield code="a">x</subfield></datafield>`),
		"bad subfield code":  wrap(`<datafield tag="245" ind1=" " ind2=" "><subfield code="ab">x</subfield></datafield>`),
		"no subfields":       wrap(`<datafield tag="245" ind1=" " ind2=" "></datafield>`),
		"control after data": wrap(`<datafield tag="245" ind1=" " ind2=" "><subfield code="a">x</subfield></datafield><controlfield tag="001">a</controlfield>`),
		"second leader":      wrap(`<controlfield tag="001">a</controlfield><leader>01103cam a2200277 a 4500</leader>`),
		"unknown element":    wrap(`<note>x</note>`),
		"nested in subfield": wrap(`<datafield tag="245" ind1=" " ind2=" "><subfield code="a"><b>x</b></subfield></datafield>`),
		"stray text":         `<collection xmlns="http://www.loc.gov/MARC21/slim">text</collection>`,
		"unclosed":           `<collection xmlns="http://www.loc.gov/MARC21/slim"><record>`,
		"empty":              ``,
		"two roots":          validRecord + validRecord,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(strings.NewReader(doc))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), "Invalid content was found")
		})
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one_record.xml")
	require.NoError(t, os.WriteFile(path, []byte(validRecord), 0o644))
	assert.NoError(t, ValidateFile(path))

	assert.ErrorIs(t, ValidateFile(filepath.Join(dir, "missing.xml")), apperr.ErrInput)
	assert.ErrorIs(t, ValidateFile(dir), apperr.ErrInput)
}
