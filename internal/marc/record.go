// Package marc models MARC21 bibliographic records and reads/writes them in
// ISO 2709 binary framing and MARC-XML.
package marc

// ISO 2709 structural bytes.
const (
	SubfieldDelimiter = 0x1F
	FieldTerminator   = 0x1E
	RecordTerminator  = 0x1D
)

// LeaderLen is the fixed length of a record leader.
const LeaderLen = 24

// DefaultLeader is used for records built in memory without a leader.
const DefaultLeader = "00000nam a2200000   4500"

// ControlNumberTag is the tag of the control number field.
const ControlNumberTag = "001"

// Subfield is a single coded value within a data field.
type Subfield struct {
	Code  byte
	Value string
}

// NewSubfield returns a subfield with the given code and value.
func NewSubfield(code byte, value string) *Subfield {
	return &Subfield{Code: code, Value: value}
}

// Field is either a control field (tags 001-009, Value set) or a data field
// (indicators and subfields set).
type Field struct {
	Tag       string
	Value     string
	Ind1      byte
	Ind2      byte
	Subfields []*Subfield
}

// IsControl reports whether the field is a control field.
func (f *Field) IsControl() bool {
	return isControlTag(f.Tag)
}

// AddSubfield appends a new subfield to the end of the field.
func (f *Field) AddSubfield(code byte, value string) *Subfield {
	sf := NewSubfield(code, value)
	f.Subfields = append(f.Subfields, sf)
	return sf
}

// RemoveSubfield removes sf from the field by identity, not by value, so an
// equal-valued sibling is never removed in its place. It reports whether sf
// was found.
func (f *Field) RemoveSubfield(sf *Subfield) bool {
	for i, cur := range f.Subfields {
		if cur == sf {
			f.Subfields = append(f.Subfields[:i:i], f.Subfields[i+1:]...)
			return true
		}
	}
	return false
}

// Subfield returns the first subfield with the given code, or nil.
func (f *Field) Subfield(code byte) *Subfield {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf
		}
	}
	return nil
}

// Record is a MARC21 record: a leader plus an ordered list of fields.
type Record struct {
	Leader string
	Fields []*Field
}

// NewRecord returns an empty record with DefaultLeader.
func NewRecord() *Record {
	return &Record{Leader: DefaultLeader}
}

// AddControlField appends a control field.
func (r *Record) AddControlField(tag, value string) *Field {
	f := &Field{Tag: tag, Value: value}
	r.Fields = append(r.Fields, f)
	return f
}

// AddDataField appends a data field with the given indicators and subfields.
func (r *Record) AddDataField(tag string, ind1, ind2 byte, subfields ...*Subfield) *Field {
	f := &Field{Tag: tag, Ind1: ind1, Ind2: ind2, Subfields: subfields}
	r.Fields = append(r.Fields, f)
	return f
}

// ControlFields returns the control fields in record order.
func (r *Record) ControlFields() []*Field {
	var out []*Field
	for _, f := range r.Fields {
		if f.IsControl() {
			out = append(out, f)
		}
	}
	return out
}

// DataFields returns the data fields in record order.
func (r *Record) DataFields() []*Field {
	var out []*Field
	for _, f := range r.Fields {
		if !f.IsControl() {
			out = append(out, f)
		}
	}
	return out
}

// ControlNumber returns the value of the 001 field, or "" when absent.
func (r *Record) ControlNumber() string {
	for _, f := range r.Fields {
		if f.Tag == ControlNumberTag {
			return f.Value
		}
	}
	return ""
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := &Record{Leader: r.Leader, Fields: make([]*Field, len(r.Fields))}
	for i, f := range r.Fields {
		cp := *f
		cp.Subfields = make([]*Subfield, len(f.Subfields))
		for j, sf := range f.Subfields {
			s := *sf
			cp.Subfields[j] = &s
		}
		out.Fields[i] = &cp
	}
	return out
}

func isControlTag(tag string) bool {
	return len(tag) == 3 && tag[0] == '0' && tag[1] == '0'
}
