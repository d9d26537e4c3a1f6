package marc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Namespace is the MARC21 slim schema namespace.
const Namespace = "http://www.loc.gov/MARC21/slim"

type xmlRecord struct {
	Leader        string            `xml:"leader"`
	ControlFields []xmlControlField `xml:"controlfield"`
	DataFields    []xmlDataField    `xml:"datafield"`
}

type xmlControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type xmlDataField struct {
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Subfields []xmlSubfield `xml:"subfield"`
}

type xmlSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

var (
	collectionStart = xml.StartElement{Name: xml.Name{Space: Namespace, Local: "collection"}}
	recordStart     = xml.StartElement{Name: xml.Name{Local: "record"}}
)

// XMLWriter writes records as a single indented MARC-XML collection.
// Close must be called to terminate the collection.
type XMLWriter struct {
	w       io.Writer
	enc     *xml.Encoder
	started bool
	closed  bool
}

// NewXMLWriter returns an XMLWriter writing to w.
func NewXMLWriter(w io.Writer) *XMLWriter {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return &XMLWriter{w: w, enc: enc}
}

// Write appends rec to the collection.
func (x *XMLWriter) Write(rec *Record) error {
	if x.closed {
		return fmt.Errorf("marc: write to closed collection")
	}
	if err := x.start(); err != nil {
		return err
	}
	if err := x.enc.EncodeElement(toXML(rec), recordStart); err != nil {
		return fmt.Errorf("marc: encode record: %w", err)
	}
	return nil
}

// Close ends the collection and flushes the encoder. It is safe to call twice.
func (x *XMLWriter) Close() error {
	if x.closed {
		return nil
	}
	if err := x.start(); err != nil {
		return err
	}
	x.closed = true
	if err := x.enc.EncodeToken(collectionStart.End()); err != nil {
		return fmt.Errorf("marc: end collection: %w", err)
	}
	if err := x.enc.Flush(); err != nil {
		return fmt.Errorf("marc: flush: %w", err)
	}
	_, err := io.WriteString(x.w, "\n")
	return err
}

func (x *XMLWriter) start() error {
	if x.started {
		return nil
	}
	x.started = true
	if _, err := io.WriteString(x.w, xml.Header); err != nil {
		return fmt.Errorf("marc: write header: %w", err)
	}
	if err := x.enc.EncodeToken(collectionStart); err != nil {
		return fmt.Errorf("marc: start collection: %w", err)
	}
	return nil
}

// MarshalCollection renders records as a complete MARC-XML document.
func MarshalCollection(recs ...*Record) ([]byte, error) {
	var buf bytes.Buffer
	w := NewXMLWriter(&buf)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toXML(rec *Record) xmlRecord {
	out := xmlRecord{Leader: unicodeLeader(rec.Leader)}
	for _, f := range rec.Fields {
		if f.IsControl() {
			out.ControlFields = append(out.ControlFields, xmlControlField{Tag: f.Tag, Value: f.Value})
			continue
		}
		df := xmlDataField{
			Tag:  f.Tag,
			Ind1: string(indicator(f.Ind1)),
			Ind2: string(indicator(f.Ind2)),
		}
		for _, sf := range f.Subfields {
			df.Subfields = append(df.Subfields, xmlSubfield{Code: string(sf.Code), Value: sf.Value})
		}
		out.DataFields = append(out.DataFields, df)
	}
	return out
}
