package message

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// ParamKind tags the variant held by a Param.
type ParamKind byte

const (
	KindString ParamKind = iota
	KindInt
	KindBool
)

func (k ParamKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Param is one call parameter: Str | Int | Bool.
type Param struct {
	Kind ParamKind
	Str  string
	Int  int64
	Bool bool
}

func Str(s string) Param { return Param{Kind: KindString, Str: s} }

func Int(i int64) Param { return Param{Kind: KindInt, Int: i} }

func Bool(b bool) Param { return Param{Kind: KindBool, Bool: b} }

// String renders the parameter for logs.
func (p Param) String() string {
	switch p.Kind {
	case KindInt:
		return strconv.FormatInt(p.Int, 10)
	case KindBool:
		return FormatBool(p.Bool)
	default:
		return strconv.Quote(p.Str)
	}
}

// FormatBool renders a boolean the way the wire expects it: "1" or "0".
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool is the inverse of FormatBool. Only the literal tokens are accepted.
func ParseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean token %q", s)
	}
}

// paramXML is the on-wire shape of <param>. Strings go into chardata with no
// type tag; nil pointers are left out by encoding/xml.
type paramXML struct {
	Value struct {
		Int     *int64  `xml:"int"`
		I4      *string `xml:"i4"`
		Boolean *string `xml:"boolean"`
		String  *string `xml:"string"`
		Text    string  `xml:",chardata"`
	} `xml:"value"`
}

// MarshalXML writes <param><value>…</value></param>.
func (p Param) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	var out paramXML
	switch p.Kind {
	case KindInt:
		n := p.Int
		out.Value.Int = &n
	case KindBool:
		b := FormatBool(p.Bool)
		out.Value.Boolean = &b
	case KindString:
		out.Value.Text = p.Str
	default:
		return fmt.Errorf("message: unknown param kind %d", p.Kind)
	}
	start.Name = xml.Name{Local: "param"}
	return e.EncodeElement(out, start)
}

// UnmarshalXML reads a request <param>. Typed <string> is accepted alongside the
// untagged form since both are valid XML-RPC.
func (p *Param) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var in paramXML
	if err := d.DecodeElement(&in, &start); err != nil {
		return err
	}
	v := in.Value
	switch {
	case v.Int != nil:
		*p = Int(*v.Int)
	case v.I4 != nil:
		n, err := strconv.ParseInt(strings.TrimSpace(*v.I4), 10, 64)
		if err != nil {
			return fmt.Errorf("message: invalid i4 %q: %w", *v.I4, err)
		}
		*p = Int(n)
	case v.Boolean != nil:
		b, err := ParseBool(*v.Boolean)
		if err != nil {
			return fmt.Errorf("message: %w", err)
		}
		*p = Bool(b)
	case v.String != nil:
		*p = Str(*v.String)
	default:
		*p = Str(v.Text)
	}
	return nil
}
