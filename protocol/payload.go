package protocol

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Kind is the type of a success payload.
type Kind byte

const (
	KindString Kind = iota + 1
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	default:
		return "none"
	}
}

// Payload is the second entry of a successful response. The decoder does not
// know what the caller expects; the caller picks the accessor.
type Payload struct {
	kind Kind
	str  string
	num  int64
}

func StringPayload(s string) Payload { return Payload{kind: KindString, str: s} }

func IntPayload(n int64) Payload { return Payload{kind: KindInt, num: n} }

func (p Payload) Kind() Kind { return p.kind }

// AsString returns a string payload. Calling it on an int payload is an error.
func (p Payload) AsString() (string, error) {
	if p.kind != KindString {
		return "", malformed(fmt.Sprintf("want string payload, got %s", p.kind), ErrPayloadType)
	}
	return p.str, nil
}

// AsInt returns an integer payload. Calling it on a string payload is an error.
func (p Payload) AsInt() (int64, error) {
	if p.kind != KindInt {
		return 0, malformed(fmt.Sprintf("want int payload, got %s", p.kind), ErrPayloadType)
	}
	return p.num, nil
}

// Document runs the second decode pass: the string payload is itself an XML
// document, returned as a generic tree.
func (p Payload) Document() (*Node, error) {
	s, err := p.AsString()
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument([]byte(s))
	if err != nil {
		return nil, malformed("parse embedded document", err)
	}
	return doc, nil
}

// Unmarshal runs the second decode pass into a typed value.
func (p Payload) Unmarshal(v any) error {
	s, err := p.AsString()
	if err != nil {
		return err
	}
	if err := xml.Unmarshal([]byte(s), v); err != nil {
		return malformed("parse embedded document", err)
	}
	return nil
}

// String renders the payload for logs.
func (p Payload) String() string {
	switch p.kind {
	case KindInt:
		return strconv.FormatInt(p.num, 10)
	case KindString:
		return p.str
	default:
		return "<empty>"
	}
}
