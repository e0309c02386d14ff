package message

import "strconv"

// Value represents an XML-RPC response value. Exactly one typed child is
// expected; Text holds untagged content, which XML-RPC treats as a string.
type Value struct {
	Int     *string `xml:"int,omitempty"`
	I4      *string `xml:"i4,omitempty"`
	I8      *string `xml:"i8,omitempty"`
	Boolean *string `xml:"boolean,omitempty"`
	String  *string `xml:"string,omitempty"`
	Double  *string `xml:"double,omitempty"`
	Struct  *Struct `xml:"struct,omitempty"`
	Array   *Array  `xml:"array,omitempty"`
	Text    string  `xml:",chardata"`
}

// Array represents an XML-RPC array. Data stays a pointer so that
// <array></array> and <array><data/></array> are distinguishable.
type Array struct {
	Data *Data `xml:"data"`
}

// Data is the <data> list inside an array.
type Data struct {
	Values []*Value `xml:"value"`
}

// Struct represents an XML-RPC struct.
type Struct struct {
	Members []Member `xml:"member"`
}

// Member represents an XML-RPC struct member.
type Member struct {
	Name  string `xml:"name"`
	Value *Value `xml:"value"`
}

// Typed reports whether the value carries a typed child element.
func (v *Value) Typed() bool {
	return v.Int != nil || v.I4 != nil || v.I8 != nil || v.Boolean != nil ||
		v.String != nil || v.Double != nil || v.Struct != nil || v.Array != nil
}

// Member returns the struct member with the given name, or nil.
func (s *Struct) Member(name string) *Value {
	if s == nil {
		return nil
	}
	for i := range s.Members {
		if s.Members[i].Name == name {
			return s.Members[i].Value
		}
	}
	return nil
}

func StringValue(s string) *Value { return &Value{String: &s} }

func IntValue(n int64) *Value {
	s := strconv.FormatInt(n, 10)
	return &Value{Int: &s}
}

func BoolValue(b bool) *Value {
	s := FormatBool(b)
	return &Value{Boolean: &s}
}

// ArrayValue wraps values into <array><data>…</data></array>.
func ArrayValue(values ...*Value) *Value {
	return &Value{Array: &Array{Data: &Data{Values: values}}}
}
