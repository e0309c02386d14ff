// Package message defines the XML-RPC documents exchanged with the control plane.
//
// MethodCall is the "envelope" for every call: a method name plus an ordered list
// of typed parameters. MethodResponse is the strict intermediate representation of
// what the control plane sends back. The codec package turns both into bytes.
//
//	<methodCall>
//	  <methodName>one.user.info</methodName>
//	  <params>
//	    <param><value>alice:token</value></param>      ← Str, untagged
//	    <param><value><int>-1</int></value></param>    ← Int
//	  </params>
//	</methodCall>
package message

import "encoding/xml"

// MethodCall carries the data for a single request.
type MethodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []Param  `xml:"params>param"`
}

// NewMethodCall builds a call with params in the given order.
func NewMethodCall(method string, params ...Param) *MethodCall {
	return &MethodCall{MethodName: method, Params: params}
}

// MethodResponse is the response document. Every level that the decoder has to
// navigate is a pointer or slice so a missing node can be told apart from an
// empty one.
type MethodResponse struct {
	XMLName xml.Name        `xml:"methodResponse"`
	Params  []ResponseParam `xml:"params>param"`
	Fault   *Fault          `xml:"fault,omitempty"`
}

// ResponseParam is a single <param> of a response.
type ResponseParam struct {
	Value *Value `xml:"value"`
}

// Fault is the standard XML-RPC fault element. The control plane itself never
// sends one, but HTTP proxies in front of it may.
type Fault struct {
	Value *Value `xml:"value"`
}
