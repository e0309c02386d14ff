// Package protocol implements the boolean-convention response protocol of the
// control plane.
//
// Every call answers with a method response whose first param is a two (or
// more) element array: a success flag followed by a payload.
//
//	methodResponse
//	└── params/param[0]/value
//	    └── array/data
//	        ├── value[0]  <boolean>1|0</boolean>        success flag
//	        ├── value[1]  <string>…</string> | <int>…</int>
//	        └── value[2]  <int>code</int>               optional
//
// On success value[1] is the payload: an integer id for create calls, or an
// XML document encoded as a string for info calls. On failure value[1] is the
// error message.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"one-rpc/codec"
	"one-rpc/message"
)

// Decode parses a raw response and applies the success flag.
func Decode(raw []byte) (Payload, error) {
	// Step 1: Strict parse into the typed intermediate representation
	var resp message.MethodResponse
	if err := codec.GetCodec("").Decode(raw, &resp); err != nil {
		return Payload{}, malformed("parse response document", err)
	}
	return DecodeResponse(&resp)
}

// DecodeResponse applies the success flag to an already parsed response.
func DecodeResponse(resp *message.MethodResponse) (Payload, error) {
	// Step 2: Standard XML-RPC faults from intermediaries
	if resp.Fault != nil {
		return Payload{}, decodeFault(resp.Fault)
	}

	// Step 3: Navigate params → param[0] → value → array → data
	if len(resp.Params) == 0 {
		return Payload{}, malformed("missing params/param", nil)
	}
	v := resp.Params[0].Value
	if v == nil {
		return Payload{}, malformed("missing param value", nil)
	}
	if v.Array == nil {
		return Payload{}, malformed("missing value/array", nil)
	}
	if v.Array.Data == nil {
		return Payload{}, malformed("missing array/data", nil)
	}
	values := v.Array.Data.Values
	if len(values) < 2 {
		return Payload{}, malformed(fmt.Sprintf("want at least 2 array values, got %d", len(values)), nil)
	}

	// Step 4: The flag is "0"/"1" on the wire, a bool from here on
	if values[0] == nil || values[0].Boolean == nil {
		return Payload{}, malformed("array value 0 is not a boolean", nil)
	}
	ok, err := message.ParseBool(*values[0].Boolean)
	if err != nil {
		return Payload{}, malformed("success flag", err)
	}

	// Step 5: Failure carries the remote message verbatim
	if !ok {
		msg, isString := scalarString(values[1])
		if !isString {
			return Payload{}, malformed("error message is not a string", nil)
		}
		pe := &ProtocolError{Message: msg}
		if len(values) > 2 {
			if code, isInt := scalarInt(values[2]); isInt {
				pe.Code = code
			}
		}
		return Payload{}, pe
	}

	// Step 6: Success payload, typed by what the wire says
	return payloadOf(values[1])
}

func payloadOf(v *message.Value) (Payload, error) {
	if v == nil {
		return Payload{}, malformed("missing payload value", nil)
	}
	if s, ok := scalarString(v); ok {
		return StringPayload(s), nil
	}
	raw := firstOf(v.Int, v.I4, v.I8)
	if raw == nil {
		return Payload{}, malformed("unsupported payload type", nil)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
	if err != nil {
		return Payload{}, malformed("integer payload", err)
	}
	return IntPayload(n), nil
}

// scalarString accepts <string> and untagged values.
func scalarString(v *message.Value) (string, bool) {
	if v == nil {
		return "", false
	}
	if v.String != nil {
		return *v.String, true
	}
	if !v.Typed() {
		return v.Text, true
	}
	return "", false
}

func scalarInt(v *message.Value) (int64, bool) {
	if v == nil {
		return 0, false
	}
	raw := firstOf(v.Int, v.I4, v.I8)
	if raw == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstOf(ptrs ...*string) *string {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

func decodeFault(f *message.Fault) error {
	if f.Value == nil || f.Value.Struct == nil {
		return malformed("fault without struct", nil)
	}
	msg, ok := scalarString(f.Value.Struct.Member("faultString"))
	if !ok {
		return malformed("fault without faultString", nil)
	}
	code, _ := scalarInt(f.Value.Struct.Member("faultCode"))
	return &ProtocolError{Message: msg, Code: code}
}
