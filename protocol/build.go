package protocol

import (
	"errors"

	"one-rpc/codec"
	"one-rpc/message"
)

// BuildSuccess encodes a successful response carrying p. The trailing zero
// error code matches what the control plane sends.
func BuildSuccess(p Payload) ([]byte, error) {
	var v *message.Value
	switch p.kind {
	case KindString:
		v = message.StringValue(p.str)
	case KindInt:
		v = message.IntValue(p.num)
	default:
		return nil, errors.New("protocol: cannot encode empty payload")
	}
	return encode(message.ArrayValue(message.BoolValue(true), v, message.IntValue(0)))
}

// BuildFailure encodes a failed response with the given message and code.
func BuildFailure(msg string, code int64) ([]byte, error) {
	return encode(message.ArrayValue(message.BoolValue(false), message.StringValue(msg), message.IntValue(code)))
}

func encode(v *message.Value) ([]byte, error) {
	return codec.GetCodec("").Encode(&message.MethodResponse{
		Params: []message.ResponseParam{{Value: v}},
	})
}

// BuildFault encodes a standard XML-RPC fault, as sent for unknown methods
// or unparseable calls.
func BuildFault(code int64, msg string) ([]byte, error) {
	return codec.GetCodec("").Encode(&message.MethodResponse{
		Fault: &message.Fault{Value: &message.Value{Struct: &message.Struct{Members: []message.Member{
			{Name: "faultCode", Value: message.IntValue(code)},
			{Name: "faultString", Value: message.StringValue(msg)},
		}}}},
	})
}
