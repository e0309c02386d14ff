package server

import (
	"fmt"

	"one-rpc/message"
	"one-rpc/protocol"
)

// The helpers below read positional params and fail the way the control
// plane does when a client sends the wrong shape.

func StringParam(call *message.MethodCall, i int) (string, error) {
	p, err := param(call, i, message.KindString)
	return p.Str, err
}

func IntParam(call *message.MethodCall, i int) (int64, error) {
	p, err := param(call, i, message.KindInt)
	return p.Int, err
}

func BoolParam(call *message.MethodCall, i int) (bool, error) {
	p, err := param(call, i, message.KindBool)
	return p.Bool, err
}

// CheckArity fails unless the call has exactly n params.
func CheckArity(call *message.MethodCall, n int) error {
	if len(call.Params) != n {
		return &protocol.ProtocolError{
			Message: fmt.Sprintf("[%s] Wrong number of parameters: want %d, got %d", call.MethodName, n, len(call.Params)),
			Code:    protocol.CodeXMLRPCAPI,
		}
	}
	return nil
}

func param(call *message.MethodCall, i int, kind message.ParamKind) (message.Param, error) {
	if i >= len(call.Params) {
		return message.Param{}, &protocol.ProtocolError{
			Message: fmt.Sprintf("[%s] Missing parameter %d", call.MethodName, i),
			Code:    protocol.CodeXMLRPCAPI,
		}
	}
	p := call.Params[i]
	if p.Kind != kind {
		return message.Param{}, &protocol.ProtocolError{
			Message: fmt.Sprintf("[%s] Parameter %d: want %s, got %s", call.MethodName, i, kind, p.Kind),
			Code:    protocol.CodeXMLRPCAPI,
		}
	}
	return p, nil
}
