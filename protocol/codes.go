package protocol

// Error codes the control plane sends as the third array entry of a failed
// response.
const (
	CodeSuccess        int64 = 0x0000
	CodeAuthentication int64 = 0x0100
	CodeAuthorization  int64 = 0x0200
	CodeNoExists       int64 = 0x0400
	CodeAction         int64 = 0x0800
	CodeXMLRPCAPI      int64 = 0x1000
	CodeInternal       int64 = 0x2000
)

// Standard fault codes for calls that never reach a method.
const (
	FaultParse          int64 = -32700
	FaultMethodNotFound int64 = -32601
)
