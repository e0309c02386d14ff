// Package one is the typed facade over the control plane's XML-RPC API.
//
// Each operation fixes the remote method name, the parameter order and
// types, the "-1 means no filter" sentinels and the payload kind it expects.
// Arguments are checked before anything is sent. Document payloads are
// decoded a second time into the models in this package; that second pass is
// never attempted when the remote reported failure.
package one

import (
	"context"
	"strings"

	"one-rpc/message"
	"one-rpc/protocol"
)

// Remote method names.
const (
	MethodUserLogin           = "one.user.login"
	MethodUserInfo            = "one.user.info"
	MethodUserUpdate          = "one.user.update"
	MethodTemplateInstantiate = "one.template.instantiate"
	MethodTemplatePoolInfo    = "one.templatepool.info"
	MethodVMPoolInfo          = "one.vmpool.info"
	MethodVMInfo              = "one.vm.info"
)

// Sentinels understood by the control plane.
const (
	Self      = -1 // user id of the caller
	NoFilter  = -1 // pool filters, page bounds and state filters
	NoTTL     = -1 // login token without expiry override
	NoGroup   = -1 // login token not bound to a group
	NewToken  = "" // ask one.user.login to create a token
	AnyState  = -1 // vmpool: any state except DONE
	AllStates = -2 // vmpool: any state including DONE
)

// Pool ownership filters for the first pool.info argument.
const (
	FilterMineAndGroup = -1
	FilterAll          = -2
	FilterMine         = -3
	FilterGroup        = -4
)

// Update modes for one.user.update.
const (
	UpdateReplace = 0
	UpdateMerge   = 1
)

// Caller performs one remote call. *client.Client implements it.
type Caller interface {
	Call(ctx context.Context, method string, params ...message.Param) (protocol.Payload, error)
}

// Client is safe for concurrent use if its Caller is.
type Client struct {
	caller Caller
}

func New(caller Caller) *Client {
	return &Client{caller: caller}
}

// Credential builds the "<username>:<secret>" pair sent as first param. The
// secret is a password or a login token.
func Credential(username, secret string) string {
	return username + ":" + secret
}

// Username returns the username part of a credential.
func Username(cred string) string {
	user, _, _ := strings.Cut(cred, ":")
	return user
}

func (c *Client) call(ctx context.Context, method, cred string, params ...message.Param) (protocol.Payload, error) {
	return c.caller.Call(ctx, method, append([]message.Param{message.Str(cred)}, params...)...)
}

// callInt runs a call whose success payload is an integer id.
func (c *Client) callInt(ctx context.Context, method, cred string, params ...message.Param) (int, error) {
	p, err := c.call(ctx, method, cred, params...)
	if err != nil {
		return 0, err
	}
	n, err := p.AsInt()
	if err != nil {
		return 0, protocol.WithMethod(err, method)
	}
	return int(n), nil
}

// callDoc runs a call whose success payload is an XML document and decodes it
// into v. The generic tree is returned alongside.
func (c *Client) callDoc(ctx context.Context, method, cred string, v any, params ...message.Param) (*protocol.Node, error) {
	p, err := c.call(ctx, method, cred, params...)
	if err != nil {
		return nil, err
	}
	doc, err := p.Document()
	if err != nil {
		return nil, protocol.WithMethod(err, method)
	}
	if v != nil {
		if err := p.Unmarshal(v); err != nil {
			return nil, protocol.WithMethod(err, method)
		}
	}
	return doc, nil
}
