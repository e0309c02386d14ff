package one

import (
	"context"
	"strings"

	"one-rpc/message"
	"one-rpc/protocol"
)

// VMPoolInfo lists VMs visible under filter in the given state (AnyState,
// AllStates or a VMState).
func (c *Client) VMPoolInfo(ctx context.Context, cred string, filter, state int) (*VMPool, error) {
	if err := checkCred("VMPoolInfo", cred); err != nil {
		return nil, err
	}

	var pool VMPool
	_, err := c.callDoc(ctx, MethodVMPoolInfo, cred, &pool,
		message.Int(int64(filter)),
		message.Int(NoFilter),
		message.Int(NoFilter),
		message.Int(int64(state)))
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func (c *Client) VMInfo(ctx context.Context, cred string, id int) (*VM, error) {
	const op = "VMInfo"
	if err := checkCred(op, cred); err != nil {
		return nil, err
	}
	if err := checkID(op, "vm id", id); err != nil {
		return nil, err
	}

	var vm VM
	doc, err := c.callDoc(ctx, MethodVMInfo, cred, &vm, message.Int(int64(id)))
	if err != nil {
		return nil, err
	}
	vm.Doc = doc
	return &vm, nil
}

// ObjectInfo calls any "<object>.info" method and returns the generic tree,
// for objects without a model here (e.g. one.image.info).
func (c *Client) ObjectInfo(ctx context.Context, cred, method string, id int) (*protocol.Node, error) {
	const op = "ObjectInfo"
	if err := checkCred(op, cred); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(method, "one.") || !strings.HasSuffix(method, ".info") {
		return nil, invalid(op, "method", method+` is not a "one.<object>.info" method`)
	}
	if err := checkID(op, "object id", id); err != nil {
		return nil, err
	}
	return c.callDoc(ctx, method, cred, nil, message.Int(int64(id)))
}
