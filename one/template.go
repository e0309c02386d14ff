package one

import (
	"context"

	"one-rpc/message"
)

// InstantiateOptions are the optional one.template.instantiate arguments.
type InstantiateOptions struct {
	Hold          bool   // create the VM on hold
	ExtraTemplate string // merged into the template, "" for none
	Persistent    bool   // persistent copy of the template
}

// InstantiateTemplate creates a VM from template id and returns the new VM id.
func (c *Client) InstantiateTemplate(ctx context.Context, cred string, id int, name string, opts InstantiateOptions) (int, error) {
	const op = "InstantiateTemplate"
	if err := checkCred(op, cred); err != nil {
		return 0, err
	}
	if err := checkID(op, "template id", id); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, invalid(op, "vm name", "empty")
	}

	return c.callInt(ctx, MethodTemplateInstantiate, cred,
		message.Int(int64(id)),
		message.Str(name),
		message.Bool(opts.Hold),
		message.Str(opts.ExtraTemplate),
		message.Bool(opts.Persistent))
}

// TemplatePoolInfo lists the templates visible under filter (one of the
// Filter constants, or a user id). The whole pool is returned.
func (c *Client) TemplatePoolInfo(ctx context.Context, cred string, filter int) (*TemplatePool, error) {
	if err := checkCred("TemplatePoolInfo", cred); err != nil {
		return nil, err
	}

	var pool TemplatePool
	_, err := c.callDoc(ctx, MethodTemplatePoolInfo, cred, &pool,
		message.Int(int64(filter)),
		message.Int(NoFilter),
		message.Int(NoFilter))
	if err != nil {
		return nil, err
	}
	return &pool, nil
}
