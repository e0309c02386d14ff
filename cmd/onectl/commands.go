package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"one-rpc/one"
	"one-rpc/protocol"
	"one-rpc/sshkey"
)

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {}
	return fs
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, usagef("%s must be a non-negative integer, got %q", what, s)
	}
	return id, nil
}

func (e *env) credential() (string, error) {
	cred, err := e.cfg.Credential()
	if err != nil {
		return "", usagef("%v", err)
	}
	return cred, nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return usagef("login takes no arguments")
	}
	if e.cfg.User == "" {
		return usagef("login needs --user")
	}
	s, err := e.api.Login(ctx, e.cfg.User, e.cfg.Secret)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "user:  %s (id %d)\ntoken: %s\n", s.Username, s.UserID, s.Token)
	return nil
}

func cmdUser(ctx context.Context, e *env, args []string) error {
	id := one.Self
	switch len(args) {
	case 0:
	case 1:
		var err error
		if id, err = parseID(args[0], "user id"); err != nil {
			return err
		}
	default:
		return usagef("user takes at most one id")
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	u, err := e.api.UserInfo(ctx, cred, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, renderUser(u))
	return nil
}

func cmdSSHKey(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return usagef("ssh-key needs get or set")
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	switch args[0] {
	case "get":
		key, err := e.api.SSHKey(ctx, cred)
		if err != nil {
			return err
		}
		if key == "" {
			fmt.Fprintln(e.out, "(no key set)")
			return nil
		}
		fmt.Fprintln(e.out, key)
		return nil
	case "set":
		if len(args) < 2 {
			return usagef("ssh-key set needs a key")
		}
		k, err := sshkey.Validate(strings.Join(args[1:], " "))
		if err != nil {
			return usagef("%v", err)
		}
		if err := e.api.UpdateSSHKey(ctx, cred, k.String()); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "stored %s key %s\n", k.Type(), k.Fingerprint())
		return nil
	default:
		return usagef("ssh-key: unknown action %q", args[0])
	}
}

func cmdTemplates(ctx context.Context, e *env, args []string) error {
	fs := newFlags("templates")
	all := fs.Bool("all", false, "include templates of every user")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	filter := one.FilterMineAndGroup
	if *all {
		filter = one.FilterAll
	}
	pool, err := e.api.TemplatePoolInfo(ctx, cred, filter)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, renderTemplates(pool))
	return nil
}

func cmdVMs(ctx context.Context, e *env, args []string) error {
	fs := newFlags("vms")
	state := fs.Int("state", one.AnyState, "only VMs in this state number (-2 includes DONE)")
	all := fs.Bool("all", false, "include VMs of every user")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	filter := one.FilterMineAndGroup
	if *all {
		filter = one.FilterAll
	}
	pool, err := e.api.VMPoolInfo(ctx, cred, filter, *state)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, renderVMs(pool))
	return nil
}

func cmdVM(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usagef("vm needs exactly one id")
	}
	id, err := parseID(args[0], "vm id")
	if err != nil {
		return err
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	vm, err := e.api.VMInfo(ctx, cred, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, renderVM(vm))
	return nil
}

func cmdInstantiate(ctx context.Context, e *env, args []string) error {
	fs := newFlags("instantiate")
	hold := fs.Bool("hold", false, "create the VM on hold")
	persistent := fs.Bool("persistent", false, "make a persistent copy of the template")
	extra := fs.String("extra", "", "extra template merged into the VM")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if fs.NArg() != 2 {
		return usagef("instantiate needs <template-id> <name>")
	}
	id, err := parseID(fs.Arg(0), "template id")
	if err != nil {
		return err
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	vmID, err := e.api.InstantiateTemplate(ctx, cred, id, fs.Arg(1), one.InstantiateOptions{
		Hold:          *hold,
		ExtraTemplate: *extra,
		Persistent:    *persistent,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created vm %d\n", vmID)
	return nil
}

func cmdInfo(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return usagef("info needs <method> <id>")
	}
	id, err := parseID(args[1], "object id")
	if err != nil {
		return err
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}
	doc, err := e.api.ObjectInfo(ctx, cred, args[0], id)
	if err != nil {
		return err
	}
	writeTree(e.out, doc, 0)
	return nil
}

// cmdSummary fetches the caller, their VMs and the templates in parallel.
func cmdSummary(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return usagef("summary takes no arguments")
	}
	cred, err := e.credential()
	if err != nil {
		return err
	}

	var (
		user      *one.User
		vms       *one.VMPool
		templates *one.TemplatePool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = e.api.UserInfo(gctx, cred, one.Self)
		return err
	})
	g.Go(func() (err error) {
		vms, err = e.api.VMPoolInfo(gctx, cred, one.FilterMineAndGroup, one.AnyState)
		return err
	})
	g.Go(func() (err error) {
		templates, err = e.api.TemplatePoolInfo(gctx, cred, one.FilterMineAndGroup)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(e.out, renderUser(user))
	fmt.Fprintln(e.out, renderVMs(vms))
	fmt.Fprintln(e.out, renderTemplates(templates))
	return nil
}

func writeTree(w io.Writer, n *protocol.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if len(n.Children) == 0 {
		fmt.Fprintf(w, "%s%s: %s\n", indent, n.Name, n.Text)
		return
	}
	fmt.Fprintf(w, "%s%s\n", indent, n.Name)
	for _, c := range n.Children {
		writeTree(w, c, depth+1)
	}
}
