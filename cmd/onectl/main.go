// onectl talks to the control plane from a terminal.
//
// Usage:
//
//	onectl [global flags] <command> [command flags] [args]
//
// Commands: login, user, ssh-key get|set, templates, vms, vm, instantiate,
// info, summary. Connection settings come from the config file, ONE_RPC_*
// variables and the global flags, in that order.
//
// Exit codes: 1 the control plane refused the call, 2 transport failure,
// 3 malformed response, 64 bad arguments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"one-rpc/config"
	"one-rpc/one"
	"one-rpc/protocol"
)

const (
	exitOK        = 0
	exitProtocol  = 1
	exitTransport = 2
	exitMalformed = 3
	exitUsage     = 64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError is a local argument problem; it maps to exitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// env carries what every command needs.
type env struct {
	cfg    config.Config
	api    *one.Client
	logger *zap.Logger
	out    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("onectl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "YAML config file (default $ONE_RPC_CONFIG)")
	endpoint := flags.String("endpoint", "", "control plane XML-RPC endpoint")
	user := flags.StringP("user", "u", "", "username")
	secret := flags.StringP("secret", "p", "", "password or login token")
	timeout := flags.Duration("timeout", 0, "per-call HTTP timeout")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() == 0 {
		printUsage(stderr, flags)
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *user != "" {
		cfg.User = *user
	}
	if *secret != "" {
		cfg.Secret = *secret
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	logger, err := config.BuildLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()

	c, cleanup, err := newClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitTransport
	}
	defer cleanup()

	e := &env{cfg: cfg, api: one.New(c), logger: logger, out: stdout}
	err = dispatch(ctx, e, flags.Arg(0), flags.Args()[1:])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return exitCode(err)
}

func dispatch(ctx context.Context, e *env, cmd string, args []string) error {
	switch cmd {
	case "login":
		return cmdLogin(ctx, e, args)
	case "user":
		return cmdUser(ctx, e, args)
	case "ssh-key":
		return cmdSSHKey(ctx, e, args)
	case "templates":
		return cmdTemplates(ctx, e, args)
	case "vms":
		return cmdVMs(ctx, e, args)
	case "vm":
		return cmdVM(ctx, e, args)
	case "instantiate":
		return cmdInstantiate(ctx, e, args)
	case "info":
		return cmdInfo(ctx, e, args)
	case "summary":
		return cmdSummary(ctx, e, args)
	default:
		return usagef("unknown command %q", cmd)
	}
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.Is(err, one.ErrInvalidArgument):
		return exitUsage
	case protocol.IsProtocol(err):
		return exitProtocol
	case protocol.IsTransport(err):
		return exitTransport
	case protocol.IsMalformed(err):
		return exitMalformed
	default:
		return exitUsage
	}
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, `onectl: control plane client

Usage:
  onectl [global flags] <command> [args]

Commands:
  login                          sign in with --secret as password, print a login token
  user [id]                      show a user (default: yourself)
  ssh-key get                    print your SSH public key
  ssh-key set <key>              validate and store your SSH public key
  templates                      list VM templates
  vms [--state N] [--all]        list VMs
  vm <id>                        show one VM
  instantiate <tmpl-id> <name>   create a VM from a template
  info <method> <id>             dump any one.<object>.info document
  summary                        user, VMs and templates at once

Global flags:
%s`, flags.FlagUsages())
}
