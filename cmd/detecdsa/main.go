// Command detecdsa signs and verifies messages with deterministic ECDSA.
//
// Usage:
//
//	detecdsa [global flags] <command> [flags]
//
// Commands: curves, keygen, sign, verify, audit, selftest, demo (default).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mahdiidarabi/ecdsa-deterministic/internal/config"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/logging"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// errInvalid marks a command that ran but reported a negative result, such
// as a signature that does not verify.
var errInvalid = errors.New("invalid")

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger logging.Logger
	engine *detecdsa.Engine
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"curves", "List the supported curves", runCurves},
	{"keygen", "Generate a key pair and write it to a key file", runKeygen},
	{"sign", "Sign a message with a key file", runSign},
	{"verify", "Verify a signature", runVerify},
	{"audit", "Scan a signature file for reused nonces", runAudit},
	{"selftest", "Check the signing properties on every curve", runSelftest},
	{"demo", "Interactive walkthrough (default)", runDemo},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("detecdsa", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath = fs.String("config", "", "Path to a JSON config file")
		o          config.Overrides
	)
	fs.StringVar(&o.Curve, "curve", "", "Default curve for commands that take -curve")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&o.LogFormat, "log-format", "", "Log format: text or json")
	fs.StringVar(&o.NonceHash, "nonce-hash", "", "Nonce HMAC hash: sha256 or curve")
	fs.IntVar(&o.MaxNonceAttempts, "max-nonce-attempts", 0, "Bound on nonce candidates per signature (0 = default)")
	fs.IntVar(&o.Workers, "workers", 0, "Default selftest worker count")
	fs.IntVar(&o.Rounds, "rounds", 0, "Default selftest keys per curve")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: detecdsa [global flags] <command> [flags]\n\nCommands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-9s %s\n", c.name, c.summary)
		}
		fmt.Fprintf(stderr, "\nGlobal flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := cfg.Apply(o); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	handler, err := logging.NewHandler(stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	logger := logging.New(slog.New(handler))

	engine, err := cfg.Engine(logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	a := &app{cfg: cfg, logger: logger, engine: engine, stdin: stdin, stdout: stdout, stderr: stderr}

	name, rest := "demo", fs.Args()
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(ctx, a, rest)
		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, flag.ErrHelp):
			return exitOK
		case errors.Is(err, errUsage):
			return exitUsage
		case errors.Is(err, errInvalid):
			return exitFailure
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	fmt.Fprintf(stderr, "Error: unknown command %q\n", name)
	fs.Usage()
	return exitUsage
}
