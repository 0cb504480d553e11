// Package cli implements the rcore command: run a file, evaluate -e expressions,
// start a REPL or serve evaluations over gRPC.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/remote"
	"github.com/funvibe/rcore/internal/session"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitInternal = 2
)

// IO bundles the streams and environment a run works with.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	// Interactive forces prompts on or off; nil means detect a terminal on stdin.
	Interactive *bool
}

// Run executes the command line args (without the program name) and returns the
// process exit code.
func Run(args []string, stdio IO) (code int) {
	if stdio.Getenv == nil {
		stdio.Getenv = os.Getenv
	}
	defer func() {
		if r := recover(); r != nil {
			if stdio.Getenv("RCORE_PANIC") == "1" {
				panic(r)
			}
			fmt.Fprintf(stdio.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(stdio.Stderr, "This is a bug. Please report it.")
			code = ExitInternal
		}
	}()

	if len(args) == 1 {
		switch args[0] {
		case "-v", "-version", "--version", "version":
			fmt.Fprintln(stdio.Stdout, "rcore "+config.Version)
			return ExitOK
		case "-h", "-help", "--help", "help":
			printUsage(stdio.Stdout)
			return ExitOK
		}
	}
	if len(args) > 0 && args[0] == "serve" {
		return runServe(args[1:], stdio)
	}

	fs := flag.NewFlagSet("rcore", flag.ContinueOnError)
	fs.SetOutput(stdio.Stderr)
	var exprs multiFlag
	fs.Var(&exprs, "e", "evaluate `expr` (repeatable)")
	configPath := fs.String("config", "", "YAML configuration `file`")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitError
	}

	ctx, err := newContext(*configPath, stdio)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	defer func() {
		if err := ctx.Destroy(); err != nil {
			fmt.Fprintf(stdio.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	switch {
	case len(exprs) > 0:
		return runSource(ctx, strings.Join(exprs, "\n"), "", stdio.Stderr)
	case fs.NArg() > 0:
		path := fs.Arg(0)
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "Error: cannot open file '%s': %v\n", path, err)
			return ExitError
		}
		abs, _ := filepath.Abs(path)
		return runSource(ctx, string(source), abs, stdio.Stderr)
	}

	if interactive(stdio) {
		return runREPL(ctx, stdio, true)
	}
	source, err := io.ReadAll(stdio.Stdin)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "Error reading input: %v\n", err)
		return ExitError
	}
	return runSource(ctx, string(source), "", stdio.Stderr)
}

// Main runs the command with the process streams and exits.
func Main() {
	os.Exit(Run(os.Args[1:], IO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  rcore [-config file] <file%s>     run a script
  rcore [-config file] -e <expr>      evaluate an expression
  rcore [-config file]                start a REPL (or read a script from stdin)
  rcore serve [-addr host:port]       serve evaluations over gRPC
  rcore -v | --version                print the version

Environment: %s, %s, %s, %s, %s, %s
`, config.SourceFileExt, config.EnvConfig, config.EnvDebugCompleteness, config.EnvInstrument,
		config.EnvProfile, config.EnvWarn, config.EnvLogLevel)
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, "; ") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func interactive(stdio IO) bool {
	if stdio.Interactive != nil {
		return *stdio.Interactive
	}
	f, ok := stdio.Stdin.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func loadOptions(configPath string, getenv func(string) string) (*config.Options, error) {
	if configPath == "" {
		return config.FromEnv(getenv)
	}
	return config.FromEnv(func(name string) string {
		if name == config.EnvConfig {
			return configPath
		}
		return getenv(name)
	})
}

func newContext(configPath string, stdio IO) (*session.Context, error) {
	opts, err := loadOptions(configPath, stdio.Getenv)
	if err != nil {
		return nil, err
	}
	return session.New(session.Settings{Options: opts, Out: stdio.Stdout, ErrOut: stdio.Stderr})
}

// runSource evaluates a whole script, printing visible values, and maps the outcome
// to an exit code.
func runSource(ctx *session.Context, source, file string, stderr io.Writer) int {
	if _, err := ctx.Run(source, file); err != nil {
		reportError(stderr, err)
		return exitCode(err)
	}
	return ExitOK
}

func reportError(w io.Writer, err error) {
	var ie *diagnostics.InternalError
	if errors.As(err, &ie) {
		fmt.Fprintf(w, "Internal error: %s\n", ie.Message)
		return
	}
	fmt.Fprintln(w, err.Error())
}

func exitCode(err error) int {
	var de *diagnostics.Error
	if errors.As(err, &de) {
		return ExitError
	}
	var ie *diagnostics.InternalError
	if errors.As(err, &ie) {
		return ExitInternal
	}
	return ExitError
}

func runServe(args []string, stdio IO) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stdio.Stderr)
	addr := fs.String("addr", config.DefaultGRPCAddr, "listen `address`")
	configPath := fs.String("config", "", "YAML configuration `file`")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitError
	}

	ctx, err := newContext(*configPath, stdio)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	defer func() { _ = ctx.Destroy() }()

	srv := remote.NewServer(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		if _, ok := <-sigs; ok {
			srv.Stop()
		}
	}()

	fmt.Fprintf(stdio.Stderr, "rcore %s serving on %s\n", config.Version, *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Fprintf(stdio.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitOK
}
