package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Version is set at build time using: -ldflags "-X main.Version=v1.2.3"
var Version = "dev"

const usage = `Usage: stubinfer <command> [flags] [args]

Commands:
  check [-v] [--dump] [--module name] [--config file] file.py
        infer the module and print its bindings and diagnostics
  expr [-v] [--config file] 'expression'
        infer a single expression in an empty module
  repl [--config file]
        interactive session over one module frame
  bundle [-o stubs.db] [--check] dir...
        pack .pyi stub trees into a SQLite bundle
  version
        print the version
`

// cli carries the output streams of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	c := &cli{
		stdout: os.Stdout,
		stderr: os.Stderr,
		color:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
	os.Exit(c.run(os.Args[1:]))
}

// run dispatches a subcommand and returns the process exit code.
func (c *cli) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return 2
	}
	switch args[0] {
	case "check":
		return c.cmdCheck(args[1:])
	case "expr":
		return c.cmdExpr(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "bundle":
		return c.cmdBundle(args[1:])
	case "version", "-version", "--version":
		fmt.Fprintf(c.stdout, "stubinfer %s\n", Version)
		return 0
	case "help", "-help", "--help", "-h":
		fmt.Fprint(c.stdout, usage)
		return 0
	}
	fmt.Fprintf(c.stderr, "unknown command %q\n\n%s", args[0], usage)
	return 2
}
