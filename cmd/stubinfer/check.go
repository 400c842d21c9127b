package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/funvibe/stubinfer/internal/analyzer"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/lexer"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/pipeline"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/token"
	"github.com/funvibe/stubinfer/internal/typesystem"
	"github.com/funvibe/stubinfer/internal/utils"
)

const (
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

var dumpConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

func (c *cli) cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	verbose := fs.Bool("v", false, "log stub loads and overload decisions to stderr")
	dump := fs.Bool("dump", false, "dump the inferred types of the module bindings")
	module := fs.String("module", "", "module name used to resolve relative imports")
	cfgPath := fs.String("config", "", "path to stubinfer.yaml (default: searched upwards)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "check: expected exactly one file")
		return 2
	}
	file := fs.Arg(0)
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading file: %s\n", err)
		return 1
	}

	p, err := loadProject(*cfgPath, filepath.Dir(file))
	if err != nil {
		c.printErrors([]*diagnostics.DiagnosticError{configError(err)})
		return 1
	}
	name := *module
	if name == "" {
		name = moduleNameFor(p, file)
	}
	s, closeSession, err := c.newSession(p, *verbose, name, file)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return 1
	}
	defer closeSession()

	ctx := pipeline.NewPipelineContext(string(src))
	ctx.FilePath = file
	ctx.ModuleName = name
	out := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&analyzer.SemanticAnalyzerProcessor{Session: s},
	).Run(ctx)

	if out.Scope != nil {
		c.printBindings(out.Scope)
		if *dump {
			dumpConfig.Fdump(c.stdout, bindings(out.Scope))
		}
	}
	if *verbose {
		hits, misses := s.CacheStats()
		s.Logger().Printf("stub cache: %d hits, %d misses", hits, misses)
	}
	c.printErrors(out.Errors)
	if out.HasErrors() {
		return 1
	}
	return 0
}

func (c *cli) cmdExpr(args []string) int {
	fs := flag.NewFlagSet("expr", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	verbose := fs.Bool("v", false, "log stub loads and overload decisions to stderr")
	cfgPath := fs.String("config", "", "path to stubinfer.yaml (default: searched upwards)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(c.stderr, "expr: expected an expression")
		return 2
	}
	p, err := loadProject(*cfgPath, ".")
	if err != nil {
		c.printErrors([]*diagnostics.DiagnosticError{configError(err)})
		return 1
	}
	s, closeSession, err := c.newSession(p, *verbose, config.MainModule, "")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return 1
	}
	defer closeSession()

	e, perrs := parser.ParseExpression(strings.Join(fs.Args(), " "))
	if len(perrs) > 0 {
		c.printErrors(perrs)
		return 1
	}
	t, err := s.InferExpr(e, nil)
	if err != nil {
		c.printErrors([]*diagnostics.DiagnosticError{asDiagnostic(err)})
		return 1
	}
	fmt.Fprintln(c.stdout, t)
	return 0
}

// loadProject reads the configuration at path, or the nearest one above
// dir, falling back to the defaults when there is none.
func loadProject(path, dir string) (*config.Project, error) {
	if path == "" {
		found, err := config.FindConfig(dir)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return config.Default(), nil
		}
		path = found
	}
	return config.LoadConfig(path)
}

// moduleNameFor names file by its location below the project directory,
// or by its base name outside a project.
func moduleNameFor(p *config.Project, file string) string {
	if p.Dir() != "" {
		root, rerr := filepath.Abs(p.Dir())
		abs, ferr := filepath.Abs(file)
		if rerr == nil && ferr == nil {
			if name, err := utils.DottedModuleName(root, abs); err == nil {
				return name
			}
		}
	}
	return utils.ExtractModuleName(file)
}

func (c *cli) newSession(p *config.Project, verbose bool, module, file string) (*analyzer.Session, func(), error) {
	var logger *log.Logger
	if verbose || p.Verbose {
		logger = log.New(c.stderr, "", log.Ltime)
	}
	s, closeAll, err := analyzer.NewSessionFromProject(p, logger, module, file)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := closeAll(); err != nil {
			fmt.Fprintf(c.stderr, "Error closing bundles: %s\n", err)
		}
	}, nil
}

func bindings(scope *symbols.Scope) map[string]typesystem.Type {
	out := make(map[string]typesystem.Type)
	for _, name := range scope.Bindings() {
		t, _ := scope.Lookup(name)
		out[name] = t
	}
	return out
}

func (c *cli) printBindings(scope *symbols.Scope) {
	for _, name := range scope.Bindings() {
		t, _ := scope.Lookup(name)
		fmt.Fprintf(c.stdout, "%s: %s\n", c.paint(ansiCyan, name), t)
	}
}

func (c *cli) printErrors(errs []*diagnostics.DiagnosticError) {
	for _, err := range errs {
		fmt.Fprintln(c.stderr, c.paint(ansiRed, err.Error()))
	}
}

func (c *cli) paint(color, s string) string {
	if !c.color {
		return s
	}
	return color + s + ansiReset
}

func asDiagnostic(err error) *diagnostics.DiagnosticError {
	var de *diagnostics.DiagnosticError
	if errors.As(err, &de) {
		return de
	}
	return diagnostics.Wrap(diagnostics.ErrI009, token.Token{}, err, err.Error())
}

func configError(err error) *diagnostics.DiagnosticError {
	return diagnostics.Wrap(diagnostics.ErrC001, token.Token{}, err, err.Error())
}
