package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/funvibe/stubinfer/internal/analyzer"
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/symbols"
)

const (
	historyFile = ".stubinfer_history"
	promptMain  = ">>> "
	promptCont  = "... "
	replFile    = "<repl>"
)

func (c *cli) cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cfgPath := fs.String("config", "", "path to stubinfer.yaml (default: searched upwards)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	p, err := loadProject(*cfgPath, ".")
	if err != nil {
		c.printErrors([]*diagnostics.DiagnosticError{configError(err)})
		return 1
	}
	s, closeSession, err := c.newSession(p, false, config.MainModule, replFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return 1
	}
	defer closeSession()

	fmt.Fprintf(c.stdout, "stubinfer %s. Enter statements; :names lists bindings, :quit exits.\n", Version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	r := &repl{cli: c, s: s, scope: s.NewModuleScope(nil)}
	for {
		src, ok := readEntry(ln)
		if !ok {
			fmt.Fprintln(c.stdout)
			return 0
		}
		switch strings.TrimSpace(src) {
		case "":
			continue
		case ":quit":
			return 0
		case ":names":
			c.printBindings(r.scope)
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		r.eval(src)
	}
}

// readEntry reads one entry: a single line, or a compound statement whose
// header ends in ':' continued until an empty line.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			if strings.TrimSpace(line) == "" {
				return b.String(), true
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if b.Len() == len(line) && !strings.HasSuffix(strings.TrimSpace(line), ":") {
			return b.String(), true
		}
	}
}

// repl keeps one module frame alive across entries.
type repl struct {
	*cli
	s     *analyzer.Session
	scope *symbols.Scope
}

// eval executes one entry in the module frame. A lone expression prints
// its type.
func (r *repl) eval(src string) {
	mod, perrs := parser.ParseFile(replFile, src+"\n")
	if len(perrs) > 0 {
		r.printErrors(perrs)
		return
	}
	r.s.ResetErrors()
	r.s.Exec(r.scope, mod.Body)
	r.printErrors(r.s.Errors())
	if len(mod.Body) != 1 {
		return
	}
	if st, ok := mod.Body[0].(*ast.ExprStmt); ok {
		if t, ok := r.s.TypeOf(st.Value); ok {
			fmt.Fprintln(r.stdout, t)
		}
	}
}
