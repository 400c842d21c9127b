package main

import (
	"flag"
	"fmt"

	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/utils"
)

func (c *cli) cmdBundle(args []string) int {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	out := fs.String("o", "stubs.db", "bundle file to write")
	check := fs.Bool("check", false, "parse and resolve every stub of the written bundle")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(c.stderr, "bundle: expected at least one stub directory")
		return 2
	}
	n, err := stubs.WriteBundle(*out, fs.Args()...)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "wrote %d stubs to %s\n", n, *out)
	if !*check {
		return 0
	}
	return c.checkBundle(*out)
}

// checkBundle parses every stub of the bundle at file and resolves its
// module through a bundle provider, reporting what fails.
func (c *cli) checkBundle(file string) int {
	b, err := stubs.OpenBundle(file)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return 1
	}
	defer b.Close()
	paths, err := b.Paths()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", err)
		return 1
	}
	p := stubs.NewBundleProvider(b, nil)
	failed := 0
	for _, path := range paths {
		src, err := b.ReadFile(path)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %s\n", err)
			return 1
		}
		if _, errs := parser.ParseFile(path, string(src)); len(errs) > 0 {
			failed++
			c.printErrors(errs)
			continue
		}
		name, err := utils.DottedModuleName(".", path)
		if err != nil {
			continue
		}
		if _, err := p.Resolve(name); err != nil {
			failed++
			c.printErrors([]*diagnostics.DiagnosticError{asDiagnostic(err)})
		}
	}
	if failed > 0 {
		fmt.Fprintf(c.stderr, "%d of %d stubs failed\n", failed, len(paths))
		return 1
	}
	return 0
}
