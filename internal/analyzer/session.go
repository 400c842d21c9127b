package analyzer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/token"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// Options configures a Session.
type Options struct {
	// Logger receives stub, registry and overload traces. nil discards them.
	Logger *log.Logger
	// Providers are searched before the embedded builtin stubs.
	Providers []stubs.Provider
	// NoBuiltins leaves out the embedded stubs; a provider must then supply builtins and typing.
	NoBuiltins bool
	// StrictOverloads rejects keyword arguments to overloaded functions.
	StrictOverloads bool
	// MaxDepth bounds expression nesting. Zero means config.MaxRecursionDepth.
	MaxDepth int
	// ModuleName is the name of the analyzed module; File is used in diagnostics.
	ModuleName string
	File       string
}

// Session owns everything one analysis run needs: the stub cache, the class
// registry and lattice, and the memo tables of function and member inference.
// A Session is not safe for concurrent use.
type Session struct {
	ID       string
	Provider stubs.Provider
	Registry *typesystem.Registry
	Lattice  *typesystem.Lattice
	Builtins *symbols.Scope
	TypeMap  map[ast.Node]typesystem.Type

	Module   string
	File     string
	Strict   bool
	MaxDepth int

	logger *log.Logger
	cache  *stubs.Cache

	values    map[string]memberEntry
	funcs     map[*ast.FunctionDef]*funcInfo
	pending   []*ast.FunctionDef
	returns   map[*ast.FunctionDef]typesystem.Type
	inferring map[*ast.FunctionDef]bool
	instance  map[string]map[string]typesystem.Type

	errorSet map[string]*diagnostics.DiagnosticError
}

type memberEntry struct {
	t   typesystem.Type
	err error
}

// NewSession creates a session over the embedded stubs and opts.Providers.
func NewSession(opts Options) *Session {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	} else {
		logger = log.New(logger.Writer(), "["+id[:8]+"] ", logger.Flags())
	}

	chain := stubs.Chain(append([]stubs.Provider(nil), opts.Providers...))
	if !opts.NoBuiltins {
		chain = append(chain, stubs.NewSourceProvider(stubs.EmbeddedFS(), logger))
	}
	cache := stubs.NewCache(chain, logger)

	s := &Session{
		ID:        id,
		Provider:  cache,
		TypeMap:   make(map[ast.Node]typesystem.Type),
		Module:    opts.ModuleName,
		File:      opts.File,
		Strict:    opts.StrictOverloads,
		MaxDepth:  opts.MaxDepth,
		logger:    logger,
		cache:     cache,
		values:    make(map[string]memberEntry),
		funcs:     make(map[*ast.FunctionDef]*funcInfo),
		returns:   make(map[*ast.FunctionDef]typesystem.Type),
		inferring: make(map[*ast.FunctionDef]bool),
		instance:  make(map[string]map[string]typesystem.Type),
		errorSet:  make(map[string]*diagnostics.DiagnosticError),
	}
	if s.Module == "" {
		s.Module = config.MainModule
	}
	if s.MaxDepth <= 0 {
		s.MaxDepth = config.MaxRecursionDepth
	}
	s.Registry = typesystem.NewRegistry(s, logger)
	s.Lattice = typesystem.NewLattice(s.Registry)
	s.Lattice.ModuleMember = s.moduleMember
	s.Builtins = symbols.NewBuiltinScope(s.builtinNames(), func(name string) (typesystem.Type, error) {
		return s.moduleMember(config.BuiltinsModule, name)
	})
	logger.Printf("session %s: module %s, %d builtin names", id, s.Module, s.Builtins.Locals.Size())
	return s
}

// NewSessionFromProject opens the stub paths and bundles named by p.
// The returned close function releases the bundles.
func NewSessionFromProject(p *config.Project, logger *log.Logger, moduleName, file string) (*Session, func() error, error) {
	if logger == nil && p.Verbose {
		logger = log.New(os.Stderr, "", log.Ltime)
	}
	var providers []stubs.Provider
	var bundles []*stubs.Bundle
	closeAll := func() error {
		var errs []error
		for _, b := range bundles {
			errs = append(errs, b.Close())
		}
		return errors.Join(errs...)
	}
	for _, dir := range p.ResolvedStubPaths() {
		providers = append(providers, stubs.NewSourceProvider(os.DirFS(dir), logger))
	}
	for _, path := range p.ResolvedBundles() {
		b, err := stubs.OpenBundle(path)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		bundles = append(bundles, b)
		providers = append(providers, stubs.NewBundleProvider(b, logger))
	}
	s := NewSession(Options{
		Logger:          logger,
		Providers:       providers,
		NoBuiltins:      p.Builtins == config.BuiltinsNone,
		StrictOverloads: p.StrictOverloads,
		MaxDepth:        p.MaxDepth,
		ModuleName:      moduleName,
		File:            file,
	})
	return s, closeAll, nil
}

// Logger returns the session logger.
func (s *Session) Logger() *log.Logger {
	return s.logger
}

// CacheStats reports stub cache hits and misses.
func (s *Session) CacheStats() (hits, misses int) {
	return s.cache.Hits, s.cache.Misses
}

// builtinNames lists the public names the builtins stub declares itself.
// Names it only imports (Iterable, Any, ...) are not builtins.
func (s *Session) builtinNames() []string {
	d, err := s.Provider.Resolve(config.BuiltinsModule)
	if err != nil {
		s.logger.Printf("builtins: %v", err)
		return nil
	}
	mod, ok := d.(*stubs.ModuleDecl)
	if !ok {
		return nil
	}
	var names []string
	for _, n := range mod.Names {
		if strings.HasPrefix(n, "_") && !isDunder(n) {
			continue
		}
		m, err := s.Provider.Resolve(config.BuiltinsModule + "." + n)
		if err != nil {
			continue
		}
		if _, alias := m.(*stubs.AliasDecl); alias {
			continue
		}
		names = append(names, n)
	}
	return names
}

func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// addError records err against node, deduplicating by position and code.
func (s *Session) addError(err error, node ast.Node) {
	var tok token.Token
	if node != nil {
		tok = node.GetToken()
	}
	s.addErrorAt(err, tok)
}

func (s *Session) addErrorAt(err error, tok token.Token) {
	if err == nil {
		return
	}
	de := positionedAt(err, tok)
	if de.File == "" {
		cp := *de
		cp.File = s.File
		de = &cp
	}
	key := fmt.Sprintf("%d:%d:%s", de.Token.Line, de.Token.Column, de.Code)
	if _, ok := s.errorSet[key]; ok {
		return
	}
	s.errorSet[key] = de
}

// Errors returns all unique diagnostics, sorted by position.
func (s *Session) Errors() []*diagnostics.DiagnosticError {
	result := make([]*diagnostics.DiagnosticError, 0, len(s.errorSet))
	for _, err := range s.errorSet {
		result = append(result, err)
	}
	slices.SortFunc(result, func(x, y *diagnostics.DiagnosticError) int {
		a, b := x.Token, y.Token
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		if a.Column != b.Column {
			return a.Column - b.Column
		}
		return strings.Compare(string(x.Code), string(y.Code))
	})
	return result
}

// ResetErrors drops the collected diagnostics, e.g. between REPL lines.
func (s *Session) ResetErrors() {
	s.errorSet = make(map[string]*diagnostics.DiagnosticError)
}

// positioned returns err as a diagnostic carrying node's position. Errors
// shared through the stub cache are copied, never stamped in place.
func positioned(err error, node ast.Node) *diagnostics.DiagnosticError {
	var tok token.Token
	if node != nil {
		tok = node.GetToken()
	}
	return positionedAt(err, tok)
}

func positionedAt(err error, tok token.Token) *diagnostics.DiagnosticError {
	var de *diagnostics.DiagnosticError
	if !errors.As(err, &de) {
		return diagnostics.Wrap(diagnostics.ErrI009, tok, err, err.Error())
	}
	if de.Token.Line != 0 {
		return de
	}
	cp := *de
	cp.Token = tok
	return &cp
}
