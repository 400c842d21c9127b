package stubs

import (
	"io"
	"log"
	"strings"

	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// Provider resolves a fully qualified name to its declaration.
// A name that cannot be resolved yields an I008 StubNotFound error.
type Provider interface {
	Resolve(qualname string) (Decl, error)
}

// NotFound builds the StubNotFound error for qualname.
func NotFound(qualname string) error {
	return diagnostics.Errorf(diagnostics.ErrI008, token.Token{}, "no stub declares %s", qualname)
}

// IsNotFound reports whether err is a StubNotFound error.
func IsNotFound(err error) bool {
	return diagnostics.HasCode(err, diagnostics.ErrI008)
}

type cacheEntry struct {
	decl Decl
	err  error
}

// Cache memoizes a Provider: each qualified name is resolved at most once,
// failures included.
type Cache struct {
	inner   Provider
	entries map[string]cacheEntry
	logger  *log.Logger

	Hits, Misses int
}

// NewCache wraps inner. logger may be nil.
func NewCache(inner Provider, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cache{inner: inner, entries: make(map[string]cacheEntry), logger: logger}
}

func (c *Cache) Resolve(qualname string) (Decl, error) {
	if e, ok := c.entries[qualname]; ok {
		c.Hits++
		return e.decl, e.err
	}
	c.Misses++
	d, err := c.inner.Resolve(qualname)
	c.entries[qualname] = cacheEntry{decl: d, err: err}
	if err != nil {
		c.logger.Printf("stubs: %s: %v", qualname, err)
	} else {
		c.logger.Printf("stubs: resolved %s (%T)", qualname, d)
	}
	return d, err
}

// Follow resolves qualname and chases alias declarations to their target.
func Follow(p Provider, qualname string) (Decl, error) {
	seen := make(map[string]bool)
	name := qualname
	for {
		if seen[name] {
			return nil, diagnostics.Errorf(diagnostics.ErrI008, token.Token{}, "alias cycle through %s", qualname)
		}
		seen[name] = true
		d, err := p.Resolve(name)
		if err != nil {
			return nil, err
		}
		alias, ok := d.(*AliasDecl)
		if !ok {
			return d, nil
		}
		name = alias.Target
	}
}

// Chain asks each provider in turn; the first one that knows the name wins.
type Chain []Provider

func (c Chain) Resolve(qualname string) (Decl, error) {
	for _, p := range c {
		d, err := p.Resolve(qualname)
		if err == nil {
			return d, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, NotFound(qualname)
}

// nameTable records how the names of one stub module resolve.
type nameTable struct {
	module  string
	imports map[string]string
	own     map[string]bool
}

func newNameTable(module string) *nameTable {
	return &nameTable{module: module, imports: make(map[string]string), own: make(map[string]bool)}
}

// qualify turns a dotted name written inside the module into a qualified name.
// The head is looked up in the module's imports, then its own names,
// and otherwise taken from builtins.
func (n *nameTable) qualify(dotted string) string {
	head, rest, _ := strings.Cut(dotted, ".")
	tail := ""
	if rest != "" {
		tail = "." + rest
	}
	if n == nil {
		return config.BuiltinsModule + "." + dotted
	}
	if target, ok := n.imports[head]; ok {
		return target + tail
	}
	if n.own[head] || n.module == config.BuiltinsModule {
		return n.module + "." + dotted
	}
	return config.BuiltinsModule + "." + dotted
}
