package stubs_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/stubs"
)

var pkgFS = fstest.MapFS{
	"pkg/__init__.pyi": {Data: []byte("from .impl import Widget as Widget\nVERSION: str\n")},
	"pkg/impl.pyi": {Data: []byte(`
from typing import Generic, TypeVar, overload
import collections.abc as cabc

T = TypeVar("T", bound=int)

class Widget(Generic[T]):
    size: int
    class Part:
        def name(self) -> str: ...
    @overload
    def get(self, i: int) -> T: ...
    @overload
    def get(self, i: str) -> str: ...
    alias = get

def make() -> Widget[int]: ...
Other = Widget
Abc = cabc.Iterable
`)},
	"loop.pyi":    {Data: []byte("A = B\nB = A\n")},
	"ns/leaf.pyi": {Data: []byte("x: int\n")},
	"broken.pyi":  {Data: []byte("def f(:\nclass Ok: ...\n")},
}

func TestResolveModuleMembers(t *testing.T) {
	p := stubs.NewSourceProvider(pkgFS, nil)

	d, err := p.Resolve("pkg")
	require.NoError(t, err)
	mod, ok := d.(*stubs.ModuleDecl)
	require.True(t, ok, "got %T", d)
	assert.True(t, mod.Package)
	assert.Contains(t, mod.Names, "VERSION")

	d, err = p.Resolve("pkg.impl.Widget")
	require.NoError(t, err)
	cls, ok := d.(*stubs.ClassDecl)
	require.True(t, ok, "got %T", d)
	assert.Equal(t, "pkg.impl.Widget", cls.QualName())
	assert.Equal(t, []string{"size", "Part", "get", "alias"}, cls.Order)

	d, err = p.Resolve("pkg.impl.Widget.get")
	require.NoError(t, err)
	fn := d.(*stubs.FuncDecl)
	assert.Len(t, fn.Defs, 2, "overloads accumulate in declaration order")
	assert.Equal(t, []string{"overload"}, stubs.DecoratorNames(fn.Defs[0]))

	d, err = p.Resolve("pkg.impl.Widget.Part.name")
	require.NoError(t, err)
	assert.Equal(t, "pkg.impl.Widget.Part.name", d.QualName())

	d, err = p.Resolve("pkg.impl.T")
	require.NoError(t, err)
	tv := d.(*stubs.TypeVarDecl)
	assert.NotNil(t, tv.Bound)
	assert.Equal(t, "builtins.int", tv.Qualify("int"))
}

func TestAliasesFollowImports(t *testing.T) {
	p := stubs.NewSourceProvider(pkgFS, nil)

	d, err := stubs.Follow(p, "pkg.Widget")
	require.NoError(t, err)
	assert.Equal(t, "pkg.impl.Widget", d.QualName())

	d, err = p.Resolve("pkg.impl.Other")
	require.NoError(t, err)
	assert.Equal(t, "pkg.impl.Widget", d.(*stubs.AliasDecl).Target)

	d, err = p.Resolve("pkg.impl.Abc")
	require.NoError(t, err)
	assert.Equal(t, "collections.abc.Iterable", d.(*stubs.AliasDecl).Target)

	d, err = p.Resolve("pkg.impl.Widget.alias")
	require.NoError(t, err)
	assert.Equal(t, "pkg.impl.Widget.get", d.(*stubs.AliasDecl).Target)

	d, err = stubs.Follow(p, "pkg.Widget.size")
	require.NoError(t, err)
	assert.IsType(t, &stubs.VarDecl{}, d)
}

func TestAliasCycleIsNotFound(t *testing.T) {
	p := stubs.NewSourceProvider(pkgFS, nil)
	_, err := stubs.Follow(p, "loop.A")
	require.Error(t, err)
	assert.True(t, stubs.IsNotFound(err))
}

func TestMissingNames(t *testing.T) {
	p := stubs.NewSourceProvider(pkgFS, nil)
	for _, name := range []string{"nope", "pkg.impl.Nope", "pkg.impl.Widget.nope", "pkg.impl.make.x"} {
		_, err := p.Resolve(name)
		assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI008), "%s: %v", name, err)
	}
}

func TestNamespaceDirectory(t *testing.T) {
	p := stubs.NewSourceProvider(pkgFS, nil)
	d, err := p.Resolve("ns")
	require.NoError(t, err)
	assert.True(t, d.(*stubs.ModuleDecl).Package)
	_, err = p.Resolve("ns.leaf.x")
	assert.NoError(t, err)
}

func TestParseErrorsKeepIndexing(t *testing.T) {
	p := stubs.NewSourceProvider(pkgFS, nil)
	_, err := p.Resolve("broken")
	assert.NoError(t, err)
	_, err = p.Resolve("broken.Ok")
	assert.NoError(t, err)
}

type countingProvider struct {
	inner stubs.Provider
	calls map[string]int
}

func (c *countingProvider) Resolve(name string) (stubs.Decl, error) {
	c.calls[name]++
	return c.inner.Resolve(name)
}

func TestCacheResolvesOnce(t *testing.T) {
	counter := &countingProvider{inner: stubs.NewSourceProvider(pkgFS, nil), calls: map[string]int{}}
	c := stubs.NewCache(counter, nil)
	for i := 0; i < 3; i++ {
		_, err := c.Resolve("pkg.impl.make")
		require.NoError(t, err)
		_, err = c.Resolve("pkg.missing")
		require.Error(t, err)
	}
	assert.Equal(t, 1, counter.calls["pkg.impl.make"])
	assert.Equal(t, 1, counter.calls["pkg.missing"], "failures are memoized too")
	assert.Equal(t, 4, c.Hits)
	assert.Equal(t, 2, c.Misses)
}

func TestChainFirstWins(t *testing.T) {
	override := fstest.MapFS{"pkg/impl.pyi": {Data: []byte("def make() -> int: ...\n")}}
	chain := stubs.Chain{stubs.NewSourceProvider(override, nil), stubs.NewSourceProvider(pkgFS, nil)}

	d, err := chain.Resolve("pkg.impl.make")
	require.NoError(t, err)
	fn := d.(*stubs.FuncDecl)
	assert.Equal(t, "int", stubs.Dotted(fn.Defs[0].Returns))

	_, err = chain.Resolve("pkg.impl.Widget")
	assert.NoError(t, err, "a module in an earlier provider does not hide names it lacks")

	_, err = chain.Resolve("loop.A")
	assert.NoError(t, err, "later providers answer what earlier ones lack")
}

func TestEmbeddedBuiltins(t *testing.T) {
	p := stubs.NewSourceProvider(stubs.EmbeddedFS(), nil)
	for _, name := range []string{"builtins.int", "builtins.list.append", "typing.Iterator", "builtins.enumerate"} {
		_, err := p.Resolve(name)
		assert.NoError(t, err, name)
	}
	d, err := stubs.Follow(p, "typing.List")
	require.NoError(t, err)
	assert.Equal(t, "builtins.list", d.QualName())

	d, err = stubs.Follow(p, "builtins.Iterable")
	require.NoError(t, err)
	assert.Equal(t, "typing.Iterable", d.QualName())

	d, err = stubs.Follow(p, "os.path.join")
	require.NoError(t, err)
	assert.Equal(t, "os.path.join", d.QualName())
}

func TestEmbeddedPackageInit(t *testing.T) {
	_, err := fs.Stat(stubs.EmbeddedFS(), "os/__init__.pyi")
	require.NoError(t, err)

	p := stubs.NewSourceProvider(stubs.EmbeddedFS(), nil)
	tests := []struct {
		name string
		want any
	}{
		{"os.getcwd", &stubs.FuncDecl{}},
		{"os.sep", &stubs.VarDecl{}},
	}
	for _, tt := range tests {
		d, err := p.Resolve(tt.name)
		require.NoError(t, err, tt.name)
		assert.IsType(t, tt.want, d, tt.name)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pkg", "__init__.pyi"), []byte("class Thing:\n    def size(self) -> int: ...\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("ignored"), 0o644))

	file := filepath.Join(dir, "out", "stubs.db")
	n, err := stubs.WriteBundle(file, src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := stubs.OpenBundle(file)
	require.NoError(t, err)
	defer b.Close()

	paths, err := b.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/__init__.pyi"}, paths)

	p := stubs.NewBundleProvider(b, nil)
	d, err := p.Resolve("pkg.Thing.size")
	require.NoError(t, err)
	assert.Equal(t, "pkg.Thing.size", d.QualName())

	_, err = p.Resolve("pkg.Missing")
	assert.True(t, stubs.IsNotFound(err))
}

func TestOpenBundleRejectsMissingFile(t *testing.T) {
	_, err := stubs.OpenBundle(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}
