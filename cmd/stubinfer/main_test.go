package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cli{stdout: &stdout, stderr: &stderr}
	code := c.run(args)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCheckPrintsBindings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.py")
	writeFile(t, file, "xs = [1, 2]\nfirst = xs[0]\n")

	code, out, errOut := runCLI(t, "check", file)
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "xs: list[int]\n")
	assert.Contains(t, out, "first: int\n")
	assert.Empty(t, errOut)
}

func TestCheckReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.py")
	writeFile(t, file, "x = 1\ny = x.nope\n")

	code, out, errOut := runCLI(t, "check", file)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "y: Any\n")
	assert.Contains(t, errOut, "bad.py:2:")
	assert.Contains(t, errOut, "I010")
}

func TestCheckDump(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.py")
	writeFile(t, file, "n = 1\n")

	code, out, _ := runCLI(t, "check", "--dump", file)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "TCon")
}

func TestCheckUsesProjectStubs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stubinfer.yaml"), "stub_paths:\n  - stubs\n")
	writeFile(t, filepath.Join(dir, "stubs", "geo", "__init__.pyi"), "class Point:\n    def norm(self) -> float: ...\ndef origin() -> Point: ...\n")
	file := filepath.Join(dir, "app", "main.py")
	writeFile(t, file, "import geo\nd = geo.origin().norm()\n")

	code, out, errOut := runCLI(t, "check", file)
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "d: float\n")
}

func TestCheckConfigError(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "stubinfer.yaml")
	writeFile(t, cfg, "builtins: nowhere\n")
	file := filepath.Join(dir, "main.py")
	writeFile(t, file, "x = 1\n")

	code, _, errOut := runCLI(t, "check", "--config", cfg, file)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "C001")
}

func TestExpr(t *testing.T) {
	code, out, errOut := runCLI(t, "expr", `{k: v for k, v in [("a", 1)]}`)
	assert.Equal(t, 0, code, errOut)
	assert.Equal(t, "dict[str, int]\n", out)

	code, _, errOut = runCLI(t, "expr", "1 + None")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "I010")
}

func TestBundleCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "geo.pyi"), "def area(r: float) -> float: ...\n")
	db := filepath.Join(dir, "out", "stubs.db")

	code, out, errOut := runCLI(t, "bundle", "-o", db, "--check", filepath.Join(dir, "src"))
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "wrote 1 stubs")

	writeFile(t, filepath.Join(dir, "stubinfer.yaml"), "bundles:\n  - out/stubs.db\n")
	file := filepath.Join(dir, "main.py")
	writeFile(t, file, "from geo import area\na = area(1.0)\n")
	code, out, errOut = runCLI(t, "check", file)
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "a: float\n")
}

func TestUsageAndVersion(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage:")

	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "stubinfer dev\n", out)

	code, _, errOut = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}
