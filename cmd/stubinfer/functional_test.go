package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/funvibe/stubinfer/internal/config"
)

// TestFunctional checks every testdata source that has a .want file: the
// bindings printed by `check` must match it, and each code listed in a
// .err file must be reported.
func TestFunctional(t *testing.T) {
	var sources []string
	err := filepath.Walk("testdata", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !config.HasSourceExt(path) {
			return nil
		}
		if _, err := os.Stat(config.TrimSourceExt(path) + ".want"); err == nil {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk testdata: %v", err)
	}
	if len(sources) == 0 {
		t.Skip("No test files with .want found")
	}

	for _, src := range sources {
		base := config.TrimSourceExt(src)
		t.Run(filepath.Base(base), func(t *testing.T) {
			want, err := os.ReadFile(base + ".want")
			if err != nil {
				t.Fatal(err)
			}
			var codes []string
			if data, err := os.ReadFile(base + ".err"); err == nil {
				codes = strings.Fields(string(data))
			}

			code, stdout, stderr := runCLI(t, "check", src)

			if stdout != string(want) {
				t.Errorf("bindings differ:\n%s", strings.Join(pretty.Diff(strings.Split(string(want), "\n"), strings.Split(stdout, "\n")), "\n"))
			}
			for _, c := range codes {
				if !strings.Contains(stderr, c) {
					t.Errorf("expected diagnostic %s, got:\n%s", c, stderr)
				}
			}
			switch {
			case len(codes) == 0 && code != 0:
				t.Errorf("exit code %d, stderr:\n%s", code, stderr)
			case len(codes) > 0 && code != 1:
				t.Errorf("exit code %d, want 1", code)
			}
		})
	}
}
