// Package testutil provides reusable testing helpers: architectural boundary
// guards and the shared melanoma bundle fixture used across packages.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoDirectImports scans all non-test .go files in dir (typically "."
// from within the package under test) and fails if any import path satisfies
// the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	fset := token.NewFileSet()
	var violations []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if forbidden(path) {
				violations = append(violations, name+" imports "+path)
			}
		}
	}
	if len(violations) > 0 {
		t.Fatalf("%s:\n%s", reason, strings.Join(violations, "\n"))
	}
}

// InfraImportForbidden returns a predicate matching any import that reaches
// into the given infra subtree, e.g. "bundleindex/internal/infra/source".
func InfraImportForbidden(subtree string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, subtree)
	}
}
