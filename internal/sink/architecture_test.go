package sink

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlySinkPackageImportsInfra ensures that only the top-level sink
// package wraps the infra-backed drivers. Everything else must depend on the
// core.Sink interface.
func TestOnlySinkPackageImportsInfra(t *testing.T) {
	infraPrefix := "bundleindex/internal/infra/sink"
	allowedPrefix := "bundleindex/internal/sink"

	// Tests are excluded: test code may seed the in-memory drivers directly.
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "bundleindex/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) || strings.HasPrefix(pkg.PkgPath, infraPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath == infraPrefix || strings.HasPrefix(importPath, infraPrefix+"/") {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of infra sink package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of infra sink packages", len(violations))
	}
}
