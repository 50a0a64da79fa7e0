package provider

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyProviderImportsStores keeps the provider as the single entry point
// to the typed stores. Everything else must go through the Actions and
// Selectors facades instead of importing the store package.
func TestOnlyProviderImportsStores(t *testing.T) {
	storePath := "cachecore/internal/store"
	allowedRoots := []string{"cachecore/internal/provider", storePath}

	permitted := func(pkgPath string) bool {
		for _, root := range allowedRoots {
			if pkgPath == root || strings.HasPrefix(pkgPath, root+" ") || strings.HasPrefix(pkgPath, root+".") {
				return true
			}
		}
		return false
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "cachecore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if permitted(pkg.PkgPath) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath == storePath {
				seen[pkg.PkgPath] = struct{}{}
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
			t.Errorf("forbidden import of the store package from %s", v)
		}
		t.Fatalf("found %d packages bypassing the provider facade", len(violations))
	}
}
