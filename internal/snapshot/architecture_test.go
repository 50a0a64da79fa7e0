package snapshot

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlySnapshotPackageImportsDrivers ensures that only this package wraps
// the driver implementations. Other packages must depend on the snapshot.Store
// interface instead of importing driver sub-packages directly.
func TestOnlySnapshotPackageImportsDrivers(t *testing.T) {
	driverPrefix := "cachecore/internal/snapshot/"
	allowed := "cachecore/internal/snapshot"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "cachecore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if pkg.PkgPath == allowed || strings.HasPrefix(pkg.PkgPath, driverPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if strings.HasPrefix(importPath, driverPrefix) {
				pos := filepath.Join(pkg.PkgPath, "...")
				seen[pos+": "+importPath] = struct{}{}
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
			t.Errorf("forbidden import of snapshot driver package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of snapshot driver packages", len(violations))
	}
}
