package core

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// Backend implementations are chosen here and in the CLI. Everything else
// works against the domain and blob interfaces.
var backendPrefixes = []string{
	"layoutpub/internal/infra/persistence",
	"layoutpub/internal/infra/blob/fs",
	"layoutpub/internal/infra/blob/memory",
	"layoutpub/internal/infra/blob/s3",
}

var backendImporters = []string{
	"layoutpub/internal/core",
	"layoutpub/internal/cli",
	"layoutpub/internal/infra",
	"layoutpub/cmd/",
}

func TestOnlyCompositionRootImportsBackends(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "layoutpub/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		if hasAnyPrefix(pkg.PkgPath, backendImporters) || strings.HasPrefix(pkg.PkgPath, "layoutpub/testutil") {
			continue
		}
		for importPath := range pkg.Imports {
			if hasAnyPrefix(importPath, backendPrefixes) {
				violations = append(violations, pkg.PkgPath+": "+importPath)
			}
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden backend import: %s", v)
	}
}

func TestDomainStaysInternalFree(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "layoutpub/pkg/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			if strings.Contains(importPath, "/internal/") {
				t.Errorf("%s imports %s", pkg.PkgPath, importPath)
			}
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if s == strings.TrimSuffix(p, "/") || strings.HasPrefix(s, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
