// Package testutil provides reusable testing helpers for enforcing layering
// and dependency boundaries across the repository.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"spreadsim/internal/validation"
)

// AssertLayering loads every package in the module and fails the test for
// each import that breaks one of rules. With no rules it applies
// validation.DefaultRules.
func AssertLayering(t testing.TB, rules ...validation.LayerRule) {
	t.Helper()
	if len(rules) == 0 {
		rules = validation.DefaultRules()
	}
	viols, err := validation.ValidateLayering(nil, rules)
	if err != nil {
		t.Fatalf("layering check failed: %v", err)
	}
	failIfLayeringViolations(t, viols)
}

// AssertNoTransitiveDependency shells out to `go list -deps` with the provided
// pattern and fails the test if any dependency path satisfies forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, out, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	failIfViolations(t, "forbidden transitive dependency", reason, viols)
}

// AssertNoDirectImports scans the non-test .go files in dir and fails if any
// import path satisfies forbidden. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfViolations(t, "forbidden direct imports", reason, viols)
}

// NonStandardImport matches third-party modules and packages of this module.
// Standard library paths have no dot in their first element.
func NonStandardImport(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".") || first == validation.ModulePath
}

// ModuleImport returns a predicate matching import paths at or below
// prefix, which is relative to the module path (for example "internal/core").
func ModuleImport(prefix string) func(string) bool {
	full := validation.ModulePath + "/" + strings.Trim(prefix, "/")
	return func(path string) bool {
		return path == full || strings.HasPrefix(path, full+"/")
	}
}

var goListDeps = func(pattern string) ([]byte, error) {
	cmd := exec.Command("go", "list", "-deps", pattern)
	return cmd.CombinedOutput()
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, []byte, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, out, err
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	return viols, out, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip, _ := strconv.Unquote(imp.Path.Value)
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, kind, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s detected (%s):\n%s", kind, reason, strings.Join(viols, "\n"))
	}
}

func failIfLayeringViolations(t fatalLogger, viols []validation.Violation) {
	for _, v := range viols {
		t.Errorf("layering violation: %s", v)
	}
	if len(viols) > 0 {
		t.Fatalf("found %d layering violations", len(viols))
	}
}
