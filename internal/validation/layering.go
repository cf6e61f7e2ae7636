// Package validation enforces the package layering of the module and flags
// non-deterministic patterns in tick rule code.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// ModulePath is the import path prefix of this module.
const ModulePath = "spreadsim"

// LayerRule forbids packages under From from importing anything under one of
// the Forbidden prefixes. Packages under an Except prefix are exempt.
type LayerRule struct {
	Name      string
	From      string
	Forbidden []string
	Except    []string
}

// Violation is one import that breaks a LayerRule.
type Violation struct {
	Rule    string
	Package string
	Import  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s imports %s", v.Rule, v.Package, v.Import)
}

// DefaultRules returns the layering enforced on this repository.
func DefaultRules() []LayerRule {
	return []LayerRule{
		{
			Name:      "domain-is-leaf",
			From:      ModulePath + "/pkg/domain",
			Forbidden: []string{ModulePath + "/internal", ModulePath + "/cmd"},
		},
		{
			Name:      "blob-infra-behind-facade",
			From:      ModulePath,
			Forbidden: []string{ModulePath + "/internal/infra/blob"},
			Except:    []string{ModulePath + "/internal/blob", ModulePath + "/internal/infra/blob"},
		},
		{
			Name:      "core-below-adapters",
			From:      ModulePath + "/internal/core",
			Forbidden: []string{ModulePath + "/internal/adapters", ModulePath + "/cmd"},
		},
	}
}

// packageLoader is replaced in tests.
var packageLoader = func(patterns []string) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	return packages.Load(cfg, patterns...)
}

// ValidateLayering loads the packages matching patterns, test variants
// included, and returns every import that breaks one of rules, sorted and
// deduplicated.
func ValidateLayering(patterns []string, rules []LayerRule) ([]Violation, error) {
	if len(patterns) == 0 {
		patterns = []string{ModulePath + "/..."}
	}
	pkgs, err := packageLoader(patterns)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	var loadErrs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	})
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("load packages: %s", strings.Join(loadErrs, "; "))
	}
	return checkImports(importGraph(pkgs), rules), nil
}

// importGraph flattens loaded packages into package path -> direct imports.
// Test variants, external test packages and test mains fold into the package
// under test.
func importGraph(pkgs []*packages.Package) map[string][]string {
	graph := make(map[string][]string)
	for _, p := range pkgs {
		path := strings.TrimSuffix(strings.TrimSuffix(p.PkgPath, ".test"), "_test")
		for imp := range p.Imports {
			graph[path] = append(graph[path], imp)
		}
		if _, ok := graph[path]; !ok {
			graph[path] = nil
		}
	}
	return graph
}

func checkImports(graph map[string][]string, rules []LayerRule) []Violation {
	seen := make(map[Violation]struct{})
	for pkg, imports := range graph {
		for _, rule := range rules {
			if !under(pkg, rule.From) || underAny(pkg, rule.Except) {
				continue
			}
			for _, imp := range imports {
				if underAny(imp, rule.Forbidden) {
					seen[Violation{Rule: rule.Name, Package: pkg, Import: imp}] = struct{}{}
				}
			}
		}
	}
	out := make([]Violation, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		if out[i].Import != out[j].Import {
			return out[i].Import < out[j].Import
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if under(path, p) {
			return true
		}
	}
	return false
}
