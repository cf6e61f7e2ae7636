// Command layer-check verifies the package layering of the module and scans
// tick rule sources for patterns that break seeded replay.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"spreadsim/internal/validation"
)

var (
	exitFunc         = os.Exit
	validateLayering = validation.ValidateLayering
)

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("layer-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rulesGlob, pluginDir string
	var skipLayering bool
	fs.StringVar(&rulesGlob, "rules", "internal/core/rule_*.go", "glob of built-in rule sources to scan")
	fs.StringVar(&pluginDir, "plugins", "", "directory of plugin sources to scan")
	fs.BoolVar(&skipLayering, "skip-layering", false, "only scan rule sources")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	failed := false
	if !skipLayering {
		viols, err := validateLayering(fs.Args(), validation.DefaultRules())
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Layering check failed: %v\n", err)
			return 1
		}
		for _, v := range viols {
			_, _ = fmt.Fprintln(stderr, v.String())
		}
		failed = failed || len(viols) > 0
	}

	files, err := ruleFiles(rulesGlob)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Rule scan failed: %v\n", err)
		return 1
	}
	errs := validation.ValidateRuleFiles(files)
	if pluginDir != "" {
		errs = append(errs, validation.ValidateRuleDirectory(pluginDir)...)
	}
	for _, e := range errs {
		_, _ = fmt.Fprintf(stderr, "%s:%d: %s\n", e.File, e.Line, e.Message)
	}
	failed = failed || len(errs) > 0

	if failed {
		_, _ = fmt.Fprintln(stderr, "Layer check failed.")
		return 1
	}
	if _, err := fmt.Fprintf(stdout, "Layer check passed (%d rule files scanned).\n", len(files)); err != nil {
		return 1
	}
	return 0
}

func ruleFiles(glob string) ([]string, error) {
	if glob == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if !strings.HasSuffix(m, "_test.go") {
			out = append(out, m)
		}
	}
	return out, nil
}
