package validation

import (
	"bufio"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Error is a pattern violation found in tick rule source.
type Error struct {
	File    string
	Line    int
	Message string
	Code    string
}

// ValidateRuleDirectory checks every non-test Go file under dir, typically a
// plugin directory.
func ValidateRuleDirectory(dir string) []Error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	errs := ValidateRuleFiles(files)
	if err != nil {
		errs = append(errs, Error{File: dir, Message: "Failed to walk directory: " + err.Error()})
	}
	return errs
}

// ValidateRuleFiles checks that rule code draws randomness only from
// RuleContext.Rand, never reads the wall clock and names categories through
// the domain constants. Runs replay exactly from their seed only while these
// hold.
func ValidateRuleFiles(files []string) []Error {
	var errs []Error
	for _, f := range files {
		errs = append(errs, validateRuleText(f)...)
		errs = append(errs, validateRuleAST(f)...)
	}
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].File != errs[j].File {
			return errs[i].File < errs[j].File
		}
		return errs[i].Line < errs[j].Line
	})
	return errs
}

var rulePatterns = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`\btime\.(Now|Since|Until)\(`), "Tick rules must not read the wall clock; use RuleContext.Tick"},
	{regexp.MustCompile(`"(susceptible|infected_symptomatic|infected_asymptomatic|self_cured|quarantined)"`), "Use the domain.Category constants instead of raw category strings"},
}

func validateRuleText(filePath string) []Error {
	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return []Error{{File: filePath, Message: "Failed to open file: " + err.Error()}}
	}
	defer func() {
		_ = file.Close()
	}()

	var errs []Error
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || isCommentLine(line) {
			continue
		}
		for _, p := range rulePatterns {
			if p.re.MatchString(line) {
				errs = append(errs, Error{
					File:    filePath,
					Line:    lineNum,
					Message: p.message,
					Code:    strings.TrimSpace(line),
				})
			}
		}
	}
	return errs
}

var forbiddenRuleImports = map[string]string{
	"math/rand":    "Draw randomness from RuleContext.Rand instead of math/rand",
	"math/rand/v2": "Draw randomness from RuleContext.Rand instead of math/rand/v2",
	"crypto/rand":  "Draw randomness from RuleContext.Rand instead of crypto/rand",
}

func validateRuleAST(filePath string) []Error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.SkipObjectResolution)
	if err != nil {
		return []Error{{File: filePath, Message: "Failed to parse file: " + err.Error()}}
	}

	var errs []Error
	for _, imp := range file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		if msg, bad := forbiddenRuleImports[path]; bad {
			pos := fset.Position(imp.Pos())
			errs = append(errs, Error{File: pos.Filename, Line: pos.Line, Message: msg, Code: imp.Path.Value})
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		if g, ok := n.(*ast.GoStmt); ok {
			pos := fset.Position(g.Pos())
			errs = append(errs, Error{
				File:    pos.Filename,
				Line:    pos.Line,
				Message: "Tick rules run sequentially; do not start goroutines",
				Code:    "go ...",
			})
		}
		return true
	})
	return errs
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
}
