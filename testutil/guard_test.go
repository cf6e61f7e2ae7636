package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spreadsim/internal/validation"
)

type recordingT struct {
	errors []string
	fatal  string
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.fatal = fmt.Sprintf(format, args...)
}

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", "package tmp\n\nimport (\n\t\"fmt\"\n\t\"spreadsim/internal/core\"\n)\n\nvar _ = fmt.Sprint\n")
	writeSource(t, dir, "a_test.go", "package tmp\n\nimport \"github.com/spf13/cobra\"\n\nvar _ cobra.Command\n")
	writeSource(t, dir, "notes.txt", "import \"spreadsim/cmd\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSource(t, filepath.Join(dir, "sub"), "b.go", "package sub\n\nimport \"golang.org/x/tools/go/packages\"\n")

	viols, err := directImportViolations(dir, NonStandardImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "spreadsim/internal/core (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	writeSource(t, dir, "broken.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, NonStandardImport); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), NonStandardImport); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestPredicates(t *testing.T) {
	cases := map[string]bool{
		"fmt":                      false,
		"net/http":                 false,
		"spreadsim/pkg/domain":     true,
		"github.com/spf13/cobra":   true,
		"golang.org/x/image/font":  true,
		"spreadsimulator/whatever": false,
	}
	for path, want := range cases {
		if got := NonStandardImport(path); got != want {
			t.Errorf("NonStandardImport(%q) = %v, want %v", path, got, want)
		}
	}

	core := ModuleImport("/internal/core/")
	if !core("spreadsim/internal/core") || !core("spreadsim/internal/core/sub") || core("spreadsim/internal/corex") {
		t.Fatalf("ModuleImport must match whole path segments")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	prev := goListDeps
	t.Cleanup(func() { goListDeps = prev })

	goListDeps = func(pattern string) ([]byte, error) {
		if pattern != "./pkg/..." {
			t.Fatalf("unexpected pattern %s", pattern)
		}
		return []byte("fmt\n\nspreadsim/pkg/domain\nspreadsim/internal/core\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./pkg/...", ModuleImport("internal"))
	if err != nil || len(viols) != 1 || viols[0] != "spreadsim/internal/core" {
		t.Fatalf("unexpected result %v %v", viols, err)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom output"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations(".", NonStandardImport); err == nil || string(out) != "boom output" {
		t.Fatalf("expected go list failure with output, got %v %q", err, out)
	}
}

func TestFailureReporting(t *testing.T) {
	rec := &recordingT{}
	failIfViolations(rec, "forbidden direct imports", "domain is a leaf", nil)
	if rec.fatal != "" {
		t.Fatalf("no violations must not fail")
	}
	failIfViolations(rec, "forbidden direct imports", "domain is a leaf", []string{"x", "y"})
	if !strings.Contains(rec.fatal, "domain is a leaf") || !strings.Contains(rec.fatal, "x\ny") {
		t.Fatalf("unexpected fatal message %q", rec.fatal)
	}

	rec = &recordingT{}
	failIfLayeringViolations(rec, []validation.Violation{
		{Rule: "r", Package: "spreadsim/a", Import: "spreadsim/b"},
		{Rule: "r", Package: "spreadsim/c", Import: "spreadsim/b"},
	})
	if len(rec.errors) != 2 || !strings.Contains(rec.fatal, "2 layering violations") {
		t.Fatalf("unexpected reporting %+v", rec)
	}
}

func TestRepositoryDomainHasNoModuleDependencies(t *testing.T) {
	AssertNoDirectImports(t, filepath.Join("..", "pkg", "domain"), NonStandardImport, "domain imports only the standard library")
}
