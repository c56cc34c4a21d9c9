package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, _ ...any) { r.msg = format }

func TestStorageDriverForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"modernc.org/sqlite", true},
		{"modernc.org/sqlite/lib", true},
		{"modernc.org/sqlitex", false},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"layoutpub/pkg/domain", false},
		{"", false},
	}
	for _, c := range cases {
		if got := StorageDriverForbidden(c.in); got != c.want {
			t.Fatalf("StorageDriverForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"layoutpub/internal/validation", true},
		{"layoutpub/pkg/domain", false},
		{"internal", false},
		{"notinternal/x", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestNonStandardImport(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"fmt", false},
		{"encoding/json", false},
		{"golang.org/x/text/unicode/norm", true},
		{"gopkg.in/yaml.v3", true},
		{"layoutpub/testutil", true},
		{"layoutpubx", false},
	}
	for _, c := range cases {
		if got := NonStandardImport(c.in); got != c.want {
			t.Fatalf("NonStandardImport(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolationsSkipsTestsAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println() }\n")
	writeSource(t, dir, "main_test.go", "package tmp\nimport \"modernc.org/sqlite\"\n")
	writeSource(t, dir, "notes.txt", "import \"modernc.org/sqlite\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSource(t, filepath.Join(dir, "sub"), "sub.go", "package sub\nimport _ \"modernc.org/sqlite\"\n")

	viols, err := directImportViolations(dir, StorageDriverForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("unexpected violations: %v", viols)
	}
	AssertNoDirectImports(t, dir, StorageDriverForbidden, "fixture")
}

func TestDirectImportViolationsReportsFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "db.go", "package tmp\nimport (\n\t\"fmt\"\n\t_ \"github.com/jackc/pgx/v5/stdlib\"\n)\nvar _ = fmt.Sprint\n")
	viols, err := directImportViolations(dir, StorageDriverForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "github.com/jackc/pgx/v5/stdlib (in db.go)" {
		t.Fatalf("violations = %v", viols)
	}
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "drivers", viols)
	if !strings.Contains(rec.msg, "forbidden direct imports") {
		t.Fatalf("expected failure, got %q", rec.msg)
	}
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), NonStandardImport); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nlayoutpub/pkg/domain\n\nmodernc.org/sqlite\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", StorageDriverForbidden)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	if len(viols) != 1 || viols[0] != "modernc.org/sqlite" {
		t.Fatalf("violations = %v", viols)
	}
	rec := &recordingFatal{}
	failIfTransitiveViolations(rec, "drivers", viols)
	if rec.msg == "" {
		t.Fatal("expected failure to be reported")
	}
}
