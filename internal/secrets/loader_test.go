package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	if err := os.WriteFile(file, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("TALENT_TEST_TOKEN", "from-env")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "file wins", src: Source{File: file, Env: "TALENT_TEST_TOKEN", Value: "inline"}, expect: "from-file"},
		{name: "env before inline", src: Source{Env: "TALENT_TEST_TOKEN", Value: "inline"}, expect: "from-env"},
		{name: "inline", src: Source{Value: " inline "}, expect: "inline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("  "), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := Load(Source{Name: "token", File: empty}); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := Load(Source{Name: "token", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(Source{Name: "token"}); err == nil {
		t.Fatal("expected error when nothing is configured")
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "verify token", Env: "TALENT_TEST_UNSET_VAR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty secret, got %q", got)
	}
}
