package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	t.Run("valid headers", func(t *testing.T) {
		headers, err := parseHeaders([]string{"Accept: text/html", "X-Token:abc"})
		if err != nil {
			t.Fatalf("parseHeaders failed: %v", err)
		}
		if headers["Accept"] != "text/html" {
			t.Errorf("expected Accept header, got %q", headers["Accept"])
		}
		if headers["X-Token"] != "abc" {
			t.Errorf("expected X-Token header, got %q", headers["X-Token"])
		}
	})

	t.Run("missing colon is rejected", func(t *testing.T) {
		if _, err := parseHeaders([]string{"notaheader"}); err == nil {
			t.Error("expected error for malformed header")
		}
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		if _, err := parseHeaders([]string{": value"}); err == nil {
			t.Error("expected error for empty header name")
		}
	})

	t.Run("no headers yields nil map", func(t *testing.T) {
		headers, err := parseHeaders(nil)
		if err != nil {
			t.Fatalf("parseHeaders failed: %v", err)
		}
		if headers != nil {
			t.Errorf("expected nil map, got %v", headers)
		}
	})
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<p>file content</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readInput([]string{path})
	if err != nil {
		t.Fatalf("readInput failed: %v", err)
	}
	if got != "<p>file content</p>" {
		t.Errorf("unexpected content: %q", got)
	}

	if _, err := readInput([]string{filepath.Join(t.TempDir(), "missing.html")}); err == nil {
		t.Error("expected error for missing file")
	}
}
