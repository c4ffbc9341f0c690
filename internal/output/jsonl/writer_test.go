package jsonl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type line struct {
	N int `json:"n"`
}

func TestWriterAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.jsonl")

	for i := 0; i < 2; i++ {
		w, err := Open[line](path, false)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := w.Write([]line{{N: i}}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "{\"n\":0}\n{\"n\":1}" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestWriterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	os.WriteFile(path, []byte("old\n"), 0644)

	w, err := Open[line](path, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	w.Write([]line{{N: 7}})
	w.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "{\"n\":7}\n" {
		t.Fatalf("unexpected content %q", data)
	}
	if err := w.Write([]line{{N: 1}}); err == nil {
		t.Fatalf("expected error writing to closed writer")
	}
}
