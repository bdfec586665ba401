package preprocessor

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.h")
	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewFileCache()
	var wg sync.WaitGroup
	texts := make([]string, 8)
	for i := range texts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			texts[i], _ = c.Load(path)
		}(i)
	}
	wg.Wait()
	for i, s := range texts {
		if s != "first" {
			t.Errorf("reader %d got %q", i, s)
		}
	}

	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.Load(path); s != "first" {
		t.Errorf("cached text replaced by %q", s)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	if _, err := c.Load(filepath.Join(filepath.Dir(path), "missing.h")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want a not-exist error", err)
	}
	if c.Len() != 1 {
		t.Errorf("failed load was cached")
	}
}
