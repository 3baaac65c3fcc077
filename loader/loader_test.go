package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.chtl"), []byte("div { }"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &FSLoader{Root: dir}
	src, err := l.Load("a.chtl")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src != "div { }" {
		t.Errorf("got %q", src)
	}
}

func TestFSLoaderMissingFile(t *testing.T) {
	l := &FSLoader{Root: t.TempDir()}
	if _, err := l.Load("missing.chtl"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestMapLoader(t *testing.T) {
	m := MapLoader{"a.chtl": "div { }"}
	src, err := m.Load("a.chtl")
	if err != nil || src != "div { }" {
		t.Fatalf("got %q, %v", src, err)
	}
	if _, err := m.Load("missing.chtl"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestCycleGuardDetectsReentry(t *testing.T) {
	g := NewCycleGuard()
	if err := g.Enter("a.chtl"); err != nil {
		t.Fatalf("first Enter: %v", err)
	}
	defer g.Leave("a.chtl")
	if err := g.Enter("b.chtl"); err != nil {
		t.Fatalf("second Enter: %v", err)
	}
	defer g.Leave("b.chtl")
	if err := g.Enter("a.chtl"); err == nil {
		t.Fatalf("expected cycle error re-entering a.chtl")
	}
}

func TestCycleGuardAllowsSequentialImports(t *testing.T) {
	g := NewCycleGuard()
	if err := g.Enter("a.chtl"); err != nil {
		t.Fatal(err)
	}
	g.Leave("a.chtl")
	if err := g.Enter("a.chtl"); err != nil {
		t.Fatalf("expected re-import after Leave to succeed, got %v", err)
	}
}
