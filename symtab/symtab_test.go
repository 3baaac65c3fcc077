package symtab

import (
	"testing"

	"chtl/ast"
)

func TestDefineAndLookup(t *testing.T) {
	tab := New()
	err := tab.Root.Define(&Entry{Kind: ast.StyleDef, Name: "Card"})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	e, ok := tab.Lookup(tab.Root, ast.StyleDef, "Card")
	if !ok || e.Name != "Card" {
		t.Fatalf("Lookup failed: %v %v", e, ok)
	}
}

func TestDuplicateDefinitionErrors(t *testing.T) {
	tab := New()
	if err := tab.Root.Define(&Entry{Kind: ast.StyleDef, Name: "Card"}); err != nil {
		t.Fatalf("first Define: %v", err)
	}
	if err := tab.Root.Define(&Entry{Kind: ast.StyleDef, Name: "Card"}); err == nil {
		t.Fatalf("expected duplicate-definition error")
	}
}

func TestNamespaceQualifiedLookup(t *testing.T) {
	tab := New()
	ns := tab.Root.Namespace("ui")
	ns.Define(&Entry{Kind: ast.ElementDef, Name: "Box"})

	_, ok := tab.Lookup(tab.Root, ast.ElementDef, "Box")
	if ok {
		t.Fatalf("unqualified lookup from root should not see namespaced entry")
	}
	e, ok := tab.Lookup(tab.Root, ast.ElementDef, "ui.Box")
	if !ok || e.Name != "Box" {
		t.Fatalf("qualified lookup failed: %v %v", e, ok)
	}
}

func TestLexicalLookupWalksParents(t *testing.T) {
	tab := New()
	tab.Root.Define(&Entry{Kind: ast.VarDef, Name: "Palette"})
	ns := tab.Root.Namespace("ui")
	e, ok := tab.Lookup(ns, ast.VarDef, "Palette")
	if !ok || e.Name != "Palette" {
		t.Fatalf("expected nested scope to see root-level definition, got %v %v", e, ok)
	}
}

func TestInheritanceFlattening(t *testing.T) {
	tab := New()
	baseDecl := &ast.StyleDecl{Property: "color", Value: "red"}
	tab.Root.Define(&Entry{Kind: ast.StyleDef, Name: "Base", Body: []ast.Node{baseDecl}})

	childDecl := &ast.StyleDecl{Property: "margin", Value: "0"}
	child := &Entry{Kind: ast.StyleDef, Name: "Child", Inherits: []string{"Base"}, Body: []ast.Node{childDecl}}

	flat, err := tab.ResolveInheritance(tab.Root, child)
	if err != nil {
		t.Fatalf("ResolveInheritance: %v", err)
	}
	if len(flat) != 2 {
		t.Fatalf("expected 2 flattened nodes, got %d", len(flat))
	}
	if flat[0] != ast.Node(baseDecl) || flat[1] != ast.Node(childDecl) {
		t.Fatalf("expected base body before child body, got %v", flat)
	}
}

func TestInheritanceCycleDetected(t *testing.T) {
	tab := New()
	tab.Root.Define(&Entry{Kind: ast.StyleDef, Name: "A", Inherits: []string{"B"}})
	tab.Root.Define(&Entry{Kind: ast.StyleDef, Name: "B", Inherits: []string{"A"}})

	a, _ := tab.Lookup(tab.Root, ast.StyleDef, "A")
	if _, err := tab.ResolveInheritance(tab.Root, a); err == nil {
		t.Fatalf("expected inheritance cycle error")
	}
}

func TestMissingInheritedParentErrors(t *testing.T) {
	tab := New()
	entry := &Entry{Kind: ast.StyleDef, Name: "Orphan", Inherits: []string{"Ghost"}}
	if _, err := tab.ResolveInheritance(tab.Root, entry); err == nil {
		t.Fatalf("expected missing-parent error")
	}
}
