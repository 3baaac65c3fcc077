// Package symtab implements C4: the symbol environment holding
// [Template]/[Custom] definitions for @Style/@Element/@Var, scoped by
// namespace, with inheritance and specialization support (spec.md §4.4).
package symtab

import (
	"fmt"

	"chtl/ast"
)

// Entry is one registered template or custom definition.
type Entry struct {
	Kind     ast.DefKind
	Name     string
	Body     []ast.Node
	Inherits []string
	IsCustom bool
}

// Scope holds definitions declared directly inside one [Namespace]
// block (or the file-level implicit root namespace).
type Scope struct {
	Name     string
	Parent   *Scope
	Children map[string]*Scope
	entries  map[string]*Entry // keyed "Kind:Name"
}

func newScope(name string, parent *Scope) *Scope {
	return &Scope{
		Name:     name,
		Parent:   parent,
		Children: make(map[string]*Scope),
		entries:  make(map[string]*Entry),
	}
}

// Table is the root symbol environment for one compilation: a tree of
// namespace scopes rooted at the file's top level.
type Table struct {
	Root *Scope
}

// New returns an empty Table with just the root scope.
func New() *Table {
	return &Table{Root: newScope("", nil)}
}

func key(kind ast.DefKind, name string) string {
	return fmt.Sprintf("%s:%s", kind, name)
}

// Namespace returns the named child scope of parent, creating it if
// absent (spec.md §4.4 nested namespaces).
func (s *Scope) Namespace(name string) *Scope {
	if child, ok := s.Children[name]; ok {
		return child
	}
	child := newScope(name, s)
	s.Children[name] = child
	return child
}

// Define registers a template or custom definition in scope. Redefining
// the same Kind+Name in the same scope is a duplicate-definition error
// (spec.md §4.4, §7) — CHTL requires imports/definitions not to clobber
// each other silently.
func (s *Scope) Define(e *Entry) error {
	k := key(e.Kind, e.Name)
	if _, exists := s.entries[k]; exists {
		return fmt.Errorf("duplicate definition of %s %s in namespace %q", e.Kind, e.Name, s.Name)
	}
	s.entries[k] = e
	return nil
}

// Lookup resolves a kind+name reference. A name containing a "."
// (spec.md §4.4's qualified "ns.name" syntax) is resolved by walking
// Root's namespace path directly, bypassing normal lexical scoping. An
// unqualified name is resolved by walking from s up through Parent
// scopes (innermost first), matching how CHTL lets an element nested in
// a namespace still see outer-namespace and root-level definitions.
func (t *Table) Lookup(from *Scope, kind ast.DefKind, name string) (*Entry, bool) {
	if qualified, ok := splitQualified(name); ok {
		scope := t.Root
		for _, seg := range qualified.path {
			child, ok := scope.Children[seg]
			if !ok {
				return nil, false
			}
			scope = child
		}
		e, ok := scope.entries[key(kind, qualified.name)]
		return e, ok
	}
	for s := from; s != nil; s = s.Parent {
		if e, ok := s.entries[key(kind, name)]; ok {
			return e, ok
		}
	}
	return nil, false
}

type qualifiedName struct {
	path []string
	name string
}

func splitQualified(name string) (qualifiedName, bool) {
	segs := splitDot(name)
	if len(segs) < 2 {
		return qualifiedName{}, false
	}
	return qualifiedName{path: segs[:len(segs)-1], name: segs[len(segs)-1]}, true
}

func splitDot(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// ResolveInheritance flattens an entry's inherited bodies into its own,
// detecting inheritance cycles (spec.md §4.4). Resolution order is:
// each inherited definition's body is prepended, in `inherit` clause
// order, ahead of the entry's own body, so the entry's own declarations
// can still override inherited ones further down the pipeline (the
// generator/specialization pass applies overrides on top of this
// flattened body).
func (t *Table) ResolveInheritance(from *Scope, e *Entry) ([]ast.Node, error) {
	seen := map[string]bool{key(e.Kind, e.Name): true}
	return t.resolveInheritance(from, e, seen)
}

func (t *Table) resolveInheritance(from *Scope, e *Entry, seen map[string]bool) ([]ast.Node, error) {
	var out []ast.Node
	for _, parentName := range e.Inherits {
		parent, ok := t.Lookup(from, e.Kind, parentName)
		if !ok {
			return nil, fmt.Errorf("inherit: %s %s not found", e.Kind, parentName)
		}
		k := key(parent.Kind, parent.Name)
		if seen[k] {
			return nil, fmt.Errorf("inheritance cycle detected at %s %s", parent.Kind, parent.Name)
		}
		seen[k] = true
		flattened, err := t.resolveInheritance(from, parent, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, flattened...)
	}
	out = append(out, e.Body...)
	return out, nil
}
