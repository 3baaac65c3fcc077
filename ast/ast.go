// Package ast defines the CHTL abstract syntax tree. Node is a sum type
// over the concrete node kinds (spec.md §3); Go represents that sum type
// as an interface with a type switch rather than a class hierarchy, the
// same shape wispy-core uses for its fml-template tag AST
// (pkg/fml-template/template.go's TagNode variants).
package ast

import "chtl/token"

// Node is implemented by every AST node. Pos anchors diagnostics to the
// originating source location.
type Node interface {
	Pos() token.Position
	node()
}

type base struct {
	P token.Position
}

func (b base) Pos() token.Position { return b.P }
func (base) node()                 {}

// Document is the root of a parsed .chtl file: a flat sequence of
// top-level statements (element trees, template/custom defs, imports,
// namespace blocks, origin blocks, the configuration block).
type Document struct {
	base
	Statements []Node
}

// Attribute is a single tag="value" pair on an Element.
type Attribute struct {
	base
	Name  string
	Value string
}

// Element is an HTML element node: a tag name, its attributes, and its
// children in source order. Style and Script are kept distinct from
// Children because they drive the generator's style/script pre-pass
// (spec.md §4.5) independently of body content.
type Element struct {
	base
	Tag        string
	Attributes []*Attribute
	Style      *StyleBlock // nil if absent
	Script     *ScriptBlock // nil if absent
	Children   []Node
}

// Text is a literal text{} node.
type Text struct {
	base
	Value string
}

// Comment is a generator comment (# ...) that is emitted verbatim into
// the generated output as an HTML comment.
type Comment struct {
	base
	Text string
}

// StyleRule is one selector: { declarations } item inside a style block,
// or a bare declaration list attached to the element itself (Selector
// == "").
type StyleRule struct {
	base
	Selector     string // "", ".cls", "#id", "&", or "&.cls" etc.
	Declarations []*StyleDecl
}

// StyleDecl is a single "property: value-expr;" entry. Value is the raw
// expression source consumed by package expr (C2). A [Custom] @Style/@Var
// definition may declare a property with no value at all ("property;"),
// marked by Valueless: the definition requires every use site to supply
// it via an override specialization (spec.md §3, §4.4).
type StyleDecl struct {
	base
	Property  string
	Value     string
	Valueless bool
}

// StyleBlock holds every rule found inside an element's style{} block,
// in source order; Rules[i].Selector == "" for declarations applied
// directly to the owning element. Usages holds `@Style Name;` / `@Style
// Name { ... }` template invocations found at the top level of the
// block: per spec.md §4.2's template-expansion rule, their properties
// and nested rules are merged into the surrounding style context by the
// generator rather than kept as a distinct node kind in the rendered
// tree.
type StyleBlock struct {
	base
	Rules  []*StyleRule
	Usages []*Usage
}

// ScriptBlock holds the raw CHTL-JS source of a script{} block, to be
// handed to package chtljs (C7) for token-level rewriting.
type ScriptBlock struct {
	base
	Source string
}

// DefKind distinguishes @Style / @Element / @Var
// definitions and usages (spec.md §3, §4.3).
type DefKind int

const (
	StyleDef DefKind = iota
	ElementDef
	VarDef
)

func (k DefKind) String() string {
	switch k {
	case StyleDef:
		return "Style"
	case ElementDef:
		return "Element"
	case VarDef:
		return "Var"
	}
	return "Unknown"
}

// TemplateDecl is a [Template] @Kind Name { ... } definition.
type TemplateDecl struct {
	base
	Kind     DefKind
	Name     string
	Body     []Node // StyleRule/StyleDecl for StyleDef & VarDef, Element/Text/... for ElementDef
	Inherits []string
}

// CustomDecl is a [Custom] @Kind Name { ... } definition, which may also
// carry specialization operations when used (Usage.Specializations).
type CustomDecl struct {
	base
	Kind     DefKind
	Name     string
	Body     []Node
	Inherits []string
}

// SpecOpKind enumerates the specialization operations a [Custom] usage
// may apply: delete props/children, insert new children at a position,
// or override an inherited declaration.
type SpecOpKind int

const (
	SpecDelete SpecOpKind = iota
	SpecInsertAfter
	SpecInsertBefore
	SpecOverride
)

// SpecOp is one specialization step applied when a custom is used with a
// body ({ ... }), per spec.md §4.4's override/delete/insert semantics.
type SpecOp struct {
	base
	Kind   SpecOpKind
	Target string // property name, child selector, or index reference
	Value  Node   // replacement/insertion content, nil for SpecDelete
}

// Usage is a "@Kind Name;" or "@Kind Name { specializations }"
// reference to a [Template] or [Custom] definition.
type Usage struct {
	base
	Kind           DefKind
	Name           string
	Namespace      string // "" unless explicitly qualified as ns.Name
	Specializations []*SpecOp
}

// OriginKind distinguishes the three [Origin] passthrough payload types.
type OriginKind int

const (
	OriginHTML OriginKind = iota
	OriginStyle
	OriginJavaScript
)

// Origin is a [Origin] @Kind [Name] { raw } passthrough block; its
// content is emitted verbatim by the generator (spec.md §4.5).
type Origin struct {
	base
	Kind OriginKind
	Name string // "" for an anonymous origin block
	Raw  string
}

// ImportKind distinguishes what an [Import] statement pulls in.
type ImportKind int

const (
	ImportChtl ImportKind = iota
	ImportCmod
	ImportCJMod
	ImportHTML
	ImportStyle
	ImportJavaScript
)

// Import is an [Import] @Kind from "path" [as Alias] [except a, b];
// statement (spec.md §4.3, §6).
type Import struct {
	base
	Kind   ImportKind
	Path   string
	Alias  string
	Except []string
}

// Namespace is a [Namespace] Name { ... } block scoping the templates,
// customs and nested namespaces declared inside it (spec.md §4.4).
type Namespace struct {
	base
	Name       string
	Statements []Node
}

// ConfigEntry is a single NAME = value; line inside [Configuration].
type ConfigEntry struct {
	base
	Name  string
	Value string
}

// ConfigBlock is the [Configuration] { ... } block (spec.md §6); entries
// are consumed by package config before parsing continues, since some
// settings (keyword spellings) affect lexing of the rest of the file.
type ConfigBlock struct {
	base
	Entries []*ConfigEntry
}

// The constructors below are the only way other packages (parser,
// generator tests) can build a node with a source position, since
// `base` is unexported: it carries the position Pos() needs. A node
// built as a struct literal elsewhere reports the zero position.

func NewDocument(pos token.Position) *Document { return &Document{base: base{pos}} }

func NewAttribute(pos token.Position, name, value string) *Attribute {
	return &Attribute{base: base{pos}, Name: name, Value: value}
}

func NewElement(pos token.Position, tag string) *Element {
	return &Element{base: base{pos}, Tag: tag}
}

func NewText(pos token.Position, value string) *Text {
	return &Text{base: base{pos}, Value: value}
}

func NewComment(pos token.Position, text string) *Comment {
	return &Comment{base: base{pos}, Text: text}
}

func NewStyleRule(pos token.Position, selector string) *StyleRule {
	return &StyleRule{base: base{pos}, Selector: selector}
}

func NewStyleDecl(pos token.Position, property, value string) *StyleDecl {
	return &StyleDecl{base: base{pos}, Property: property, Value: value}
}

// NewValuelessStyleDecl builds a StyleDecl for a [Custom] definition's
// "property;" entry, which has no value until specialized at a use site.
func NewValuelessStyleDecl(pos token.Position, property string) *StyleDecl {
	return &StyleDecl{base: base{pos}, Property: property, Valueless: true}
}

func NewStyleBlock(pos token.Position) *StyleBlock {
	return &StyleBlock{base: base{pos}}
}

func NewScriptBlock(pos token.Position, source string) *ScriptBlock {
	return &ScriptBlock{base: base{pos}, Source: source}
}

func NewTemplateDecl(pos token.Position, kind DefKind, name string) *TemplateDecl {
	return &TemplateDecl{base: base{pos}, Kind: kind, Name: name}
}

func NewCustomDecl(pos token.Position, kind DefKind, name string) *CustomDecl {
	return &CustomDecl{base: base{pos}, Kind: kind, Name: name}
}

func NewSpecOp(pos token.Position, kind SpecOpKind, target string, value Node) *SpecOp {
	return &SpecOp{base: base{pos}, Kind: kind, Target: target, Value: value}
}

func NewUsage(pos token.Position, kind DefKind, name string) *Usage {
	return &Usage{base: base{pos}, Kind: kind, Name: name}
}

func NewOrigin(pos token.Position, kind OriginKind, name, raw string) *Origin {
	return &Origin{base: base{pos}, Kind: kind, Name: name, Raw: raw}
}

func NewImport(pos token.Position, kind ImportKind, path string) *Import {
	return &Import{base: base{pos}, Kind: kind, Path: path}
}

func NewNamespace(pos token.Position, name string) *Namespace {
	return &Namespace{base: base{pos}, Name: name}
}

func NewConfigEntry(pos token.Position, name, value string) *ConfigEntry {
	return &ConfigEntry{base: base{pos}, Name: name, Value: value}
}

func NewConfigBlock(pos token.Position) *ConfigBlock {
	return &ConfigBlock{base: base{pos}}
}
