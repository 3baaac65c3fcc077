package parser

import (
	"testing"

	"chtl/ast"
	"chtl/lexer"
)

func parse(t *testing.T, src string) *ast.Document {
	t.Helper()
	toks := lexer.Tokenize(src, nil)
	doc, diags := Parse(toks, src)
	if len(diags) != 0 {
		t.Fatalf("parse(%q) diagnostics: %v", src, diags)
	}
	return doc
}

func TestParseSimpleElement(t *testing.T) {
	doc := parse(t, `div { id: "app"; text { "hello" } }`)
	if len(doc.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(doc.Statements))
	}
	elem, ok := doc.Statements[0].(*ast.Element)
	if !ok {
		t.Fatalf("expected *ast.Element, got %T", doc.Statements[0])
	}
	if elem.Tag != "div" {
		t.Errorf("tag = %q", elem.Tag)
	}
	if len(elem.Attributes) != 1 || elem.Attributes[0].Name != "id" {
		t.Fatalf("attributes = %+v", elem.Attributes)
	}
	if len(elem.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(elem.Children))
	}
	if _, ok := elem.Children[0].(*ast.Text); !ok {
		t.Errorf("expected Text child, got %T", elem.Children[0])
	}
}

func TestParseNestedElementAndStyle(t *testing.T) {
	doc := parse(t, `div {
		style {
			color: red;
			.box {
				margin: 0;
			}
		}
		span { }
	}`)
	elem := doc.Statements[0].(*ast.Element)
	if elem.Style == nil {
		t.Fatalf("expected style block")
	}
	if len(elem.Style.Rules) != 2 {
		t.Fatalf("expected 2 style rules (bare + .box), got %d: %+v", len(elem.Style.Rules), elem.Style.Rules)
	}
	if elem.Style.Rules[0].Selector != "" {
		t.Errorf("expected first rule to be the bare declaration rule, got selector %q", elem.Style.Rules[0].Selector)
	}
	if elem.Style.Rules[1].Selector != ".box" {
		t.Errorf("expected second rule selector '.box', got %q", elem.Style.Rules[1].Selector)
	}
	if len(elem.Children) != 1 {
		t.Fatalf("expected 1 nested element child, got %d", len(elem.Children))
	}
}

func TestParseScriptBlockCapturesSourceVerbatim(t *testing.T) {
	doc := parse(t, `div { script { console.log("hi there"); {{#btn}} -> Listen { click: onClick }; } }`)
	elem := doc.Statements[0].(*ast.Element)
	if elem.Script == nil {
		t.Fatalf("expected a script block")
	}
	want := `console.log("hi there"); {{#btn}} -> Listen { click: onClick };`
	if elem.Script.Source != want {
		t.Errorf("got %q, want %q", elem.Script.Source, want)
	}
}

func TestParseTemplateDecl(t *testing.T) {
	doc := parse(t, `[Template] @Style Card {
		color: blue;
		padding: 10px;
	}`)
	decl, ok := doc.Statements[0].(*ast.TemplateDecl)
	if !ok {
		t.Fatalf("expected *ast.TemplateDecl, got %T", doc.Statements[0])
	}
	if decl.Kind != ast.StyleDef || decl.Name != "Card" {
		t.Errorf("got kind=%v name=%q", decl.Kind, decl.Name)
	}
	if len(decl.Body) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decl.Body))
	}
}

func TestParseCustomDeclWithValuelessProperty(t *testing.T) {
	doc := parse(t, `[Custom] @Style Btn {
		padding: 10px;
		background-color;
		color: white;
	}`)
	decl, ok := doc.Statements[0].(*ast.CustomDecl)
	if !ok {
		t.Fatalf("expected *ast.CustomDecl, got %T", doc.Statements[0])
	}
	if len(decl.Body) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(decl.Body))
	}
	bg, ok := decl.Body[1].(*ast.StyleDecl)
	if !ok {
		t.Fatalf("expected *ast.StyleDecl, got %T", decl.Body[1])
	}
	if bg.Property != "background-color" || !bg.Valueless {
		t.Errorf("got %+v, want a valueless background-color declaration", bg)
	}
}

func TestParseUsage(t *testing.T) {
	doc := parse(t, `div { @Style Card; }`)
	elem := doc.Statements[0].(*ast.Element)
	usage, ok := elem.Children[0].(*ast.Usage)
	if !ok {
		t.Fatalf("expected *ast.Usage, got %T", elem.Children[0])
	}
	if usage.Kind != ast.StyleDef || usage.Name != "Card" {
		t.Errorf("got kind=%v name=%q", usage.Kind, usage.Name)
	}
}

func TestParseImportWithExceptAndAlias(t *testing.T) {
	doc := parse(t, `[Import] @Chtl from "shared.chtl" as Shared except Foo, Bar;`)
	imp, ok := doc.Statements[0].(*ast.Import)
	if !ok {
		t.Fatalf("expected *ast.Import, got %T", doc.Statements[0])
	}
	if imp.Path != "shared.chtl" || imp.Alias != "Shared" {
		t.Errorf("got path=%q alias=%q", imp.Path, imp.Alias)
	}
	if len(imp.Except) != 2 || imp.Except[0] != "Foo" || imp.Except[1] != "Bar" {
		t.Errorf("got except=%v", imp.Except)
	}
}

func TestParseOriginCapturesRawVerbatim(t *testing.T) {
	doc := parse(t, `[Origin] @Html { <div class="x"> nested { braces } here </div> }`)
	origin, ok := doc.Statements[0].(*ast.Origin)
	if !ok {
		t.Fatalf("expected *ast.Origin, got %T", doc.Statements[0])
	}
	if origin.Kind != ast.OriginHTML {
		t.Errorf("got kind=%v", origin.Kind)
	}
	want := `<div class="x"> nested { braces } here </div>`
	if origin.Raw != want {
		t.Errorf("got raw=%q, want %q", origin.Raw, want)
	}
}

func TestParseOriginStyleWithUnbalancedBracesIsDiagnosed(t *testing.T) {
	src := `[Origin] @Style { .card { color: red; `
	toks := lexer.Tokenize(src, nil)
	_, diags := Parse(toks, src)
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for unbalanced [Origin] @Style braces")
	}
}

func TestParseNamespace(t *testing.T) {
	doc := parse(t, `[Namespace] ui {
		[Template] @Element Box {
			div { }
		}
	}`)
	ns, ok := doc.Statements[0].(*ast.Namespace)
	if !ok {
		t.Fatalf("expected *ast.Namespace, got %T", doc.Statements[0])
	}
	if ns.Name != "ui" || len(ns.Statements) != 1 {
		t.Fatalf("got name=%q statements=%d", ns.Name, len(ns.Statements))
	}
}

func TestParseConfigurationBlock(t *testing.T) {
	doc := parse(t, `[Configuration] {
		DEBUG_MODE = true;
	}`)
	cfg, ok := doc.Statements[0].(*ast.ConfigBlock)
	if !ok {
		t.Fatalf("expected *ast.ConfigBlock, got %T", doc.Statements[0])
	}
	if len(cfg.Entries) != 1 || cfg.Entries[0].Name != "DEBUG_MODE" {
		t.Fatalf("got entries=%+v", cfg.Entries)
	}
}

func TestParserRecoversFromMalformedStatement(t *testing.T) {
	src := `div { ??? } span { }`
	toks := lexer.Tokenize(src, nil)
	doc, diags := Parse(toks, src)
	if len(diags) == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
	if len(doc.Statements) != 2 {
		t.Fatalf("expected parser to recover and still produce 2 statements, got %d", len(doc.Statements))
	}
}
