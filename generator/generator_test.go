package generator

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chtl/ast"
	"chtl/lexer"
	"chtl/parser"
	"chtl/symtab"
	"chtl/token"
)

func generate(t *testing.T, src string, opts Options) (Result, []Diagnostic) {
	t.Helper()
	return generateWithTable(t, src, opts, symtab.New())
}

func generateWithTable(t *testing.T, src string, opts Options, table *symtab.Table) (Result, []Diagnostic) {
	t.Helper()
	toks := lexer.Tokenize(src, nil)
	doc, pdiag := parser.Parse(toks, src)
	if len(pdiag) != 0 {
		t.Fatalf("parse diagnostics: %v", pdiag)
	}
	g := New(opts, table)
	return g.Generate(doc)
}

func TestGenerateTextAndStyleRule(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generate(t, `div { style { .box { color: red; } } text { "hi" } }`, opts)
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if !strings.Contains(res.HTML, `class="box"`) {
		t.Errorf("expected auto class attribute, got %q", res.HTML)
	}
	if !strings.Contains(res.CSS, ".box {") {
		t.Errorf("expected .box rule in CSS, got %q", res.CSS)
	}
	if !strings.Contains(res.HTML, "hi") {
		t.Errorf("expected text content, got %q", res.HTML)
	}
}

func TestGenerateMinimalElementRendersSingleTextChildInline(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generate(t, `div { text { "hi" } }`, opts)
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if res.HTML != "<div>hi</div>\n" {
		t.Errorf("got HTML %q, want %q", res.HTML, "<div>hi</div>\n")
	}
}

func TestGenerateDerivedClassAndInlineStyleRenderInline(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generate(t, `div { style { .box { color: red; } padding: 5px; } text { "x" } }`, opts)
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if res.HTML != `<div class="box" style="padding:5px;">x</div>`+"\n" {
		t.Errorf("got HTML %q", res.HTML)
	}
}

func TestGenerateDerivedClassMergesWithExplicitClass(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generate(t, `div { class: "a"; style { .b { color: red; } } }`, opts)
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if !strings.Contains(res.HTML, `class="a b"`) {
		t.Errorf("expected union class=\"a b\", got %q", res.HTML)
	}
	if !strings.Contains(res.CSS, ".b {") {
		t.Errorf("expected .b rule in CSS, got %q", res.CSS)
	}
}

func TestGenerateAutoIDDoesNotOverwriteExplicitClass(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, _ := generate(t, `div { class: "explicit"; style { #thing { color: blue; } } }`, opts)
	if !strings.Contains(res.HTML, `id="thing"`) {
		t.Errorf("expected auto id alongside the explicit class, got %q", res.HTML)
	}
	if !strings.Contains(res.HTML, `class="explicit"`) {
		t.Errorf("expected explicit class preserved, got %q", res.HTML)
	}
}

func TestGenerateVoidElementSelfCloses(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, _ := generate(t, `img { src: "a.png"; }`, opts)
	if !strings.Contains(res.HTML, "<img") || !strings.Contains(res.HTML, "/>") {
		t.Errorf("expected self-closing void element, got %q", res.HTML)
	}
	if strings.Contains(res.HTML, "</img>") {
		t.Errorf("void element must not have a closing tag, got %q", res.HTML)
	}
}

func TestGenerateWrapsFullDocumentByDefault(t *testing.T) {
	opts := DefaultOptions()
	res, _ := generate(t, `div { style { .x { color: red; } } text { "x" } }`, opts)
	if !strings.HasPrefix(res.HTML, "<!DOCTYPE html>") {
		t.Errorf("expected a full document wrapper, got %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "<style>") {
		t.Errorf("expected inline style block, got %q", res.HTML)
	}
}

func TestGenerateUndefinedUsageIsDiagnosedNotPanicked(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	_, diag := generate(t, `div { @Style Missing; }`, opts)
	if len(diag) == 0 {
		t.Fatalf("expected a diagnostic for an unresolved usage")
	}
}

// TestSameSourceProducesIdenticalOutput asserts Generate is pure: given
// the same AST, the same Result comes back every time, matching the
// lexer's purity guarantee.
func TestSameSourceProducesIdenticalOutput(t *testing.T) {
	src := `div { style { .card { color: green; } } text { "y" } }`
	opts := DefaultOptions()
	opts.DefaultStruct = false
	first, _ := generate(t, src, opts)
	second, _ := generate(t, src, opts)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("generation is not deterministic (-first +second):\n%s", diff)
	}
}

func TestGenerateBareStyleDeclsBecomeInlineStyleAttribute(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generate(t, `div { style { width: 100px + 50px; height: width * 2; } }`, opts)
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if !strings.Contains(res.HTML, `style="width:150px; height:300px;"`) {
		t.Errorf("expected evaluated inline style, got %q", res.HTML)
	}
	if strings.Contains(res.CSS, "width") {
		t.Errorf("bare declarations must not leak into the global CSS buffer, got %q", res.CSS)
	}
}

func TestGenerateBareAndSelectorDeclsCoexist(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generate(t, `div { style { color: red; .box { font-weight: bold; } } }`, opts)
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if !strings.Contains(res.HTML, `style="color:red;"`) {
		t.Errorf("expected bare decl as inline style, got %q", res.HTML)
	}
	if !strings.Contains(res.CSS, ".box {") || !strings.Contains(res.CSS, "font-weight") {
		t.Errorf("expected selector rule in CSS, got %q", res.CSS)
	}
}

func btnCustomTable() *symtab.Table {
	table := symtab.New()
	table.Root.Define(&symtab.Entry{
		Kind:     ast.StyleDef,
		Name:     "Btn",
		IsCustom: true,
		Body: []ast.Node{
			ast.NewStyleDecl(token.Position{}, "padding", "10px"),
			ast.NewValuelessStyleDecl(token.Position{}, "background-color"),
		},
	})
	return table
}

func TestGenerateValuelessCustomPropertySpecializedAtUseSite(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generateWithTable(t, `div { style { @Style Btn { background-color: blue; } } }`, opts, btnCustomTable())
	if len(diag) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if !strings.Contains(res.HTML, "background-color:blue") {
		t.Errorf("expected the specialized value in the inline style, got %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "padding:10px") {
		t.Errorf("expected the inherited padding declaration too, got %q", res.HTML)
	}
}

func TestGenerateValuelessCustomPropertyUnspecializedIsDiagnosed(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultStruct = false
	res, diag := generateWithTable(t, `div { style { @Style Btn; } } `, opts, btnCustomTable())
	if len(diag) == 0 {
		t.Fatalf("expected a diagnostic for the unresolved valueless property")
	}
	if strings.Contains(res.HTML, "background-color") {
		t.Errorf("an unresolved valueless property must not appear in output, got %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "padding:10px") {
		t.Errorf("expected the padding declaration still present, got %q", res.HTML)
	}
}

func TestSortedKeysIsStableRegardlessOfMapOrder(t *testing.T) {
	m := map[string]string{"z": "1", "a": "2", "m": "3"}
	got := sortedKeys(m)
	want := []string{"a", "m", "z"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sortedKeys mismatch (-want +got):\n%s", diff)
	}
}
