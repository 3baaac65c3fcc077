// Package generator implements C6: turning a resolved AST into
// coordinated HTML/CSS/JS output. Grounded on wispy-core's
// core/render/state.go (a mutex-guarded accumulator of title/inline
// CSS/inline JS/style assets/script assets/body) and core/render/html.go
// (the <!DOCTYPE html> -> head -> body -> script assembly order and its
// &-first HTML escaper), generalized from a page-rendering pipeline to
// a CHTL-source compiler.
package generator

import (
	"fmt"
	"sort"
	"strings"

	"chtl/ast"
	"chtl/expr"
	"chtl/internal/cssutil"
	"chtl/lexer"
	"chtl/symtab"
	"chtl/token"
)

// voidElements is the HTML5 self-closing tag set (spec.md §4.5).
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// htmlEscaper escapes '&' first, matching wispy-core's core/render/html.go
// strings.NewReplacer ordering so already-escaped entities aren't
// double-escaped.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// Diagnostic mirrors parser.Diagnostic's shape for generator-stage
// errors (spec.md §7: never panic, always return diagnostics).
type Diagnostic struct {
	Pos token.Position
	Msg string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Msg)
}

// Options controls generator behavior (spec.md §6 CLI flags map onto
// these fields).
type Options struct {
	Indent         string // per-level indent string, default two spaces
	DefaultStruct  bool   // wrap output in a full <!DOCTYPE html> document
	InlineCSS      bool   // emit <style> inline instead of a linked sheet
	InlineJS       bool   // emit <script> inline instead of a linked file
	SanitizeOrigin bool   // run [Origin] @Html passthrough through bluemonday
	PrettyCSS      bool   // pretty-print the aggregated CSS buffer
}

func DefaultOptions() Options {
	return Options{Indent: "  ", DefaultStruct: true, InlineCSS: true, InlineJS: true}
}

// Result is the generator's coordinated output (spec.md §4.5/§6).
type Result struct {
	HTML string
	CSS  string
	JS   string
}

// Generator walks a Document and its resolved symbol table into HTML,
// CSS and JS buffers.
type Generator struct {
	opts  Options
	syms  *symtab.Table
	diag  []Diagnostic
	css   strings.Builder
	js    strings.Builder
	title string
}

func New(opts Options, syms *symtab.Table) *Generator {
	return &Generator{opts: opts, syms: syms}
}

// Generate renders doc into a Result, returning any diagnostics
// encountered (never panicking on malformed input).
func (g *Generator) Generate(doc *ast.Document) (Result, []Diagnostic) {
	var body strings.Builder
	for _, stmt := range doc.Statements {
		g.renderNode(&body, stmt, 0)
	}

	css := g.css.String()
	if g.opts.PrettyCSS {
		if pretty, err := cssutil.PrettyPrint(css); err == nil {
			css = pretty
		} else {
			g.errorf(token.Position{}, "pretty-print CSS: %v", err)
		}
	}

	html := body.String()
	if g.opts.DefaultStruct {
		html = g.wrapDocument(html, css)
	}

	return Result{HTML: html, CSS: css, JS: g.js.String()}, g.diag
}

func (g *Generator) errorf(pos token.Position, format string, args ...any) {
	g.diag = append(g.diag, Diagnostic{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (g *Generator) indent(depth int) string {
	return strings.Repeat(g.opts.Indent, depth)
}

func (g *Generator) renderNode(out *strings.Builder, n ast.Node, depth int) {
	switch v := n.(type) {
	case *ast.Element:
		g.renderElement(out, v, depth)
	case *ast.Text:
		out.WriteString(g.indent(depth))
		out.WriteString(htmlEscaper.Replace(v.Value))
		out.WriteString("\n")
	case *ast.Comment:
		out.WriteString(g.indent(depth))
		out.WriteString("<!-- ")
		out.WriteString(v.Text)
		out.WriteString(" -->\n")
	case *ast.Origin:
		g.renderOrigin(out, v, depth)
	case *ast.Usage:
		g.renderUsage(out, v, depth)
	case *ast.TemplateDecl, *ast.CustomDecl, *ast.Import, *ast.Namespace, *ast.ConfigBlock:
		// Declarative statements contribute no direct output; they are
		// consumed by symtab/config before generation runs.
	default:
		g.errorf(n.Pos(), "generator: unsupported node %T", n)
	}
}

// renderElement applies the style pre-pass (auto class/id derivation,
// & substitution) before emitting the opening tag, attributes, body and
// closing tag, per spec.md §4.5.
func (g *Generator) renderElement(out *strings.Builder, el *ast.Element, depth int) {
	attrs := cloneAttributes(el.Attributes)

	if el.Style != nil {
		attrs = g.applyStylePrePass(el, attrs)
	}

	out.WriteString(g.indent(depth))
	out.WriteString("<")
	out.WriteString(el.Tag)
	for _, a := range attrs {
		out.WriteString(" ")
		out.WriteString(a.Name)
		out.WriteString(`="`)
		out.WriteString(htmlEscaper.Replace(a.Value))
		out.WriteString(`"`)
	}

	if voidElements[el.Tag] {
		out.WriteString(" />\n")
		return
	}

	if el.Script != nil {
		g.js.WriteString(el.Script.Source)
		g.js.WriteString("\n")
	}

	// A single Text child is rendered inline with no surrounding
	// whitespace (spec.md §4.5 step 4, §8 scenarios 1/2): `<div>hi</div>`,
	// not a newline-and-indent per child.
	if len(el.Children) == 1 {
		if text, ok := el.Children[0].(*ast.Text); ok {
			out.WriteString(">")
			out.WriteString(htmlEscaper.Replace(text.Value))
			out.WriteString("</")
			out.WriteString(el.Tag)
			out.WriteString(">\n")
			return
		}
	}

	out.WriteString(">\n")
	for _, child := range el.Children {
		g.renderNode(out, child, depth+1)
	}

	out.WriteString(g.indent(depth))
	out.WriteString("</")
	out.WriteString(el.Tag)
	out.WriteString(">\n")
}

func cloneAttributes(in []*ast.Attribute) []*ast.Attribute {
	out := make([]*ast.Attribute, len(in))
	copy(out, in)
	return out
}

// hasClassToken reports whether name already appears among value's
// whitespace-separated class tokens.
func hasClassToken(value, name string) bool {
	for _, tok := range strings.Fields(value) {
		if tok == name {
			return true
		}
	}
	return false
}

func findAttr(attrs []*ast.Attribute, name string) (*ast.Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// applyStylePrePass derives a class attribute from every .selector rule
// (merged into any explicit class attribute's tokens as a first-seen-order
// union, spec.md §8) and an id attribute from the first #selector rule
// (never overwriting an explicit id — grounded on
// original_source/CHTL/CHTLManage/StyleEnhancer.cpp's addAutoClassId),
// substitutes `&` references, evaluates declaration value expressions,
// accumulates the bare (selector-less) declarations into an inline
// `style` attribute, and appends the selector rules to the generator's
// global CSS buffer (emitted without deduplication, per spec.md §4.5).
func (g *Generator) applyStylePrePass(el *ast.Element, attrs []*ast.Attribute) []*ast.Attribute {
	if len(el.Style.Usages) > 0 {
		g.expandStyleUsages(el.Style)
	}

	classAttr, hasClass := findAttr(attrs, "class")
	idAttr, hasID := findAttr(attrs, "id")
	idAssigned := false

	for _, rule := range el.Style.Rules {
		switch {
		case strings.HasPrefix(rule.Selector, "."):
			// Every .selector rule's bare name joins the derived-class set;
			// an explicit class attribute's tokens stay in the merged
			// result rather than suppressing derivation (spec.md §4.5 step
			// 2, §8's "class attribute equals join(union(D ∪ E), ' '),
			// first-seen order preserved").
			name := strings.TrimPrefix(rule.Selector, ".")
			if !hasClass {
				classAttr = ast.NewAttribute(rule.Pos(), "class", name)
				attrs = append(attrs, classAttr)
				hasClass = true
			} else if !hasClassToken(classAttr.Value, name) {
				classAttr.Value += " " + name
			}
		case strings.HasPrefix(rule.Selector, "#"):
			if !idAssigned && !hasID {
				name := strings.TrimPrefix(rule.Selector, "#")
				attrs = append(attrs, ast.NewAttribute(rule.Pos(), "id", name))
				hasID = true
				idAssigned = true
			}
		}
	}

	ref := g.contextReference(el.Tag, attrs, classAttr, idAttr, hasClass, hasID)

	for _, rule := range el.Style.Rules {
		if rule.Selector == "" {
			// Bare declarations belong on the element's inline style
			// attribute, not the global CSS buffer (spec.md §4.5 step 1).
			if style := g.inlineStyleValue(rule.Declarations); style != "" {
				attrs = append(attrs, ast.NewAttribute(rule.Pos(), "style", style))
			}
			continue
		}
		selector := g.resolveSelector(rule.Selector, ref)
		g.emitCSSRule(selector, rule.Declarations)
	}
	return attrs
}

// expandStyleUsages resolves each `@Style Name;`/`@Style Name { ... }`
// invocation found at the top level of a style block and merges its
// declarations and nested rules into the surrounding style context
// (spec.md §4.2: "properties and nested rules are merged into the
// surrounding style context"), applying any delete/insert/override
// specializations first. Unresolved usages are diagnosed and skipped,
// matching renderUsage's never-abort behavior.
func (g *Generator) expandStyleUsages(block *ast.StyleBlock) {
	for _, u := range block.Usages {
		entry, ok := g.syms.Lookup(g.syms.Root, u.Kind, qualifiedName(u))
		if !ok {
			g.errorf(u.Pos(), "undefined %s %q", u.Kind, u.Name)
			continue
		}
		body, err := g.syms.ResolveInheritance(g.syms.Root, entry)
		if err != nil {
			g.errorf(u.Pos(), "%v", err)
			continue
		}
		body = applySpecializations(body, u.Specializations)

		bare := bareStyleRule(block)
		for _, n := range body {
			switch d := n.(type) {
			case *ast.StyleDecl:
				if d.Valueless {
					// A [Custom] @Style/@Var property declared with no
					// value must be supplied at every use site via an
					// override specialization (spec.md §3, §4.4, §7,
					// §8 scenario 4). Reaching here un-overridden is a
					// semantic error, not a panic.
					g.errorf(d.Pos(), "unresolved valueless property %q: must be specialized at the use site", d.Property)
					continue
				}
				bare.Declarations = append(bare.Declarations, d)
			case *ast.StyleRule:
				block.Rules = append(block.Rules, d)
			}
		}
	}
}

// bareStyleRule returns (creating if absent) the Rules[0] entry holding
// declarations applied directly to the owning element, mirroring
// package parser's styleBareRule helper.
func bareStyleRule(block *ast.StyleBlock) *ast.StyleRule {
	if len(block.Rules) > 0 && block.Rules[0].Selector == "" {
		return block.Rules[0]
	}
	r := ast.NewStyleRule(block.Pos(), "")
	block.Rules = append([]*ast.StyleRule{r}, block.Rules...)
	return r
}

// contextReference picks the `&` substitution value, in order: existing
// class attribute, existing id attribute, element tag name (spec.md
// §4.5, grounded on StyleEnhancer.cpp's processContextReference).
func (g *Generator) contextReference(tag string, attrs []*ast.Attribute, classAttr, idAttr *ast.Attribute, hasClass, hasID bool) string {
	if hasClass {
		return "." + classAttr.Value
	}
	if hasID {
		return "#" + idAttr.Value
	}
	return tag
}

func (g *Generator) resolveSelector(selector, ref string) string {
	if selector == "" {
		return ref
	}
	return strings.ReplaceAll(selector, "&", ref)
}

func (g *Generator) emitCSSRule(selector string, decls []*ast.StyleDecl) {
	if selector == "" || len(decls) == 0 {
		return
	}
	g.css.WriteString(selector)
	g.css.WriteString(" {\n")
	for _, d := range g.evalDeclsOrdered(decls) {
		g.css.WriteString("  ")
		g.css.WriteString(d.Property)
		g.css.WriteString(": ")
		g.css.WriteString(d.Value)
		g.css.WriteString(";\n")
	}
	g.css.WriteString("}\n")
}

// inlineStyleValue evaluates decls in order and joins them into the
// compact "prop:value; prop2:value2;" form used for an element's
// inline `style` attribute (spec.md §8 scenario 2/3).
func (g *Generator) inlineStyleValue(decls []*ast.StyleDecl) string {
	evaluated := g.evalDeclsOrdered(decls)
	if len(evaluated) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, d := range evaluated {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(d.Property)
		sb.WriteString(":")
		sb.WriteString(d.Value)
		sb.WriteString(";")
	}
	return sb.String()
}

// evaluatedDecl is one property:value pair after expression evaluation.
type evaluatedDecl struct {
	Property string
	Value    string
}

// evalDeclsOrdered evaluates decls in source order, making each
// preceding property's value available to later declarations in the
// same rule as a property reference (spec.md §4.2: "An identifier not
// followed by '(' is looked up in the current rule's already-evaluated
// properties"). A declaration whose expression can't be parsed or
// evaluated falls back to its raw source text (e.g. "solid", "sans-serif").
func (g *Generator) evalDeclsOrdered(decls []*ast.StyleDecl) []evaluatedDecl {
	env := &styleEnv{props: make(map[string]expr.Value, len(decls)), syms: g.syms}
	out := make([]evaluatedDecl, 0, len(decls))
	for _, d := range decls {
		v, text := g.evalDeclValue(d, env)
		env.props[d.Property] = v
		out = append(out, evaluatedDecl{Property: d.Property, Value: text})
	}
	return out
}

// styleEnv implements expr.Env over the declarations evaluated so far
// within one style rule, plus the symbol table's @Var templates
// (spec.md §4.2's "variable-template access").
type styleEnv struct {
	props map[string]expr.Value
	syms  *symtab.Table
}

func (e *styleEnv) Property(name string) (expr.Value, bool) {
	v, ok := e.props[name]
	return v, ok
}

// Variable resolves Name(varName) against a [Template]/[Custom] @Var
// definition, evaluating its stored value text recursively (a variable
// group entry may itself reference another variable group).
func (e *styleEnv) Variable(templateName, varName string) (expr.Value, bool) {
	if e.syms == nil {
		return expr.Value{}, false
	}
	entry, ok := e.syms.Lookup(e.syms.Root, ast.VarDef, templateName)
	if !ok {
		return expr.Value{}, false
	}
	body, err := e.syms.ResolveInheritance(e.syms.Root, entry)
	if err != nil {
		return expr.Value{}, false
	}
	for _, n := range body {
		d, ok := n.(*ast.StyleDecl)
		if !ok || d.Property != varName {
			continue
		}
		v, _, evalErr := evalExprValue(d.Value, e)
		if evalErr != nil {
			return expr.Value{}, false
		}
		return v, true
	}
	return expr.Value{}, false
}

// evalDeclValue runs a style declaration's raw value text through the
// C2 expression evaluator against env, returning both the typed value
// (so later sibling declarations can reference it) and its rendered
// text. Falls back to the raw text (as a string-kind value) for values
// that aren't arithmetic or reference an unresolved name.
func (g *Generator) evalDeclValue(d *ast.StyleDecl, env expr.Env) (expr.Value, string) {
	v, text, err := evalExprValue(d.Value, env)
	if err != nil {
		return expr.Value{Kind: expr.KindString, Str: d.Value}, d.Value
	}
	return v, text
}

// lexForExpr re-lexes a style declaration's raw value text for the
// expression parser, dropping the trailing EOF token the parser doesn't
// expect. Values are already-scanned CHTL text at this point, so
// re-lexing only re-derives token boundaries, never reinterprets
// keywords differently.
func lexForExpr(raw string) []token.Token {
	toks := lexer.Tokenize(raw, nil)
	if len(toks) > 0 && toks[len(toks)-1].Kind == token.EOF {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// evalExprValue parses and evaluates raw against env, returning the
// typed Value, its string rendering, and any error encountered.
func evalExprValue(raw string, env expr.Env) (expr.Value, string, error) {
	toks := lexForExpr(raw)
	if len(toks) == 0 {
		return expr.Value{Kind: expr.KindString, Str: raw}, raw, nil
	}
	n, perrs := expr.Parse(toks)
	if len(perrs) != 0 {
		return expr.Value{}, raw, perrs[0]
	}
	v, eerr := expr.EvalEnv(n, env)
	if eerr != nil {
		return expr.Value{}, raw, eerr
	}
	return v, v.String(), nil
}

func (g *Generator) renderOrigin(out *strings.Builder, o *ast.Origin, depth int) {
	switch o.Kind {
	case ast.OriginHTML:
		raw := o.Raw
		if g.opts.SanitizeOrigin {
			raw = cssutil.SanitizeHTML(raw)
		}
		out.WriteString(g.indent(depth))
		out.WriteString(raw)
		out.WriteString("\n")
	case ast.OriginStyle:
		g.css.WriteString(o.Raw)
		g.css.WriteString("\n")
	case ast.OriginJavaScript:
		g.js.WriteString(o.Raw)
		g.js.WriteString("\n")
	}
}

// renderUsage expands a @Style/@Element/@Var usage by looking up its
// definition (with inheritance flattened) and re-entering the
// appropriate render path. Unresolved usages produce a diagnostic and
// are skipped rather than aborting the whole render (spec.md §7).
func (g *Generator) renderUsage(out *strings.Builder, u *ast.Usage, depth int) {
	entry, ok := g.syms.Lookup(g.syms.Root, u.Kind, qualifiedName(u))
	if !ok {
		g.errorf(u.Pos(), "undefined %s %q", u.Kind, u.Name)
		return
	}
	body, err := g.syms.ResolveInheritance(g.syms.Root, entry)
	if err != nil {
		g.errorf(u.Pos(), "%v", err)
		return
	}
	body = applySpecializations(body, u.Specializations)
	for _, n := range body {
		g.renderNode(out, n, depth)
	}
}

func qualifiedName(u *ast.Usage) string {
	if u.Namespace == "" {
		return u.Name
	}
	return u.Namespace + "." + u.Name
}

// applySpecializations applies delete/insert/override operations from a
// custom usage on top of its flattened inherited body (spec.md §4.4).
func applySpecializations(body []ast.Node, ops []*ast.SpecOp) []ast.Node {
	if len(ops) == 0 {
		return body
	}
	out := make([]ast.Node, len(body))
	copy(out, body)
	for _, op := range ops {
		switch op.Kind {
		case ast.SpecDelete:
			out = deleteByTarget(out, op.Target)
		case ast.SpecOverride:
			out = overrideByTarget(out, op.Target, op.Value)
		case ast.SpecInsertAfter, ast.SpecInsertBefore:
			out = insertRelative(out, op)
		}
	}
	return out
}

func deleteByTarget(nodes []ast.Node, target string) []ast.Node {
	var out []ast.Node
	for _, n := range nodes {
		if d, ok := n.(*ast.StyleDecl); ok && d.Property == target {
			continue
		}
		out = append(out, n)
	}
	return out
}

func overrideByTarget(nodes []ast.Node, target string, value ast.Node) []ast.Node {
	out := make([]ast.Node, len(nodes))
	copy(out, nodes)
	for i, n := range out {
		if d, ok := n.(*ast.StyleDecl); ok && d.Property == target {
			out[i] = value
			return out
		}
	}
	return append(out, value)
}

func insertRelative(nodes []ast.Node, op *ast.SpecOp) []ast.Node {
	idx := -1
	for i, n := range nodes {
		if el, ok := n.(*ast.Element); ok && el.Tag == op.Target {
			idx = i
			break
		}
	}
	if idx == -1 || op.Value == nil {
		if op.Value != nil {
			return append(nodes, op.Value)
		}
		return nodes
	}
	insertAt := idx + 1
	if op.Kind == ast.SpecInsertBefore {
		insertAt = idx
	}
	out := make([]ast.Node, 0, len(nodes)+1)
	out = append(out, nodes[:insertAt]...)
	out = append(out, op.Value)
	out = append(out, nodes[insertAt:]...)
	return out
}

// wrapDocument assembles the full HTML document, mirroring wispy-core's
// core/render/html.go HtmlBaseRender order: doctype, head (charset,
// title, stylesheet-or-inline-style), body, then script.
func (g *Generator) wrapDocument(body, css string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	if g.title != "" {
		b.WriteString("  <title>" + htmlEscaper.Replace(g.title) + "</title>\n")
	}
	if css != "" {
		if g.opts.InlineCSS {
			b.WriteString("  <style>\n" + css + "  </style>\n")
		} else {
			b.WriteString("  <link rel=\"stylesheet\" href=\"style.css\">\n")
		}
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	if js := g.js.String(); js != "" && g.opts.InlineJS {
		b.WriteString("  <script>\n" + js + "  </script>\n")
	} else if js != "" {
		b.WriteString("  <script src=\"script.js\"></script>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// sortedKeys is a small helper kept for deterministic iteration over
// maps elsewhere in this package's tests.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
