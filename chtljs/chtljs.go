// Package chtljs implements C7: the CHTL-JS sub-compiler. It rewrites
// CHTL-JS sugar syntax inside a script{} block's raw text into plain
// JavaScript by scanning the flat token list reused from package lexer
// and recognizing head tokens/balanced-brace regions — a token-level
// rewrite, not an AST-level one, per spec.md §9's design note and
// grounded on wispy-core's pkg/fml-template/template.go SeekClosingTag
// (brace-stack scanning over a flat token/rune stream).
package chtljs

import (
	"fmt"
	"strings"

	"chtl/lexer"
	"chtl/plugin"
	"chtl/token"
)

// Diagnostic mirrors the other packages' non-fatal error shape.
type Diagnostic struct {
	Pos token.Position
	Msg string
}

func (d Diagnostic) String() string { return fmt.Sprintf("%s: %s", d.Pos, d.Msg) }

// Compile rewrites CHTL-JS source into plain JavaScript, returning any
// diagnostics gathered (spec.md §4.6 never aborts wholesale on an
// unrecognized or malformed form — it emits a console.error call inline
// and continues). No CJMOD-style plugin syntax is recognized; use
// CompileWithPlugins for that.
func Compile(source string) (string, []Diagnostic) {
	return CompileWithPlugins(source, nil)
}

// CompileWithPlugins is Compile, additionally trying registry's
// CJMOD-style patterns (spec.md §4.7, package plugin / C8) at every
// token position before the built-in rewrites are tried there. A
// matching plugin's Transform output is spliced in verbatim in place of
// the tokens it consumed.
func CompileWithPlugins(source string, registry *plugin.Registry) (string, []Diagnostic) {
	toks := lexer.Tokenize(source, nil)
	c := &compiler{toks: toks, plugins: registry}
	return c.run(), c.diag
}

type compiler struct {
	toks      []token.Token
	pos       int
	diag      []Diagnostic
	out       strings.Builder
	stmtStart int // byte offset into out.String() where the current target expression began
	plugins   *plugin.Registry
}

func (c *compiler) cur() token.Token {
	if c.pos >= len(c.toks) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[c.pos]
}

func (c *compiler) peekAt(n int) token.Token {
	i := c.pos + n
	if i < 0 || i >= len(c.toks) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[i]
}

func (c *compiler) advance() token.Token {
	t := c.cur()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

func (c *compiler) errorf(pos token.Position, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.diag = append(c.diag, Diagnostic{Pos: pos, Msg: msg})
	c.out.WriteString(fmt.Sprintf("console.error('CHTL JS %s Error: %s');\n", pos, msg))
}

func (c *compiler) run() string {
	c.stmtStart = 0
	for c.cur().Kind != token.EOF {
		switch {
		// spec.md §4.6: "a configurable plugin registry (C8) is consulted
		// [b]efore built-in recognition ... Built-ins run only for
		// unmatched regions" — a registered CJMOD-style pattern must get
		// the chance to claim a keyword (e.g. "Animate") ahead of any
		// built-in rewrite for that same form.
		case c.plugins != nil && c.tryPlugin():
			c.stmtStart = c.out.Len()
		case c.cur().Kind == token.LDoubleBrace:
			c.rewriteSelector()
		case c.cur().Kind == token.Arrow:
			target := strings.TrimSpace(c.out.String()[c.stmtStart:])
			c.rewriteArrow(target)
			c.stmtStart = c.out.Len()
		case c.cur().Kind == token.Ident && c.cur().Text == "Animate" && c.peekAt(1).Kind == token.LBrace:
			c.rewriteAnimate()
			c.stmtStart = c.out.Len()
		case c.cur().Kind == token.Ident && c.cur().Text == "Router" && c.peekAt(1).Kind == token.LBrace:
			c.rewriteKeyedCall("chtlRouter.configure")
			c.stmtStart = c.out.Len()
		case c.cur().Kind == token.Ident && c.cur().Text == "ScriptLoader" && c.peekAt(1).Kind == token.LBrace:
			c.rewriteKeyedCall("chtlScriptLoader.load")
			c.stmtStart = c.out.Len()
		case c.cur().Kind == token.Ident && c.cur().Text == "Vir":
			c.rewriteVir()
			c.stmtStart = c.out.Len()
		case c.cur().Kind == token.Semi:
			t := c.advance()
			c.out.WriteString(t.Text)
			c.out.WriteString("\n")
			c.stmtStart = c.out.Len()
		default:
			t := c.advance()
			c.out.WriteString(t.Text)
			c.out.WriteString(" ")
		}
	}
	return c.out.String()
}

// tryPlugin attempts a registered CJMOD-style pattern match at the
// current position, splicing in the plugin's transform output and
// advancing past the tokens it consumed on success (spec.md §4.7).
func (c *compiler) tryPlugin() bool {
	m, ok := c.plugins.Match(c.toks, c.pos)
	if !ok {
		return false
	}
	out, err := plugin.Apply(m)
	if err != nil {
		c.errorf(c.cur().Pos, "%v", err)
		c.pos = m.End
		return true
	}
	c.out.WriteString(out)
	c.out.WriteString(" ")
	c.pos = m.End
	return true
}

// rewriteSelector turns `{{selector}}` into
// `document.querySelector('selector')`, CHTL-JS's enhanced selector
// sugar (spec.md §4.6).
func (c *compiler) rewriteSelector() {
	start := c.advance().Pos // '{{'
	var sel strings.Builder
	for c.cur().Kind != token.RDoubleBrace && c.cur().Kind != token.EOF {
		sel.WriteString(c.advance().Text)
	}
	if c.cur().Kind != token.RDoubleBrace {
		c.errorf(start, "unterminated {{selector}}")
		return
	}
	c.advance() // '}}'
	c.out.WriteString(fmt.Sprintf("document.querySelector('%s')", sel.String()))
}

// rewriteArrow turns `target->Listen { event: handler, ... }` and
// `target->Delegate { target: 'sel', event: handler, ... }` into one
// `target.addEventListener(...)` statement per event/handler pair
// (spec.md §4.6); target is the already-emitted text of the expression
// the arrow follows. Any other `->Method(...)` form passes through as a
// plain `.Method(...)` call, since CHTL-JS's arrow is sugar for member
// access in general.
func (c *compiler) rewriteArrow(target string) {
	c.advance() // '->'
	method := c.advance()
	switch method.Text {
	case "Listen":
		c.rewriteListen(target, false)
	case "Delegate":
		c.rewriteListen(target, true)
	default:
		c.out.WriteString(".")
		c.out.WriteString(method.Text)
	}
}

// keyValue is one key: value pair parsed out of a brace-delimited
// object literal, preserving source order.
type keyValue struct {
	key   string
	value string
}

// collectKeyValuePairs scans a balanced `{ key: value, ... }` region
// (the opening brace already consumed) into an ordered list of pairs.
func (c *compiler) collectKeyValuePairs() []keyValue {
	var pairs []keyValue
	depth := 0
	for c.cur().Kind != token.EOF {
		if c.cur().Kind == token.RBrace && depth == 0 {
			c.advance()
			break
		}
		key := c.advance().Text
		if c.cur().Kind == token.Colon {
			c.advance()
		}
		var vb strings.Builder
		for c.cur().Kind != token.EOF {
			t := c.cur()
			if depth == 0 && (t.Kind == token.Comma || t.Kind == token.RBrace) {
				break
			}
			if t.Kind == token.LBrace {
				depth++
			}
			if t.Kind == token.RBrace {
				depth--
			}
			if vb.Len() > 0 {
				vb.WriteString(" ")
			}
			vb.WriteString(c.advance().Text)
		}
		pairs = append(pairs, keyValue{key: key, value: vb.String()})
		if c.cur().Kind == token.Comma {
			c.advance()
		}
	}
	return pairs
}

// rewriteListen expands the Listen/Delegate body into one
// target.addEventListener(...) statement per event/handler pair. For
// Delegate, the body's `target` key names the CSS selector tested
// against event.target before the handler runs (spec.md §4.6).
func (c *compiler) rewriteListen(target string, delegate bool) {
	if c.cur().Kind != token.LBrace {
		c.errorf(c.cur().Pos, "expected '{' after Listen/Delegate")
		return
	}
	c.advance()
	pairs := c.collectKeyValuePairs()

	if !delegate {
		for _, kv := range pairs {
			fmt.Fprintf(&c.out, "%s.addEventListener('%s', %s);\n", target, kv.key, kv.value)
		}
		return
	}

	var selector string
	for _, kv := range pairs {
		if kv.key == "target" {
			selector = strings.Trim(kv.value, `"'`)
		}
	}
	for _, kv := range pairs {
		if kv.key == "target" {
			continue
		}
		fmt.Fprintf(&c.out, "%s.addEventListener('%s', function(event) { if (event.target.matches('%s')) { (%s)(event); } });\n",
			target, kv.key, selector, kv.value)
	}
}

// rewriteAnimate turns `Animate { key: value, ... }` into a call to a
// small runtime helper, `chtlAnimate({ key: value, ... })`, validating
// that the required `duration` and `target` keys are present (spec.md
// §4.6), emitting a console.error diagnostic inline if not.
func (c *compiler) rewriteAnimate() {
	c.rewriteKeyedCallChecked("chtlAnimate", []string{"target", "duration"})
}

func (c *compiler) rewriteKeyedCall(fn string) {
	c.rewriteKeyedCallChecked(fn, nil)
}

func (c *compiler) rewriteKeyedCallChecked(fn string, required []string) {
	pos := c.advance().Pos // head ident ('Animate'/'Router'/'ScriptLoader')
	c.advance()             // '{'
	keys, body := c.collectKeyedBody()
	for _, req := range required {
		if !keys[req] {
			c.errorf(pos, "missing required key %q", req)
		}
	}
	c.out.WriteString(fn)
	c.out.WriteString("({")
	c.out.WriteString(body)
	c.out.WriteString("})")
}

// collectKeyedBody scans a balanced-brace `{ key: value, ... }` region
// (the opening brace already consumed), returning the set of top-level
// keys seen and the reassembled body text.
func (c *compiler) collectKeyedBody() (map[string]bool, string) {
	keys := make(map[string]bool)
	depth := 0
	var sb strings.Builder
	expectKey := true
	for c.cur().Kind != token.EOF {
		t := c.cur()
		if t.Kind == token.RBrace && depth == 0 {
			c.advance()
			break
		}
		if t.Kind == token.LBrace {
			depth++
		}
		if t.Kind == token.RBrace {
			depth--
		}
		if depth == 0 && expectKey && (t.Kind == token.Ident || t.Kind == token.Keyword) {
			keys[t.Text] = true
			expectKey = false
		}
		if depth == 0 && t.Kind == token.Comma {
			expectKey = true
		}
		sb.WriteString(c.advance().Text)
		sb.WriteString(" ")
	}
	return keys, sb.String()
}

// rewriteVir handles `Vir Name { ... } iNeverAway { ... }`, CHTL-JS's
// virtual-object sugar, emitting a plain object literal bound to a
// const, with the iNeverAway block's statements appended as cleanup
// registered via a runtime helper.
func (c *compiler) rewriteVir() {
	c.advance() // 'Vir'
	name := c.advance().Text
	if c.cur().Kind != token.LBrace {
		c.errorf(c.cur().Pos, "expected '{' after Vir %s", name)
		return
	}
	c.advance()
	_, body := c.collectKeyedBody()
	c.out.WriteString(fmt.Sprintf("const %s = {%s};\n", name, body))

	if c.cur().Kind == token.Ident && c.cur().Text == "iNeverAway" {
		c.advance()
		if c.cur().Kind == token.LBrace {
			c.advance()
			_, cleanup := c.collectKeyedBody()
			c.out.WriteString(fmt.Sprintf("chtlRegisterCleanup(%s, function() { %s });\n", name, cleanup))
		}
	}
}
