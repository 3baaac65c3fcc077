// Package parser implements C3: the main recursive-descent parser
// turning a token stream into an ast.Document. Grounded on
// original_source/CHTL/CHTLParser (statement dispatch by leading
// keyword) and on wispy-core's pkg/fml-template tag-stack scanning
// style for brace-balanced recovery.
package parser

import (
	"fmt"
	"strings"

	"chtl/ast"
	"chtl/token"
)

// Diagnostic is a single non-fatal parse error, accumulated rather than
// raised, per spec.md §7's never-panic requirement.
type Diagnostic struct {
	Pos token.Position
	Msg string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Msg)
}

// Parser walks a flat token slice (as produced by package lexer) into
// an AST, recovering from malformed statements by skipping to the next
// balanced brace boundary rather than aborting the whole parse.
type Parser struct {
	toks []token.Token
	src  string
	pos  int
	diag []Diagnostic
}

// Parse parses a complete token stream (ending in token.EOF) into a
// Document, returning any diagnostics gathered along the way. src is the
// original source text the tokens were lexed from, needed so script{} and
// [Origin] bodies can be captured as verbatim byte substrings rather than
// reconstructed from token text (spec.md §4.3, §4.6).
func Parse(toks []token.Token, src string) (*ast.Document, []Diagnostic) {
	p := &Parser{toks: toks, src: src}
	doc := &ast.Document{}
	for !p.atEOF() {
		if stmt := p.parseStatement(); stmt != nil {
			doc.Statements = append(doc.Statements, stmt)
		}
	}
	return doc, p.diag
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i < 0 || i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	p.diag = append(p.diag, Diagnostic{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// expect consumes the current token if it matches kind, else records a
// diagnostic and leaves the cursor in place so the caller can attempt
// recovery.
func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.cur().Kind == kind {
		return p.advance(), true
	}
	p.errorf(p.cur().Pos, "expected %s, got %s", kind, p.cur().Kind)
	return token.Token{}, false
}

// captureRawBody consumes tokens up to and including the matching closing
// '}' (the opening '{' must already be consumed, with the cursor
// positioned just after it), returning the exact source substring spanning
// the body — not a re-joined reconstruction of token text — so quotes,
// internal whitespace and comments survive untouched (spec.md §4.3's
// "body captured verbatim", §4.6's "raw text ... emitted verbatim").
func (p *Parser) captureRawBody() string {
	startOffset := p.cur().Pos.Offset
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		if t.Kind == token.RBrace && depth == 0 {
			endOffset := t.Pos.Offset
			p.advance()
			return strings.TrimSpace(p.src[startOffset:endOffset])
		}
		if t.Kind == token.LBrace {
			depth++
		}
		if t.Kind == token.RBrace {
			depth--
		}
		p.advance()
	}
	return strings.TrimSpace(p.src[startOffset:])
}

// recover skips tokens until a statement boundary (top-level `;` or a
// balanced `}`) so one malformed statement doesn't poison the rest of
// the file (spec.md §7).
func (p *Parser) recover() {
	depth := 0
	for !p.atEOF() {
		switch p.cur().Kind {
		case token.LBrace:
			depth++
			p.advance()
			continue
		case token.RBrace:
			if depth == 0 {
				// Leave the enclosing block's own closing brace
				// unconsumed so the caller's loop sees it and exits
				// normally instead of having it swallowed here.
				return
			}
			depth--
			p.advance()
			continue
		case token.Semi:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// parseStatement dispatches on the current token's leading keyword,
// per spec.md §4.3.
func (p *Parser) parseStatement() ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.GeneratorComment:
		p.advance()
		return &ast.Comment{Text: t.Text}
	case token.BracketKeyword:
		return p.parseBracketStatement()
	case token.AtIdent:
		return p.parseUsage()
	case token.Keyword:
		if t.Text == "text" {
			return p.parseText()
		}
		return p.parseElement()
	case token.Ident:
		return p.parseElement()
	default:
		p.errorf(t.Pos, "unexpected token %s at top level", t.Kind)
		p.recover()
		return nil
	}
}

func (p *Parser) parseBracketStatement() ast.Node {
	t := p.cur()
	switch t.Text {
	case "Template":
		return p.parseTemplateDecl()
	case "Custom":
		return p.parseCustomDecl()
	case "Origin":
		return p.parseOrigin()
	case "Import":
		return p.parseImport()
	case "Namespace":
		return p.parseNamespace()
	case "Configuration":
		return p.parseConfigBlock()
	default:
		p.errorf(t.Pos, "unknown bracket keyword [%s]", t.Text)
		p.advance()
		p.recover()
		return nil
	}
}

func (p *Parser) parseText() ast.Node {
	start := p.cur().Pos
	p.advance() // 'text'
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return nil
	}
	var b []byte
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		t := p.advance()
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, t.Text...)
	}
	p.expect(token.RBrace)
	return ast.NewText(start, string(b))
}
