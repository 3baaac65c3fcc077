package parser

import (
	"chtl/ast"
	"chtl/internal/cssutil"
	"chtl/token"
)

var atIdentToDefKind = map[string]ast.DefKind{
	"Style":   ast.StyleDef,
	"Element": ast.ElementDef,
	"Var":     ast.VarDef,
}

func defKindFor(name string) (ast.DefKind, bool) {
	k, ok := atIdentToDefKind[name]
	return k, ok
}

// parseUsage parses `@Kind Name;` or `@Kind Name { specializations }`
// (spec.md §4.3/§4.4), and also `@Kind ns.Name ...` qualified forms.
func (p *Parser) parseUsage() ast.Node {
	at := p.advance() // AtIdent
	kind, ok := defKindFor(at.Text)
	if !ok {
		p.errorf(at.Pos, "unknown template/custom kind @%s", at.Text)
		p.recover()
		return nil
	}
	nameTok := p.advance()
	usage := ast.NewUsage(at.Pos, kind, nameTok.Text)
	for p.cur().Kind == token.Dot && p.peekAt(1).Kind == token.Ident {
		p.advance() // '.'
		if usage.Namespace == "" {
			usage.Namespace = usage.Name
		} else {
			usage.Namespace += "." + usage.Name
		}
		usage.Name = p.advance().Text
	}
	if p.cur().Kind == token.Semi {
		p.advance()
		return usage
	}
	if p.cur().Kind == token.LBrace {
		usage.Specializations = p.parseSpecializations()
	}
	return usage
}

// parseSpecializations parses the body of a custom usage that overrides,
// deletes or inserts content relative to the inherited definition
// (spec.md §4.4).
func (p *Parser) parseSpecializations() []*ast.SpecOp {
	p.advance() // '{'
	var ops []*ast.SpecOp
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		switch {
		case p.cur().Kind == token.Keyword && p.cur().Text == "delete":
			pos := p.advance().Pos
			target := p.collectValueUntilSemi()
			p.expect(token.Semi)
			ops = append(ops, ast.NewSpecOp(pos, ast.SpecDelete, target, nil))
		case p.cur().Kind == token.Keyword && p.cur().Text == "insert":
			pos := p.advance().Pos
			kindTok := p.advance() // 'after' or 'before'
			k := ast.SpecInsertAfter
			if kindTok.Text == "before" {
				k = ast.SpecInsertBefore
			}
			target := p.advance().Text
			var value ast.Node
			if p.cur().Kind == token.LBrace {
				value = p.parseElement2Body(target)
			}
			ops = append(ops, ast.NewSpecOp(pos, k, target, value))
		case (p.cur().Kind == token.Ident || p.cur().Kind == token.Keyword) && p.peekAt(1).Kind == token.Colon:
			decl := p.parseStyleDecl()
			ops = append(ops, ast.NewSpecOp(decl.Pos(), ast.SpecOverride, decl.Property, decl))
		default:
			p.errorf(p.cur().Pos, "unexpected token %s in specialization body", p.cur().Kind)
			p.recover()
		}
	}
	p.expect(token.RBrace)
	return ops
}

// parseElement2Body parses an inline "tagName { ... }" shape used as the
// value of an `insert after|before` specialization, reusing the element
// body parser with a synthetic tag.
func (p *Parser) parseElement2Body(tag string) ast.Node {
	start := p.cur().Pos
	elem := ast.NewElement(start, tag)
	p.advance() // '{'
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		switch {
		case p.cur().Kind == token.Keyword && p.cur().Text == "text":
			elem.Children = append(elem.Children, p.parseText())
		case p.cur().Kind == token.Ident && p.peekAt(1).Kind == token.LBrace:
			elem.Children = append(elem.Children, p.parseElement())
		default:
			p.recover()
		}
	}
	p.expect(token.RBrace)
	return elem
}

// parseTemplateDecl parses `[Template] @Kind Name { [inherit X;]* body }`.
func (p *Parser) parseTemplateDecl() ast.Node {
	bracketPos := p.advance().Pos // '[Template]'
	at, ok := p.expect(token.AtIdent)
	if !ok {
		p.recover()
		return nil
	}
	kind, ok := defKindFor(at.Text)
	if !ok {
		p.errorf(at.Pos, "unknown template kind @%s", at.Text)
		p.recover()
		return nil
	}
	name := p.advance().Text
	decl := ast.NewTemplateDecl(bracketPos, kind, name)
	decl.Inherits, decl.Body = p.parseDeclBody(kind)
	return decl
}

// parseCustomDecl parses `[Custom] @Kind Name { [inherit X;]* body }`.
func (p *Parser) parseCustomDecl() ast.Node {
	bracketPos := p.advance().Pos // '[Custom]'
	at, ok := p.expect(token.AtIdent)
	if !ok {
		p.recover()
		return nil
	}
	kind, ok := defKindFor(at.Text)
	if !ok {
		p.errorf(at.Pos, "unknown custom kind @%s", at.Text)
		p.recover()
		return nil
	}
	name := p.advance().Text
	decl := ast.NewCustomDecl(bracketPos, kind, name)
	decl.Inherits, decl.Body = p.parseDeclBody(kind)
	return decl
}

// parseDeclBody parses the shared `{ [inherit Name;]* content }` shape
// of [Template]/[Custom] definitions. For StyleDef/VarDef, content is a
// flat list of property:value declarations; for ElementDef it is a
// sequence of element-body statements.
func (p *Parser) parseDeclBody(kind ast.DefKind) ([]string, []ast.Node) {
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return nil, nil
	}
	var inherits []string
	var body []ast.Node
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		if p.cur().Kind == token.Keyword && p.cur().Text == "inherit" {
			p.advance()
			inherits = append(inherits, p.advance().Text)
			p.expect(token.Semi)
			continue
		}
		switch kind {
		case ast.StyleDef, ast.VarDef:
			if p.cur().Kind == token.Ident || p.cur().Kind == token.Keyword {
				switch p.peekAt(1).Kind {
				case token.Colon:
					body = append(body, p.parseStyleDecl())
					continue
				case token.Semi:
					// A [Custom]-only "property;" entry with no value
					// (spec.md §3, §4.4, §8 scenario 4): every use site
					// must supply it via an override specialization.
					name := p.advance()
					p.expect(token.Semi)
					body = append(body, ast.NewValuelessStyleDecl(name.Pos, name.Text))
					continue
				}
			}
			p.errorf(p.cur().Pos, "unexpected token %s in %s template body", p.cur().Kind, kind)
			p.recover()
		case ast.ElementDef:
			switch {
			case p.cur().Kind == token.GeneratorComment:
				c := p.advance()
				body = append(body, ast.NewComment(c.Pos, c.Text))
			case p.cur().Kind == token.Keyword && p.cur().Text == "text":
				body = append(body, p.parseText())
			case p.cur().Kind == token.AtIdent:
				body = append(body, p.parseUsage())
			case p.cur().Kind == token.Ident && p.peekAt(1).Kind == token.LBrace:
				body = append(body, p.parseElement())
			default:
				p.errorf(p.cur().Pos, "unexpected token %s in element template body", p.cur().Kind)
				p.recover()
			}
		}
	}
	p.expect(token.RBrace)
	return inherits, body
}

var originKindFor = map[string]ast.OriginKind{
	"Html":       ast.OriginHTML,
	"Style":      ast.OriginStyle,
	"JavaScript": ast.OriginJavaScript,
}

// parseOrigin parses `[Origin] @Kind [Name] { raw }` (spec.md §4.5's
// passthrough block); the body is captured verbatim as balanced-brace
// text, never interpreted.
func (p *Parser) parseOrigin() ast.Node {
	pos := p.advance().Pos // '[Origin]'
	at, ok := p.expect(token.AtIdent)
	if !ok {
		p.recover()
		return nil
	}
	k, ok := originKindFor[at.Text]
	if !ok {
		p.errorf(at.Pos, "unknown origin kind @%s", at.Text)
		k = ast.OriginHTML
	}
	name := ""
	if p.cur().Kind == token.Ident {
		name = p.advance().Text
	}
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return nil
	}
	raw := p.captureRawBody()
	if k == ast.OriginStyle {
		// [Origin] @Style content is never parsed as CSS (an explicit
		// Non-goal, spec.md §1), but a brace-balance check catches a
		// missing closing brace before it corrupts the rest of the
		// generated stylesheet.
		if err := cssutil.ValidateBraces(raw); err != nil {
			p.errorf(pos, "invalid [Origin] @Style content: %v", err)
		}
	}
	return ast.NewOrigin(pos, k, name, raw)
}

var importKindFor = map[string]ast.ImportKind{
	"Chtl":       ast.ImportChtl,
	"Cmod":       ast.ImportCmod,
	"CJmod":      ast.ImportCJMod,
	"Html":       ast.ImportHTML,
	"Style":      ast.ImportStyle,
	"JavaScript": ast.ImportJavaScript,
}

// parseImport parses `[Import] @Kind from "path" [as Alias] [except a, b];`
// (spec.md §4.3, §6). The `except` clause is recorded here and rejected
// with a diagnostic by package compile when the import is resolved —
// see spec.md §9's Open Question.
func (p *Parser) parseImport() ast.Node {
	pos := p.advance().Pos // '[Import]'
	at, ok := p.expect(token.AtIdent)
	if !ok {
		p.recover()
		return nil
	}
	k, ok := importKindFor[at.Text]
	if !ok {
		p.errorf(at.Pos, "unknown import kind @%s", at.Text)
	}
	if p.cur().Kind == token.Keyword && p.cur().Text == "from" {
		p.advance()
	}
	pathTok := p.advance()
	imp := ast.NewImport(pos, k, pathTok.Text)
	if p.cur().Kind == token.Keyword && p.cur().Text == "as" {
		p.advance()
		imp.Alias = p.advance().Text
	}
	if p.cur().Kind == token.Keyword && p.cur().Text == "except" {
		p.advance()
		for {
			imp.Except = append(imp.Except, p.advance().Text)
			if p.cur().Kind == token.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	p.expect(token.Semi)
	return imp
}

// parseNamespace parses `[Namespace] Name { statements }` (spec.md §4.4).
func (p *Parser) parseNamespace() ast.Node {
	pos := p.advance().Pos // '[Namespace]'
	name := p.advance().Text
	ns := ast.NewNamespace(pos, name)
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return ns
	}
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		if stmt := p.parseStatement(); stmt != nil {
			ns.Statements = append(ns.Statements, stmt)
		}
	}
	p.expect(token.RBrace)
	return ns
}

// parseConfigBlock parses `[Configuration] { NAME = value; ... }`
// (spec.md §6). Entries are handed to package config by the compile
// driver; the parser only captures their raw name/value text.
func (p *Parser) parseConfigBlock() ast.Node {
	pos := p.advance().Pos // '[Configuration]'
	block := ast.NewConfigBlock(pos)
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return block
	}
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		nameTok := p.advance()
		p.expect(token.Equal)
		value := p.collectValueUntilSemi()
		p.expect(token.Semi)
		block.Entries = append(block.Entries, ast.NewConfigEntry(nameTok.Pos, nameTok.Text, value))
	}
	p.expect(token.RBrace)
	return block
}
