package parser

import (
	"strings"

	"chtl/ast"
	"chtl/token"
)

// parseElement parses `tag { ... }`, dispatching its body into
// attributes, a style{} block, a script{} block, nested elements,
// text{} nodes, usages and comments (spec.md §4.3).
func (p *Parser) parseElement() ast.Node {
	start := p.cur()
	tag := p.advance().Text
	elem := ast.NewElement(start.Pos, tag)

	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return elem
	}

	for !p.atEOF() && p.cur().Kind != token.RBrace {
		switch {
		case p.cur().Kind == token.GeneratorComment:
			c := p.advance()
			elem.Children = append(elem.Children, ast.NewComment(c.Pos, c.Text))
		case p.cur().Kind == token.Keyword && p.cur().Text == "style":
			elem.Style = p.parseStyleBlock()
		case p.cur().Kind == token.Keyword && p.cur().Text == "script":
			elem.Script = p.parseScriptBlock()
		case p.cur().Kind == token.Keyword && p.cur().Text == "text":
			elem.Children = append(elem.Children, p.parseText())
		case p.cur().Kind == token.AtIdent:
			elem.Children = append(elem.Children, p.parseUsage())
		case (p.cur().Kind == token.Ident || p.cur().Kind == token.Keyword) && p.peekAt(1).Kind == token.Colon:
			elem.Attributes = append(elem.Attributes, p.parseAttribute())
		case p.cur().Kind == token.Ident && p.peekAt(1).Kind == token.LBrace:
			elem.Children = append(elem.Children, p.parseElement())
		default:
			p.errorf(p.cur().Pos, "unexpected token %s inside element %q", p.cur().Kind, tag)
			p.recover()
		}
	}
	p.expect(token.RBrace)
	return elem
}

func (p *Parser) parseAttribute() *ast.Attribute {
	name := p.advance()
	p.expect(token.Colon)
	value := p.collectValueUntilSemi()
	p.expect(token.Semi)
	return ast.NewAttribute(name.Pos, name.Text, value)
}

// collectValueUntilSemi joins raw token text up to (not including) the
// next Semi, used for attribute and style-declaration values whose
// grammar is effectively "anything but ';'". Tokens that touch in the
// source stay joined (so `100px` keeps its unit attached); tokens the
// source separates get a single space between them.
func (p *Parser) collectValueUntilSemi() string {
	var b strings.Builder
	var prev token.Token
	for i := 0; !p.atEOF() && p.cur().Kind != token.Semi && p.cur().Kind != token.RBrace; i++ {
		t := p.advance()
		if i > 0 && !prev.Adjacent(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
		prev = t
	}
	return b.String()
}

// parseStyleBlock parses `style { ... }`: a mix of bare declarations
// (applied to the owning element) and selector { declarations } rules
// (spec.md §4.5's style pre-pass operates over this shape).
func (p *Parser) parseStyleBlock() *ast.StyleBlock {
	start := p.cur().Pos
	p.advance() // 'style'
	block := ast.NewStyleBlock(start)
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return block
	}
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		switch {
		case isSelectorLead(p.cur().Kind):
			block.Rules = append(block.Rules, p.parseSelectorRule())
		case p.cur().Kind == token.AtIdent:
			if u, ok := p.parseUsage().(*ast.Usage); ok {
				block.Usages = append(block.Usages, u)
			}
		case (p.cur().Kind == token.Ident || p.cur().Kind == token.Keyword) && p.peekAt(1).Kind == token.Colon:
			rule := styleBareRule(block)
			rule.Declarations = append(rule.Declarations, p.parseStyleDecl())
		default:
			p.errorf(p.cur().Pos, "unexpected token %s inside style block", p.cur().Kind)
			p.recover()
		}
	}
	p.expect(token.RBrace)
	return block
}

// styleBareRule returns (creating if absent) the Rules[0] entry used
// to hold declarations applied directly to the owning element, i.e.
// Selector == "".
func styleBareRule(block *ast.StyleBlock) *ast.StyleRule {
	if len(block.Rules) > 0 && block.Rules[0].Selector == "" {
		return block.Rules[0]
	}
	r := ast.NewStyleRule(block.Pos(), "")
	block.Rules = append([]*ast.StyleRule{r}, block.Rules...)
	return r
}

func isSelectorLead(k token.Kind) bool {
	return k == token.Dot || k == token.Hash || k == token.Amp
}

// parseSelectorRule parses a `.cls { ... }`, `#id { ... }` or `& { ... }`
// rule item, including a trailing pseudo-class (`&:hover`).
func (p *Parser) parseSelectorRule() *ast.StyleRule {
	start := p.cur().Pos
	var sb strings.Builder
	for !p.atEOF() && p.cur().Kind != token.LBrace {
		sb.WriteString(p.advance().Text)
	}
	rule := ast.NewStyleRule(start, sb.String())
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return rule
	}
	for !p.atEOF() && p.cur().Kind != token.RBrace {
		if (p.cur().Kind == token.Ident || p.cur().Kind == token.Keyword) && p.peekAt(1).Kind == token.Colon {
			rule.Declarations = append(rule.Declarations, p.parseStyleDecl())
			continue
		}
		p.errorf(p.cur().Pos, "unexpected token %s inside selector rule", p.cur().Kind)
		p.recover()
	}
	p.expect(token.RBrace)
	return rule
}

func (p *Parser) parseStyleDecl() *ast.StyleDecl {
	name := p.advance()
	p.expect(token.Colon)
	value := p.collectValueUntilSemi()
	p.expect(token.Semi)
	return ast.NewStyleDecl(name.Pos, name.Text, value)
}

// parseScriptBlock captures a script{} body verbatim as CHTL-JS source
// text for package chtljs to rewrite (spec.md §4.6); the main parser
// does not interpret JS/CHTL-JS syntax itself.
func (p *Parser) parseScriptBlock() *ast.ScriptBlock {
	start := p.cur().Pos
	p.advance() // 'script'
	if _, ok := p.expect(token.LBrace); !ok {
		p.recover()
		return ast.NewScriptBlock(start, "")
	}
	return ast.NewScriptBlock(start, p.captureRawBody())
}
