// Package lexer implements C1: a restartable, panic-free tokenizer for
// CHTL source text, grounded on the teacher's scan-by-index style
// (wispy-core's pkg/fml-template/render.go walks raw strings with
// strings.Index the same way) and on the canonical hand-rolled scanner
// among the CHTL reference sources.
package lexer

import (
	"strings"
	"unicode/utf8"

	"chtl/token"
)

// Lexer scans UTF-8 source text into a token stream. Lexing is pure:
// the same input always yields the same tokens (spec.md §4.1).
type Lexer struct {
	src        string
	pos        int // byte offset of the next unread rune
	line       int
	col        int
	keywords   *KeywordTable
}

// New creates a Lexer over src. A nil table uses the default keyword
// spellings.
func New(src string, table *KeywordTable) *Lexer {
	if table == nil {
		table = NewKeywordTable()
	}
	return &Lexer{src: src, pos: 0, line: 1, col: 1, keywords: table}
}

// Tokenize lexes the entire source into a token slice ending in a single
// token.EOF, resolving keywords against the active table as it goes.
func Tokenize(src string, table *KeywordTable) []token.Token {
	l := New(src, table)
	var out []token.Token
	for {
		t := l.Next()
		out = append(out, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return out
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) peekByte(offset int) byte {
	i := l.pos + offset
	if i < 0 || i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

func (l *Lexer) advance() byte {
	if l.atEnd() {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) position() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.peekByte(0) {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentCont(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-'
}

// Next returns the next token, advancing the cursor. It never panics:
// a character that starts no other token begins an unquoted literal run
// (lexUnquoted); a stray '|' yields a token.Error and the cursor
// advances past that one character so scanning can continue (spec.md
// §4.1, §7).
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()
	if l.atEnd() {
		p := l.position()
		return token.Token{Kind: token.EOF, Pos: p, EndOffset: p.Offset}
	}

	start := l.position()
	c := l.advance()

	switch c {
	case '{':
		if l.peekByte(0) == '{' {
			l.advance()
			return l.tok(token.LDoubleBrace, "{{", start)
		}
		return l.tok(token.LBrace, "{", start)
	case '}':
		if l.peekByte(0) == '}' {
			l.advance()
			return l.tok(token.RDoubleBrace, "}}", start)
		}
		return l.tok(token.RBrace, "}", start)
	case '(':
		return l.tok(token.LParen, "(", start)
	case ')':
		return l.tok(token.RParen, ")", start)
	case '[':
		if tok, ok := l.tryBracketKeyword(start); ok {
			return tok
		}
		return l.tok(token.LBracket, "[", start)
	case ']':
		return l.tok(token.RBracket, "]", start)
	case ':':
		return l.tok(token.Colon, ":", start)
	case ';':
		return l.tok(token.Semi, ";", start)
	case ',':
		return l.tok(token.Comma, ",", start)
	case '.':
		return l.tok(token.Dot, ".", start)
	case '@':
		return l.lexAtIdent(start)
	case '&':
		if l.peekByte(0) == '-' && l.peekByte(1) == '>' {
			l.advance()
			l.advance()
			return l.tok(token.AmpArrow, "&->", start)
		}
		if l.peekByte(0) == '&' {
			l.advance()
			return l.tok(token.AndAnd, "&&", start)
		}
		return l.tok(token.Amp, "&", start)
	case '|':
		if l.peekByte(0) == '|' {
			l.advance()
			return l.tok(token.OrOr, "||", start)
		}
		return token.Token{Kind: token.Error, Text: "unexpected character '|'", Pos: start, EndOffset: l.pos}
	case '+':
		return l.tok(token.Plus, "+", start)
	case '-':
		if l.peekByte(0) == '>' {
			l.advance()
			return l.tok(token.Arrow, "->", start)
		}
		return l.tok(token.Minus, "-", start)
	case '*':
		if l.peekByte(0) == '*' {
			l.advance()
			return l.tok(token.Power, "**", start)
		}
		return l.tok(token.Star, "*", start)
	case '/':
		return l.lexSlash(start)
	case '%':
		return l.tok(token.Percent, "%", start)
	case '=':
		if l.peekByte(0) == '=' {
			l.advance()
			return l.tok(token.EqEq, "==", start)
		}
		return l.tok(token.Equal, "=", start)
	case '!':
		if l.peekByte(0) == '=' {
			l.advance()
			return l.tok(token.NotEq, "!=", start)
		}
		return l.tok(token.Bang, "!", start)
	case '<':
		if l.peekByte(0) == '=' {
			l.advance()
			return l.tok(token.LtEq, "<=", start)
		}
		return l.tok(token.Lt, "<", start)
	case '>':
		if l.peekByte(0) == '=' {
			l.advance()
			return l.tok(token.GtEq, ">=", start)
		}
		return l.tok(token.Gt, ">", start)
	case '?':
		return l.tok(token.Question, "?", start)
	case '#':
		return l.lexHash(start)
	case '"', '\'':
		return l.lexString(c, start)
	default:
		l.pos = start.Offset
		l.line, l.col = start.Line, start.Column
		if isDigit(c) {
			return l.lexNumber(start)
		}
		if isLetter(c) {
			return l.lexIdentOrKeyword(start)
		}
		return l.lexUnquoted(start)
	}
}

func (l *Lexer) tok(kind token.Kind, text string, start token.Position) token.Token {
	return token.Token{Kind: kind, Text: text, Pos: start, EndOffset: l.pos}
}

func (l *Lexer) errTok(msg string, start token.Position) token.Token {
	// Consume one more rune so scanning makes forward progress.
	if !l.atEnd() {
		_, size := utf8.DecodeRuneInString(l.src[l.pos:])
		for i := 0; i < size; i++ {
			l.advance()
		}
	}
	return token.Token{Kind: token.Error, Text: msg, Pos: start, EndOffset: l.pos}
}

// tryBracketKeyword scans "[Ident]" with no intervening whitespace into a
// single BracketKeyword token, backtracking to a plain '[' on mismatch.
func (l *Lexer) tryBracketKeyword(start token.Position) (token.Token, bool) {
	savedPos, savedLine, savedCol := l.pos, l.line, l.col
	if !isLetter(l.peekByte(0)) {
		return token.Token{}, false
	}
	identStart := l.pos
	for isLetter(l.peekByte(0)) || isDigit(l.peekByte(0)) {
		l.advance()
	}
	name := l.src[identStart:l.pos]
	if l.peekByte(0) != ']' {
		l.pos, l.line, l.col = savedPos, savedLine, savedCol
		return token.Token{}, false
	}
	l.advance() // consume ']'
	return l.tok(token.BracketKeyword, name, start), true
}

func (l *Lexer) lexAtIdent(start token.Position) token.Token {
	identStart := l.pos
	for isLetter(l.peekByte(0)) || isDigit(l.peekByte(0)) {
		l.advance()
	}
	if l.pos == identStart {
		return l.tok(token.At, "@", start)
	}
	return l.tok(token.AtIdent, l.src[identStart:l.pos], start)
}

func (l *Lexer) lexSlash(start token.Position) token.Token {
	switch l.peekByte(0) {
	case '/':
		l.advance()
		for !l.atEnd() && l.peekByte(0) != '\n' {
			l.advance()
		}
		return l.Next() // line comments are discarded per spec.md §4.1
	case '*':
		l.advance()
		for !l.atEnd() && !(l.peekByte(0) == '*' && l.peekByte(1) == '/') {
			l.advance()
		}
		if !l.atEnd() {
			l.advance()
			l.advance()
		}
		return l.Next() // block comments are discarded, non-nested
	default:
		return l.tok(token.Slash, "/", start)
	}
}

// lexHash implements the canonical rule: '#' followed by a space or tab starts a
// generator comment to end of line; '#' followed directly by an
// identifier (no space) is the Hash punctuation token used for id
// selectors (`#box { ... }`). See DESIGN.md for why this reading was
// chosen over the looser "space or identifier" gloss in spec.md §4.1.
func (l *Lexer) lexHash(start token.Position) token.Token {
	if l.peekByte(0) == ' ' || l.peekByte(0) == '\t' {
		l.advance()
		contentStart := l.pos
		for !l.atEnd() && l.peekByte(0) != '\n' {
			l.advance()
		}
		return l.tok(token.GeneratorComment, l.src[contentStart:l.pos], start)
	}
	return l.tok(token.Hash, "#", start)
}

func (l *Lexer) lexString(quote byte, start token.Position) token.Token {
	var b strings.Builder
	for {
		if l.atEnd() {
			return token.Token{Kind: token.Error, Text: "unterminated string literal", Pos: start, EndOffset: l.pos}
		}
		c := l.peekByte(0)
		if c == quote {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			e := l.advance()
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			default:
				b.WriteByte(e)
			}
			continue
		}
		b.WriteByte(l.advance())
	}
	return l.tok(token.String, b.String(), start)
}

func (l *Lexer) lexNumber(start token.Position) token.Token {
	for isDigit(l.peekByte(0)) {
		l.advance()
	}
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		l.advance()
		for isDigit(l.peekByte(0)) {
			l.advance()
		}
	}
	return l.tok(token.Number, l.src[start.Offset:l.pos], start)
}

func (l *Lexer) lexIdentOrKeyword(start token.Position) token.Token {
	for isIdentCont(l.peekByte(0)) {
		l.advance()
	}
	text := l.src[start.Offset:l.pos]
	if canon, ok := l.keywords.Canonical(text); ok {
		return token.Token{Kind: token.Keyword, Text: canon, Pos: start, EndOffset: l.pos}
	}
	return l.tok(token.Ident, text, start)
}

// lexUnquoted scans a bare literal run used for CSS/attribute values; it
// stops at the next statement terminator, brace, or newline, and trims
// trailing whitespace (spec.md §4.1).
func (l *Lexer) lexUnquoted(start token.Position) token.Token {
	for !l.atEnd() {
		c := l.peekByte(0)
		if c == ';' || c == '{' || c == '}' || c == '\n' {
			break
		}
		l.advance()
	}
	text := strings.TrimRight(l.src[start.Offset:l.pos], " \t\r")
	if text == "" {
		// Nothing recognizable consumed; emit an error token and make
		// forward progress so the lexer never stalls.
		return l.errTok("unexpected character", start)
	}
	return token.Token{Kind: token.Unquoted, Text: text, Pos: start, EndOffset: start.Offset + len(text)}
}
