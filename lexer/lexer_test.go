package lexer

import (
	"testing"

	"chtl/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func equalKinds(t *testing.T, got []token.Kind, want []token.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestHashDisambiguation(t *testing.T) {
	// '#box' with no space must lex as Hash + Ident, not a comment.
	toks := Tokenize("#box { }", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.Hash, token.Ident, token.LBrace, token.RBrace, token.EOF,
	})

	// '# note' with a space is a generator comment swallowing the rest
	// of the line.
	toks = Tokenize("# a note\nid", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.GeneratorComment, token.Ident, token.EOF,
	})
	if toks[0].Text != "a note" {
		t.Errorf("comment text = %q, want %q", toks[0].Text, "a note")
	}
}

func TestBracketKeyword(t *testing.T) {
	toks := Tokenize("[Template] [Custom]", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.BracketKeyword, token.BracketKeyword, token.EOF,
	})
	if toks[0].Text != "Template" || toks[1].Text != "Custom" {
		t.Errorf("bracket keyword text = %q, %q", toks[0].Text, toks[1].Text)
	}
}

func TestBracketKeywordBacktracksToPlainBracket(t *testing.T) {
	// "[" not followed by "Ident]" must fall back to a plain LBracket.
	toks := Tokenize("[1]", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.LBracket, token.Number, token.RBracket, token.EOF,
	})
}

func TestAtIdent(t *testing.T) {
	toks := Tokenize("@Style @Element", nil)
	equalKinds(t, kinds(toks), []token.Kind{token.AtIdent, token.AtIdent, token.EOF})
	if toks[0].Text != "Style" || toks[1].Text != "Element" {
		t.Errorf("at-ident text = %q, %q", toks[0].Text, toks[1].Text)
	}
}

func TestMultiCharPunctuation(t *testing.T) {
	toks := Tokenize("** == != <= >= && || -> &-> {{ }}", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.Power, token.EqEq, token.NotEq, token.LtEq, token.GtEq,
		token.AndAnd, token.OrOr, token.Arrow, token.AmpArrow,
		token.LDoubleBrace, token.RDoubleBrace, token.EOF,
	})
}

func TestComments(t *testing.T) {
	toks := Tokenize("a // trailing\nb /* block\nspanning */ c", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.Ident, token.Ident, token.Ident, token.EOF,
	})
}

func TestStringEscapes(t *testing.T) {
	toks := Tokenize(`"a\nb\"c"`, nil)
	equalKinds(t, kinds(toks), []token.Kind{token.String, token.EOF})
	want := "a\nb\"c"
	if toks[0].Text != want {
		t.Errorf("string text = %q, want %q", toks[0].Text, want)
	}
}

func TestNumberWithUnit(t *testing.T) {
	toks := Tokenize("10px", nil)
	equalKinds(t, kinds(toks), []token.Kind{token.Number, token.Ident, token.EOF})
	if !toks[0].Adjacent(toks[1]) {
		t.Errorf("expected number and unit to be adjacent")
	}

	toks = Tokenize("1.5em", nil)
	equalKinds(t, kinds(toks), []token.Kind{token.Number, token.Ident, token.EOF})
	if toks[0].Text != "1.5" {
		t.Errorf("number text = %q, want %q", toks[0].Text, "1.5")
	}
}

func TestKeywordResolution(t *testing.T) {
	toks := Tokenize("style text script notakeyword", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.Keyword, token.Keyword, token.Keyword, token.Ident, token.EOF,
	})
}

func TestKeywordTableOverride(t *testing.T) {
	table := NewKeywordTable()
	table.Override("style", "myStyle")
	toks := Tokenize("myStyle style", table)
	// With the override active, the custom spelling resolves to the
	// canonical keyword and the original spelling becomes a plain ident.
	equalKinds(t, kinds(toks), []token.Kind{token.Keyword, token.Ident, token.EOF})
	if toks[0].Text != "style" {
		t.Errorf("canonical keyword text = %q, want %q", toks[0].Text, "style")
	}
}

func TestUnquotedLiteral(t *testing.T) {
	toks := Tokenize("font-family: 微软雅黑 黑体 ;", nil)
	equalKinds(t, kinds(toks), []token.Kind{
		token.Ident, token.Colon, token.Unquoted, token.Semi, token.EOF,
	})
	if toks[2].Text != "微软雅黑 黑体" {
		t.Errorf("unquoted text = %q, want %q", toks[2].Text, "微软雅黑 黑体")
	}
}

func TestNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{"|", "\x00", "###", "\"unterminated", "[Ident no close"}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Tokenize(%q) panicked: %v", in, r)
				}
			}()
			Tokenize(in, nil)
		}()
	}
}
