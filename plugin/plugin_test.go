package plugin

import (
	"testing"

	"chtl/lexer"
)

func TestParsePatternFlags(t *testing.T) {
	atoms := ParsePattern("$ ** $ ?")
	if len(atoms) != 3 {
		t.Fatalf("expected 3 atoms, got %d: %+v", len(atoms), atoms)
	}
	if !atoms[0].Placeholder || atoms[0].Flag != FlagRequired {
		t.Errorf("first atom = %+v, want required placeholder", atoms[0])
	}
	if !atoms[2].Placeholder || atoms[2].Flag != FlagOptional {
		t.Errorf("third atom = %+v, want optional placeholder", atoms[2])
	}
}

func TestParsePatternWithLiterals(t *testing.T) {
	atoms := ParsePattern("Animate $ for $ !")
	if len(atoms) != 4 {
		t.Fatalf("expected 4 atoms, got %d: %+v", len(atoms), atoms)
	}
	if atoms[0].Literal != "Animate" || atoms[2].Literal != "for" {
		t.Errorf("got %+v", atoms)
	}
}

func TestRegistryMatchAndApply(t *testing.T) {
	r := NewRegistry()
	r.Register("power", "$ ** $", func(a *Args) (string, error) {
		return "Math.pow(" + a.Values[0] + ", " + a.Values[1] + ")", nil
	})

	toks := lexer.Tokenize("2 ** 8", nil)
	m, ok := r.Match(toks, 0)
	if !ok {
		t.Fatalf("expected a match")
	}
	out, err := Apply(m)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out != "Math.pow(2, 8)" {
		t.Errorf("got %q", out)
	}
}

func TestRegistryNoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register("power", "$ ** $", func(a *Args) (string, error) { return "", nil })
	toks := lexer.Tokenize("2 + 8", nil)
	if _, ok := r.Match(toks, 0); ok {
		t.Fatalf("expected no match for unrelated tokens")
	}
}
