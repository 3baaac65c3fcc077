// Package plugin implements C8: the CJMOD-style plugin registry.
// Grounded on original_source/src/CJMOD's Arg/AtomArg/Syntax C++
// classes: a plugin pattern is a sequence of placeholder atoms matched
// greedily against the token stream, filled into an Args value, and
// handed to a registered transform callback that returns replacement
// JS text (spec.md §4.6/§4.7).
package plugin

import (
	"fmt"
	"strings"

	"chtl/token"
)

// AtomFlag is the optional trailing modifier on a `$` placeholder atom.
type AtomFlag int

const (
	FlagRequired AtomFlag = iota
	FlagOptional
	FlagUnordered
	FlagVariadic
)

// Atom is one element of a parsed pattern: either a literal token text
// to match verbatim, or a placeholder with a binding flag.
type Atom struct {
	Literal     string // non-empty for a literal atom
	Placeholder bool
	Flag        AtomFlag
}

// ParsePattern parses a pattern string like "$ ** $" or "Animate $ for $ ?"
// into its atom sequence (spec.md §4.7, grounded on CJMOD's Syntax.h).
func ParsePattern(pattern string) []Atom {
	fields := strings.Fields(pattern)
	atoms := make([]Atom, 0, len(fields))
	i := 0
	for i < len(fields) {
		f := fields[i]
		if f == "$" {
			atom := Atom{Placeholder: true, Flag: FlagRequired}
			if i+1 < len(fields) {
				switch fields[i+1] {
				case "?":
					atom.Flag = FlagOptional
					i++
				case "!":
					atom.Flag = FlagRequired
					i++
				case "_":
					atom.Flag = FlagUnordered
					i++
				case "...":
					atom.Flag = FlagVariadic
					i++
				}
			}
			atoms = append(atoms, atom)
		} else {
			atoms = append(atoms, Atom{Literal: f})
		}
		i++
	}
	return atoms
}

// Args holds the placeholder values bound by a successful Match, in
// pattern order, mirroring CJMOD's Arg collection passed to a
// transform callback.
type Args struct {
	Values []string
}

// Transform is a plugin's replacement-text callback, given the bound
// placeholder values (spec.md §4.7's Arg.transform).
type Transform func(args *Args) (string, error)

// Plugin is one registered CJMOD-style syntax extension.
type Plugin struct {
	Name      string
	Atoms     []Atom
	Transform Transform
}

// Registry holds every plugin registered for one compilation.
type Registry struct {
	plugins []*Plugin
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plugin with the given pattern and transform callback.
func (r *Registry) Register(name, pattern string, fn Transform) {
	r.plugins = append(r.plugins, &Plugin{Name: name, Atoms: ParsePattern(pattern), Transform: fn})
}

// MatchResult is a successful pattern match: the plugin that matched,
// and the token range it consumed ([Start, End)).
type MatchResult struct {
	Plugin     *Plugin
	Start, End int
	Args       *Args
}

// Match scans toks starting at pos for the first registered plugin
// whose pattern matches there, trying plugins in registration order
// (spec.md §4.7's "first matching pattern wins").
func (r *Registry) Match(toks []token.Token, pos int) (*MatchResult, bool) {
	for _, p := range r.plugins {
		if args, end, ok := matchAtoms(toks, pos, p.Atoms); ok {
			return &MatchResult{Plugin: p, Start: pos, End: end, Args: args}, true
		}
	}
	return nil, false
}

// matchAtoms greedily matches a pattern's atoms against toks starting
// at pos, collecting placeholder text into an Args. A literal atom must
// match the next token's text exactly; a required placeholder must
// bind at least one token; an optional placeholder may bind zero.
func matchAtoms(toks []token.Token, pos int, atoms []Atom) (*Args, int, bool) {
	args := &Args{}
	i := pos
	for _, atom := range atoms {
		if !atom.Placeholder {
			if i >= len(toks) || toks[i].Text != atom.Literal {
				return nil, 0, false
			}
			i++
			continue
		}
		switch atom.Flag {
		case FlagVariadic:
			var parts []string
			for i < len(toks) && toks[i].Kind != token.Semi && toks[i].Kind != token.RBrace {
				parts = append(parts, toks[i].Text)
				i++
			}
			args.Values = append(args.Values, strings.Join(parts, " "))
		case FlagOptional:
			if i < len(toks) && toks[i].Kind != token.Semi {
				args.Values = append(args.Values, toks[i].Text)
				i++
			} else {
				args.Values = append(args.Values, "")
			}
		default:
			if i >= len(toks) {
				return nil, 0, false
			}
			args.Values = append(args.Values, toks[i].Text)
			i++
		}
	}
	return args, i, true
}

// Apply invokes the matched plugin's transform callback, wrapping a
// callback error with the plugin's name for diagnostics (spec.md §7).
func Apply(m *MatchResult) (string, error) {
	out, err := m.Plugin.Transform(m.Args)
	if err != nil {
		return "", fmt.Errorf("plugin %q: %w", m.Plugin.Name, err)
	}
	return out, nil
}
