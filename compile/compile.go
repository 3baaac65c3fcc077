// Package compile implements the top-level compile() entry point
// (spec.md §6) wiring the lexer, parser, symbol table, generator and
// CHTL-JS sub-compiler together for one source file.
package compile

import (
	"fmt"

	"chtl/ast"
	"chtl/chtljs"
	"chtl/config"
	"chtl/generator"
	"chtl/lexer"
	"chtl/loader"
	"chtl/parser"
	"chtl/plugin"
	"chtl/symtab"
)

// Options bundles the generator options with the loader used to
// resolve [Import] statements and an optional plugin registry for
// CJMOD-style syntax extensions (spec.md §4.7).
type Options struct {
	Generator generator.Options
	Loader    loader.Loader
	Plugins   *plugin.Registry
}

// DefaultOptions returns generator defaults with an FSLoader rooted at
// the current directory.
func DefaultOptions() Options {
	return Options{Generator: generator.DefaultOptions(), Loader: &loader.FSLoader{Root: "."}}
}

// Result is the full compilation output plus every diagnostic gathered
// across all stages.
type Result struct {
	HTML, CSS, JS string
	Diagnostics   []string
}

// Compile runs one source file through the full pipeline: lex, parse,
// resolve imports/definitions into a symbol table, rewrite script{}
// blocks through CHTL-JS, then generate HTML/CSS/JS. It never panics;
// malformed input produces diagnostics and best-effort output (spec.md
// §7).
func Compile(filename, source string, opts Options) (Result, error) {
	cfg := config.DefaultBlock()
	table := symtab.New()
	guard := loader.NewCycleGuard()

	var diags []string
	doc, err := compileFile(filename, source, opts, cfg, table, guard, &diags)
	if err != nil {
		return Result{Diagnostics: diags}, err
	}

	rewriteScripts(doc, opts.Plugins, &diags)

	genOpts := opts.Generator
	genOpts.PrettyCSS = genOpts.PrettyCSS || cfg.PrettyCSS
	genOpts.SanitizeOrigin = genOpts.SanitizeOrigin || cfg.SanitizeOrigin
	gen := generator.New(genOpts, table)
	res, gdiags := gen.Generate(doc)
	for _, d := range gdiags {
		diags = append(diags, d.String())
	}
	return Result{HTML: res.HTML, CSS: res.CSS, JS: res.JS, Diagnostics: diags}, nil
}

func compileFile(filename, source string, opts Options, cfg *config.Block, table *symtab.Table, guard *loader.CycleGuard, diags *[]string) (*ast.Document, error) {
	if err := guard.Enter(filename); err != nil {
		return nil, err
	}
	defer guard.Leave(filename)

	kt := keywordTableFor(source)
	toks := lexer.Tokenize(source, kt)
	doc, pdiags := parser.Parse(toks, source)
	for _, d := range pdiags {
		*diags = append(*diags, d.String())
	}

	if err := registerDeclarations(doc, table.Root, opts, cfg, table, guard, diags); err != nil {
		return nil, err
	}
	return doc, nil
}

// keywordTableFor implements the "context-free-then-contextual lexing"
// sequencing spec.md §9 calls for: a file's own [Configuration] block can
// rename keywords it itself uses, so the file is lexed once with the
// default table to discover KEYWORD_* overrides, then re-lexed with the
// resulting table before parsing proceeds for real. A file with no
// [Configuration] block pays for one extra cheap lex pass and nothing
// else changes.
func keywordTableFor(source string) *lexer.KeywordTable {
	toks := lexer.Tokenize(source, nil)
	doc, _ := parser.Parse(toks, source)
	probe := config.DefaultBlock()
	found := false
	for _, stmt := range doc.Statements {
		cb, ok := stmt.(*ast.ConfigBlock)
		if !ok {
			continue
		}
		for _, entry := range cb.Entries {
			if err := probe.ApplyEntry(entry.Name, entry.Value); err == nil {
				found = true
			}
		}
	}
	if !found || len(probe.KeywordOverrides) == 0 {
		return nil
	}
	kt := lexer.NewKeywordTable()
	for canonical, spelling := range probe.KeywordOverrides {
		kt.Override(canonical, spelling)
	}
	return kt
}

// registerDeclarations walks the document's top level, applying
// [Configuration] settings, registering [Template]/[Custom]
// definitions into the symbol table, descending into [Namespace]
// blocks, and recursively compiling [Import]ed files.
func registerDeclarations(doc *ast.Document, scope *symtab.Scope, opts Options, cfg *config.Block, table *symtab.Table, guard *loader.CycleGuard, diags *[]string) error {
	for _, stmt := range doc.Statements {
		switch v := stmt.(type) {
		case *ast.ConfigBlock:
			for _, entry := range v.Entries {
				if err := cfg.ApplyEntry(entry.Name, entry.Value); err != nil {
					*diags = append(*diags, fmt.Sprintf("%s: %v", entry.Pos(), err))
				}
			}
		case *ast.TemplateDecl:
			if err := scope.Define(entryFromTemplate(v)); err != nil {
				*diags = append(*diags, fmt.Sprintf("%s: %v", v.Pos(), err))
			}
		case *ast.CustomDecl:
			if err := scope.Define(entryFromCustom(v)); err != nil {
				*diags = append(*diags, fmt.Sprintf("%s: %v", v.Pos(), err))
			}
		case *ast.Namespace:
			child := scope.Namespace(v.Name)
			nsDoc := &ast.Document{Statements: v.Statements}
			if err := registerDeclarations(nsDoc, child, opts, cfg, table, guard, diags); err != nil {
				return err
			}
		case *ast.Import:
			if len(v.Except) > 0 {
				// spec.md §9 Open Question: `except` clause semantics
				// on imports are undetermined upstream. Rejected rather
				// than silently ignored.
				*diags = append(*diags, fmt.Sprintf("%s: import 'except' clause is not supported", v.Pos()))
				continue
			}
			if opts.Loader == nil {
				continue
			}
			src, err := opts.Loader.Load(v.Path)
			if err != nil {
				*diags = append(*diags, fmt.Sprintf("%s: %v", v.Pos(), err))
				continue
			}
			if _, err := compileFile(v.Path, src, opts, cfg, table, guard, diags); err != nil {
				*diags = append(*diags, fmt.Sprintf("%s: %v", v.Pos(), err))
			}
		}
	}
	return nil
}

func entryFromTemplate(v *ast.TemplateDecl) *symtab.Entry {
	return &symtab.Entry{Kind: v.Kind, Name: v.Name, Body: v.Body, Inherits: v.Inherits}
}

func entryFromCustom(v *ast.CustomDecl) *symtab.Entry {
	return &symtab.Entry{Kind: v.Kind, Name: v.Name, Body: v.Body, Inherits: v.Inherits, IsCustom: true}
}

// rewriteScripts runs every element's script{} block through the
// CHTL-JS sub-compiler (C7), replacing its Source with the rewritten
// plain-JS text and surfacing any diagnostics. registry may be nil, in
// which case no CJMOD-style plugin syntax is recognized.
func rewriteScripts(n ast.Node, registry *plugin.Registry, diags *[]string) {
	switch v := n.(type) {
	case *ast.Document:
		for _, s := range v.Statements {
			rewriteScripts(s, registry, diags)
		}
	case *ast.Element:
		if v.Script != nil {
			js, jdiags := chtljs.CompileWithPlugins(v.Script.Source, registry)
			v.Script.Source = js
			for _, d := range jdiags {
				*diags = append(*diags, d.String())
			}
		}
		for _, c := range v.Children {
			rewriteScripts(c, registry, diags)
		}
	case *ast.Namespace:
		for _, s := range v.Statements {
			rewriteScripts(s, registry, diags)
		}
	}
}
