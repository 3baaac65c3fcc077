package lexer

// KeywordTable maps the canonical CHTL keyword name to its active source
// spelling. A [Configuration] block (spec.md §6) may override any entry
// before lexing continues, which is why keyword recognition happens in a
// resolver stage distinct from the context-free character-shape lexer
// (see spec.md §9, "Context-free-then-contextual lexing").
type KeywordTable struct {
	spellings map[string]string // canonical -> active spelling
	canonical map[string]string // active spelling -> canonical (reverse index)
}

// defaultSpellings lists every keyword CHTL recognizes by default spelling.
var defaultSpellings = map[string]string{
	"text":          "text",
	"style":         "style",
	"script":        "script",
	"Template":      "Template",
	"Custom":        "Custom",
	"Origin":        "Origin",
	"Import":        "Import",
	"Namespace":     "Namespace",
	"Configuration": "Configuration",
	"use":           "use",
	"from":          "from",
	"as":            "as",
	"delete":        "delete",
	"insert":        "insert",
	"after":         "after",
	"before":        "before",
	"inherit":       "inherit",
	"except":        "except",
	"html5":         "html5",
}

// NewKeywordTable returns the default keyword table (unmodified spellings).
func NewKeywordTable() *KeywordTable {
	kt := &KeywordTable{
		spellings: make(map[string]string, len(defaultSpellings)),
		canonical: make(map[string]string, len(defaultSpellings)),
	}
	for canon, spelling := range defaultSpellings {
		kt.spellings[canon] = spelling
		kt.canonical[spelling] = canon
	}
	return kt
}

// Override replaces the active spelling of a canonical keyword, e.g. from
// a [Configuration] block's KEYWORD_STYLE = customWord; setting.
func (kt *KeywordTable) Override(canonical, spelling string) {
	if old, ok := kt.spellings[canonical]; ok {
		delete(kt.canonical, old)
	}
	kt.spellings[canonical] = spelling
	kt.canonical[spelling] = canonical
}

// Canonical returns the canonical keyword name for an active spelling, if
// any identifier text currently names a keyword.
func (kt *KeywordTable) Canonical(spelling string) (string, bool) {
	name, ok := kt.canonical[spelling]
	return name, ok
}

// Spelling returns the currently active spelling for a canonical keyword.
func (kt *KeywordTable) Spelling(canonical string) string {
	if s, ok := kt.spellings[canonical]; ok {
		return s
	}
	return canonical
}
