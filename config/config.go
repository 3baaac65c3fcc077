// Package config implements the [Configuration] block (spec.md §6), plus
// the CLI-level project settings file, replacing wispy-core's CMS
// config.globalConfig (auth/server/sites settings with no compiler
// component) with CHTL's own settings shape, kept in the same
// toml-struct-tag idiom wispy-core's config/global.go used.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Block holds the settings a source file's [Configuration] block may
// set, consumed before the rest of the file is parsed since some
// entries (keyword overrides) affect lexing.
type Block struct {
	IndexInitialCount int               `toml:"INDEX_INITIAL_COUNT"`
	DisableNameGroup  []string          `toml:"DISABLE_NAME_GROUP"`
	DebugMode         bool              `toml:"DEBUG_MODE"`
	SanitizeOrigin    bool              `toml:"SANITIZE_ORIGIN"`
	PrettyCSS         bool              `toml:"PRETTY_CSS"`
	KeywordOverrides  map[string]string // canonical -> custom spelling, from KEYWORD_* entries
}

// DefaultBlock returns the settings in effect before any
// [Configuration] block is parsed.
func DefaultBlock() *Block {
	return &Block{
		IndexInitialCount: 0,
		KeywordOverrides:  make(map[string]string),
	}
}

// ApplyEntry folds one NAME = value; line from a [Configuration] block
// into b. KEYWORD_<Name> entries are routed to KeywordOverrides so the
// lexer's KeywordTable can be reconfigured; every other recognized name
// sets the matching field.
func (b *Block) ApplyEntry(name, value string) error {
	const kwPrefix = "KEYWORD_"
	if len(name) > len(kwPrefix) && name[:len(kwPrefix)] == kwPrefix {
		canonical := canonicalFromConfigName(name[len(kwPrefix):])
		b.KeywordOverrides[canonical] = value
		return nil
	}
	switch name {
	case "DEBUG_MODE":
		b.DebugMode = value == "true"
	case "SANITIZE_ORIGIN":
		b.SanitizeOrigin = value == "true"
	case "PRETTY_CSS":
		b.PrettyCSS = value == "true"
	default:
		return fmt.Errorf("unknown configuration entry %q", name)
	}
	return nil
}

// canonicalFromConfigName maps a [Configuration] block's upper-snake
// keyword name (e.g. "STYLE" from KEYWORD_STYLE) to the canonical
// keyword token lexer.KeywordTable expects (e.g. "style"). Keeping this
// mapping here (rather than in package lexer) avoids an import cycle,
// since lexer is a lower-level package than config.
var configNameToCanonical = map[string]string{
	"STYLE":         "style",
	"SCRIPT":        "script",
	"TEXT":          "text",
	"TEMPLATE":      "Template",
	"CUSTOM":        "Custom",
	"ORIGIN":        "Origin",
	"IMPORT":        "Import",
	"NAMESPACE":     "Namespace",
	"CONFIGURATION": "Configuration",
	"INHERIT":       "inherit",
	"DELETE":        "delete",
	"INSERT":        "insert",
}

func canonicalFromConfigName(s string) string {
	if c, ok := configNameToCanonical[s]; ok {
		return c
	}
	return s
}

// Settings is the CLI-level project configuration loaded from a
// chtl.toml file (spec.md §6's CLI surface), mirroring wispy-core's
// config/global.go struct-tag style.
type Settings struct {
	OutputDir      string   `toml:"output_dir"`
	DefaultStruct  bool     `toml:"default_struct"`
	Indent         int      `toml:"indent"`
	WatchGlobs     []string `toml:"watch_globs"`
	InlineCSS      bool     `toml:"inline_css"`
	InlineJS       bool     `toml:"inline_js"`
	PrettyCSS      bool     `toml:"pretty_css"`
	SanitizeOrigin bool     `toml:"sanitize_origin"`
}

// DefaultSettings returns the settings in effect with no chtl.toml
// present.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:     ".",
		DefaultStruct: true,
		Indent:        2,
		WatchGlobs:    []string{"**/*.chtl"},
		InlineCSS:     true,
		InlineJS:      true,
	}
}

// LoadSettings reads a chtl.toml project file, starting from
// DefaultSettings for any field it doesn't set.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	return s, nil
}
