// Package cssutil provides small CSS/HTML helpers the generator needs
// without implementing a full CSS parser (an explicit Non-goal, spec.md
// §1): brace-balance validation for [Origin] @Style passthrough via
// gorilla/css's tokenizer, pretty-printing via douceur, and HTML
// sanitization via bluemonday, all libraries wispy-core's go.mod
// already carries.
package cssutil

import (
	"fmt"

	"github.com/aymerick/douceur/css"
	"github.com/gorilla/css/scanner"
	"github.com/microcosm-cc/bluemonday"
)

// ValidateBraces tokenizes raw CSS far enough to confirm its braces are
// balanced, without building a full parse tree — CHTL treats [Origin]
// @Style content as verbatim passthrough (spec.md §1 Non-goals), but a
// brace-balance check catches the common copy-paste mistake of a
// missing closing brace before it corrupts the rest of the generated
// stylesheet.
func ValidateBraces(raw string) error {
	s := scanner.New(raw)
	depth := 0
	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF {
			break
		}
		if tok.Type == scanner.TokenError {
			return fmt.Errorf("css scan error: %s", tok.Value)
		}
		switch tok.Value {
		case "{":
			depth++
		case "}":
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced '}' at %s", tok.Value)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced braces: %d unclosed", depth)
	}
	return nil
}

// PrettyPrint reformats an aggregated CSS buffer through douceur's
// parser/stringer, used when Configuration.PRETTY_CSS is set.
func PrettyPrint(raw string) (string, error) {
	sheet, err := css.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse css for pretty-printing: %w", err)
	}
	return sheet.String(), nil
}

var sanitizer = bluemonday.UGCPolicy()

// SanitizeHTML runs [Origin] @Html passthrough content through
// bluemonday's UGC policy when Configuration.SANITIZE_ORIGIN is set
// (spec.md §6), matching wispy-core's pkg/fml-template use of the same
// policy for user-supplied template content.
func SanitizeHTML(raw string) string {
	return sanitizer.Sanitize(raw)
}
