package main

import "testing"

func TestSwapExt(t *testing.T) {
	got := swapExt("page.chtl", ".html")
	if got != "page.html" {
		t.Errorf("swapExt = %q, want page.html", got)
	}
}

func TestSpaces(t *testing.T) {
	if got := spaces(4); got != "    " {
		t.Errorf("spaces(4) = %q, want 4 spaces", got)
	}
	if got := spaces(0); got != "" {
		t.Errorf("spaces(0) = %q, want empty string", got)
	}
}

func TestGenOptionsHonorsInlineOverride(t *testing.T) {
	flagIndent = 2
	flagDefaultStruct = true
	flagInlineCSS = false
	flagInlineJS = false
	flagInline = true

	opts := genOptions()
	if !opts.InlineCSS || !opts.InlineJS {
		t.Errorf("--inline should force both inline flags on, got %+v", opts)
	}
}
