// Command chtl is the CHTL compiler CLI: compile/validate/version
// subcommands plus watch mode, grounded on wispy-core's cmd/server
// startup-logging idiom but built on cobra/pflag (the CLI stack sibling
// compiler projects in the retrieval pack use, e.g. conneroisu-templar
// and Yacobolo-cssgen) instead of a bespoke flag.FlagSet.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"chtl/compile"
	"chtl/config"
	"chtl/generator"
	"chtl/loader"
)

var (
	flagOutput        string
	flagInline        bool
	flagInlineCSS     bool
	flagInlineJS      bool
	flagDefaultStruct bool
	flagVerbose       bool
	flagDebug         bool
	flagWatch         bool
	flagInPlace       bool
	flagIndent        int
	flagInclude       []string
	flagExclude       []string
	flagPrettyCSS     bool
	flagSanitizeHTML  bool
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	settings := loadProjectSettings(logger)

	root := &cobra.Command{
		Use:   "chtl",
		Short: "Compile CHTL source into coordinated HTML/CSS/JS",
	}

	compileCmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile one or more .chtl files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(logger, args)
		},
	}
	addGeneratorFlags(compileCmd, settings)

	validateCmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Parse and type-check .chtl files without writing output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(logger, args)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the chtl compiler version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("chtl 0.1.0")
		},
	}

	root.AddCommand(compileCmd, validateCmd, versionCmd)
	if err := root.Execute(); err != nil {
		logger.Error("chtl command failed", "error", err)
		os.Exit(1)
	}
}

// loadProjectSettings reads chtl.toml from the current directory, if
// present, so compile flag defaults pick up project-level configuration
// the way wispy-core's server loads config/global.go before flag
// parsing. Absence of the file is not an error: it just means every
// flag falls back to its built-in default.
func loadProjectSettings(logger *slog.Logger) *config.Settings {
	s, err := config.LoadSettings("chtl.toml")
	if err != nil {
		return config.DefaultSettings()
	}
	logger.Debug("loaded chtl.toml project settings")
	return s
}

func addGeneratorFlags(cmd *cobra.Command, settings *config.Settings) {
	f := cmd.Flags()
	f.StringVarP(&flagOutput, "output", "o", settings.OutputDir, "output directory")
	f.BoolVar(&flagInline, "inline", false, "inline both CSS and JS into the HTML document")
	f.BoolVar(&flagInlineCSS, "inline-css", settings.InlineCSS, "inline generated CSS as a <style> tag")
	f.BoolVar(&flagInlineJS, "inline-js", settings.InlineJS, "inline generated JS as a <script> tag")
	f.BoolVar(&flagDefaultStruct, "default-struct", settings.DefaultStruct, "wrap output in a full HTML document")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "print per-file compile stats")
	f.BoolVar(&flagDebug, "debug", false, "accepted; does not change compile output")
	f.BoolVarP(&flagWatch, "watch", "w", false, "recompile on source changes")
	f.BoolVarP(&flagInPlace, "in-place", "i", false, "write output next to the source file")
	f.IntVar(&flagIndent, "indent", settings.Indent, "number of spaces per indent level")
	f.StringSliceVar(&flagInclude, "include", nil, "glob patterns to include (accepted; not applied: compile takes explicit file arguments)")
	f.StringSliceVar(&flagExclude, "exclude", nil, "glob patterns to exclude (accepted; not applied: compile takes explicit file arguments)")
	f.BoolVar(&flagPrettyCSS, "pretty-css", settings.PrettyCSS, "pretty-print the generated CSS")
	f.BoolVar(&flagSanitizeHTML, "sanitize-origin", settings.SanitizeOrigin, "run [Origin] @Html passthrough content through an HTML sanitizer")
}

func genOptions() generator.Options {
	opts := generator.DefaultOptions()
	opts.Indent = spaces(flagIndent)
	opts.DefaultStruct = flagDefaultStruct
	opts.InlineCSS = flagInlineCSS || flagInline
	opts.InlineJS = flagInlineJS || flagInline
	opts.PrettyCSS = flagPrettyCSS
	opts.SanitizeOrigin = flagSanitizeHTML
	return opts
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func runCompile(logger *slog.Logger, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("compile requires at least one file")
	}
	for _, file := range files {
		if err := compileOne(logger, file); err != nil {
			return err
		}
	}
	if flagWatch {
		return watchLoop(logger, files)
	}
	return nil
}

func compileOne(logger *slog.Logger, file string) error {
	start := timeNow()
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %q: %w", file, err)
	}

	dir := filepath.Dir(file)
	opts := compile.Options{Generator: genOptions(), Loader: &loader.FSLoader{Root: dir}}
	res, err := compile.Compile(file, string(src), opts)
	if err != nil {
		return fmt.Errorf("compile %q: %w", file, err)
	}

	for _, d := range res.Diagnostics {
		logger.Warn("diagnostic", "file", file, "detail", d)
	}

	outDir := flagOutput
	if flagInPlace {
		outDir = dir
	}
	outPath := filepath.Join(outDir, swapExt(filepath.Base(file), ".html"))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(res.HTML), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", outPath, err)
	}

	if flagVerbose {
		elapsed := timeSince(start)
		logger.Info("compiled",
			"file", file,
			"out", outPath,
			"elapsed", elapsed,
			"html_size", humanize.Bytes(uint64(len(res.HTML))),
		)
	}
	return nil
}

func runValidate(logger *slog.Logger, files []string) error {
	failed := false
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %q: %w", file, err)
		}
		dir := filepath.Dir(file)
		opts := compile.Options{Generator: generator.DefaultOptions(), Loader: &loader.FSLoader{Root: dir}}
		res, err := compile.Compile(file, string(src), opts)
		if err != nil {
			return err
		}
		if len(res.Diagnostics) > 0 {
			failed = true
			for _, d := range res.Diagnostics {
				logger.Error("validation error", "file", file, "detail", d)
			}
		}
	}
	if failed {
		os.Exit(2)
	}
	return nil
}

func watchLoop(logger *slog.Logger, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	for _, f := range files {
		if err := watcher.Add(filepath.Dir(f)); err != nil {
			return fmt.Errorf("watch %q: %w", f, err)
		}
	}

	logger.Info("watching for changes", "files", files)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			for _, f := range files {
				if filepath.Clean(event.Name) == filepath.Clean(f) {
					if err := compileOne(logger, f); err != nil {
						logger.Error("recompile failed", "file", f, "error", err)
					}
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

func swapExt(name, newExt string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + newExt
}

func timeNow() time.Time   { return time.Now() }
func timeSince(t time.Time) time.Duration { return time.Since(t) }
