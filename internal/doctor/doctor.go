// Package doctor provides preflight checks for a vocabulary directory.
package doctor

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/example/go-wordpiece/internal/store"
	"github.com/example/go-wordpiece/internal/vocab"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// VocabDir holds the vocabulary artifacts.
	VocabDir string
	// Fs is the filesystem VocabDir lives on. Nil means the local disk.
	Fs afero.Fs
	// ServerHealth probes a running server. Nil skips the check.
	ServerHealth func() error
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(w io.Writer, msg string) {
	r.failures = append(r.failures, msg)
	fmt.Fprintf(w, "%s %s\n", FailMark, msg)
}

func pass(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", PassMark, fmt.Sprintf(format, args...))
}

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	// ---- vocabulary directory ---------------------------------------------
	ok, err := afero.IsDir(fs, cfg.VocabDir)
	if err != nil || !ok {
		res.fail(w, fmt.Sprintf("vocab dir %s: not a directory", cfg.VocabDir))
		return res
	}
	pass(w, "vocab dir: %s", cfg.VocabDir)

	// ---- artifacts --------------------------------------------------------
	st := store.NewDir(fs, cfg.VocabDir)
	missing := false
	for _, name := range []string{store.ValidSymbolsFile, store.Idx2TokenFile, store.Token2IdxFile} {
		if exists, _ := afero.Exists(fs, st.Path(name)); !exists {
			res.fail(w, fmt.Sprintf("artifact %s: not found", name))
			missing = true
			continue
		}
		pass(w, "artifact: %s", name)
	}
	if missing {
		return res
	}

	// ---- vocabulary consistency -------------------------------------------
	v, err := st.Load()
	if err != nil {
		res.fail(w, fmt.Sprintf("vocabulary: %v", err))
		return res
	}
	pass(w, "vocabulary: %d tokens, reserved %s", v.Len(), strings.Join(vocab.Reserved(), " "))

	symbols := v.ValidSymbols()
	var absent []string
	hasBoundary := false
	for _, s := range symbols {
		if s == vocab.WordBoundary {
			hasBoundary = true
		}
		if !v.Contains(s) {
			absent = append(absent, s)
		}
	}
	if len(absent) > 0 {
		res.fail(w, fmt.Sprintf("valid symbols: %d not in vocabulary (%q)", len(absent), absent))
	} else {
		pass(w, "valid symbols: %d, all in vocabulary", len(symbols))
	}
	if !hasBoundary {
		res.fail(w, fmt.Sprintf("valid symbols: word boundary %q missing", vocab.WordBoundary))
	}

	// ---- running server ---------------------------------------------------
	if cfg.ServerHealth == nil {
		pass(w, "server health: skipped")
	} else if err := cfg.ServerHealth(); err != nil {
		res.fail(w, fmt.Sprintf("server health: %v", err))
	} else {
		pass(w, "server health: ok")
	}

	return res
}
