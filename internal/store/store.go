// Package store persists a vocabulary as three JSON artifacts in one directory:
// valid_symbols.json, idx2token.json and token2idx.json.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/go-wordpiece/internal/vocab"
	"github.com/spf13/afero"
)

// Artifact file names.
const (
	ValidSymbolsFile = "valid_symbols.json"
	Idx2TokenFile    = "idx2token.json"
	Token2IdxFile    = "token2idx.json"
)

// ErrNotFound is returned by Load when an artifact is missing.
var ErrNotFound = errors.New("vocabulary artifact not found")

// Store saves and loads vocabulary artifacts.
type Store interface {
	SaveValidSymbols(symbols []string) error
	SaveVocabulary(v *vocab.Vocabulary) error
	Load() (*vocab.Vocabulary, error)
	Exists() bool
}

// Dir is a Store rooted at a directory of an afero filesystem.
type Dir struct {
	fs  afero.Fs
	dir string
}

// NewDir returns a Store for dir on fs. The directory is created on first save.
func NewDir(fs afero.Fs, dir string) *Dir {
	return &Dir{fs: fs, dir: dir}
}

// NewOSDir returns a Store for dir on the local filesystem.
func NewOSDir(dir string) *Dir {
	return NewDir(afero.NewOsFs(), dir)
}

// Dir returns the artifact directory.
func (d *Dir) Dir() string { return d.dir }

// Path returns the full path of the named artifact.
func (d *Dir) Path(name string) string { return filepath.Join(d.dir, name) }

// Exists reports whether all three artifacts are present.
func (d *Dir) Exists() bool {
	for _, name := range []string{ValidSymbolsFile, Idx2TokenFile, Token2IdxFile} {
		ok, err := afero.Exists(d.fs, d.Path(name))
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (d *Dir) SaveValidSymbols(symbols []string) error {
	if symbols == nil {
		symbols = []string{}
	}
	return d.writeJSON(ValidSymbolsFile, symbols)
}

// SaveVocabulary writes idx2token.json and token2idx.json.
func (d *Dir) SaveVocabulary(v *vocab.Vocabulary) error {
	if err := d.writeJSON(Idx2TokenFile, v.Tokens()); err != nil {
		return err
	}
	return d.writeJSON(Token2IdxFile, v.TokenToIndex())
}

// Load reads all three artifacts and validates them with vocab.FromArtifacts.
func (d *Dir) Load() (*vocab.Vocabulary, error) {
	var symbols []string
	if err := d.readJSON(ValidSymbolsFile, &symbols); err != nil {
		return nil, err
	}

	var idx2token []string
	if err := d.readJSON(Idx2TokenFile, &idx2token); err != nil {
		return nil, err
	}

	var token2idx map[string]int
	if err := d.readJSON(Token2IdxFile, &token2idx); err != nil {
		return nil, err
	}

	v, err := vocab.FromArtifacts(idx2token, token2idx, symbols)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary from %s: %w", d.dir, err)
	}
	return v, nil
}

func (d *Dir) readJSON(name string, out any) error {
	path := d.Path(name)

	b, err := afero.ReadFile(d.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("read %s: %w", name, err)
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON encodes v into a temp file next to the target and renames it into
// place, so readers never observe a partially written artifact.
func (d *Dir) writeJSON(name string, v any) error {
	if err := d.fs.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create vocabulary dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := afero.TempFile(d.fs, d.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = d.fs.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = d.fs.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := d.fs.Rename(tmpPath, d.Path(name)); err != nil {
		_ = d.fs.Remove(tmpPath)
		return fmt.Errorf("move %s into place: %w", name, err)
	}
	return nil
}
