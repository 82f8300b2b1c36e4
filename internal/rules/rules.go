// Package rules provides the static assessment rules document embedded into
// the risk assessment prompt.
package rules

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the rules document looked up beside the executable.
const FileName = "assessment_rules.txt"

//go:embed assessment_rules.txt
var embedded string

// Default returns the rules document compiled into the binary.
func Default() string {
	return embedded
}

// Store loads the rules document. The file is read on every Load so an edited
// document takes effect without a restart.
type Store struct {
	path     string
	fallback bool
}

// NewFileStore reads the rules from path on every Load; a missing file is an
// error.
func NewFileStore(path string) *Store {
	return &Store{path: path}
}

// NewDefaultStore reads FileName beside the running executable and falls back
// to the embedded document when no such file exists.
func NewDefaultStore() *Store {
	exe, err := os.Executable()
	if err != nil {
		return &Store{fallback: true}
	}
	return &Store{path: filepath.Join(filepath.Dir(exe), FileName), fallback: true}
}

// Load returns the rules text.
func (s *Store) Load(_ context.Context) (string, error) {
	if s.path == "" {
		if s.fallback {
			return embedded, nil
		}
		return "", errors.New("rules: no rules path configured")
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if s.fallback && errors.Is(err, fs.ErrNotExist) {
			return embedded, nil
		}
		return "", fmt.Errorf("rules: read %s: %w", s.path, err)
	}
	return string(b), nil
}
