package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_NamesEverySubScore(t *testing.T) {
	doc := Default()
	for _, key := range []string{
		"Sanction Score",
		"Adverse Media",
		"PEP Score",
		"High Risk Jurisdiction Score",
		"Suspicious Transaction Pattern Score",
		"Shell Company Link Score",
	} {
		require.Contains(t, doc, key)
	}
}

func TestFileStore_ReadsOnEveryLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("rule v1"), 0o600))
	s := NewFileStore(path)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rule v1", got)

	require.NoError(t, os.WriteFile(path, []byte("rule v2"), 0o600))
	got, err = s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rule v2", got)
}

func TestFileStore_MissingFile(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "absent.txt")).Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "rules: read")

	_, err = NewFileStore("").Load(context.Background())
	require.Error(t, err)
}

func TestDefaultStore_FallsBackToEmbedded(t *testing.T) {
	s := &Store{path: filepath.Join(t.TempDir(), FileName), fallback: true}
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, Default(), got)

	got, err = NewDefaultStore().Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, got)
}
