package keyfile

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSource_OverrideKey(t *testing.T) {
	s := NewSource("env-secret", "", discardLogger())

	assert.Equal(t, "env-secret", s.OverrideKey())
	assert.Equal(t, "", s.LegacyKey())
}

func TestSource_LegacyKeyReadsWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("legacy-secret\n"), 0o600))

	s := NewSource("", path, discardLogger())

	assert.Equal(t, "legacy-secret\n", s.LegacyKey())
}

func TestSource_LegacyKeyMissingFile(t *testing.T) {
	s := NewSource("", filepath.Join(t.TempDir(), "does-not-exist"), discardLogger())

	assert.Equal(t, "", s.LegacyKey())
}

func TestSource_LegacyKeyUnreadableIsAbsorbed(t *testing.T) {
	// Reading a directory fails with an error other than "not found".
	s := NewSource("", t.TempDir(), discardLogger())

	assert.Equal(t, "", s.LegacyKey())
}

func TestSource_LegacyKeyExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	require.NoError(t, os.WriteFile(filepath.Join(home, "key"), []byte("from-home"), 0o600))

	s := NewSource("", "~/key", discardLogger())

	assert.Equal(t, "from-home", s.LegacyKey())
}
