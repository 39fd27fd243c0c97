// Package keyfile implements the driven KeySource port from the process
// configuration and a legacy key file.
package keyfile

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"

	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.KeySource = (*Source)(nil)

// Source supplies the override key and the legacy file key. The file is read
// on every call to LegacyKey.
type Source struct {
	override string
	path     string
	logger   *slog.Logger
}

// NewSource creates a Source. override may be empty. path may start with "~",
// which is expanded to the user's home directory; an empty path disables the
// legacy key file.
func NewSource(override, path string, logger *slog.Logger) *Source {
	return &Source{override: override, path: path, logger: logger}
}

// OverrideKey returns the configured override key.
func (s *Source) OverrideKey() string {
	return s.override
}

// LegacyKey returns the whole contents of the legacy key file, or "" if it
// cannot be read. A missing file is the common case and is not logged.
func (s *Source) LegacyKey() string {
	if s.path == "" {
		return ""
	}

	path, err := homedir.Expand(s.path)
	if err != nil {
		s.logger.Warn("ignoring legacy key file", "path", s.path, "error", err)
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("ignoring unreadable legacy key file", "path", path, "error", err)
		}
		return ""
	}
	return string(data)
}
