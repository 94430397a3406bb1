// Package hostfs abstracts the filesystem operations the core touches
// outside of ATR/state-file internals: ROM existence checks, exporting a
// DOS file to a host path, importing a host file onto a mounted disk, and
// home-directory path expansion.
package hostfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/attic/atticcore/internal/atticerr"
)

// FS is the filesystem surface every component that touches the host
// filesystem depends on, narrow enough that tests can supply an in-memory
// fake instead of touching disk.
type FS interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	ExpandHome(path string) (string, error)
}

// OS is the real, os-package-backed implementation.
type OS struct{}

// New returns the OS-backed FS implementation.
func New() FS { return OS{} }

func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, atticerr.Wrap(atticerr.KindReadFailed, path, err)
	}
	return data, nil
}

func (OS) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	return nil
}

// ExpandHome expands a leading "~/" against the current user's home
// directory, per spec.md §4.6's path-argument rule. Paths without a
// leading "~/" are returned unchanged.
func (OS) ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", atticerr.Wrap(atticerr.KindReadFailed, path, err)
	}
	return filepath.Join(home, path[2:]), nil
}
