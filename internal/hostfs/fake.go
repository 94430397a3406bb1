package hostfs

import (
	"strings"

	"github.com/attic/atticcore/internal/atticerr"
)

// Fake is an in-memory FS for tests: no real disk I/O, a fixed home
// directory, and files seeded directly into a map.
type Fake struct {
	Files map[string][]byte
	Home  string
}

// NewFake returns an empty Fake rooted at home (used for "~/" expansion).
func NewFake(home string) *Fake {
	return &Fake{Files: make(map[string][]byte), Home: home}
}

func (f *Fake) Exists(path string) bool {
	_, ok := f.Files[path]
	return ok
}

func (f *Fake) ReadFile(path string) ([]byte, error) {
	data, ok := f.Files[path]
	if !ok {
		return nil, atticerr.New(atticerr.KindReadFailed, path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *Fake) WriteFile(path string, data []byte) error {
	out := make([]byte, len(data))
	copy(out, data)
	f.Files[path] = out
	return nil
}

func (f *Fake) ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	return f.Home + "/" + path[2:], nil
}
