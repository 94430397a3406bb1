package atr

import (
	"strings"

	"github.com/attic/atticcore/internal/atticerr"
)

const (
	dirEntrySize     = 16
	dirEntriesPerSec = 8
	dirFirstSector   = 361
	dirLastSector    = 368
	maxFiles         = dirEntriesPerSec * (dirLastSector - dirFirstSector + 1)
)

// Directory entry flag bits.
const (
	flagDeleted  = 0x80
	flagInUse    = 0x40
	flagLocked   = 0x20
	flagDOS2File = 0x02
)

// DirectoryEntry is the 16-byte on-disk directory record.
type DirectoryEntry struct {
	Index       int // 0..63, also the SectorLink file_id
	Flags       byte
	SectorCount uint16
	StartSector uint16
	Filename    string // 8 chars, space-padded on disk
	Extension   string // 3 chars, space-padded on disk
}

func (e DirectoryEntry) neverUsed() bool { return e.Flags == 0 }
func (e DirectoryEntry) deleted() bool   { return e.Flags&flagDeleted != 0 }
func (e DirectoryEntry) inUse() bool     { return e.Flags&flagInUse != 0 && !e.deleted() }
func (e DirectoryEntry) locked() bool    { return e.Flags&flagLocked != 0 }

// Name renders the entry as "NAME.EXT" (no extension suffix if empty).
func (e DirectoryEntry) Name() string {
	name := strings.TrimRight(e.Filename, " ")
	ext := strings.TrimRight(e.Extension, " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func decodeDirEntry(index int, b []byte) DirectoryEntry {
	return DirectoryEntry{
		Index:       index,
		Flags:       b[0],
		SectorCount: uint16(b[1]) | uint16(b[2])<<8,
		StartSector: uint16(b[3]) | uint16(b[4])<<8,
		Filename:    string(b[5:13]),
		Extension:   string(b[13:16]),
	}
}

func encodeDirEntry(e DirectoryEntry) []byte {
	buf := make([]byte, dirEntrySize)
	buf[0] = e.Flags
	buf[1] = byte(e.SectorCount)
	buf[2] = byte(e.SectorCount >> 8)
	buf[3] = byte(e.StartSector)
	buf[4] = byte(e.StartSector >> 8)
	copy(buf[5:13], padField(e.Filename, 8))
	copy(buf[13:16], padField(e.Extension, 3))
	return buf
}

func padField(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

// dirEntrySector/dirEntryOffset map a 0-based directory index to its
// physical sector number (361..368) and byte offset within that sector.
func dirEntrySector(index int) int {
	return dirFirstSector + index/dirEntriesPerSec
}

func dirEntryOffset(index int) int {
	return (index % dirEntriesPerSec) * dirEntrySize
}

// splitName implements the filename rules of §4.4: upper-cased, split on
// '.', trimmed, extension defaults to empty (three spaces on disk).
// Allowed characters are A-Z, 0-9, '$', and '_'.
func splitName(s string) (name, ext string, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", "", atticerr.New(atticerr.KindInvalidFilename, "empty")
	}
	parts := strings.SplitN(s, ".", 2)
	name = parts[0]
	if len(parts) == 2 {
		ext = parts[1]
	}
	if len(name) == 0 || len(name) > 8 {
		return "", "", atticerr.New(atticerr.KindInvalidFilename, s)
	}
	if len(ext) > 3 {
		return "", "", atticerr.New(atticerr.KindInvalidFilename, s)
	}
	if !validNameChars(name) || !validNameChars(ext) {
		return "", "", atticerr.New(atticerr.KindInvalidFilename, s)
	}
	return name, ext, nil
}

func validNameChars(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '$' || r == '_':
		default:
			return false
		}
	}
	return true
}

// matchPattern applies classic '*'/'?' globbing (case-insensitive) against
// the "NAME.EXT" form of a directory entry.
func matchPattern(pattern, name string) bool {
	pattern = strings.ToUpper(pattern)
	name = strings.ToUpper(name)
	return globMatch(pattern, name)
}

func globMatch(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		if globMatch(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if globMatch(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return globMatch(pattern[1:], s[1:])
	}
}
