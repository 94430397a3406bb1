package atr

import (
	"fmt"
	"sort"

	"github.com/attic/atticcore/internal/atticerr"
)

// initializeFilesystem writes a fresh VTOC at sector 360 and a zeroed
// directory across sectors 361-368. Used by CreateFormatted and Format.
func (img *Image) initializeFilesystem() {
	v := newVTOC(img.geo.sectorCount, img.diskType == EnhancedDensity)
	img.writeVTOC(v)
	for s := dirFirstSector; s <= dirLastSector; s++ {
		img.WriteSector(s, make([]byte, int(img.ActualSectorSize(s))))
	}
	img.dirty = true
}

func (img *Image) readVTOC() vtoc {
	raw, _ := img.ReadSector(vtocSector)
	return parseVTOC(raw, img.diskType == EnhancedDensity)
}

func (img *Image) writeVTOC(v vtoc) {
	img.WriteSector(vtocSector, v.encode(int(img.ActualSectorSize(vtocSector))))
}

func (img *Image) readEntry(index int) DirectoryEntry {
	sec, _ := img.ReadSector(dirEntrySector(index))
	off := dirEntryOffset(index)
	return decodeDirEntry(index, sec[off:off+dirEntrySize])
}

func (img *Image) writeEntry(e DirectoryEntry) {
	secNum := dirEntrySector(e.Index)
	sec, _ := img.ReadSector(secNum)
	off := dirEntryOffset(e.Index)
	copy(sec[off:off+dirEntrySize], encodeDirEntry(e))
	img.WriteSector(secNum, sec)
}

func (img *Image) allEntries() []DirectoryEntry {
	out := make([]DirectoryEntry, 0, maxFiles)
	for i := 0; i < maxFiles; i++ {
		out = append(out, img.readEntry(i))
	}
	return out
}

// findEntry locates an in-use (non-deleted) entry by name, case-insensitive.
func (img *Image) findEntry(name string) (DirectoryEntry, bool) {
	n, e, err := splitName(name)
	if err != nil {
		return DirectoryEntry{}, false
	}
	want := n
	if e != "" {
		want += "." + e
	}
	for _, entry := range img.allEntries() {
		if entry.inUse() && entry.Name() == want {
			return entry, true
		}
	}
	return DirectoryEntry{}, false
}

// ReadFile walks name's sector-link chain and returns its data.
func (img *Image) ReadFile(name string) ([]byte, error) {
	entry, ok := img.findEntry(name)
	if !ok {
		return nil, atticerr.New(atticerr.KindFileNotFound, name)
	}

	var out []byte
	seen := make(map[int]bool)
	cur := int(entry.StartSector)
	steps := 0
	for cur != 0 {
		if cur < 1 || cur > img.geo.sectorCount {
			return nil, atticerr.New(atticerr.KindFileChainCorrupted, fmt.Sprintf("%s: sector %d out of range", name, cur))
		}
		if seen[cur] {
			return nil, atticerr.New(atticerr.KindFileChainCorrupted, fmt.Sprintf("%s: sector %d revisited", name, cur))
		}
		seen[cur] = true
		steps++
		if steps > int(entry.SectorCount) {
			return nil, atticerr.New(atticerr.KindFileChainCorrupted, fmt.Sprintf("%s: chain longer than sector_count=%d", name, entry.SectorCount))
		}

		raw, _ := img.ReadSector(cur)
		actual := img.ActualSectorSize(cur)
		link := decodeSectorLink([3]byte{raw[actual-3], raw[actual-2], raw[actual-1]}, actual)
		if link.FileID != entry.Index {
			return nil, atticerr.New(atticerr.KindFileChainCorrupted, fmt.Sprintf("%s: sector %d belongs to file %d", name, cur, link.FileID))
		}

		n := link.BytesInSector
		if link.NextSector != 0 {
			n = bytesPerDataSector(actual)
		}
		if n > bytesPerDataSector(actual) || n < 0 {
			return nil, atticerr.New(atticerr.KindFileChainCorrupted, fmt.Sprintf("%s: sector %d invalid byte count %d", name, cur, n))
		}
		out = append(out, raw[:n]...)
		cur = link.NextSector
	}
	return out, nil
}

// WriteFile allocates sectors greedily starting at sector 4, writes data
// in bytes_per_data_sector-sized chunks with sector-link trailers, and
// commits a new directory entry. Fails FileExists if name is already
// present.
func (img *Image) WriteFile(name string, data []byte) error {
	if img.readOnly {
		return atticerr.New(atticerr.KindReadOnly, name)
	}
	if _, ok := img.findEntry(name); ok {
		return atticerr.New(atticerr.KindFileExists, name)
	}
	nm, ext, err := splitName(name)
	if err != nil {
		return err
	}

	v := img.readVTOC()
	perSector := bytesPerDataSector(img.ActualSectorSize(4))
	needed := (len(data) + perSector - 1) / perSector
	if len(data) == 0 {
		needed = 0
	}
	if v.countFreeSectors() < needed {
		return atticerr.New(atticerr.KindDiskFull, name)
	}

	slot := -1
	for i := 0; i < maxFiles; i++ {
		e := img.readEntry(i)
		if e.neverUsed() || e.deleted() {
			slot = i
			break
		}
	}
	if slot == -1 {
		return atticerr.New(atticerr.KindDirectoryFull, name)
	}

	allocated := make([]int, 0, needed)
	for n := 4; n <= img.geo.sectorCount && len(allocated) < needed; n++ {
		if v.isSectorFree(n) {
			allocated = append(allocated, n)
		}
	}
	if len(allocated) < needed {
		return atticerr.New(atticerr.KindDiskFull, name)
	}

	offset := 0
	for i, sec := range allocated {
		actual := img.ActualSectorSize(sec)
		chunk := perSector
		if offset+chunk > len(data) {
			chunk = len(data) - offset
		}
		buf := make([]byte, actual)
		copy(buf, data[offset:offset+chunk])
		next := 0
		if i+1 < len(allocated) {
			next = allocated[i+1]
		}
		bytesInSector := 0
		if next == 0 {
			bytesInSector = chunk
		}
		link := encodeSectorLink(sectorLink{FileID: slot, NextSector: next, BytesInSector: bytesInSector}, actual)
		copy(buf[actual-3:], link[:])
		img.WriteSector(sec, buf)
		v.allocate(sec)
		offset += chunk
	}
	img.writeVTOC(v)

	start := 0
	if len(allocated) > 0 {
		start = allocated[0]
	}
	img.writeEntry(DirectoryEntry{
		Index:       slot,
		Flags:       flagInUse | flagDOS2File,
		SectorCount: uint16(len(allocated)),
		StartSector: uint16(start),
		Filename:    nm,
		Extension:   ext,
	})
	img.dirty = true
	return nil
}

// DeleteFile frees every sector in name's chain and marks its directory
// entry deleted. Fails FileLocked if the entry has the lock bit set.
func (img *Image) DeleteFile(name string) error {
	if img.readOnly {
		return atticerr.New(atticerr.KindReadOnly, name)
	}
	entry, ok := img.findEntry(name)
	if !ok {
		return atticerr.New(atticerr.KindFileNotFound, name)
	}
	if entry.locked() {
		return atticerr.New(atticerr.KindFileLocked, name)
	}

	v := img.readVTOC()
	cur := int(entry.StartSector)
	seen := make(map[int]bool)
	for cur != 0 && !seen[cur] && cur >= 1 && cur <= img.geo.sectorCount {
		seen[cur] = true
		raw, _ := img.ReadSector(cur)
		actual := img.ActualSectorSize(cur)
		link := decodeSectorLink([3]byte{raw[actual-3], raw[actual-2], raw[actual-1]}, actual)
		v.free(cur)
		cur = link.NextSector
	}
	img.writeVTOC(v)

	entry.Flags = flagDeleted
	entry.SectorCount = 0
	entry.StartSector = 0
	img.writeEntry(entry)
	img.dirty = true
	return nil
}

// RenameFile updates only the filename/extension fields; the sector chain
// and directory slot are preserved.
func (img *Image) RenameFile(oldName, newName string) error {
	if img.readOnly {
		return atticerr.New(atticerr.KindReadOnly, oldName)
	}
	entry, ok := img.findEntry(oldName)
	if !ok {
		return atticerr.New(atticerr.KindFileNotFound, oldName)
	}
	if _, exists := img.findEntry(newName); exists {
		return atticerr.New(atticerr.KindFileExists, newName)
	}
	nm, ext, err := splitName(newName)
	if err != nil {
		return err
	}
	entry.Filename, entry.Extension = nm, ext
	img.writeEntry(entry)
	img.dirty = true
	return nil
}

// LockFile sets the directory entry's lock bit.
func (img *Image) LockFile(name string) error { return img.setLocked(name, true) }

// UnlockFile clears the directory entry's lock bit.
func (img *Image) UnlockFile(name string) error { return img.setLocked(name, false) }

func (img *Image) setLocked(name string, locked bool) error {
	entry, ok := img.findEntry(name)
	if !ok {
		return atticerr.New(atticerr.KindFileNotFound, name)
	}
	if locked {
		entry.Flags |= flagLocked
	} else {
		entry.Flags &^= flagLocked
	}
	img.writeEntry(entry)
	img.dirty = true
	return nil
}

// ListDirectory returns in-use entries in directory-slot order, optionally
// including deleted entries and filtered by a NAME.EXT glob pattern.
func (img *Image) ListDirectory(includeDeleted bool, pattern string) []DirectoryEntry {
	var out []DirectoryEntry
	for _, e := range img.allEntries() {
		if e.neverUsed() {
			continue
		}
		if e.deleted() && !includeDeleted {
			continue
		}
		if pattern != "" && !matchPattern(pattern, e.Name()) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Format zeroes the entire data area and reinitializes the VTOC and
// directory.
func (img *Image) Format() error {
	if img.readOnly {
		return atticerr.New(atticerr.KindReadOnly, "format")
	}
	for i := range img.data {
		img.data[i] = 0
	}
	img.initializeFilesystem()
	return nil
}

// Validate scans the image for consistency problems: free-count mismatch,
// per-file chain corruption, sectors cited by two files, and sectors cited
// by a file but marked free. Sectors marked used in the VTOC that no
// file's chain reaches are not reported. It never mutates the image.
func (img *Image) Validate() []string {
	var issues []string

	v := img.readVTOC()
	if int(v.freeSector) != v.countFreeSectors() {
		issues = append(issues, fmt.Sprintf("VTOC free count %d does not match bitmap population %d", v.freeSector, v.countFreeSectors()))
	}

	claimedBy := make(map[int]int) // sector -> file index claiming it
	for _, e := range img.allEntries() {
		if !e.inUse() {
			continue
		}
		cur := int(e.StartSector)
		seen := make(map[int]bool)
		for cur != 0 {
			if cur < 1 || cur > img.geo.sectorCount {
				issues = append(issues, fmt.Sprintf("%s: chain references out-of-range sector %d", e.Name(), cur))
				break
			}
			if seen[cur] {
				issues = append(issues, fmt.Sprintf("%s: chain revisits sector %d", e.Name(), cur))
				break
			}
			seen[cur] = true
			if prior, ok := claimedBy[cur]; ok {
				issues = append(issues, fmt.Sprintf("sector %d claimed by both file %d and file %d", cur, prior, e.Index))
			} else {
				claimedBy[cur] = e.Index
			}
			if v.isSectorFree(cur) {
				issues = append(issues, fmt.Sprintf("sector %d used by %s but marked free in VTOC", cur, e.Name()))
			}
			raw, _ := img.ReadSector(cur)
			actual := img.ActualSectorSize(cur)
			link := decodeSectorLink([3]byte{raw[actual-3], raw[actual-2], raw[actual-1]}, actual)
			if link.FileID != e.Index {
				issues = append(issues, fmt.Sprintf("%s: sector %d has wrong file id %d", e.Name(), cur, link.FileID))
				break
			}
			cur = link.NextSector
		}
	}

	sort.Strings(issues)
	return issues
}

// FindFile reports whether name exists among in-use entries.
func (img *Image) FindFile(name string) (DirectoryEntry, bool) {
	return img.findEntry(name)
}

// NormalizeName exposes splitName's filename rules for callers (e.g.
// DiskManager) validating a name before it reaches the filesystem layer.
func NormalizeName(s string) (string, error) {
	nm, ext, err := splitName(s)
	if err != nil {
		return "", err
	}
	if ext == "" {
		return nm, nil
	}
	return nm + "." + ext, nil
}
