package disk

import (
	"fmt"

	"github.com/attic/atticcore/internal/atr"
	"github.com/attic/atticcore/internal/atticerr"
)

// ListDirectory forwards to drive's image (0 = current drive).
func (m *Manager) ListDirectory(drive int, includeDeleted bool, pattern string) ([]atr.DirectoryEntry, error) {
	img, err := m.slotImage(drive)
	if err != nil {
		return nil, err
	}
	return img.ListDirectory(includeDeleted, pattern), nil
}

// FindFile forwards to drive's image.
func (m *Manager) FindFile(drive int, name string) (atr.DirectoryEntry, bool, error) {
	img, err := m.slotImage(drive)
	if err != nil {
		return atr.DirectoryEntry{}, false, err
	}
	e, ok := img.FindFile(name)
	return e, ok, nil
}

// ReadFile forwards to drive's image.
func (m *Manager) ReadFile(drive int, name string) ([]byte, error) {
	img, err := m.slotImage(drive)
	if err != nil {
		return nil, err
	}
	return img.ReadFile(name)
}

// WriteFile forwards to drive's image, rejecting a read-only slot before
// the image-level read-only flag would (the drive's mount-time read-only
// flag takes precedence so DiskManager can enforce --read-only mounts
// independent of the image's own flag).
func (m *Manager) WriteFile(drive int, name string, data []byte) error {
	d := m.resolveDrive(drive)
	if err := validateDrive(d); err != nil {
		return err
	}
	slot := &m.slots[d-1]
	if !slot.mounted() {
		return atticerr.New(atticerr.KindDriveEmpty, fmt.Sprintf("%d", d))
	}
	if slot.ReadOnly {
		return atticerr.New(atticerr.KindReadOnly, fmt.Sprintf("%d", d))
	}
	return slot.Image.WriteFile(name, data)
}

// DeleteFile forwards to drive's image.
func (m *Manager) DeleteFile(drive int, name string) error {
	img, err := m.slotImage(drive)
	if err != nil {
		return err
	}
	return img.DeleteFile(name)
}

// RenameFile forwards to drive's image.
func (m *Manager) RenameFile(drive int, oldName, newName string) error {
	img, err := m.slotImage(drive)
	if err != nil {
		return err
	}
	return img.RenameFile(oldName, newName)
}

// LockFile forwards to drive's image.
func (m *Manager) LockFile(drive int, name string) error {
	img, err := m.slotImage(drive)
	if err != nil {
		return err
	}
	return img.LockFile(name)
}

// UnlockFile forwards to drive's image.
func (m *Manager) UnlockFile(drive int, name string) error {
	img, err := m.slotImage(drive)
	if err != nil {
		return err
	}
	return img.UnlockFile(name)
}

// GetFileInfo forwards to drive's image, returning FileNotFound if name
// isn't present.
func (m *Manager) GetFileInfo(drive int, name string) (atr.DirectoryEntry, error) {
	img, err := m.slotImage(drive)
	if err != nil {
		return atr.DirectoryEntry{}, err
	}
	e, ok := img.FindFile(name)
	if !ok {
		return atr.DirectoryEntry{}, atticerr.New(atticerr.KindFileNotFound, name)
	}
	return e, nil
}

// GetInfo returns drive's image-level volume info.
func (m *Manager) GetInfo(drive int) (atr.Info, error) {
	img, err := m.slotImage(drive)
	if err != nil {
		return atr.Info{}, err
	}
	return img.Info(), nil
}

// FormatDisk forwards to drive's image.
func (m *Manager) FormatDisk(drive int) error {
	img, err := m.slotImage(drive)
	if err != nil {
		return err
	}
	return img.Format()
}

// ExportFile reads name from drive's image and writes it to hostPath on
// the host filesystem.
func (m *Manager) ExportFile(drive int, name, hostPath string) error {
	data, err := m.ReadFile(drive, name)
	if err != nil {
		return err
	}
	return m.fs.WriteFile(hostPath, data)
}

// ImportFile reads hostPath from the host filesystem and writes it to
// drive's image as name.
func (m *Manager) ImportFile(drive int, hostPath, name string) error {
	data, err := m.fs.ReadFile(hostPath)
	if err != nil {
		return err
	}
	return m.WriteFile(drive, name, data)
}

// CopyFile reads name from fromDrive and writes it to toDrive, optionally
// under a different name (as == "" keeps name).
func (m *Manager) CopyFile(fromDrive int, name string, toDrive int, as string) error {
	data, err := m.ReadFile(fromDrive, name)
	if err != nil {
		return err
	}
	destName := as
	if destName == "" {
		destName = name
	}
	return m.WriteFile(toDrive, destName, data)
}

// CreateDisk creates a new formatted image of the given type at path,
// without mounting it.
func (m *Manager) CreateDisk(path string, t atr.DiskType) error {
	img, err := atr.CreateFormatted(path, t)
	if err != nil {
		return err
	}
	return m.fs.WriteFile(path, img.Bytes())
}
