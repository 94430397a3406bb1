// Package disk implements DiskManager, the eight-slot drive table that
// coordinates atr.Image instances with mount/unmount lifecycle,
// read-only/concurrency bookkeeping, and filesystem-forwarding operations.
package disk

import (
	"fmt"

	"github.com/attic/atticcore/internal/atr"
	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/hostfs"
)

const driveCount = 8

// DriveSlot is one of DiskManager's eight slots: an optional mounted
// image plus the metadata needed to report and persist it.
type DriveSlot struct {
	Image    *atr.Image
	Path     string
	ReadOnly bool
}

func (s DriveSlot) mounted() bool { return s.Image != nil }

// DriveInfo is returned by Mount and reflects a freshly mounted drive's
// state.
type DriveInfo struct {
	Drive      int
	Path       string
	DiskType   atr.DiskType
	IsReadOnly bool
}

// DriveStatus is one row of ListDrives' eight-entry report.
type DriveStatus struct {
	Drive   int
	Mounted bool
	Path    string
	Current bool
}

// Manager holds the eight drive slots and the current-drive pointer.
// Every exported method is the externally-serialized "one operation at a
// time" critical section spec.md §4.5 and §5 describe; callers are
// expected to invoke Manager from a single dispatcher goroutine (or guard
// it with their own mutex) rather than Manager guarding itself, matching
// the "actor-like, single owning task" design note in spec.md §9.
type Manager struct {
	slots   [driveCount]DriveSlot
	current int
	fs      hostfs.FS
}

// NewManager returns a Manager with all drives empty and drive 1 current.
func NewManager(fs hostfs.FS) *Manager {
	return &Manager{current: 1, fs: fs}
}

func validateDrive(n int) error {
	if n < 1 || n > driveCount {
		return &atticerr.Error{Kind: atticerr.KindInvalidDrive, Subject: fmt.Sprintf("%d", n), Value: int64(n), Lo: 1, Hi: driveCount}
	}
	return nil
}

// resolveDrive substitutes the current drive for a zero/unset argument,
// per §4.5's "a nil-drive argument ... is replaced by current_drive" rule.
func (m *Manager) resolveDrive(n int) int {
	if n == 0 {
		return m.current
	}
	return n
}

// Mount loads path as an ATR image into drive.
func (m *Manager) Mount(drive int, path string, readOnly bool) (DriveInfo, error) {
	if err := validateDrive(drive); err != nil {
		return DriveInfo{}, err
	}
	if m.slots[drive-1].mounted() {
		return DriveInfo{}, atticerr.New(atticerr.KindDriveInUse, fmt.Sprintf("%d", drive))
	}
	raw, err := m.fs.ReadFile(path)
	if err != nil {
		if !m.fs.Exists(path) {
			return DriveInfo{}, atticerr.New(atticerr.KindPathNotFound, path)
		}
		return DriveInfo{}, atticerr.Wrap(atticerr.KindMountFailed, path, err)
	}
	img, err := atr.Parse(raw, atr.Strict)
	if err != nil {
		return DriveInfo{}, atticerr.Wrap(atticerr.KindMountFailed, path, err)
	}
	m.slots[drive-1] = DriveSlot{Image: img, Path: path, ReadOnly: readOnly}
	return DriveInfo{Drive: drive, Path: path, DiskType: img.DiskType(), IsReadOnly: readOnly}, nil
}

// Unmount clears drive's slot, optionally saving first. Unmounting the
// current drive resets current_drive to 1.
func (m *Manager) Unmount(drive int, save bool) error {
	if err := validateDrive(drive); err != nil {
		return err
	}
	slot := &m.slots[drive-1]
	if !slot.mounted() {
		return atticerr.New(atticerr.KindDriveEmpty, fmt.Sprintf("%d", drive))
	}
	if save {
		if err := m.saveSlot(slot); err != nil {
			return err
		}
	}
	*slot = DriveSlot{}
	if m.current == drive {
		m.current = 1
	}
	return nil
}

// saveSlot writes slot's image through the Manager's hostfs.FS (rather
// than atr.Image.Save, which writes via os directly) so tests can supply
// a fake filesystem and so every drive's persistence goes through one
// path.
func (m *Manager) saveSlot(slot *DriveSlot) error {
	if err := m.fs.WriteFile(slot.Path, slot.Image.Bytes()); err != nil {
		return err
	}
	slot.Image.MarkSaved(slot.Path)
	return nil
}

// ChangeDrive sets the current drive.
func (m *Manager) ChangeDrive(to int) error {
	if err := validateDrive(to); err != nil {
		return err
	}
	m.current = to
	return nil
}

// CurrentDrive returns the current drive number.
func (m *Manager) CurrentDrive() int { return m.current }

// ListDrives reports the mount status of all eight slots.
func (m *Manager) ListDrives() [driveCount]DriveStatus {
	var out [driveCount]DriveStatus
	for i := 0; i < driveCount; i++ {
		out[i] = DriveStatus{
			Drive:   i + 1,
			Mounted: m.slots[i].mounted(),
			Path:    m.slots[i].Path,
			Current: m.current == i+1,
		}
	}
	return out
}

// IsDriveMounted reports whether drive has an image mounted. Invalid
// drive numbers return false rather than an error.
func (m *Manager) IsDriveMounted(drive int) bool {
	if drive < 1 || drive > driveCount {
		return false
	}
	return m.slots[drive-1].mounted()
}

// TrackBootedDisk mounts path onto drive if it parses as an ATR image,
// and silently does nothing otherwise (Open Question (a), SPEC_FULL.md
// §12): the emulator can also boot from XEX/cartridge images, which this
// call is not meant to reject.
func (m *Manager) TrackBootedDisk(drive int, path string) {
	if err := validateDrive(drive); err != nil {
		return
	}
	raw, err := m.fs.ReadFile(path)
	if err != nil {
		return
	}
	img, err := atr.Parse(raw, atr.Lenient)
	if err != nil {
		return
	}
	m.slots[drive-1] = DriveSlot{Image: img, Path: path}
}

// SaveDisk saves drive's image if dirty. Save is idempotent: a clean
// image performs no I/O.
func (m *Manager) SaveDisk(drive int) error {
	if err := validateDrive(drive); err != nil {
		return err
	}
	slot := &m.slots[drive-1]
	if !slot.mounted() {
		return atticerr.New(atticerr.KindDriveEmpty, fmt.Sprintf("%d", drive))
	}
	if !slot.Image.IsDirty() {
		return nil
	}
	return m.saveSlot(slot)
}

// SaveAllDisks saves every dirty mounted drive and returns the count
// actually saved.
func (m *Manager) SaveAllDisks() (int, error) {
	saved := 0
	for i := range m.slots {
		slot := &m.slots[i]
		if !slot.mounted() || !slot.Image.IsDirty() {
			continue
		}
		if err := m.saveSlot(slot); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

func (m *Manager) slotImage(drive int) (*atr.Image, error) {
	d := m.resolveDrive(drive)
	if err := validateDrive(d); err != nil {
		return nil, err
	}
	slot := &m.slots[d-1]
	if !slot.mounted() {
		return nil, atticerr.New(atticerr.KindDriveEmpty, fmt.Sprintf("%d", d))
	}
	return slot.Image, nil
}
