package disk

import (
	"bytes"
	"testing"

	"github.com/attic/atticcore/internal/atr"
	"github.com/attic/atticcore/internal/hostfs"
)

func seedDisk(t *testing.T, fs *hostfs.Fake, path string) {
	t.Helper()
	img, err := atr.CreateFormatted(path, atr.SingleDensity)
	if err != nil {
		t.Fatal(err)
	}
	fs.Files[path] = img.Bytes()
}

func TestMountUnmount(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	m := NewManager(fs)

	info, err := m.Mount(1, "/tmp/d1.atr", false)
	if err != nil {
		t.Fatal(err)
	}
	if info.Drive != 1 || info.DiskType != atr.SingleDensity {
		t.Errorf("unexpected DriveInfo: %+v", info)
	}
	if !m.IsDriveMounted(1) {
		t.Error("expected drive 1 mounted")
	}
	if err := m.Unmount(1, false); err != nil {
		t.Fatal(err)
	}
	if m.IsDriveMounted(1) {
		t.Error("expected drive 1 unmounted")
	}
}

func TestMountInvalidDriveNumbers(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	m := NewManager(fs)
	if _, err := m.Mount(0, "/tmp/d1.atr", false); err == nil {
		t.Fatal("expected InvalidDrive for drive 0")
	}
	if _, err := m.Mount(9, "/tmp/d1.atr", false); err == nil {
		t.Fatal("expected InvalidDrive for drive 9")
	}
}

func TestMountDriveInUse(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	seedDisk(t, fs, "/tmp/d2.atr")
	m := NewManager(fs)
	if _, err := m.Mount(1, "/tmp/d1.atr", false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Mount(1, "/tmp/d2.atr", false); err == nil {
		t.Fatal("expected DriveInUse mounting onto an occupied slot")
	}
}

func TestMountPathNotFound(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	m := NewManager(fs)
	if _, err := m.Mount(1, "/tmp/missing.atr", false); err == nil {
		t.Fatal("expected PathNotFound")
	}
}

func TestUnmountEmptyDriveFails(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	m := NewManager(fs)
	if err := m.Unmount(1, false); err == nil {
		t.Fatal("expected DriveEmpty")
	}
}

func TestUnmountCurrentDriveResetsToOne(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d3.atr")
	m := NewManager(fs)
	m.Mount(3, "/tmp/d3.atr", false)
	m.ChangeDrive(3)
	if err := m.Unmount(3, false); err != nil {
		t.Fatal(err)
	}
	if m.CurrentDrive() != 1 {
		t.Errorf("CurrentDrive = %d, want 1 after unmounting the current drive", m.CurrentDrive())
	}
}

func TestChangeDriveDoesNotAffectMountState(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	m := NewManager(fs)
	if err := m.ChangeDrive(5); err != nil {
		t.Fatal(err)
	}
	if m.IsDriveMounted(5) {
		t.Error("changing drive must not mount anything")
	}
}

func TestWriteReadFileThroughManager(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", false)

	if err := m.WriteFile(1, "A.TXT", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadFile(1, "A.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hi")) {
		t.Errorf("got %q, want hi", got)
	}
}

func TestWriteFileDriveZeroUsesCurrent(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d2.atr")
	m := NewManager(fs)
	m.Mount(2, "/tmp/d2.atr", false)
	m.ChangeDrive(2)

	if err := m.WriteFile(0, "A.TXT", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadFile(0, "A.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hi")) {
		t.Error("drive-0 forwarding to current drive failed")
	}
}

func TestWriteFileReadOnlyDriveFails(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", true)
	if err := m.WriteFile(1, "A.TXT", []byte("hi")); err == nil {
		t.Fatal("expected ReadOnly error")
	}
}

func TestSaveDiskIsIdempotent(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", false)

	m.WriteFile(1, "A.TXT", []byte("hi"))
	if err := m.SaveDisk(1); err != nil {
		t.Fatal(err)
	}
	// Second save on a now-clean image must be a no-op.
	if err := m.SaveDisk(1); err != nil {
		t.Fatal(err)
	}
}

func TestSaveAllDisksCountsOnlyDirty(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	seedDisk(t, fs, "/tmp/d2.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", false)
	m.Mount(2, "/tmp/d2.atr", false)
	m.WriteFile(1, "A.TXT", []byte("hi"))

	count, err := m.SaveAllDisks()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("SaveAllDisks count = %d, want 1 (only drive 1 was dirty)", count)
	}
}

func TestTrackBootedDiskIgnoresNonATR(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	fs.Files["/tmp/game.xex"] = []byte{0xFF, 0xFF, 1, 2, 3}
	m := NewManager(fs)
	m.TrackBootedDisk(1, "/tmp/game.xex")
	if m.IsDriveMounted(1) {
		t.Error("a non-ATR boot file must not mount onto the drive")
	}
}

func TestTrackBootedDiskMountsValidATR(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/boot.atr")
	m := NewManager(fs)
	m.TrackBootedDisk(1, "/tmp/boot.atr")
	if !m.IsDriveMounted(1) {
		t.Error("expected a valid ATR boot file to mount")
	}
}

func TestCopyFileBetweenDrives(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	seedDisk(t, fs, "/tmp/d2.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", false)
	m.Mount(2, "/tmp/d2.atr", false)
	m.WriteFile(1, "A.TXT", []byte("payload"))

	if err := m.CopyFile(1, "A.TXT", 2, ""); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadFile(2, "A.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Error("copied file content mismatch")
	}
}

func TestExportImportFile(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", false)
	m.WriteFile(1, "A.TXT", []byte("export-me"))

	if err := m.ExportFile(1, "A.TXT", "/tmp/out.txt"); err != nil {
		t.Fatal(err)
	}
	if string(fs.Files["/tmp/out.txt"]) != "export-me" {
		t.Error("exported file content mismatch")
	}

	if err := m.ImportFile(1, "/tmp/out.txt", "B.TXT"); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadFile(1, "B.TXT")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "export-me" {
		t.Error("imported file content mismatch")
	}
}

func TestListDrivesReportsCurrentAndMounted(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	seedDisk(t, fs, "/tmp/d1.atr")
	m := NewManager(fs)
	m.Mount(1, "/tmp/d1.atr", false)

	statuses := m.ListDrives()
	if !statuses[0].Mounted || !statuses[0].Current {
		t.Errorf("drive 1 status = %+v, want mounted and current", statuses[0])
	}
	if statuses[1].Mounted {
		t.Error("drive 2 should not be mounted")
	}
}
