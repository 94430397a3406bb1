package debugger

import (
	"testing"

	"github.com/attic/atticcore/internal/emucore"
)

func newFakeWithProgram(pc uint16, program []byte) *emucore.Fake {
	f := emucore.NewFake()
	f.WriteRegisters(emucore.Registers{PC: pc})
	f.LoadBytes(pc, program)
	return f
}

func TestSetBreakpointInstallsBRKInRAM(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA})
	bm := NewBreakpointManager(f)

	if _, err := bm.SetBreakpoint(0x0600); err != nil {
		t.Fatal(err)
	}
	if f.ReadMemory(0x0600) != 0x00 {
		t.Error("expected BRK installed at breakpoint address")
	}
	orig, ok := bm.GetOriginalByte(0x0600)
	if !ok || orig != 0xEA {
		t.Errorf("GetOriginalByte = %v, %v, want 0xEA, true", orig, ok)
	}
}

func TestSetBreakpointDuplicateFails(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA})
	bm := NewBreakpointManager(f)
	if _, err := bm.SetBreakpoint(0x0600); err != nil {
		t.Fatal(err)
	}
	if _, err := bm.SetBreakpoint(0x0600); err == nil {
		t.Fatal("expected AlreadySet error")
	}
}

func TestClearBreakpointRestoresByte(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA})
	bm := NewBreakpointManager(f)
	if _, err := bm.SetBreakpoint(0x0600); err != nil {
		t.Fatal(err)
	}
	if err := bm.ClearBreakpoint(0x0600); err != nil {
		t.Fatal(err)
	}
	if f.ReadMemory(0x0600) != 0xEA {
		t.Error("expected original byte restored")
	}
	if bm.HasBreakpoint(0x0600) {
		t.Error("breakpoint should no longer be registered")
	}
}

func TestClearAllRestoresEveryByte(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA, 0x18, 0xD8})
	bm := NewBreakpointManager(f)
	bm.SetBreakpoint(0x0600)
	bm.SetBreakpoint(0x0601)
	bm.SetBreakpoint(0x0602)

	bm.ClearAll()

	if f.ReadMemory(0x0600) != 0xEA || f.ReadMemory(0x0601) != 0x18 || f.ReadMemory(0x0602) != 0xD8 {
		t.Error("expected every original byte restored after ClearAll")
	}
	if len(bm.GetAllBreakpoints()) != 0 {
		t.Error("expected no breakpoints after ClearAll")
	}
}

func TestSuspendAndResume(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA})
	bm := NewBreakpointManager(f)
	bm.SetBreakpoint(0x0600)

	if err := bm.Suspend(0x0600); err != nil {
		t.Fatal(err)
	}
	if f.ReadMemory(0x0600) != 0xEA {
		t.Error("expected original byte visible while suspended")
	}
	if err := bm.Resume(0x0600); err != nil {
		t.Fatal(err)
	}
	if f.ReadMemory(0x0600) != 0x00 {
		t.Error("expected BRK reinstalled after resume")
	}
}

func TestDisableAndEnable(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA})
	bm := NewBreakpointManager(f)
	bm.SetBreakpoint(0x0600)

	if err := bm.Disable(0x0600); err != nil {
		t.Fatal(err)
	}
	if f.ReadMemory(0x0600) != 0xEA {
		t.Error("expected original byte visible while disabled")
	}
	bp, _ := bm.GetBreakpoint(0x0600)
	if bp.Enabled {
		t.Error("expected Enabled=false")
	}

	if err := bm.Enable(0x0600); err != nil {
		t.Fatal(err)
	}
	if f.ReadMemory(0x0600) != 0x00 {
		t.Error("expected BRK reinstalled after enable")
	}
}

func TestROMBreakpointTracking(t *testing.T) {
	f := newFakeWithProgram(0xE000, []byte{0x60})
	f.SetROMRegion(0xD800, 0xFFFF)
	bm := NewBreakpointManager(f)

	bp, err := bm.SetBreakpoint(0xE000)
	if err != nil {
		t.Fatal(err)
	}
	if !bp.InROM {
		t.Error("expected InROM=true")
	}
	if f.ReadMemory(0xE000) != 0x60 {
		t.Error("expected ROM byte left untouched")
	}
	if !bm.HasROMBreakpoints() {
		t.Error("expected HasROMBreakpoints=true")
	}
	if !bm.CheckROMBreakpoint(0xE000) {
		t.Error("expected CheckROMBreakpoint to match")
	}
	if bm.CheckROMBreakpoint(0xE001) {
		t.Error("expected CheckROMBreakpoint to not match unrelated address")
	}
}

func TestTemporaryBreakpointLifecycle(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA})
	bm := NewBreakpointManager(f)

	bm.SetTemporary(0x0600)
	if !bm.IsTemporaryBreakpoint(0x0600) {
		t.Error("expected temporary breakpoint registered")
	}
	if f.ReadMemory(0x0600) != 0x00 {
		t.Error("expected BRK installed for temporary breakpoint")
	}

	bm.ClearTemporary()
	if bm.IsTemporaryBreakpoint(0x0600) {
		t.Error("expected temporary breakpoint cleared")
	}
	if f.ReadMemory(0x0600) != 0xEA {
		t.Error("expected original byte restored after clearing temporary breakpoint")
	}
}

func TestGetAllAddressesSorted(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA, 0xEA, 0xEA})
	bm := NewBreakpointManager(f)
	bm.SetBreakpoint(0x0602)
	bm.SetBreakpoint(0x0600)
	bm.SetBreakpoint(0x0601)

	addrs := bm.GetAllAddresses()
	want := []uint16{0x0600, 0x0601, 0x0602}
	for i, w := range want {
		if addrs[i] != w {
			t.Errorf("addrs[%d] = $%04X, want $%04X", i, addrs[i], w)
		}
	}
}
