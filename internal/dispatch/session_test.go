package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/attic/atticcore/internal/atr"
	"github.com/attic/atticcore/internal/clock"
	"github.com/attic/atticcore/internal/disk"
	"github.com/attic/atticcore/internal/emucore"
	"github.com/attic/atticcore/internal/hostfs"
)

func newTestSession(t *testing.T) (*Session, *hostfs.Fake) {
	t.Helper()
	fs := hostfs.NewFake("/home/user")
	disks := disk.NewManager(fs)
	core := emucore.NewFake()
	clk := clock.Fake{At: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)}
	return NewSession(core, disks, fs, clk, "1.0.0-test"), fs
}

func TestSessionDispatchPingLikeStatus(t *testing.T) {
	s, _ := newTestSession(t)
	resp := s.Dispatch(".status")
	if !strings.HasPrefix(resp, "ok mode=monitor") {
		t.Errorf("status response = %q", resp)
	}
}

func TestSessionDispatchRegistersRoundTrip(t *testing.T) {
	s, _ := newTestSession(t)

	resp := s.Dispatch("r A=$42 PC=$0600")
	if !strings.HasPrefix(resp, "ok ") {
		t.Fatalf("set registers: %q", resp)
	}

	resp = s.Dispatch("r")
	if !strings.Contains(resp, "A=$42") || !strings.Contains(resp, "PC=$0600") {
		t.Errorf("query registers: %q", resp)
	}
}

func TestSessionDispatchInvalidCommandYieldsErrLine(t *testing.T) {
	s, _ := newTestSession(t)
	resp := s.Dispatch(".bogus")
	if !strings.HasPrefix(resp, "err ") {
		t.Errorf("got %q, want an err line", resp)
	}
}

func TestSessionRunUntilInstructionCapYieldsTimeoutErrLine(t *testing.T) {
	fs := hostfs.NewFake("/home/user")
	disks := disk.NewManager(fs)
	core := emucore.NewFake()
	core.WriteRegisters(emucore.Registers{PC: 0x0600})
	core.LoadBytes(0x0600, []byte{0x4C, 0x00, 0x06}) // JMP $0600, infinite loop
	clk := clock.Fake{At: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)}
	s := NewSession(core, disks, fs, clk, "1.0.0-test")
	s.step.SetInstructionCap(10)

	resp := s.Dispatch("run $ABCD")
	if !strings.HasPrefix(resp, "err ") {
		t.Fatalf("got %q, want an err line on instruction-cap timeout", resp)
	}
	if !strings.Contains(resp, "timed out after 10 instructions") {
		t.Errorf("got %q, want it to report the timeout and instruction count", resp)
	}
}

func TestSessionModeSwitch(t *testing.T) {
	s, _ := newTestSession(t)
	if s.Mode().Mode != "monitor" {
		t.Fatalf("initial mode = %+v", s.Mode())
	}
	if resp := s.Dispatch(".dos"); resp != "ok" {
		t.Fatalf(".dos: %q", resp)
	}
	if s.Mode().Mode != "dos" {
		t.Errorf("mode after .dos = %+v", s.Mode())
	}
}

func TestSessionMountAndDirAndType(t *testing.T) {
	s, fs := newTestSession(t)

	img, err := atr.CreateFormatted("/disks/a.atr", atr.SingleDensity)
	if err != nil {
		t.Fatal(err)
	}
	if err := img.WriteFile("HELLO.TXT", []byte("hi there")); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile("/disks/a.atr", img.Bytes()); err != nil {
		t.Fatal(err)
	}

	if resp := s.Dispatch(".dos"); resp != "ok" {
		t.Fatalf(".dos: %q", resp)
	}
	if resp := s.Dispatch("mount 1 /disks/a.atr"); !strings.HasPrefix(resp, "ok ") {
		t.Fatalf("mount: %q", resp)
	}
	if resp := s.Dispatch("cd 1"); resp != "ok" {
		t.Fatalf("cd: %q", resp)
	}

	resp := s.Dispatch("dir")
	if !strings.Contains(resp, "HELLO.TXT") {
		t.Errorf("dir: %q", resp)
	}

	resp = s.Dispatch("type HELLO.TXT")
	if resp != "ok hi there" {
		t.Errorf("type: %q", resp)
	}
}

func TestSessionStateSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestSession(t)

	// Seed distinctive memory content and PC; EmulatorState.Tags only
	// captures PC among the registers (spec.md §3's tags record has no
	// A/X/Y/S/P fields), so those are what the round-trip can verify.
	s.Dispatch("write $0600 AA,BB,CC")
	s.Dispatch("r PC=$0700")

	if resp := s.Dispatch(".state save /saves/one.attic"); resp != "ok" {
		t.Fatalf("save: %q", resp)
	}

	s.Dispatch("write $0600 00,00,00")
	s.Dispatch("r PC=$0000")

	if resp := s.Dispatch(".state load /saves/one.attic"); resp != "ok" {
		t.Fatalf("load: %q", resp)
	}

	resp := s.Dispatch("r")
	if !strings.Contains(resp, "PC=$0700") {
		t.Errorf("registers after load: %q", resp)
	}

	resp = s.Dispatch("read $0600 3")
	if resp != "ok data aa,bb,cc" {
		t.Errorf("memory after load: %q", resp)
	}
}
