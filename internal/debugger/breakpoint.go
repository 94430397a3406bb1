// Package debugger implements breakpoint management and step/run control
// over an emucore.EmulationCore.
package debugger

import (
	"sort"

	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/emucore"
)

// RomStart is the fixed RAM/ROM boundary: addresses at or above it,
// including the 0xD000-0xD7FF I/O range, are classified as ROM and cannot
// carry an injected BRK.
const RomStart uint16 = 0xC000

func isROM(addr uint16) bool {
	return addr >= RomStart
}

// Breakpoint records one user-set stop point.
type Breakpoint struct {
	Address      uint16
	OriginalByte byte // the byte BRK replaced; meaningless (and unused) for ROM breakpoints
	InROM        bool
	Enabled      bool
	HitCount     int
}

// BreakpointManager tracks breakpoints against a memory image, installing
// 0x00 (BRK) over RAM addresses and falling back to PC polling for ROM
// addresses it cannot legally modify. It also manages a single temporary
// breakpoint slot used by the Stepper for step-over and run-until.
type BreakpointManager struct {
	mem         memoryWriter
	breakpoints map[uint16]*Breakpoint
	temporary   *Breakpoint
}

type memoryWriter interface {
	ReadMemory(addr uint16) byte
	WriteMemory(addr uint16, value byte)
}

// NewBreakpointManager returns a manager operating on mem's memory image.
func NewBreakpointManager(mem emucore.EmulationCore) *BreakpointManager {
	return &BreakpointManager{
		mem:         mem,
		breakpoints: make(map[uint16]*Breakpoint),
	}
}

// SetBreakpoint installs a breakpoint at addr. For a RAM address this saves
// the original byte and writes 0x00 over it; for a ROM address, which
// cannot be overwritten, the breakpoint is registered for PC-polling
// instead (see CheckROMBreakpoint). Fails with KindAlreadySet if a
// breakpoint already exists at addr.
func (bm *BreakpointManager) SetBreakpoint(addr uint16) (*Breakpoint, error) {
	if _, ok := bm.breakpoints[addr]; ok {
		return nil, atticerr.New(atticerr.KindAlreadySet, hexAddr(addr))
	}
	bp := &Breakpoint{Address: addr, Enabled: true, InROM: isROM(addr)}
	if !bp.InROM {
		bp.OriginalByte = bm.mem.ReadMemory(addr)
		bm.mem.WriteMemory(addr, 0x00)
	}
	bm.breakpoints[addr] = bp
	return bp, nil
}

// ClearBreakpoint removes the breakpoint at addr, restoring its original
// byte if it was installed in RAM. Fails with KindNotFound if none exists.
func (bm *BreakpointManager) ClearBreakpoint(addr uint16) error {
	bp, ok := bm.breakpoints[addr]
	if !ok {
		return atticerr.New(atticerr.KindNotFound, hexAddr(addr))
	}
	bm.restore(bp)
	delete(bm.breakpoints, addr)
	return nil
}

// ClearAll removes every breakpoint, restoring every modified RAM byte.
func (bm *BreakpointManager) ClearAll() {
	for _, bp := range bm.breakpoints {
		bm.restore(bp)
	}
	bm.breakpoints = make(map[uint16]*Breakpoint)
}

func (bm *BreakpointManager) restore(bp *Breakpoint) {
	if !bp.InROM && bp.Enabled {
		bm.mem.WriteMemory(bp.Address, bp.OriginalByte)
	}
}

// Suspend temporarily removes a RAM breakpoint's installed BRK without
// forgetting it, so a step operation can execute the real instruction at
// that address once (e.g. stepping off a breakpoint the PC currently sits
// on). Resume reinstalls it.
func (bm *BreakpointManager) Suspend(addr uint16) error {
	bp, ok := bm.breakpoints[addr]
	if !ok {
		return atticerr.New(atticerr.KindNotFound, hexAddr(addr))
	}
	if !bp.InROM && bp.Enabled {
		bm.mem.WriteMemory(addr, bp.OriginalByte)
	}
	return nil
}

// Resume reinstalls a RAM breakpoint previously removed by Suspend.
func (bm *BreakpointManager) Resume(addr uint16) error {
	bp, ok := bm.breakpoints[addr]
	if !ok {
		return atticerr.New(atticerr.KindNotFound, hexAddr(addr))
	}
	if !bp.InROM && bp.Enabled {
		bm.mem.WriteMemory(addr, 0x00)
	}
	return nil
}

// Disable marks a breakpoint inactive: its RAM byte is restored and
// CheckROMBreakpoint stops reporting it, but it remains registered so
// Enable can reinstall it later.
func (bm *BreakpointManager) Disable(addr uint16) error {
	bp, ok := bm.breakpoints[addr]
	if !ok {
		return atticerr.New(atticerr.KindNotFound, hexAddr(addr))
	}
	if !bp.InROM && bp.Enabled {
		bm.mem.WriteMemory(addr, bp.OriginalByte)
	}
	bp.Enabled = false
	return nil
}

// Enable reactivates a previously-disabled breakpoint.
func (bm *BreakpointManager) Enable(addr uint16) error {
	bp, ok := bm.breakpoints[addr]
	if !ok {
		return atticerr.New(atticerr.KindNotFound, hexAddr(addr))
	}
	if !bp.InROM && !bp.Enabled {
		bm.mem.WriteMemory(addr, 0x00)
	}
	bp.Enabled = true
	return nil
}

// SetTemporary installs the single-slot temporary breakpoint used by
// step-over and run-until at addr, replacing any previous temporary
// breakpoint. It is a no-op over an address that already has a permanent
// breakpoint (the permanent one already stops execution there).
func (bm *BreakpointManager) SetTemporary(addr uint16) {
	bm.ClearTemporary()
	if _, hasPermanent := bm.breakpoints[addr]; hasPermanent {
		return
	}
	bp := &Breakpoint{Address: addr, Enabled: true, InROM: isROM(addr)}
	if !bp.InROM {
		bp.OriginalByte = bm.mem.ReadMemory(addr)
		bm.mem.WriteMemory(addr, 0x00)
	}
	bm.temporary = bp
}

// ClearTemporary removes the temporary breakpoint, if any, restoring its
// original byte.
func (bm *BreakpointManager) ClearTemporary() {
	if bm.temporary == nil {
		return
	}
	bm.restore(bm.temporary)
	bm.temporary = nil
}

// IsTemporaryBreakpoint reports whether addr is the current temporary
// breakpoint's address.
func (bm *BreakpointManager) IsTemporaryBreakpoint(addr uint16) bool {
	return bm.temporary != nil && bm.temporary.Address == addr
}

// RecordHit increments the hit counter for the breakpoint at addr, if one
// is registered there (permanent breakpoints only; the temporary slot does
// not accumulate hit history).
func (bm *BreakpointManager) RecordHit(addr uint16) {
	if bp, ok := bm.breakpoints[addr]; ok {
		bp.HitCount++
	}
}

// GetBreakpoint returns the breakpoint registered at addr, if any.
func (bm *BreakpointManager) GetBreakpoint(addr uint16) (*Breakpoint, bool) {
	bp, ok := bm.breakpoints[addr]
	return bp, ok
}

// HasBreakpoint reports whether a permanent breakpoint is registered at addr.
func (bm *BreakpointManager) HasBreakpoint(addr uint16) bool {
	_, ok := bm.breakpoints[addr]
	return ok
}

// GetOriginalByte returns the byte a RAM breakpoint at addr replaced.
func (bm *BreakpointManager) GetOriginalByte(addr uint16) (byte, bool) {
	bp, ok := bm.breakpoints[addr]
	if !ok {
		return 0, false
	}
	return bp.OriginalByte, true
}

// GetAllBreakpoints returns every registered breakpoint, ordered by address.
func (bm *BreakpointManager) GetAllBreakpoints() []*Breakpoint {
	out := make([]*Breakpoint, 0, len(bm.breakpoints))
	for _, bp := range bm.breakpoints {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// GetAllAddresses returns every registered breakpoint's address, sorted.
func (bm *BreakpointManager) GetAllAddresses() []uint16 {
	out := make([]uint16, 0, len(bm.breakpoints))
	for addr := range bm.breakpoints {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ROMBreakpoints returns the addresses of breakpoints that fall in ROM and
// so rely on PC polling rather than BRK injection.
func (bm *BreakpointManager) ROMBreakpoints() []uint16 {
	var out []uint16
	for addr, bp := range bm.breakpoints {
		if bp.InROM {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasROMBreakpoints reports whether any registered breakpoint is in ROM.
func (bm *BreakpointManager) HasROMBreakpoints() bool {
	for _, bp := range bm.breakpoints {
		if bp.InROM {
			return true
		}
	}
	return false
}

// CheckROMBreakpoint reports whether pc matches an enabled ROM breakpoint,
// for callers that must poll PC each instruction since ROM can't carry an
// injected BRK.
func (bm *BreakpointManager) CheckROMBreakpoint(pc uint16) bool {
	bp, ok := bm.breakpoints[pc]
	return ok && bp.InROM && bp.Enabled
}

func hexAddr(addr uint16) string {
	const hexDigits = "0123456789ABCDEF"
	return "$" + string([]byte{
		hexDigits[(addr>>12)&0xF],
		hexDigits[(addr>>8)&0xF],
		hexDigits[(addr>>4)&0xF],
		hexDigits[addr&0xF],
	})
}
