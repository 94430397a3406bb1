package debugger

import (
	"fmt"

	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/emucore"
	"github.com/attic/atticcore/internal/opcode"
)

// DefaultInstructionCap bounds a run-until operation so a runaway or
// infinite loop in the target program can't hang the debugger forever.
const DefaultInstructionCap = 1_000_000

// StepResult reports what a Stepper operation actually did.
type StepResult struct {
	PC                   uint16
	InstructionsExecuted int
	HitBreakpoint        bool
	Reason               emucore.StopReason
}

// Stepper drives instruction-level execution control (single step, step
// over a subroutine call, step N instructions, run until a target address)
// over an EmulationCore, coordinating with a BreakpointManager so stepping
// off a breakpointed address doesn't immediately retrigger it.
type Stepper struct {
	core           emucore.EmulationCore
	bm             *BreakpointManager
	instructionCap uint64
}

// NewStepper returns a Stepper with the default instruction cap.
func NewStepper(core emucore.EmulationCore, bm *BreakpointManager) *Stepper {
	return &Stepper{core: core, bm: bm, instructionCap: DefaultInstructionCap}
}

// SetInstructionCap overrides the default run-until instruction cap.
func (s *Stepper) SetInstructionCap(n uint64) {
	s.instructionCap = n
}

// StepOne executes exactly one instruction, suspending and resuming a
// breakpoint at the current PC if one is present so the real instruction
// executes rather than re-triggering the breakpoint immediately.
func (s *Stepper) StepOne() (StepResult, error) {
	pc := s.core.ReadRegisters().PC
	if s.bm.HasBreakpoint(pc) {
		if err := s.bm.Suspend(pc); err != nil {
			return StepResult{}, err
		}
		defer s.bm.Resume(pc)
	}
	if _, err := s.core.Step(); err != nil {
		return StepResult{}, err
	}
	newPC := s.core.ReadRegisters().PC
	hit := s.bm.HasBreakpoint(newPC) || s.bm.CheckROMBreakpoint(newPC)
	if hit {
		s.bm.RecordHit(newPC)
	}
	return StepResult{PC: newPC, InstructionsExecuted: 1, HitBreakpoint: hit}, nil
}

// StepOver executes one instruction, but if it is a JSR, runs until control
// returns past the call (one instruction cap deep) rather than stepping
// into the subroutine. It does this via the same temporary-breakpoint
// protocol RunUntil uses: install a breakpoint just after the JSR, run, and
// clear it.
func (s *Stepper) StepOver() (StepResult, error) {
	pc := s.core.ReadRegisters().PC
	info := opcode.Lookup(s.core.ReadMemory(pc))

	if !opcode.IsSubroutineCall(info.Mnemonic) {
		return s.StepOne()
	}

	returnAddr := pc + uint16(info.Length())
	return s.runWithTemporaryBreakpoint(returnAddr)
}

// StepN executes up to n instructions, stopping early if a breakpoint is
// hit.
func (s *Stepper) StepN(n int) (StepResult, error) {
	var last StepResult
	for i := 0; i < n; i++ {
		res, err := s.StepOne()
		if err != nil {
			return last, err
		}
		last = res
		last.InstructionsExecuted = i + 1
		if res.HitBreakpoint {
			return last, nil
		}
	}
	return last, nil
}

// RunUntil runs until the PC reaches target, a breakpoint is hit, a BRK is
// executed, or the instruction cap is exceeded — whichever comes first.
func (s *Stepper) RunUntil(target uint16) (StepResult, error) {
	return s.runWithTemporaryBreakpoint(target)
}

// Run executes freely until a breakpoint or BRK stops it, or the
// instruction cap is exceeded. It is RunUntil with no specific target:
// internally it still uses the temporary-breakpoint protocol with a
// sentinel that can never match a real PC so only real breakpoints/BRK/cap
// can stop it.
func (s *Stepper) Run() (StepResult, error) {
	return s.runWithTemporaryBreakpoint(noTarget)
}

// noTarget is never a valid PC in practice for monitor-resident programs
// (it aliases 6502 reset-vector territory used as the run sentinel), so
// using it as RunUntil's target effectively disables the target-PC stop.
const noTarget = uint16(0xFFFF)

func (s *Stepper) runWithTemporaryBreakpoint(target uint16) (StepResult, error) {
	pc := s.core.ReadRegisters().PC
	if s.bm.HasBreakpoint(pc) {
		if err := s.bm.Suspend(pc); err != nil {
			return StepResult{}, err
		}
		defer s.bm.Resume(pc)
	}

	s.bm.SetTemporary(target)
	defer s.bm.ClearTemporary()

	executed := 0
	for {
		curPC := s.core.ReadRegisters().PC
		if curPC == target {
			return StepResult{PC: curPC, InstructionsExecuted: executed, Reason: emucore.StopTargetPC}, nil
		}
		if s.bm.CheckROMBreakpoint(curPC) {
			s.bm.RecordHit(curPC)
			return StepResult{PC: curPC, InstructionsExecuted: executed, HitBreakpoint: true, Reason: emucore.StopBRK}, nil
		}
		if uint64(executed) >= s.instructionCap {
			msg := fmt.Sprintf("Run until $%04X timed out after %d instructions", target, executed)
			return StepResult{PC: curPC, InstructionsExecuted: executed, Reason: emucore.StopInstructionCap},
				atticerr.New(atticerr.KindRunTimeout, msg)
		}

		opc := s.core.ReadMemory(curPC)
		if opc == 0x00 {
			s.bm.RecordHit(curPC)
			hit := s.bm.HasBreakpoint(curPC)
			return StepResult{PC: curPC, InstructionsExecuted: executed, HitBreakpoint: hit, Reason: emucore.StopBRK}, nil
		}

		if _, err := s.core.Step(); err != nil {
			return StepResult{PC: curPC, InstructionsExecuted: executed}, err
		}
		executed++
	}
}

// ValidateAddress is a small guard callers use before handing a raw address
// to the debugger or emulation core.
func ValidateAddress(addr int64) (uint16, error) {
	if addr < 0 || addr > 0xFFFF {
		return 0, atticerr.OutOfRange("address", addr, 0, 0xFFFF)
	}
	return uint16(addr), nil
}
