package debugger

import (
	"testing"

	"github.com/attic/atticcore/internal/emucore"
)

func TestStepOneAdvancesOneInstruction(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA, 0xEA})
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	res, err := st.StepOne()
	if err != nil {
		t.Fatal(err)
	}
	if res.PC != 0x0601 {
		t.Errorf("PC = $%04X, want $0601", res.PC)
	}
	if res.InstructionsExecuted != 1 {
		t.Errorf("InstructionsExecuted = %d, want 1", res.InstructionsExecuted)
	}
}

func TestStepOneOverRAMBreakpointExecutesRealInstruction(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0x18, 0xEA}) // CLC NOP
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	if _, err := bm.SetBreakpoint(0x0600); err != nil {
		t.Fatal(err)
	}

	res, err := st.StepOne()
	if err != nil {
		t.Fatal(err)
	}
	// Stepping off the breakpointed address should execute CLC (not BRK),
	// landing on the next instruction.
	if res.PC != 0x0601 {
		t.Errorf("PC = $%04X, want $0601", res.PC)
	}
	// The breakpoint should be reinstalled afterward.
	if f.ReadMemory(0x0600) != 0x00 {
		t.Error("expected breakpoint reinstalled after step")
	}
}

func TestStepNStopsAtBreakpoint(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA, 0xEA, 0xEA, 0xEA})
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	if _, err := bm.SetBreakpoint(0x0602); err != nil {
		t.Fatal(err)
	}

	res, err := st.StepN(10)
	if err != nil {
		t.Fatal(err)
	}
	if res.PC != 0x0602 {
		t.Errorf("PC = $%04X, want $0602", res.PC)
	}
	if !res.HitBreakpoint {
		t.Error("expected HitBreakpoint=true")
	}
	if res.InstructionsExecuted != 2 {
		t.Errorf("InstructionsExecuted = %d, want 2", res.InstructionsExecuted)
	}
}

func TestStepOverSkipsSubroutine(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0x20, 0x00, 0x10, 0xEA}) // JSR $1000; NOP
	f.LoadBytes(0x1000, []byte{0xEA, 0xEA, 0x60})                   // NOP NOP RTS
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	res, err := st.StepOver()
	if err != nil {
		t.Fatal(err)
	}
	if res.PC != 0x0603 {
		t.Errorf("PC after StepOver = $%04X, want $0603 (past the call)", res.PC)
	}
}

func TestStepOverNonCallBehavesLikeStepOne(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0x18, 0xEA})
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	res, err := st.StepOver()
	if err != nil {
		t.Fatal(err)
	}
	if res.PC != 0x0601 {
		t.Errorf("PC = $%04X, want $0601", res.PC)
	}
}

func TestRunUntilTarget(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0xEA, 0xEA, 0xEA, 0xEA})
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	res, err := st.RunUntil(0x0603)
	if err != nil {
		t.Fatal(err)
	}
	if res.PC != 0x0603 {
		t.Errorf("PC = $%04X, want $0603", res.PC)
	}
	if res.Reason != emucore.StopTargetPC {
		t.Errorf("Reason = %v, want StopTargetPC", res.Reason)
	}
	// The temporary breakpoint's original byte must be restored.
	if f.ReadMemory(0x0603) != 0xEA {
		t.Error("expected original byte restored at run-until target")
	}
}

func TestRunUntilInstructionCapStopsInfiniteLoop(t *testing.T) {
	f := newFakeWithProgram(0x0600, []byte{0x4C, 0x00, 0x06}) // JMP $0600
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)
	st.SetInstructionCap(10)

	res, err := st.RunUntil(0xABCD) // unreachable target
	if err == nil {
		t.Fatal("expected a timeout error when the instruction cap is exceeded")
	}
	if res.Reason != emucore.StopInstructionCap {
		t.Errorf("Reason = %v, want StopInstructionCap", res.Reason)
	}
	if res.InstructionsExecuted != 10 {
		t.Errorf("InstructionsExecuted = %d, want 10", res.InstructionsExecuted)
	}
}

func TestRunUntilHitsPermanentBreakpointBeforeTarget(t *testing.T) {
	// JMP into ROM (>= RomStart), where a breakpoint can't carry an
	// injected BRK and so relies on PC polling instead.
	f := newFakeWithProgram(0x0600, []byte{0x4C, 0x00, 0xC0}) // JMP $C000
	f.LoadBytes(0xC000, []byte{0xEA})                         // NOP at the breakpoint address
	bm := NewBreakpointManager(f)
	st := NewStepper(f, bm)

	if _, err := bm.SetBreakpoint(0xC000); err != nil {
		t.Fatal(err)
	}
	if bp, _ := bm.GetBreakpoint(0xC000); !bp.InROM {
		t.Fatal("expected breakpoint at $C000 to be classified as ROM")
	}

	res, err := st.RunUntil(0x0603) // unreachable: control jumps away from $0600
	if err != nil {
		t.Fatal(err)
	}
	if res.PC != 0xC000 {
		t.Errorf("PC = $%04X, want $C000 (the breakpoint)", res.PC)
	}
	if !res.HitBreakpoint {
		t.Error("expected HitBreakpoint=true")
	}
}
