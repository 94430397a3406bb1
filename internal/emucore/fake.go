package emucore

import (
	"fmt"

	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/opcode"
)

// Fake is a minimal, non-cycle-accurate EmulationCore good enough to drive
// the debugger, breakpoint manager, and dispatcher against: it tracks
// registers and a full 64KB memory image, and its Step implementation
// understands just enough of the instruction set (BRK, NOP, JMP, the
// branches, and PC advancement by instruction length for everything else)
// to exercise run-control flow. It does not compute correct ALU results —
// real instruction semantics are out of scope per the spec's non-goals.
type Fake struct {
	mem      [65536]byte
	regs     Registers
	romStart uint16
	romEnd   uint16
	hasROM   bool
}

// NewFake returns a Fake with all memory zeroed and registers reset.
func NewFake() *Fake {
	f := &Fake{}
	f.Reset()
	return f
}

// SetROMRegion marks [start, end] (inclusive) as read-only for WriteMemory.
func (f *Fake) SetROMRegion(start, end uint16) {
	f.romStart, f.romEnd, f.hasROM = start, end, true
}

func (f *Fake) isROM(addr uint16) bool {
	return f.hasROM && addr >= f.romStart && addr <= f.romEnd
}

func (f *Fake) ReadMemory(addr uint16) byte {
	return f.mem[addr]
}

func (f *Fake) WriteMemory(addr uint16, value byte) {
	if f.isROM(addr) {
		return
	}
	f.mem[addr] = value
}

// LoadBytes writes a contiguous block starting at addr, bypassing the ROM
// check — used by tests to seed a program image.
func (f *Fake) LoadBytes(addr uint16, data []byte) {
	for i, b := range data {
		f.mem[addr+uint16(i)] = b
	}
}

func (f *Fake) ReadRegisters() Registers {
	return f.regs
}

func (f *Fake) WriteRegisters(r Registers) {
	f.regs = r
}

func (f *Fake) Reset() {
	f.regs = Registers{SP: 0xFF, P: FlagUnused | FlagInterrupt}
	lo := f.mem[0xFFFC]
	hi := f.mem[0xFFFD]
	f.regs.PC = uint16(lo) | uint16(hi)<<8
}

// Step executes one instruction at the current PC and reports its cycle
// count. BRK is recognized and returns its documented cycle count without
// invoking an interrupt vector (the debugger traps BRK itself).
func (f *Fake) Step() (int, error) {
	opc := f.mem[f.regs.PC]
	info := opcode.Lookup(opc)
	length := uint16(info.Length())

	switch {
	case opc == 0x00: // BRK
		f.regs.PC += length
	case opcode.IsJump(info.Mnemonic):
		target := f.readOperandWord(f.regs.PC)
		if info.Mnemonic == "JSR" {
			f.pushWord(f.regs.PC + length - 1)
		}
		f.regs.PC = target
	case opcode.IsReturn(info.Mnemonic):
		if info.Mnemonic == "RTS" {
			f.regs.PC = f.popWord() + 1
		} else {
			f.regs.PC = f.popWord()
		}
	case opcode.IsBranch(info.Mnemonic):
		taken := f.branchTaken(info.Mnemonic)
		offset := int8(f.mem[f.regs.PC+1])
		pcAfter := f.regs.PC + length
		if taken {
			f.regs.PC = opcode.BranchTarget(pcAfter, offset)
		} else {
			f.regs.PC = pcAfter
		}
	default:
		f.regs.PC += length
	}

	return info.Cycles, nil
}

func (f *Fake) branchTaken(mnemonic string) bool {
	switch mnemonic {
	case "BCC":
		return f.regs.P&FlagCarry == 0
	case "BCS":
		return f.regs.P&FlagCarry != 0
	case "BEQ":
		return f.regs.P&FlagZero != 0
	case "BNE":
		return f.regs.P&FlagZero == 0
	case "BMI":
		return f.regs.P&FlagNegative != 0
	case "BPL":
		return f.regs.P&FlagNegative == 0
	case "BVC":
		return f.regs.P&FlagOverflow == 0
	case "BVS":
		return f.regs.P&FlagOverflow != 0
	default:
		return false
	}
}

func (f *Fake) readOperandWord(pc uint16) uint16 {
	lo := f.mem[pc+1]
	hi := f.mem[pc+2]
	return uint16(lo) | uint16(hi)<<8
}

func (f *Fake) pushWord(v uint16) {
	f.mem[0x0100+uint16(f.regs.SP)] = byte(v >> 8)
	f.regs.SP--
	f.mem[0x0100+uint16(f.regs.SP)] = byte(v)
	f.regs.SP--
}

func (f *Fake) popWord() uint16 {
	f.regs.SP++
	lo := f.mem[0x0100+uint16(f.regs.SP)]
	f.regs.SP++
	hi := f.mem[0x0100+uint16(f.regs.SP)]
	return uint16(lo) | uint16(hi)<<8
}

func (f *Fake) StepMany(n int) (int, error) {
	for i := 0; i < n; i++ {
		opc := f.mem[f.regs.PC]
		if opc == 0x00 {
			return i, nil
		}
		if _, err := f.Step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (f *Fake) RunUntilBrkOrPC(targetPC uint16, instructionCap uint64) (RunResult, error) {
	var executed uint64
	for {
		if f.regs.PC == targetPC {
			return RunResult{Reason: StopTargetPC, InstructionsExecuted: executed}, nil
		}
		if f.mem[f.regs.PC] == 0x00 {
			return RunResult{Reason: StopBRK, InstructionsExecuted: executed}, nil
		}
		if executed >= instructionCap {
			msg := fmt.Sprintf("Run until $%04X timed out after %d instructions", targetPC, executed)
			return RunResult{Reason: StopInstructionCap, InstructionsExecuted: executed},
				atticerr.New(atticerr.KindRunTimeout, msg)
		}
		if _, err := f.Step(); err != nil {
			return RunResult{Reason: StopUnknown, InstructionsExecuted: executed}, err
		}
		executed++
	}
}
