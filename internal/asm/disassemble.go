package asm

import (
	"fmt"

	"github.com/attic/atticcore/internal/opcode"
)

// DisassembledInstruction is one decoded instruction: its address, raw
// bytes, and rendered mnemonic/operand text.
type DisassembledInstruction struct {
	Address uint16
	Bytes   []byte
	Text    string
}

// MemoryReader is the minimal interface the disassembler needs to fetch
// operand bytes; emucore.EmulationCore satisfies it.
type MemoryReader interface {
	ReadMemory(addr uint16) byte
}

// DisassembleOne decodes a single instruction at addr, reading operand
// bytes from mem as needed.
func DisassembleOne(mem MemoryReader, addr uint16) DisassembledInstruction {
	opc := mem.ReadMemory(addr)
	info := opcode.Lookup(opc)
	length := info.Length()

	bytes := make([]byte, length)
	bytes[0] = opc
	for i := 1; i < length; i++ {
		bytes[i] = mem.ReadMemory(addr + uint16(i))
	}

	operandText := formatOperand(info, bytes, addr)
	mnemonic := info.Mnemonic
	if info.IsIllegal {
		mnemonic = "*" + mnemonic
	}
	text := mnemonic
	if operandText != "" {
		text = mnemonic + " " + operandText
	}

	return DisassembledInstruction{Address: addr, Bytes: bytes, Text: text}
}

// DisassembleRange decodes count consecutive instructions starting at addr.
func DisassembleRange(mem MemoryReader, addr uint16, count int) []DisassembledInstruction {
	out := make([]DisassembledInstruction, 0, count)
	pc := addr
	for i := 0; i < count; i++ {
		instr := DisassembleOne(mem, pc)
		out = append(out, instr)
		pc += uint16(len(instr.Bytes))
	}
	return out
}

func formatOperand(info opcode.Info, bytes []byte, addr uint16) string {
	switch info.Mode {
	case opcode.Implied:
		return ""
	case opcode.Accumulator:
		return "A"
	case opcode.Immediate:
		return fmt.Sprintf("#$%02X", bytes[1])
	case opcode.ZeroPage:
		return fmt.Sprintf("$%02X", bytes[1])
	case opcode.ZeroPageX:
		return fmt.Sprintf("$%02X,X", bytes[1])
	case opcode.ZeroPageY:
		return fmt.Sprintf("$%02X,Y", bytes[1])
	case opcode.Absolute:
		return fmt.Sprintf("$%04X", word(bytes))
	case opcode.AbsoluteX:
		return fmt.Sprintf("$%04X,X", word(bytes))
	case opcode.AbsoluteY:
		return fmt.Sprintf("$%04X,Y", word(bytes))
	case opcode.Indirect:
		return fmt.Sprintf("($%04X)", word(bytes))
	case opcode.IndexedIndirectX:
		return fmt.Sprintf("($%02X,X)", bytes[1])
	case opcode.IndirectIndexedY:
		return fmt.Sprintf("($%02X),Y", bytes[1])
	case opcode.Relative:
		target := opcode.BranchTarget(addr+uint16(len(bytes)), int8(bytes[1]))
		return fmt.Sprintf("$%04X", target)
	default:
		return ""
	}
}

func word(bytes []byte) uint16 {
	return uint16(bytes[1]) | uint16(bytes[2])<<8
}

// Format renders an instruction the way the monitor's disassemble command
// displays it: "$ADDR  BB BB BB  MNEMONIC OPERAND".
func (d DisassembledInstruction) Format() string {
	hex := ""
	for i, b := range d.Bytes {
		if i > 0 {
			hex += " "
		}
		hex += fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("$%04X  %-8s  %s", d.Address, hex, d.Text)
}
