package asm

import "fmt"

// InteractiveAssembler wraps an Assembler for the monitor's line-at-a-time
// assembly mode: each call assembles one line against a location counter
// that only advances on success, so a rejected line leaves the user free to
// retype it without losing their place.
type InteractiveAssembler struct {
	asm *Assembler
	pc  uint16
}

// NewInteractiveAssembler returns an interactive assembler whose location
// counter starts at startAddress.
func NewInteractiveAssembler(startAddress uint16) *InteractiveAssembler {
	return &InteractiveAssembler{asm: NewAssembler(), pc: startAddress}
}

// PC returns the current location counter.
func (ia *InteractiveAssembler) PC() uint16 {
	return ia.pc
}

// Reset moves the location counter to addr without touching the symbol
// table accumulated so far.
func (ia *InteractiveAssembler) Reset(addr uint16) {
	ia.pc = addr
}

// Symbols returns the read-only view of labels defined so far.
func (ia *InteractiveAssembler) Symbols() *SymbolTable {
	return ia.asm.syms
}

// AssembleLine assembles one line at the current PC. On success the PC
// advances past the emitted bytes; on error the PC is left untouched so the
// caller can correct and resubmit the same line.
func (ia *InteractiveAssembler) AssembleLine(text string) (AssemblyResult, error) {
	res, err := ia.asm.AssembleLine(text, ia.pc)
	if err != nil {
		return AssemblyResult{}, err
	}
	ia.pc += uint16(len(res.Bytes))
	return res, nil
}

// Format renders an assembly result the way the monitor's assemble command
// echoes it back: "$ADDR  BB BB BB  SOURCE".
func Format(res AssemblyResult) string {
	hex := ""
	for i, b := range res.Bytes {
		if i > 0 {
			hex += " "
		}
		hex += fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("$%04X  %-8s  %s", res.Address, hex, res.SourceLine)
}
