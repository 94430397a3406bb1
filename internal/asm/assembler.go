// Package asm implements the two-pass symbolic 6502 assembler, its
// recursive-descent expression evaluator, and the symbol table and
// interactive single-line wrapper built on top of them.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/opcode"
)

// AssemblyResult is the ephemeral output of assembling one source line.
type AssemblyResult struct {
	Bytes      []byte
	Address    uint16
	SourceLine string
	Label      string
}

// fixup records a line whose operand referenced an unresolved symbol
// during pass one. Pass two re-assembles every line regardless, so the
// recorded fixups are not consulted.
type fixup struct {
	lineIndex int
	line      string
	address   uint16
}

// Assembler is a two-pass symbolic assembler. Use AssembleLine for
// interactive, single-line assembly (via InteractiveAssembler), or
// AssembleProgram for the full two-pass flow over a block of source.
type Assembler struct {
	syms *SymbolTable
}

// NewAssembler returns an assembler with a fresh symbol table.
func NewAssembler() *Assembler {
	return &Assembler{syms: NewSymbolTable()}
}

// Symbols returns the assembler's symbol table.
func (a *Assembler) Symbols() *SymbolTable {
	return a.syms
}

// AssembleProgram runs the two-pass assembly of source starting at
// startAddress, returning one AssemblyResult per line that emitted bytes
// or defined a label.
func (a *Assembler) AssembleProgram(source string, startAddress uint16) ([]AssemblyResult, error) {
	lines := strings.Split(source, "\n")

	// Pass 1: assemble every line to discover label addresses. Forward
	// references are recorded as placeholders and refined in pass 2.
	pc := startAddress
	var fixups []fixup
	for i, line := range lines {
		trimmed := strings.TrimSpace(stripComment(line))
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(firstToken(trimmed), "END") {
			break
		}
		result, err := a.assembleLineAt(line, pc, true)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if result.usedForwardRef {
			fixups = append(fixups, fixup{lineIndex: i, line: line, address: pc})
		}
		pc = result.nextPC
	}

	// Pass 2: re-assemble every line now that every label is defined,
	// building the final result list.
	pc = startAddress
	var results []AssemblyResult
	for i, line := range lines {
		trimmed := strings.TrimSpace(stripComment(line))
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(firstToken(trimmed), "END") {
			break
		}
		result, err := a.assembleLineAt(line, pc, false)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if len(result.res.Bytes) > 0 || result.res.Label != "" {
			results = append(results, result.res)
		}
		pc = result.nextPC
	}
	_ = fixups // fixups drove pass 1 bookkeeping only; pass 2 re-evaluates unconditionally.

	return results, nil
}

// lineAssembly is the internal per-line outcome, carrying the data needed
// to drive both the public AssembleLine API and the two-pass program flow.
type lineAssembly struct {
	res            AssemblyResult
	nextPC         uint16
	usedForwardRef bool
}

// AssembleLine assembles a single line at the given PC without requiring a
// second pass; forward references to not-yet-defined labels fail with
// UndefinedLabel. This is the entry point InteractiveAssembler uses.
func (a *Assembler) AssembleLine(text string, pc uint16) (AssemblyResult, error) {
	out, err := a.assembleLineAt(text, pc, false)
	if err != nil {
		return AssemblyResult{}, err
	}
	return out.res, nil
}

func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\'' || c == '"' {
			inQuote = !inQuote
		}
		if c == ';' && !inQuote {
			return line[:i]
		}
	}
	return line
}

func firstToken(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// assembleLineAt does the real work. When firstPass is true, an
// undefined-label error during expression evaluation is swallowed and a
// zero placeholder is emitted instead (the label is still recorded as
// referenced in the symbol table so pass 2 can detect truly-undefined
// names).
func (a *Assembler) assembleLineAt(text string, pc uint16, firstPass bool) (lineAssembly, error) {
	line := stripComment(text)
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return lineAssembly{res: AssemblyResult{Address: pc, SourceLine: text}, nextPC: pc}, nil
	}

	label, rest := splitLabel(trimmed)
	rest = strings.TrimSpace(rest)

	// EQU binds its label to the expression's value, not to the current
	// location counter; every other label (including a bare label line)
	// binds to pc.
	mnemonic, operand := splitMnemonic(rest)
	upper := strings.ToUpper(mnemonic)

	if label != "" && upper != "EQU" {
		if err := defineLabel(a.syms, label, int32(pc), firstPass); err != nil {
			return lineAssembly{}, err
		}
	}

	if rest == "" {
		return lineAssembly{
			res:    AssemblyResult{Address: pc, SourceLine: text, Label: label},
			nextPC: pc,
		}, nil
	}

	if upper == "EQU" {
		v, err := a.eval(operand, pc, firstPass)
		if err != nil {
			return lineAssembly{}, err
		}
		if label != "" {
			if err := defineLabel(a.syms, label, v, firstPass); err != nil {
				return lineAssembly{}, err
			}
		}
		return lineAssembly{
			res:    AssemblyResult{Address: pc, SourceLine: text, Label: label},
			nextPC: pc,
		}, nil
	}

	if isPseudoOp(upper) {
		bytes, newPC, err := a.assemblePseudoOp(upper, operand, pc, firstPass)
		if err != nil {
			return lineAssembly{}, err
		}
		return lineAssembly{
			res:    AssemblyResult{Bytes: bytes, Address: pc, SourceLine: text, Label: label},
			nextPC: newPC,
		}, nil
	}

	modes := opcode.OpcodesFor(upper)
	if len(modes) == 0 {
		return lineAssembly{}, atticerr.New(atticerr.KindInvalidInstruction, mnemonic)
	}

	bytes, usedForwardRef, err := a.encodeInstruction(upper, operand, pc, firstPass)
	if err != nil {
		return lineAssembly{}, err
	}

	return lineAssembly{
		res:            AssemblyResult{Bytes: bytes, Address: pc, SourceLine: text, Label: label},
		nextPC:         pc + uint16(len(bytes)),
		usedForwardRef: usedForwardRef,
	}, nil
}

// splitLabel extracts a leading label (optionally colon-terminated) from a
// trimmed line, returning the label (empty if none) and the remainder.
func splitLabel(trimmed string) (label, rest string) {
	if trimmed == "" {
		return "", ""
	}
	// A line starting with whitespace before this point means no label in
	// the original text, but since we already trimmed, detect a label by
	// mnemonic/pseudo-op membership of the first token.
	fields := strings.SplitN(trimmed, " ", 2)
	first := fields[0]
	firstNoColon := strings.TrimSuffix(first, ":")

	if strings.HasSuffix(first, ":") {
		if len(fields) > 1 {
			return firstNoColon, fields[1]
		}
		return firstNoColon, ""
	}

	upper := strings.ToUpper(firstNoColon)
	if isPseudoOp(upper) {
		return "", trimmed
	}
	if modes := opcode.OpcodesFor(upper); len(modes) > 0 {
		return "", trimmed
	}
	// Not a known mnemonic/pseudo-op: treat as a label. EQU is handled
	// specially as "LABEL EQU expr".
	if len(fields) > 1 {
		return firstNoColon, fields[1]
	}
	return firstNoColon, ""
}

func splitMnemonic(rest string) (mnemonic, operand string) {
	fields := strings.SplitN(strings.TrimSpace(rest), " ", 2)
	mnemonic = fields[0]
	if len(fields) > 1 {
		operand = strings.TrimSpace(fields[1])
	}
	return
}

var pseudoOps = map[string]bool{
	"ORG": true, "DB": true, "BYTE": true, "DFB": true,
	"DW": true, "WORD": true, "DFW": true,
	"DS": true, "BLOCK": true, "HEX": true,
	"ASC": true, "DCI": true, "EQU": true, "END": true,
}

func isPseudoOp(upperMnemonic string) bool {
	return pseudoOps[upperMnemonic]
}

func (a *Assembler) assemblePseudoOp(op, operand string, pc uint16, firstPass bool) ([]byte, uint16, error) {
	switch op {
	case "ORG":
		v, err := a.eval(operand, pc, firstPass)
		if err != nil {
			return nil, 0, err
		}
		return nil, uint16(v), nil

	case "DB", "BYTE", "DFB":
		var out []byte
		for _, part := range splitArgs(operand) {
			v, err := a.eval(part, pc, firstPass)
			if err != nil {
				return nil, 0, err
			}
			if v < -128 || v > 255 {
				return nil, 0, atticerr.OutOfRange("byte literal", int64(v), -128, 255)
			}
			out = append(out, byte(v))
		}
		return out, pc + uint16(len(out)), nil

	case "DW", "WORD", "DFW":
		var out []byte
		for _, part := range splitArgs(operand) {
			v, err := a.eval(part, pc, firstPass)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, byte(v), byte(v>>8))
		}
		return out, pc + uint16(len(out)), nil

	case "DS", "BLOCK":
		v, err := a.eval(operand, pc, firstPass)
		if err != nil {
			return nil, 0, err
		}
		if v < 0 {
			return nil, 0, atticerr.New(atticerr.KindInvalidPseudoOp, op)
		}
		return make([]byte, v), pc + uint16(v), nil

	case "HEX":
		digits := strings.Map(func(r rune) rune {
			if r == ' ' {
				return -1
			}
			return r
		}, operand)
		if len(digits)%2 != 0 {
			return nil, 0, atticerr.New(atticerr.KindInvalidPseudoOp, "HEX: odd digit count")
		}
		out := make([]byte, 0, len(digits)/2)
		for i := 0; i < len(digits); i += 2 {
			v, err := strconv.ParseUint(digits[i:i+2], 16, 8)
			if err != nil {
				return nil, 0, atticerr.New(atticerr.KindInvalidPseudoOp, "HEX: "+digits[i:i+2])
			}
			out = append(out, byte(v))
		}
		return out, pc + uint16(len(out)), nil

	case "ASC":
		s, err := parseQuoted(operand)
		if err != nil {
			return nil, 0, err
		}
		return []byte(s), pc + uint16(len(s)), nil

	case "DCI":
		s, err := parseQuoted(operand)
		if err != nil {
			return nil, 0, err
		}
		out := []byte(s)
		if len(out) > 0 {
			out[len(out)-1] |= 0x80
		}
		return out, pc + uint16(len(out)), nil

	case "END":
		return nil, pc, nil
	}
	return nil, pc, atticerr.New(atticerr.KindInvalidPseudoOp, op)
}

// defineLabel defines name = value, tolerating a pass-2 redefinition that
// agrees with pass 1's binding (pass 2 re-walks every line and is expected
// to redefine every label).
func defineLabel(syms *SymbolTable, name string, value int32, firstPass bool) error {
	if err := syms.Define(name, value); err != nil {
		if !firstPass {
			if v, ok := syms.Lookup(name); ok && v == value {
				return nil
			}
		}
		return err
	}
	return nil
}

func splitArgs(s string) []string {
	var out []string
	depth := 0
	start := 0
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

func parseQuoted(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' {
		return "", atticerr.New(atticerr.KindInvalidPseudoOp, "expected quoted string")
	}
	end := len(s) - 1
	if s[end] != '"' {
		end = len(s)
	}
	return s[1:end], nil
}

// eval evaluates expr, tolerating undefined labels during the first pass
// by yielding a zero placeholder (while still recording the reference).
func (a *Assembler) eval(expr string, pc uint16, firstPass bool) (int32, error) {
	v, _, err := a.evalTentative(expr, pc, firstPass)
	return v, err
}

// evalTentative is like eval but additionally reports whether the value is
// an unresolved-forward-reference placeholder rather than a real value.
// Callers that pick an addressing mode based on the value's range (zero
// page vs. absolute) must force absolute for a tentative value: a
// placeholder of 0 would otherwise look like a valid zero-page address and
// shrink the instruction, desynchronizing every address after it once pass
// 2 resolves the real, possibly-large value.
func (a *Assembler) evalTentative(expr string, pc uint16, firstPass bool) (int32, bool, error) {
	v, err := Evaluate(expr, pc, a.syms)
	if err != nil {
		if firstPass && isUndefinedLabelErr(err) {
			return 0, true, nil
		}
		return 0, false, err
	}
	return v, false, nil
}

func isUndefinedLabelErr(err error) bool {
	e, ok := err.(*atticerr.Error)
	return ok && e.Kind == atticerr.KindUndefinedLabel
}

// encodeInstruction selects an addressing mode for mnemonic/operand and
// emits the resulting bytes. usedForwardRef reports whether operand
// evaluation tolerated an undefined label (pass 1 only), which callers use
// to decide whether a line needs re-assembly once every label is known.
func (a *Assembler) encodeInstruction(mnemonic, operand string, pc uint16, firstPass bool) (bytes []byte, usedForwardRef bool, err error) {
	modes := opcode.OpcodesFor(mnemonic)
	operand = strings.TrimSpace(operand)

	before := len(a.syms.UnresolvedReferences())
	defer func() {
		if firstPass && len(a.syms.UnresolvedReferences()) > before {
			usedForwardRef = true
		}
	}()

	// Implied / accumulator: no operand, or the literal accumulator token.
	if operand == "" {
		if b, ok := modes[opcode.Implied]; ok {
			return []byte{b}, false, nil
		}
		if b, ok := modes[opcode.Accumulator]; ok {
			return []byte{b}, false, nil
		}
		return nil, false, atticerr.New(atticerr.KindInvalidAddressingMode, mnemonic+": requires an operand")
	}
	if strings.EqualFold(operand, "A") {
		if b, ok := modes[opcode.Accumulator]; ok {
			return []byte{b}, false, nil
		}
	}

	// Relative branches use their own 8-bit signed displacement encoding.
	if opcode.IsBranch(mnemonic) {
		b, ok := modes[opcode.Relative]
		if !ok {
			return nil, false, atticerr.New(atticerr.KindInvalidInstruction, mnemonic)
		}
		target, tentative, err := a.evalTentative(operand, pc, firstPass)
		if err != nil {
			return nil, false, err
		}
		pcAfterFetch := int32(pc) + 2
		disp := int32(target) - pcAfterFetch
		// A tentative (forward-reference placeholder) target can't be
		// range-checked meaningfully yet; pass 2 re-assembles this line
		// with the real, resolved address and checks it then.
		if !tentative && (disp < -128 || disp > 127) {
			return nil, false, atticerr.New(atticerr.KindBranchOutOfRange,
				fmt.Sprintf("%s to $%04X from $%04X", mnemonic, uint16(target), pc))
		}
		return []byte{b, byte(int8(disp))}, false, nil
	}

	// Immediate: #expr
	if strings.HasPrefix(operand, "#") {
		b, ok := modes[opcode.Immediate]
		if !ok {
			return nil, false, atticerr.New(atticerr.KindInvalidAddressingMode, mnemonic+": no immediate mode")
		}
		v, err := a.eval(operand[1:], pc, firstPass)
		if err != nil {
			return nil, false, err
		}
		if v < -128 || v > 255 {
			return nil, false, atticerr.OutOfRange(mnemonic+" immediate", int64(v), -128, 255)
		}
		return []byte{b, byte(v)}, false, nil
	}

	// Indirect addressing: (expr), (expr,X), (expr),Y
	if strings.HasPrefix(operand, "(") {
		return a.encodeIndirect(mnemonic, operand, modes, pc, firstPass)
	}

	// Indexed direct addressing: expr,X or expr,Y
	base := operand
	var index byte
	if idx := strings.LastIndexByte(operand, ','); idx >= 0 {
		suffix := strings.TrimSpace(operand[idx+1:])
		switch strings.ToUpper(suffix) {
		case "X":
			index = 'X'
		case "Y":
			index = 'Y'
		default:
			return nil, false, atticerr.New(atticerr.KindInvalidOperand, operand)
		}
		base = strings.TrimSpace(operand[:idx])
	}

	v, tentative, err := a.evalTentative(base, pc, firstPass)
	if err != nil {
		return nil, false, err
	}

	zpPossible := !tentative && v >= 0 && v <= 0xFF

	switch index {
	case 0:
		if zpPossible {
			if b, ok := modes[opcode.ZeroPage]; ok {
				return []byte{b, byte(v)}, false, nil
			}
		}
		if b, ok := modes[opcode.Absolute]; ok {
			return []byte{b, byte(v), byte(v >> 8)}, false, nil
		}
		if zpPossible {
			if b, ok := modes[opcode.ZeroPage]; ok {
				return []byte{b, byte(v)}, false, nil
			}
		}
	case 'X':
		if zpPossible {
			if b, ok := modes[opcode.ZeroPageX]; ok {
				return []byte{b, byte(v)}, false, nil
			}
		}
		if b, ok := modes[opcode.AbsoluteX]; ok {
			return []byte{b, byte(v), byte(v >> 8)}, false, nil
		}
	case 'Y':
		if zpPossible {
			if b, ok := modes[opcode.ZeroPageY]; ok {
				return []byte{b, byte(v)}, false, nil
			}
		}
		if b, ok := modes[opcode.AbsoluteY]; ok {
			return []byte{b, byte(v), byte(v >> 8)}, false, nil
		}
	}

	return nil, false, atticerr.New(atticerr.KindInvalidAddressingMode,
		fmt.Sprintf("%s does not support operand %q", mnemonic, operand))
}

// encodeIndirect handles (expr,X), (expr),Y, and (expr) operand syntax.
// The form is determined by where the closing paren falls: before a ",X"
// (indexed indirect) or before a trailing ",Y" outside the parens
// (indirect indexed); otherwise it's a bare indirect (JMP only).
func (a *Assembler) encodeIndirect(mnemonic, operand string, modes map[opcode.AddressingMode]byte, pc uint16, firstPass bool) ([]byte, bool, error) {
	closeIdx := strings.IndexByte(operand, ')')
	if closeIdx < 0 || !strings.HasPrefix(operand, "(") {
		return nil, false, atticerr.New(atticerr.KindInvalidOperand, operand)
	}
	inside := operand[1:closeIdx]
	after := strings.TrimSpace(operand[closeIdx+1:])

	if after == "" && strings.HasSuffix(strings.ToUpper(inside), ",X") {
		expr := strings.TrimSpace(inside[:len(inside)-2])
		b, ok := modes[opcode.IndexedIndirectX]
		if !ok {
			return nil, false, atticerr.New(atticerr.KindInvalidAddressingMode, mnemonic+": no (zp,X) mode")
		}
		v, err := a.eval(expr, pc, firstPass)
		if err != nil {
			return nil, false, err
		}
		return []byte{b, byte(v)}, false, nil
	}

	if strings.EqualFold(after, ",Y") {
		b, ok := modes[opcode.IndirectIndexedY]
		if !ok {
			return nil, false, atticerr.New(atticerr.KindInvalidAddressingMode, mnemonic+": no (zp),Y mode")
		}
		v, err := a.eval(inside, pc, firstPass)
		if err != nil {
			return nil, false, err
		}
		return []byte{b, byte(v)}, false, nil
	}

	if after == "" {
		b, ok := modes[opcode.Indirect]
		if !ok {
			return nil, false, atticerr.New(atticerr.KindInvalidAddressingMode, mnemonic+": no (abs) mode")
		}
		v, err := a.eval(inside, pc, firstPass)
		if err != nil {
			return nil, false, err
		}
		return []byte{b, byte(v), byte(v >> 8)}, false, nil
	}

	return nil, false, atticerr.New(atticerr.KindInvalidOperand, operand)
}
