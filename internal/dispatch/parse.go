package dispatch

import (
	"strconv"
	"strings"

	"github.com/attic/atticcore/internal/atr"
	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/hostfs"
	"github.com/attic/atticcore/internal/state"
)

// Dispatcher parses REPL text into Commands. It only depends on hostfs,
// for "~/" path expansion; execution of a parsed Command is the caller's
// job (it routes to Assembler/BreakpointManager, DiskManager, or
// StateFile depending on Kind).
type Dispatcher struct {
	fs hostfs.FS
}

// New returns a Dispatcher that expands paths through fs.
func New(fs hostfs.FS) *Dispatcher {
	return &Dispatcher{fs: fs}
}

// Parse parses one line of REPL input against the given mode, per
// spec.md §4.6: dot-prefixed lines are global, everything else routes
// through the active mode's grammar.
func (d *Dispatcher) Parse(text string, mode state.REPLMode) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, text)
	}

	if strings.HasPrefix(trimmed, ".") {
		return d.parseGlobal(trimmed)
	}

	switch mode.Mode {
	case "monitor":
		return d.parseMonitor(trimmed)
	case "dos":
		return d.parseDOS(trimmed)
	case "basic":
		// BASIC program editing is out of scope (spec.md §1 non-goals);
		// the only thing a BASIC-mode line can become is an InvalidCommand.
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, text)
	default:
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, text)
	}
}

func splitWord(s string) (word, rest string) {
	parts := strings.SplitN(s, " ", 2)
	word = strings.ToLower(parts[0])
	if len(parts) > 1 {
		rest = strings.TrimSpace(parts[1])
	}
	return
}

func (d *Dispatcher) parseGlobal(line string) (Command, error) {
	word, rest := splitWord(line[1:])
	switch word {
	case "help":
		return Command{Kind: KindHelp, Topic: rest}, nil
	case "status":
		return Command{Kind: KindStatus}, nil
	case "monitor":
		return Command{Kind: KindSwitchMonitor}, nil
	case "basic":
		variant := strings.ToLower(strings.TrimSpace(rest))
		if variant != "" && variant != "turbo" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, line)
		}
		return Command{Kind: KindSwitchBasic, Variant: variant}, nil
	case "dos":
		return Command{Kind: KindSwitchDOS}, nil
	case "state":
		return d.parseState(rest)
	default:
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, line)
	}
}

func (d *Dispatcher) parseState(rest string) (Command, error) {
	word, path := splitWord(rest)
	if path == "" {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, ".state "+rest)
	}
	expanded, err := expandPath(d.fs.ExpandHome, path)
	if err != nil {
		return Command{}, err
	}
	switch word {
	case "save":
		return Command{Kind: KindStateSave, Path: expanded}, nil
	case "load":
		return Command{Kind: KindStateLoad, Path: expanded}, nil
	default:
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, ".state "+rest)
	}
}

// parseMonitor implements the monitor REPL grammar: the register command
// (spec.md §4.6), the debugger operations of §6 reused as typed monitor
// commands, InvalidCommand for the DOS grammar's command words, and a
// fallback that feeds any other line to the assembler.
func (d *Dispatcher) parseMonitor(line string) (Command, error) {
	word, rest := splitWord(line)
	switch word {
	case "r", "registers":
		return parseRegistersCommand(rest)
	case "pause":
		return Command{Kind: KindPause}, nil
	case "resume":
		return Command{Kind: KindResume}, nil
	case "reset":
		return Command{Kind: KindReset}, nil
	case "step", "s":
		return parseStepCommand(rest)
	case "stepover", "so":
		return Command{Kind: KindStepOver}, nil
	case "until", "run":
		return parseRunUntilCommand(rest)
	case "disassemble", "disasm", "d":
		return parseDisassembleCommand(rest)
	case "breakpoint", "break", "b":
		return parseBreakpointCommand(rest)
	case "read":
		return parseReadCommand(rest)
	case "write":
		return parseWriteCommand(rest)
	case "mount", "unmount", "drives", "cd", "dir", "info", "type", "dump", "copy", "rename",
		"delete", "del", "lock", "unlock", "export", "import", "newdisk", "format":
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, line)
	default:
		return Command{Kind: KindAssembleLine, AssemblyLine: line}, nil
	}
}

func parseRegistersCommand(args string) (Command, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return Command{Kind: KindRegisters, RegistersQuery: true}, nil
	}
	mods, err := parseRegisterMods(args)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindRegisters, Modifications: mods}, nil
}

func parseStepCommand(args string) (Command, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return Command{Kind: KindStep, Count: 1, CountSet: true}, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "step "+args)
	}
	return Command{Kind: KindStep, Count: n, CountSet: true}, nil
}

func parseRunUntilCommand(args string) (Command, error) {
	addr, ok := parseAddress(args)
	if !ok {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "run "+args)
	}
	return Command{Kind: KindRunUntil, Address: addr, AddressSet: true}, nil
}

func parseDisassembleCommand(args string) (Command, error) {
	args = strings.TrimSpace(args)
	cmd := Command{Kind: KindDisassemble}
	if args == "" {
		return cmd, nil
	}
	fields := strings.Fields(args)
	addr, ok := parseAddress(fields[0])
	if !ok {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "disassemble "+args)
	}
	cmd.Address, cmd.AddressSet = addr, true
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "disassemble "+args)
		}
		cmd.Count, cmd.CountSet = n, true
	}
	return cmd, nil
}

func parseBreakpointCommand(args string) (Command, error) {
	word, rest := splitWord(args)
	switch word {
	case "set":
		addr, ok := parseAddress(rest)
		if !ok {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "breakpoint set "+rest)
		}
		return Command{Kind: KindBreakpointSet, Address: addr, AddressSet: true}, nil
	case "clear":
		addr, ok := parseAddress(rest)
		if !ok {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "breakpoint clear "+rest)
		}
		return Command{Kind: KindBreakpointClear, Address: addr, AddressSet: true}, nil
	case "list":
		return Command{Kind: KindBreakpointList}, nil
	default:
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "breakpoint "+args)
	}
}

func parseReadCommand(args string) (Command, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "read "+args)
	}
	addr, ok := parseAddress(fields[0])
	if !ok {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "read "+args)
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil || count <= 0 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "read "+args)
	}
	return Command{Kind: KindReadMemory, Address: addr, AddressSet: true, Count: count, CountSet: true}, nil
}

func parseWriteCommand(args string) (Command, error) {
	fields := strings.SplitN(args, " ", 2)
	if len(fields) != 2 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "write "+args)
	}
	addr, ok := parseAddress(fields[0])
	if !ok {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "write "+args)
	}
	data, ok := parseDataBytes(fields[1])
	if !ok {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "write "+args)
	}
	return Command{Kind: KindWriteMemory, Address: addr, AddressSet: true, Data: data}, nil
}

// parseDOS implements the exhaustive DOS grammar of spec.md §4.6.
func (d *Dispatcher) parseDOS(line string) (Command, error) {
	word, rest := splitWord(line)
	switch word {
	case "mount":
		return d.parseMount(rest)
	case "unmount":
		drive, err := parseDrive(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindUnmount, Drive: drive, DriveSet: true}, nil
	case "drives":
		return Command{Kind: KindDrives}, nil
	case "cd":
		drive, err := parseDrive(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindChangeDrive, Drive: drive, DriveSet: true}, nil
	case "dir":
		return Command{Kind: KindDir, Pattern: rest}, nil
	case "info":
		if rest == "" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "info")
		}
		return Command{Kind: KindFileInfo, Name: rest}, nil
	case "type":
		if rest == "" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "type")
		}
		return Command{Kind: KindType, Name: rest}, nil
	case "dump":
		if rest == "" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "dump")
		}
		return Command{Kind: KindDump, Name: rest}, nil
	case "copy":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "copy "+rest)
		}
		return Command{Kind: KindCopy, Source: fields[0], Destination: fields[1]}, nil
	case "rename":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "rename "+rest)
		}
		return Command{Kind: KindRename, OldName: fields[0], NewName: fields[1]}, nil
	case "delete", "del":
		if rest == "" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, word)
		}
		return Command{Kind: KindDelete, Name: rest}, nil
	case "lock":
		if rest == "" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "lock")
		}
		return Command{Kind: KindLock, Name: rest}, nil
	case "unlock":
		if rest == "" {
			return Command{}, atticerr.New(atticerr.KindInvalidCommand, "unlock")
		}
		return Command{Kind: KindUnlock, Name: rest}, nil
	case "export":
		return d.parseExport(rest)
	case "import":
		return d.parseImport(rest)
	case "newdisk":
		return d.parseNewDisk(rest)
	case "format":
		return Command{Kind: KindFormat}, nil
	default:
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, line)
	}
}

func (d *Dispatcher) parseMount(rest string) (Command, error) {
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "mount "+rest)
	}
	drive, err := parseDrive(fields[0])
	if err != nil {
		return Command{}, err
	}
	path, err := expandPath(d.fs.ExpandHome, strings.TrimSpace(fields[1]))
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindMount, Drive: drive, DriveSet: true, Path: path}, nil
}

func (d *Dispatcher) parseExport(rest string) (Command, error) {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "export "+rest)
	}
	hostPath, err := expandPath(d.fs.ExpandHome, fields[1])
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindExport, Name: fields[0], HostPath: hostPath}, nil
}

func (d *Dispatcher) parseImport(rest string) (Command, error) {
	// Last token is the on-disk name; everything before it is the host path
	// (spec.md §4.6: "the rest is the host path").
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "import "+rest)
	}
	name := fields[len(fields)-1]
	hostPath := strings.Join(fields[:len(fields)-1], " ")
	expanded, err := expandPath(d.fs.ExpandHome, hostPath)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindImport, Name: name, HostPath: expanded}, nil
}

func (d *Dispatcher) parseNewDisk(rest string) (Command, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, "newdisk")
	}
	path, err := expandPath(d.fs.ExpandHome, fields[0])
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: KindNewDisk, Path: path, DiskType: atr.SingleDensity}
	if len(fields) > 1 {
		dt, err := parseDiskType(fields[1])
		if err != nil {
			return Command{}, err
		}
		cmd.DiskType = dt
	}
	return cmd, nil
}
