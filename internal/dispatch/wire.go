package dispatch

import (
	"strings"

	"github.com/attic/atticcore/internal/atticerr"
)

// ParseWireCommand parses one line of the IPC wire grammar (spec.md §6).
// Unlike Parse, it is independent of the active REPL mode: an IPC client
// is not "in" monitor or dos mode, so the recognised vocabulary is fixed.
func (d *Dispatcher) ParseWireCommand(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, text)
	}
	word, rest := splitWord(trimmed)
	switch word {
	case "ping":
		return Command{Kind: KindPing}, nil
	case "status":
		return Command{Kind: KindStatus}, nil
	case "version":
		return Command{Kind: KindVersion}, nil
	case "pause":
		return Command{Kind: KindPause}, nil
	case "resume":
		return Command{Kind: KindResume}, nil
	case "quit":
		return Command{Kind: KindQuit}, nil
	case "shutdown":
		return Command{Kind: KindShutdown}, nil
	case "read":
		return parseReadCommand(rest)
	case "write":
		return parseWriteCommand(rest)
	case "registers":
		return parseRegistersCommand(rest)
	case "step":
		return parseStepCommand(rest)
	case "disassemble":
		return parseDisassembleCommand(rest)
	case "breakpoint":
		return parseBreakpointCommand(rest)
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
	default:
		return Command{}, atticerr.New(atticerr.KindInvalidCommand, trimmed)
	}
}
