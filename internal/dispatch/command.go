// Package dispatch parses REPL and IPC command text into a typed Command
// union and routes it to the Assembler, BreakpointManager/Stepper,
// DiskManager, and StateFile components.
package dispatch

import "github.com/attic/atticcore/internal/atr"

// Kind identifies which operation a Command carries.
type Kind int

const (
	KindUnknown Kind = iota

	// Global (dot-prefixed REPL commands)
	KindHelp
	KindStatus
	KindSwitchMonitor
	KindSwitchBasic
	KindSwitchDOS
	KindStateSave
	KindStateLoad

	// Monitor mode
	KindRegisters
	KindAssembleLine
	KindPause
	KindResume
	KindReset
	KindStep
	KindStepOver
	KindRunUntil
	KindDisassemble
	KindBreakpointSet
	KindBreakpointClear
	KindBreakpointList
	KindReadMemory
	KindWriteMemory

	// DOS mode (exhaustive per spec.md §4.6)
	KindMount
	KindUnmount
	KindDrives
	KindChangeDrive
	KindDir
	KindFileInfo
	KindType
	KindDump
	KindCopy
	KindRename
	KindDelete
	KindLock
	KindUnlock
	KindExport
	KindImport
	KindNewDisk
	KindFormat

	// Wire-only (IPC, §6), mode-independent
	KindPing
	KindVersion
	KindQuit
	KindShutdown
)

// RegisterMod is one NAME=$VALUE pair from a registers command.
type RegisterMod struct {
	Name  string // A, X, Y, S, P, or PC
	Value uint16
}

// Command is the parsed, typed form of a line of REPL or IPC input. Only
// the fields relevant to Kind are populated; the rest are zero.
type Command struct {
	Kind Kind

	Topic string // help topic, optional

	Variant string // basic variant: "atari" or "turbo"

	Path     string // state save/load path, newdisk path
	DiskType atr.DiskType

	Drive       int
	DriveSet    bool
	Pattern     string // dir glob
	Name        string // info/type/dump/delete/lock/unlock filename
	OldName     string
	NewName     string
	Source      string // copy source
	Destination string // copy destination
	HostPath    string // export/import host-side path

	Address    uint16
	AddressSet bool
	Count      int
	CountSet   bool
	Data       []byte

	RegistersQuery bool // true when "r"/"registers" had no NAME=$VAL args
	Modifications  []RegisterMod

	AssemblyLine string // raw text for KindAssembleLine
}
