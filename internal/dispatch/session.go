package dispatch

import (
	"fmt"
	"strings"

	"github.com/attic/atticcore/internal/asm"
	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/clock"
	"github.com/attic/atticcore/internal/debugger"
	"github.com/attic/atticcore/internal/disk"
	"github.com/attic/atticcore/internal/emucore"
	"github.com/attic/atticcore/internal/hostfs"
	"github.com/attic/atticcore/internal/state"
)

// Session owns the one-per-process mutable state the Dispatcher's parsed
// Commands act on: the active REPL mode, the interactive assembler and
// its location counter, the breakpoint manager and stepper, the disk
// manager, and a handle to the emulation core itself. It is the "right
// subsystem" Parse's Commands get routed to (spec.md §2's Dataflow).
type Session struct {
	Dispatcher *Dispatcher

	core  emucore.EmulationCore
	bm    *debugger.BreakpointManager
	step  *debugger.Stepper
	ia    *asm.InteractiveAssembler
	disks *disk.Manager
	fs    hostfs.FS
	clk   clock.Clock

	mode       state.REPLMode
	appVersion string
}

// NewSession wires a Dispatcher to the concrete subsystems it dispatches
// into.
func NewSession(core emucore.EmulationCore, disks *disk.Manager, fs hostfs.FS, clk clock.Clock, appVersion string) *Session {
	bm := debugger.NewBreakpointManager(core)
	regs := core.ReadRegisters()
	return &Session{
		Dispatcher: New(fs),
		core:       core,
		bm:         bm,
		step:       debugger.NewStepper(core, bm),
		ia:         asm.NewInteractiveAssembler(regs.PC),
		disks:      disks,
		fs:         fs,
		clk:        clk,
		mode:       state.Monitor,
		appVersion: appVersion,
	}
}

// Mode returns the session's current REPL mode.
func (s *Session) Mode() state.REPLMode { return s.mode }

// Dispatch parses text against the session's current mode and executes
// the resulting Command, returning the IPC/REPL response line (without
// its trailing "\n"): "ok", "ok <text>", or "err <message>".
func (s *Session) Dispatch(text string) string {
	cmd, err := s.Dispatcher.Parse(text, s.mode)
	if err != nil {
		return errLine(err)
	}
	resp, err := s.Execute(cmd)
	if err != nil {
		return errLine(err)
	}
	if resp == "" {
		return "ok"
	}
	return "ok " + resp
}

func errLine(err error) string {
	return "err " + err.Error()
}

// Execute routes cmd to its owning subsystem and returns the success
// payload (empty for a bare "ok"). Errors are returned unwrapped; the
// caller (Dispatch, or an IPC handler) is responsible for the
// "err <message>" line shape spec.md §6 mandates.
func (s *Session) Execute(cmd Command) (string, error) {
	switch cmd.Kind {
	case KindHelp:
		return s.execHelp(cmd)
	case KindStatus:
		return s.execStatus()
	case KindSwitchMonitor:
		s.mode = state.Monitor
		return "", nil
	case KindSwitchBasic:
		if cmd.Variant == "turbo" {
			s.mode = state.BasicTurbo
		} else {
			s.mode = state.BasicAtari
		}
		return "", nil
	case KindSwitchDOS:
		s.mode = state.DOS
		return "", nil
	case KindStateSave:
		return "", s.execStateSave(cmd.Path)
	case KindStateLoad:
		return "", s.execStateLoad(cmd.Path)

	case KindRegisters:
		return s.execRegisters(cmd)
	case KindAssembleLine:
		return s.execAssembleLine(cmd.AssemblyLine)
	case KindPause, KindResume:
		return "", nil // pause/resume are a scheduling concern above EmulationCore; no-op here
	case KindReset:
		s.core.Reset()
		return "", nil
	case KindStep:
		return s.execStep(cmd.Count)
	case KindStepOver:
		return s.execStepResult(s.step.StepOver())
	case KindRunUntil:
		return s.execStepResult(s.step.RunUntil(cmd.Address))
	case KindDisassemble:
		return s.execDisassemble(cmd)
	case KindBreakpointSet:
		return s.execBreakpointSet(cmd.Address)
	case KindBreakpointClear:
		return "", s.bm.ClearBreakpoint(cmd.Address)
	case KindBreakpointList:
		return s.execBreakpointList(), nil
	case KindReadMemory:
		return s.execReadMemory(cmd), nil
	case KindWriteMemory:
		for i, b := range cmd.Data {
			s.core.WriteMemory(cmd.Address+uint16(i), b)
		}
		return "", nil

	case KindMount:
		return s.execMount(cmd)
	case KindUnmount:
		return "", s.disks.Unmount(cmd.Drive, true)
	case KindDrives:
		return s.execDrives(), nil
	case KindChangeDrive:
		return "", s.disks.ChangeDrive(cmd.Drive)
	case KindDir:
		return s.execDir(cmd.Pattern)
	case KindFileInfo:
		return s.execFileInfo(cmd.Name)
	case KindType:
		return s.execType(cmd.Name)
	case KindDump:
		return s.execDump(cmd.Name)
	case KindCopy:
		return "", s.disks.CopyFile(s.disks.CurrentDrive(), cmd.Source, s.disks.CurrentDrive(), cmd.Destination)
	case KindRename:
		return "", s.disks.RenameFile(0, cmd.OldName, cmd.NewName)
	case KindDelete:
		return "", s.disks.DeleteFile(0, cmd.Name)
	case KindLock:
		return "", s.disks.LockFile(0, cmd.Name)
	case KindUnlock:
		return "", s.disks.UnlockFile(0, cmd.Name)
	case KindExport:
		return "", s.disks.ExportFile(0, cmd.Name, cmd.HostPath)
	case KindImport:
		return "", s.disks.ImportFile(0, cmd.HostPath, cmd.Name)
	case KindNewDisk:
		return "", s.disks.CreateDisk(cmd.Path, cmd.DiskType)
	case KindFormat:
		return "", s.disks.FormatDisk(0)

	case KindPing:
		return "pong", nil
	case KindVersion:
		return s.appVersion, nil
	case KindQuit, KindShutdown:
		return "", nil // connection/process lifecycle is the IPC server's concern

	default:
		return "", atticerr.New(atticerr.KindInvalidCommand, "unhandled command")
	}
}

func (s *Session) execHelp(cmd Command) (string, error) {
	if cmd.Topic == "" {
		return "global: .help .status .monitor .basic .dos .state save|load; dos: mount unmount drives cd dir info type dump copy rename delete lock unlock export import newdisk format; monitor: r breakpoint step disassemble", nil
	}
	return "no help available for " + cmd.Topic, nil
}

func (s *Session) execStatus() (string, error) {
	regs := s.core.ReadRegisters()
	return fmt.Sprintf("mode=%s drive=%d pc=$%04X", s.mode.String(), s.disks.CurrentDrive(), regs.PC), nil
}

func (s *Session) execStateSave(path string) error {
	meta := state.Metadata{
		Timestamp:  clock.ISO8601Millis(s.clk.Now()),
		REPLMode:   s.mode,
		AppVersion: s.appVersion,
	}
	for _, d := range s.disks.ListDrives() {
		if !d.Mounted {
			continue
		}
		info, err := s.disks.GetInfo(d.Drive)
		if err != nil {
			return err
		}
		meta.MountedDisks = append(meta.MountedDisks, state.MountedDisk{
			Drive:    d.Drive,
			Path:     d.Path,
			DiskType: info.DiskType.String(),
			ReadOnly: info.ReadOnly,
		})
	}

	data := make([]byte, 0x10000)
	for addr := 0; addr < len(data); addr++ {
		data[addr] = s.core.ReadMemory(uint16(addr))
	}
	regs := s.core.ReadRegisters()
	emu := state.EmulatorState{
		Tags: state.StateTags{Size: uint32(len(data)), PC: uint32(regs.PC)},
		Data: data,
	}
	return state.Write(path, meta, state.StateFileFlags{}, emu)
}

func (s *Session) execStateLoad(path string) error {
	meta, emu, err := state.Read(path)
	if err != nil {
		return err
	}
	for addr := 0; addr < len(emu.Data) && addr < 0x10000; addr++ {
		s.core.WriteMemory(uint16(addr), emu.Data[addr])
	}
	regs := s.core.ReadRegisters()
	regs.PC = uint16(emu.Tags.PC)
	s.core.WriteRegisters(regs)
	s.mode = meta.REPLMode
	return nil
}

func (s *Session) execRegisters(cmd Command) (string, error) {
	if cmd.RegistersQuery {
		return formatRegisters(s.core.ReadRegisters()), nil
	}
	regs := s.core.ReadRegisters()
	for _, m := range cmd.Modifications {
		switch m.Name {
		case "A":
			regs.A = byte(m.Value)
		case "X":
			regs.X = byte(m.Value)
		case "Y":
			regs.Y = byte(m.Value)
		case "S":
			regs.SP = byte(m.Value)
		case "P":
			regs.P = byte(m.Value)
		case "PC":
			regs.PC = m.Value
		}
	}
	s.core.WriteRegisters(regs)
	return formatRegisters(regs), nil
}

func formatRegisters(r emucore.Registers) string {
	return fmt.Sprintf("A=$%02X X=$%02X Y=$%02X S=$%02X P=$%02X PC=$%04X", r.A, r.X, r.Y, r.SP, r.P, r.PC)
}

func (s *Session) execAssembleLine(line string) (string, error) {
	res, err := s.ia.AssembleLine(line)
	if err != nil {
		return "", err
	}
	return asm.Format(res), nil
}

func (s *Session) execStep(count int) (string, error) {
	if count <= 1 {
		return s.execStepResult(s.step.StepOne())
	}
	return s.execStepResult(s.step.StepN(count))
}

func (s *Session) execStepResult(res debugger.StepResult, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("stopped_at=$%04X instructions_executed=%d breakpoint_hit=%t reason=%s",
		res.PC, res.InstructionsExecuted, res.HitBreakpoint, res.Reason), nil
}

func (s *Session) execDisassemble(cmd Command) (string, error) {
	addr := cmd.Address
	if !cmd.AddressSet {
		addr = s.core.ReadRegisters().PC
	}
	count := 10
	if cmd.CountSet {
		count = cmd.Count
	}
	lines := asm.DisassembleRange(s.core, addr, count)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Format()
	}
	return strings.Join(out, "; "), nil
}

func (s *Session) execBreakpointSet(addr uint16) (string, error) {
	bp, err := s.bm.SetBreakpoint(addr)
	if err != nil {
		return "", err
	}
	kind := "ram"
	if bp.InROM {
		kind = "rom"
	}
	return fmt.Sprintf("$%04X (%s)", bp.Address, kind), nil
}

func (s *Session) execBreakpointList() string {
	bps := s.bm.GetAllBreakpoints()
	if len(bps) == 0 {
		return "no breakpoints"
	}
	parts := make([]string, len(bps))
	for i, bp := range bps {
		parts[i] = fmt.Sprintf("$%04X(hits=%d)", bp.Address, bp.HitCount)
	}
	return strings.Join(parts, " ")
}

func (s *Session) execReadMemory(cmd Command) string {
	bytes := make([]string, cmd.Count)
	for i := 0; i < cmd.Count; i++ {
		bytes[i] = fmt.Sprintf("%02x", s.core.ReadMemory(cmd.Address+uint16(i)))
	}
	return "data " + strings.Join(bytes, ",")
}

func (s *Session) execMount(cmd Command) (string, error) {
	info, err := s.disks.Mount(cmd.Drive, cmd.Path, false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("drive %d: %s (%s)", info.Drive, info.Path, info.DiskType), nil
}

func (s *Session) execDrives() string {
	statuses := s.disks.ListDrives()
	parts := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if !st.Mounted {
			continue
		}
		marker := ""
		if st.Current {
			marker = "*"
		}
		parts = append(parts, fmt.Sprintf("%d%s:%s", st.Drive, marker, st.Path))
	}
	if len(parts) == 0 {
		return "no drives mounted"
	}
	return strings.Join(parts, " ")
}

func (s *Session) execDir(pattern string) (string, error) {
	entries, err := s.disks.ListDirectory(0, false, pattern)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s %d", e.Name(), e.SectorCount)
	}
	return strings.Join(parts, " "), nil
}

func (s *Session) execFileInfo(name string) (string, error) {
	e, err := s.disks.GetFileInfo(0, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s sectors=%d start=%d locked=%t", e.Name(), e.SectorCount, e.StartSector, e.Flags&0x20 != 0), nil
}

func (s *Session) execType(name string) (string, error) {
	data, err := s.disks.ReadFile(0, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Session) execDump(name string) (string, error) {
	data, err := s.disks.ReadFile(0, name)
	if err != nil {
		return "", err
	}
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = fmt.Sprintf("%02x", b)
	}
	return "data " + strings.Join(out, ","), nil
}
