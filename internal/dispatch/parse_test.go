package dispatch

import (
	"testing"

	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/hostfs"
	"github.com/attic/atticcore/internal/state"
)

func newTestDispatcher() *Dispatcher {
	return New(hostfs.NewFake("/home/user"))
}

func TestParseEmptyInputFails(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Parse("   ", state.Monitor)
	assertKindDispatch(t, err, atticerr.KindInvalidCommand)
}

func TestParseGlobalDotCommands(t *testing.T) {
	d := newTestDispatcher()

	cases := []struct {
		text string
		want Kind
	}{
		{".help", KindHelp},
		{".status", KindStatus},
		{".monitor", KindSwitchMonitor},
		{".basic", KindSwitchBasic},
		{".basic turbo", KindSwitchBasic},
		{".dos", KindSwitchDOS},
	}
	for _, c := range cases {
		cmd, err := d.Parse(c.text, state.Monitor)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.text, err)
		}
		if cmd.Kind != c.want {
			t.Errorf("Parse(%q).Kind = %v, want %v", c.text, cmd.Kind, c.want)
		}
	}

	cmd, err := d.Parse(".basic turbo", state.Monitor)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Variant != "turbo" {
		t.Errorf("Variant = %q, want turbo", cmd.Variant)
	}
}

func TestParseUnknownDotCommandFails(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Parse(".bogus", state.Monitor)
	assertKindDispatch(t, err, atticerr.KindInvalidCommand)
}

func TestParseStateSaveLoadExpandsHome(t *testing.T) {
	d := newTestDispatcher()
	cmd, err := d.Parse(".state save ~/saves/a.attic", state.Monitor)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindStateSave || cmd.Path != "/home/user/saves/a.attic" {
		t.Errorf("got %+v", cmd)
	}

	cmd, err = d.Parse(".state load /tmp/b.attic", state.Monitor)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindStateLoad || cmd.Path != "/tmp/b.attic" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseRegistersCommand(t *testing.T) {
	d := newTestDispatcher()

	cmd, err := d.Parse("r", state.Monitor)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindRegisters || !cmd.RegistersQuery {
		t.Errorf("got %+v", cmd)
	}

	cmd, err = d.Parse("r A=$FF PC=$0600", state.Monitor)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmd.Modifications) != 2 {
		t.Fatalf("Modifications = %+v", cmd.Modifications)
	}
	if cmd.Modifications[0] != (RegisterMod{Name: "A", Value: 0xFF}) {
		t.Errorf("mod[0] = %+v", cmd.Modifications[0])
	}
	if cmd.Modifications[1] != (RegisterMod{Name: "PC", Value: 0x0600}) {
		t.Errorf("mod[1] = %+v", cmd.Modifications[1])
	}
}

func TestParseRegistersRejectsInvalidName(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Parse("r Q=$01", state.Monitor)
	assertKindDispatch(t, err, atticerr.KindInvalidCommand)
}

func TestParseRegistersRejectsOversizedValue(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Parse("r A=$100", state.Monitor)
	assertKindDispatch(t, err, atticerr.KindInvalidCommand)
}

func TestParseMonitorFallsBackToAssembly(t *testing.T) {
	d := newTestDispatcher()
	cmd, err := d.Parse("LDA #$01", state.Monitor)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindAssembleLine || cmd.AssemblyLine != "LDA #$01" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseDOSGrammar(t *testing.T) {
	d := newTestDispatcher()

	cmd, err := d.Parse("mount 1 disk.atr", state.DOS)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindMount || cmd.Drive != 1 || cmd.Path != "disk.atr" {
		t.Errorf("mount: got %+v", cmd)
	}

	cmd, err = d.Parse("del foo.txt", state.DOS)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindDelete || cmd.Name != "foo.txt" {
		t.Errorf("del: got %+v", cmd)
	}

	cmd, err = d.Parse("delete foo.txt", state.DOS)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindDelete {
		t.Errorf("delete: got %+v", cmd)
	}

	cmd, err = d.Parse("import ~/host/a.com b.com", state.DOS)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindImport || cmd.Name != "b.com" || cmd.HostPath != "/home/user/host/a.com" {
		t.Errorf("import: got %+v", cmd)
	}

	cmd, err = d.Parse("newdisk disks/new.atr ss/ed", state.DOS)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindNewDisk || cmd.Path != "disks/new.atr" {
		t.Errorf("newdisk: got %+v", cmd)
	}
}

func TestParseDOSCommandInMonitorModeFails(t *testing.T) {
	d := newTestDispatcher()
	// "dir" is only recognized in dos mode; the monitor grammar rejects
	// DOS command words with InvalidCommand.
	_, err := d.Parse("dir", state.Monitor)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseBasicModeRejectsEverything(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Parse("10 PRINT \"HI\"", state.BasicAtari)
	assertKindDispatch(t, err, atticerr.KindInvalidCommand)
}

func TestParseWireCommands(t *testing.T) {
	d := newTestDispatcher()

	cmd, err := d.ParseWireCommand("ping")
	if err != nil || cmd.Kind != KindPing {
		t.Errorf("ping: %+v, %v", cmd, err)
	}

	cmd, err = d.ParseWireCommand("read $0600 4")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindReadMemory || cmd.Address != 0x0600 || cmd.Count != 4 {
		t.Errorf("read: got %+v", cmd)
	}

	cmd, err = d.ParseWireCommand("write $0600 01,02,$FF")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindWriteMemory || len(cmd.Data) != 3 || cmd.Data[2] != 0xFF {
		t.Errorf("write: got %+v", cmd)
	}

	cmd, err = d.ParseWireCommand("breakpoint set $C000")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != KindBreakpointSet || cmd.Address != 0xC000 {
		t.Errorf("breakpoint set: got %+v", cmd)
	}
}

func assertKindDispatch(t *testing.T, err error, want atticerr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", want)
	}
	ae, ok := err.(*atticerr.Error)
	if !ok {
		t.Fatalf("expected *atticerr.Error, got %T: %v", err, err)
	}
	if ae.Kind != want {
		t.Errorf("Kind = %v, want %v", ae.Kind, want)
	}
}
