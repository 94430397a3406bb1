// Command atticserver is AtticServer, the long-running process that owns
// the EmulationCore and exposes it over a Unix-domain-socket IPC
// transport per spec.md §6. The CLI surface is deliberately thin
// (--headless, --rom-dir): the GUI shell and the AESP network protocol
// this process would also drive in the teacher repo are out of scope.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/attic/atticcore/internal/atticerr"
	"github.com/attic/atticcore/internal/clock"
	"github.com/attic/atticcore/internal/disk"
	"github.com/attic/atticcore/internal/dispatch"
	"github.com/attic/atticcore/internal/emucore"
	"github.com/attic/atticcore/internal/hostfs"
	"github.com/attic/atticcore/internal/ipc"
)

const appVersion = "0.2.0"

var requiredROMs = []string{"ATARIXL.ROM", "ATARIBAS.ROM"}

func main() {
	headless := flag.Bool("headless", false, "boot without the GUI shell (no-op: GUI is out of this build's scope)")
	romDir := flag.String("rom-dir", defaultROMDir(), "directory containing ATARIXL.ROM and ATARIBAS.ROM")
	flag.Parse()
	_ = *headless

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fs := hostfs.New()
	if err := checkROMs(fs, *romDir); err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}

	core := emucore.NewFake()
	disks := disk.NewManager(fs)
	sess := dispatch.NewSession(core, disks, fs, clock.Real{}, appVersion)

	socketPath := ipc.CurrentSocketPath()
	srv, err := ipc.NewServer(socketPath, sess, log)
	if err != nil {
		log.Error("failed to create socket", "path", socketPath, "err", err)
		os.Exit(1)
	}
	log.Info("AtticServer listening", "socket", socketPath, "rom_dir", *romDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())
		srv.Shutdown()
	}()

	if err := srv.Serve(); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// checkROMs fails with KindRomNotFound naming the first missing file,
// checking ATARIXL.ROM before ATARIBAS.ROM per spec.md §6.
func checkROMs(fs hostfs.FS, romDir string) error {
	for _, name := range requiredROMs {
		path := filepath.Join(romDir, name)
		if !fs.Exists(path) {
			return atticerr.New(atticerr.KindRomNotFound, path)
		}
	}
	return nil
}

func defaultROMDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "attic", "roms")
	}
	return "."
}

func init() {
	// Keep flag's default usage output free of the package doc comment
	// noise go help text would otherwise inherit from godoc.
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [--headless] [--rom-dir <path>]\n", os.Args[0])
		flag.PrintDefaults()
	}
}
