// Package ipc implements the local socket transport described in spec.md
// §6: newline-delimited UTF-8 text over a Unix domain socket, with
// responses that always start with "ok" or "err" (no CMD:/OK:/ERR:
// framing, unlike the teacher's wire format).
//
// Request (client -> server):  <command> [arguments...]\n
// Success response:            ok[ <data>]\n
// Error response:              err <message>\n
// Async event (best effort):   EVENT:<event-type> <data>\n
package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// SocketPathPrefix and SocketPathSuffix bracket a server's PID to form
	// its socket path, e.g. "/tmp/attic-4821.sock".
	SocketPathPrefix = "/tmp/attic-"
	SocketPathSuffix = ".sock"

	// EventPrefix marks an asynchronous notification line. Events are not
	// part of spec.md's required grammar; they are an additive channel a
	// client may ignore entirely.
	EventPrefix = "EVENT:"

	// MaxLineLength bounds a single protocol line, guarding against an
	// unbounded read filling memory on a malformed client.
	MaxLineLength = 4096

	// ReadTimeout is the default time a client waits for a response before
	// giving up. Per spec.md, a timeout closes the connection without
	// affecting emulator state.
	ReadTimeout = 5 * time.Second

	// PingTimeout bounds the handshake ping performed during Connect.
	PingTimeout = 5 * time.Second

	// ConnectionTimeout bounds establishing the underlying socket dial.
	ConnectionTimeout = 5 * time.Second
)

// SocketPath returns the socket path a server with the given PID listens on.
func SocketPath(pid int) string {
	return fmt.Sprintf("%s%d%s", SocketPathPrefix, pid, SocketPathSuffix)
}

// CurrentSocketPath returns the socket path for the running process.
func CurrentSocketPath() string {
	return SocketPath(os.Getpid())
}

// DiscoverSockets globs /tmp for attic-*.sock files, returning paths sorted
// by modification time, most recent first.
func DiscoverSockets() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join("/tmp", "attic-*.sock"))
	if err != nil {
		return nil, fmt.Errorf("glob sockets: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	candidates := make([]candidate, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue // socket removed between Glob and Stat
		}
		candidates = append(candidates, candidate{path, info.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.path
	}
	return paths, nil
}

// DiscoverSocket returns the most recently active server socket, or "" if
// none is found.
func DiscoverSocket() string {
	sockets, err := DiscoverSockets()
	if err != nil || len(sockets) == 0 {
		return ""
	}
	return sockets[0]
}
