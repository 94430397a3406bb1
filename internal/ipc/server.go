package ipc

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/attic/atticcore/internal/atticerr"
)

// Handler dispatches one parsed command line to whatever owns emulator
// state and returns the full reply line ("ok", "ok <data>", or
// "err <message>"). dispatch.Session satisfies this by its Dispatch method.
type Handler interface {
	Dispatch(line string) string
}

// Server listens on a Unix domain socket and speaks the line protocol
// documented in protocol.go, handing each received line to a Handler.
//
// Modeled on the teacher's mock CLI server (mockserver_test.go): an
// accept loop spawning one goroutine per connection, each reading lines
// with bufio.Scanner and writing the handler's reply back.
type Server struct {
	listener net.Listener
	path     string
	handler  Handler
	log      *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewServer creates the socket at path and returns a Server ready to Serve.
func NewServer(path string, handler Handler, log *slog.Logger) (*Server, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, atticerr.Wrap(atticerr.KindSocketError, path, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		listener: listener,
		path:     path,
		handler:  handler,
		log:      log,
		conns:    make(map[net.Conn]struct{}),
		closed:   make(chan struct{}),
	}, nil
}

// Path returns the socket path this server is bound to.
func (s *Server) Path() string { return s.path }

// Serve accepts connections until Shutdown is called, returning nil in
// that case. Any other Accept failure is returned to the caller.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
				return atticerr.Wrap(atticerr.KindSocketError, s.path, err)
			}
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), MaxLineLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply := s.handler.Dispatch(line)
		if _, err := fmt.Fprintf(conn, "%s\n", reply); err != nil {
			s.log.Warn("write to client failed", "path", s.path, "err", err)
			return
		}

		word, _, _ := strings.Cut(line, " ")
		switch strings.ToLower(word) {
		case "quit":
			return
		case "shutdown":
			s.log.Info("shutdown requested", "path", s.path)
			go s.Shutdown()
			return
		}
	}
}

// Broadcast sends an event line to every currently connected client,
// best-effort: a write failure to one client does not affect the others.
func (s *Server) Broadcast(event Event) {
	line := []byte(event.Format() + "\n")
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if _, err := conn.Write(line); err != nil {
			s.log.Warn("event broadcast failed", "err", err)
		}
	}
}

// Shutdown closes the listener and every open connection, then removes the
// socket file. Safe to call more than once or concurrently.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.listener.Close()

		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
		os.Remove(s.path)
	})
}
