package ipc

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/attic/atticcore/internal/atticerr"
)

// EventHandler receives asynchronous notifications pushed by the server
// outside the request/response cycle.
type EventHandler func(Event)

// DisconnectHandler is invoked once when the connection is lost
// unexpectedly (not via an explicit Disconnect call).
type DisconnectHandler func(error)

// Client is a Unix domain socket client speaking the protocol in
// protocol.go. It is safe for concurrent use; Send may be called from
// multiple goroutines, though responses are matched to requests strictly
// in order (the server never pipelines out of order).
//
// Modeled on the teacher's atticprotocol.Client: a background reader
// goroutine demultiplexes response lines from EVENT lines, delivering
// the former to whichever Send call is currently waiting and the latter
// to an optional EventHandler.
type Client struct {
	mu            sync.Mutex
	conn          net.Conn
	connectedPath string
	connected     bool

	pending chan Response

	eventHandler      EventHandler
	disconnectHandler DisconnectHandler

	cancelReader context.CancelFunc
	readerDone   chan struct{}
}

// NewClient returns an unconnected Client.
func NewClient() *Client {
	return &Client{}
}

// SetEventHandler installs the callback for async EVENT lines.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandler = h
}

// SetDisconnectHandler installs the callback fired on unexpected disconnect.
func (c *Client) SetDisconnectHandler(h DisconnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectHandler = h
}

// IsConnected reports whether the client currently holds an open connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ConnectedPath returns the socket path of the active connection, or "".
func (c *Client) ConnectedPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedPath
}

// Connect dials path and performs the automatic ping/ok pong handshake
// spec.md §6 requires of the client library.
func (c *Client) Connect(path string) error {
	return c.ConnectWithContext(context.Background(), path)
}

// ConnectWithContext is Connect with a cancellable context for the dial.
func (c *Client) ConnectWithContext(ctx context.Context, path string) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return atticerr.New(atticerr.KindConnectionError, "already connected")
	}
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, ConnectionTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "unix", path)
	if err != nil {
		return atticerr.Wrap(atticerr.KindConnectionError, path, err)
	}

	readerCtx, cancelReader := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.connectedPath = path
	c.connected = true
	c.pending = make(chan Response, 1)
	c.cancelReader = cancelReader
	c.readerDone = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(readerCtx, bufio.NewReader(conn))

	pingCtx, pingCancel := context.WithTimeout(ctx, PingTimeout)
	defer pingCancel()
	resp, err := c.SendWithContext(pingCtx, "ping")
	if err != nil {
		c.Disconnect()
		return atticerr.Wrap(atticerr.KindConnectionError, path, err)
	}
	if !resp.OK || resp.Data != "pong" {
		c.Disconnect()
		return atticerr.New(atticerr.KindConnectionError, "server did not answer ping with pong")
	}
	return nil
}

// Disconnect closes the connection. Safe to call when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	if c.cancelReader != nil {
		c.cancelReader()
	}
	readerDone := c.readerDone
	c.mu.Unlock()

	if readerDone != nil {
		<-readerDone
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.pending != nil {
		select {
		case <-c.pending:
		default:
		}
		close(c.pending)
		c.pending = nil
	}
	c.connectedPath = ""
	c.cancelReader = nil
	c.readerDone = nil
	c.mu.Unlock()
}

// Send sends a command line and waits for its response, using the default
// ReadTimeout. Per spec.md, a timeout disconnects the client.
func (c *Client) Send(commandLine string) (Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ReadTimeout)
	defer cancel()
	return c.SendWithContext(ctx, commandLine)
}

// SendWithContext sends a command line honoring ctx for cancellation.
func (c *Client) SendWithContext(ctx context.Context, commandLine string) (Response, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return Response{}, atticerr.New(atticerr.KindConnectionError, "not connected")
	}
	conn := c.conn
	pending := c.pending
	c.mu.Unlock()

	if _, err := conn.Write([]byte(commandLine + "\n")); err != nil {
		return Response{}, atticerr.Wrap(atticerr.KindSocketError, commandLine, err)
	}

	select {
	case resp, ok := <-pending:
		if !ok {
			return Response{}, atticerr.New(atticerr.KindConnectionError, "disconnected")
		}
		return resp, nil
	case <-ctx.Done():
		c.Disconnect()
		return Response{}, atticerr.New(atticerr.KindTimeout, commandLine)
	}
}

func (c *Client) readLoop(ctx context.Context, reader *bufio.Reader) {
	defer func() {
		c.mu.Lock()
		if c.readerDone != nil {
			close(c.readerDone)
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

		line, err := reader.ReadString('\n')
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			c.handleDisconnect(err)
			return
		}
		c.processLine(line)
	}
}

func (c *Client) processLine(line string) {
	if ev, ok := ParseEvent(line); ok {
		c.mu.Lock()
		handler := c.eventHandler
		c.mu.Unlock()
		if handler != nil {
			handler(ev)
		}
		return
	}

	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending == nil {
		return
	}
	select {
	case pending <- ParseResponse(line):
	default:
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	handler := c.disconnectHandler
	pending := c.pending
	c.mu.Unlock()

	if pending != nil {
		select {
		case pending <- Response{}:
		default:
		}
	}
	if handler != nil {
		handler(err)
	}
}

// DiscoverAndConnect finds the most recently active server socket and
// connects to it.
func (c *Client) DiscoverAndConnect() error {
	return c.DiscoverAndConnectWithContext(context.Background())
}

// DiscoverAndConnectWithContext is DiscoverAndConnect with a context.
func (c *Client) DiscoverAndConnectWithContext(ctx context.Context) error {
	path := DiscoverSocket()
	if path == "" {
		return atticerr.New(atticerr.KindConnectionError, "no server socket found")
	}
	return c.ConnectWithContext(ctx, path)
}
