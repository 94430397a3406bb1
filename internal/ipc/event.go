package ipc

import (
	"fmt"
	"strconv"
	"strings"
)

// EventType distinguishes the handful of async notifications a server may
// push to connected clients outside the request/response cycle.
type EventType int

const (
	// EventBreakpoint reports a breakpoint hit, with the register state at
	// the stop.
	EventBreakpoint EventType = iota
	// EventStopped reports the emulator halting for a reason other than a
	// user breakpoint (e.g. a BRK instruction).
	EventStopped
)

// Event is an asynchronous notification, independent of any pending
// request. Clients that never call SetEventHandler simply never see these.
type Event struct {
	Type    EventType
	Address uint16
	A, X, Y uint8
	S, P    uint8
}

// NewBreakpointEvent builds a breakpoint-hit event with the register
// snapshot at the moment the breakpoint fired.
func NewBreakpointEvent(address uint16, a, x, y, s, p uint8) Event {
	return Event{Type: EventBreakpoint, Address: address, A: a, X: x, Y: y, S: s, P: p}
}

// NewStoppedEvent builds a bare "stopped at address" event.
func NewStoppedEvent(address uint16) Event {
	return Event{Type: EventStopped, Address: address}
}

// Format renders the event for transmission.
func (e Event) Format() string {
	switch e.Type {
	case EventBreakpoint:
		return fmt.Sprintf("%sbreakpoint $%04X A=$%02X X=$%02X Y=$%02X S=$%02X P=$%02X",
			EventPrefix, e.Address, e.A, e.X, e.Y, e.S, e.P)
	case EventStopped:
		return fmt.Sprintf("%sstopped $%04X", EventPrefix, e.Address)
	default:
		return EventPrefix + "unknown"
	}
}

// ParseEvent parses a line beginning with EventPrefix. ok is false if the
// line isn't an event line, or an event line this client doesn't recognize.
func ParseEvent(line string) (ev Event, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, EventPrefix) {
		return Event{}, false
	}
	body := trimmed[len(EventPrefix):]

	switch {
	case strings.HasPrefix(body, "breakpoint "):
		fields := strings.Fields(strings.TrimPrefix(body, "breakpoint "))
		if len(fields) != 6 {
			return Event{}, false
		}
		addr, err1 := parseHex(fields[0])
		a, err2 := parseRegField(fields[1], "A=")
		x, err3 := parseRegField(fields[2], "X=")
		y, err4 := parseRegField(fields[3], "Y=")
		s, err5 := parseRegField(fields[4], "S=")
		p, err6 := parseRegField(fields[5], "P=")
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
			return Event{}, false
		}
		return NewBreakpointEvent(addr, byte(a), byte(x), byte(y), byte(s), byte(p)), true
	case strings.HasPrefix(body, "stopped "):
		addr, err := parseHex(strings.TrimPrefix(body, "stopped "))
		if err != nil {
			return Event{}, false
		}
		return NewStoppedEvent(addr), true
	default:
		return Event{}, false
	}
}

func parseHex(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "$"), 16, 16)
	return uint16(v), err
}

func parseRegField(field, prefix string) (uint64, error) {
	value := strings.TrimPrefix(field, prefix)
	return strconv.ParseUint(strings.TrimPrefix(value, "$"), 16, 8)
}
