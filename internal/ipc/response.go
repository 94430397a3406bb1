package ipc

import "strings"

// Response is a parsed reply line: either "ok"/"ok <data>" or "err <message>".
type Response struct {
	OK   bool
	Data string
}

// String renders the response back to wire form.
func (r Response) String() string {
	if r.OK {
		if r.Data == "" {
			return "ok"
		}
		return "ok " + r.Data
	}
	return "err " + r.Data
}

// ParseResponse parses one reply line. A line matching neither "ok" nor
// "err" prefix is reported as an error response rather than discarded, so
// callers always get a definite answer.
func ParseResponse(line string) Response {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "ok":
		return Response{OK: true}
	case strings.HasPrefix(trimmed, "ok "):
		return Response{OK: true, Data: trimmed[len("ok "):]}
	case strings.HasPrefix(trimmed, "err "):
		return Response{OK: false, Data: trimmed[len("err "):]}
	case trimmed == "err":
		return Response{OK: false}
	default:
		return Response{OK: false, Data: "malformed response: " + trimmed}
	}
}
