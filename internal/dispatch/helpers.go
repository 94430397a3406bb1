package dispatch

import (
	"strconv"
	"strings"

	"github.com/attic/atticcore/internal/atr"
	"github.com/attic/atticcore/internal/atticerr"
)

// parseAddress accepts $XXXX, 0xXXXX, or decimal, matching the wire
// protocol's "hex (with or without $) or decimal" rule (spec.md §6).
func parseAddress(s string) (uint16, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "$"):
		v, err := strconv.ParseUint(s[1:], 16, 16)
		return uint16(v), err == nil
	case strings.HasPrefix(strings.ToLower(s), "0x"):
		v, err := strconv.ParseUint(s[2:], 16, 16)
		return uint16(v), err == nil
	default:
		v, err := strconv.ParseUint(s, 10, 16)
		return uint16(v), err == nil
	}
}

func parseDataBytes(s string) ([]byte, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, false
	}
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(strings.TrimSpace(f), "$")
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, false
		}
		out = append(out, byte(v))
	}
	return out, true
}

func parseDrive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 8 {
		return 0, atticerr.New(atticerr.KindInvalidDrive, s)
	}
	return n, nil
}

var diskTypeTokens = map[string]atr.DiskType{
	"ss/sd": atr.SingleDensity,
	"ss/ed": atr.EnhancedDensity,
	"ss/dd": atr.DoubleDensity,
}

func parseDiskType(s string) (atr.DiskType, error) {
	t, ok := diskTypeTokens[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, atticerr.New(atticerr.KindInvalidCommand, s)
	}
	return t, nil
}

var validRegisterNames = map[string]bool{
	"A": true, "X": true, "Y": true, "S": true, "P": true, "PC": true,
}

// parseRegisterMods parses "NAME=$VALUE NAME=$VALUE ..."; PC accepts a
// 16-bit value, every other register an 8-bit value.
func parseRegisterMods(args string) ([]RegisterMod, error) {
	var mods []RegisterMod
	for _, tok := range strings.Fields(args) {
		parts := strings.SplitN(tok, "=", 2)
		if len(parts) != 2 {
			return nil, atticerr.New(atticerr.KindInvalidCommand, tok)
		}
		name := strings.ToUpper(parts[0])
		if !validRegisterNames[name] {
			return nil, atticerr.New(atticerr.KindInvalidCommand, tok)
		}
		value, ok := parseAddress(parts[1])
		if !ok {
			return nil, atticerr.New(atticerr.KindInvalidCommand, tok)
		}
		if name != "PC" && value > 0xFF {
			return nil, atticerr.New(atticerr.KindInvalidCommand, tok)
		}
		mods = append(mods, RegisterMod{Name: name, Value: value})
	}
	return mods, nil
}

// expandPath expands a leading "~/" against the user's home directory
// before the value is placed on the Command, per spec.md §4.6.
func expandPath(expander func(string) (string, error), path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	return expander(path)
}

