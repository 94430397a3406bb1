package state

// REPLMode is the active command grammar: monitor, BASIC (with an
// "atari" or "turbo" variant), or dos.
type REPLMode struct {
	Mode    string // "monitor", "basic", or "dos"
	Variant string // "atari" or "turbo" when Mode == "basic"; "" otherwise
}

var (
	Monitor    = REPLMode{Mode: "monitor"}
	BasicAtari = REPLMode{Mode: "basic", Variant: "atari"}
	BasicTurbo = REPLMode{Mode: "basic", Variant: "turbo"}
	DOS        = REPLMode{Mode: "dos"}
)

// replModeJSON is the wire shape: { mode, variant } with variant
// omitted/null outside basic mode.
type replModeJSON struct {
	Mode    string  `json:"mode"`
	Variant *string `json:"variant"`
}

func (r REPLMode) toJSON() replModeJSON {
	j := replModeJSON{Mode: r.Mode}
	if r.Variant != "" {
		v := r.Variant
		j.Variant = &v
	}
	return j
}

func (j replModeJSON) toMode() REPLMode {
	r := REPLMode{Mode: j.Mode}
	if j.Variant != nil {
		r.Variant = *j.Variant
	}
	return r
}

// String renders the round-trip textual form spec.md §4.6 describes:
// monitor, basic, basic:turbo, dos. (basic(atari) also renders as
// "basic" — atari is BASIC's default variant.)
func (r REPLMode) String() string {
	if r.Mode == "basic" && r.Variant == "turbo" {
		return "basic:turbo"
	}
	return r.Mode
}
