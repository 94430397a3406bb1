package state

// EmulatorState is the opaque machine-state blob StateFile wraps: a
// typed tags record the EmulationCore uses to locate its own sections
// within Data, a small flags record, and the raw bytes themselves.
type EmulatorState struct {
	Tags  StateTags
	Flags EmulatorFlags
	Data  []byte
}

// StateTags are the 8 u32 section offsets/sizes the EmulationCore
// provides and consumes; atticcore itself never interprets them beyond
// Tags.Size, which bounds Data's length.
type StateTags struct {
	Size    uint32
	CPU     uint32
	PC      uint32
	BaseRAM uint32
	Antic   uint32
	GTIA    uint32
	PIA     uint32
	Pokey   uint32
}

// EmulatorFlags is EmulatorState's small fixed flags record (distinct
// from the file-level StateFileFlags bitfield).
type EmulatorFlags struct {
	FrameCount       uint32
	SelfTestEnabled  bool
}

const (
	tagsSize  = 32 // 8 x uint32 LE
	flagsSize = 5  // uint32 LE + 1 byte
)

func encodeTags(t StateTags) []byte {
	buf := make([]byte, tagsSize)
	putU32 := func(off int, v uint32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	putU32(0, t.Size)
	putU32(4, t.CPU)
	putU32(8, t.PC)
	putU32(12, t.BaseRAM)
	putU32(16, t.Antic)
	putU32(20, t.GTIA)
	putU32(24, t.PIA)
	putU32(28, t.Pokey)
	return buf
}

func decodeTags(buf []byte) StateTags {
	getU32 := func(off int) uint32 {
		return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	}
	return StateTags{
		Size:    getU32(0),
		CPU:     getU32(4),
		PC:      getU32(8),
		BaseRAM: getU32(12),
		Antic:   getU32(16),
		GTIA:    getU32(20),
		PIA:     getU32(24),
		Pokey:   getU32(28),
	}
}

func encodeFlags(f EmulatorFlags) []byte {
	buf := make([]byte, flagsSize)
	buf[0] = byte(f.FrameCount)
	buf[1] = byte(f.FrameCount >> 8)
	buf[2] = byte(f.FrameCount >> 16)
	buf[3] = byte(f.FrameCount >> 24)
	if f.SelfTestEnabled {
		buf[4] = 1
	}
	return buf
}

func decodeFlags(buf []byte) EmulatorFlags {
	frameCount := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return EmulatorFlags{FrameCount: frameCount, SelfTestEnabled: buf[4] != 0}
}
