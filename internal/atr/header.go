// Package atr implements the typed binary container for Atari DOS 2.x disk
// images (.atr files) and the VTOC/directory/sector-link filesystem layered
// on top of them.
package atr

import (
	"encoding/binary"

	"github.com/attic/atticcore/internal/atticerr"
)

// headerMagic is the two fixed bytes every ATR file begins with.
var headerMagic = [2]byte{0x96, 0x02}

// HeaderSize is the fixed length of an ATR header.
const HeaderSize = 16

// Header is the first 16 bytes of an ATR file.
type Header struct {
	Paragraphs uint32 // 24-bit value: data-area size in 16-byte paragraphs
	SectorSize uint16 // 128 or 256
	reserved   [9]byte // bytes 7..15, carried through parse/encode verbatim
}

// Validation selects how strictly parseHeader checks the declared data size
// against the bytes actually present.
type Validation int

const (
	Strict Validation = iota
	Lenient
)

// parseHeader reads and validates the 16-byte ATR header from buf[:16].
// It does not check buf's total length against the declared data size;
// callers combine this with the data-area length check in parse.
func parseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, atticerr.New(atticerr.KindHeaderTooShort, "want 16 bytes")
	}
	if buf[0] != headerMagic[0] || buf[1] != headerMagic[1] {
		return Header{}, atticerr.New(atticerr.KindInvalidMagic, "first two bytes are not 0x96 0x02")
	}
	paragraphsLo := binary.LittleEndian.Uint16(buf[2:4])
	paragraphsHi := buf[6]
	paragraphs := uint32(paragraphsHi)<<16 | uint32(paragraphsLo)
	sectorSize := binary.LittleEndian.Uint16(buf[4:6])
	if sectorSize != 128 && sectorSize != 256 {
		return Header{}, atticerr.OutOfRange("sector size", int64(sectorSize), 128, 256)
	}
	var reserved [9]byte
	copy(reserved[:], buf[7:16])
	return Header{Paragraphs: paragraphs, SectorSize: sectorSize, reserved: reserved}, nil
}

// encode renders h back to its 16-byte on-disk form. Bytes 7..15 (the
// unused tail of the header) are carried through verbatim from whatever
// was parsed, not zeroed.
func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1] = headerMagic[0], headerMagic[1]
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.Paragraphs&0xFFFF))
	binary.LittleEndian.PutUint16(buf[4:6], h.SectorSize)
	buf[6] = byte(h.Paragraphs >> 16)
	copy(buf[7:16], h.reserved[:])
	return buf
}

// dataSize returns the declared size of the data area in bytes.
func (h Header) dataSize() int64 {
	return int64(h.Paragraphs) * 16
}

// headerFor builds the Header fields matching a disk's total data-area size
// and sector size, encoding paragraphs as size/16.
func headerFor(dataBytes int, sectorSize uint16) Header {
	return Header{Paragraphs: uint32(dataBytes / 16), SectorSize: sectorSize}
}
