package atr

// sectorLink is the 3-byte trailer every data sector carries, linking it
// to the next sector in a file's chain (or terminating the chain when
// NextSector == 0).
type sectorLink struct {
	FileID      int // low 6 bits of the directory index, per the 128-byte format
	NextSector  int
	BytesInSector int // only meaningful on the last sector (NextSector == 0)
}

// decodeSectorLink unpacks the trailing 3 bytes of a sector, which sit at
// the end of the sector's actual byte range. sectorSize is the sector's
// *actual* size (128 for double-density sectors 1-3, the nominal size
// otherwise), since the two formats differ.
//
// The 256-byte format keeps the file id to 6 bits (the directory only ever
// holds 64 slots) and the next-sector high bits in trailer[0]'s top 2 bits,
// the same split the 128-byte format uses for trailer[0] — freeing all of
// trailer[2] for a full 0-255 byte count. A 2-bit-next-hi/6-bit-count split
// of trailer[2] (mirroring the 128-byte layout byte-for-byte) can only
// express byte counts 0-63, which is not enough for a 253-byte data sector
// and silently corrupts any file whose last sector holds more than 63
// bytes; this layout avoids that.
func decodeSectorLink(trailer [3]byte, sectorSize uint16) sectorLink {
	if sectorSize == 128 {
		return sectorLink{
			FileID:        int(trailer[0] >> 2),
			NextSector:    (int(trailer[0]&0x03) << 8) | int(trailer[1]),
			BytesInSector: int(trailer[2]),
		}
	}
	return sectorLink{
		FileID:        int(trailer[0] & 0x3F),
		NextSector:    (int(trailer[0]>>6) << 8) | int(trailer[1]),
		BytesInSector: int(trailer[2]),
	}
}

func encodeSectorLink(l sectorLink, sectorSize uint16) [3]byte {
	if sectorSize == 128 {
		return [3]byte{
			byte(l.FileID<<2) | byte((l.NextSector>>8)&0x03),
			byte(l.NextSector),
			byte(l.BytesInSector),
		}
	}
	return [3]byte{
		byte(l.FileID&0x3F) | byte((l.NextSector>>8)&0x03)<<6,
		byte(l.NextSector),
		byte(l.BytesInSector),
	}
}

// bytesPerDataSector is the payload capacity of a sector of the given
// actual size once the 3-byte link trailer is removed.
func bytesPerDataSector(actualSize uint16) int {
	return int(actualSize) - 3
}
