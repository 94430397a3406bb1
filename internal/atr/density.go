package atr

import "github.com/attic/atticcore/internal/atticerr"

// DiskType identifies one of the four standard Atari DOS 2.x sector
// geometries.
type DiskType int

const (
	SingleDensity DiskType = iota
	EnhancedDensity
	DoubleDensity
	QuadDensity
)

func (t DiskType) String() string {
	switch t {
	case SingleDensity:
		return "SS/SD"
	case EnhancedDensity:
		return "SS/ED"
	case DoubleDensity:
		return "SS/DD"
	case QuadDensity:
		return "SS/QD"
	default:
		return "unknown"
	}
}

// geometry describes a disk type's sector count and nominal sector size.
type geometry struct {
	sectorCount int
	sectorSize  uint16
}

var geometries = map[DiskType]geometry{
	SingleDensity:   {sectorCount: 720, sectorSize: 128},
	EnhancedDensity: {sectorCount: 1040, sectorSize: 128},
	DoubleDensity:   {sectorCount: 720, sectorSize: 256},
	QuadDensity:     {sectorCount: 1440, sectorSize: 256},
}

// dataAreaSize returns the number of data bytes a freshly created disk of
// type t occupies, accounting for the double-density short-boot-sector
// rule.
func dataAreaSize(t DiskType) int {
	g := geometries[t]
	size := 0
	for n := 1; n <= g.sectorCount; n++ {
		size += int(actualSectorSize(t, g, n))
	}
	return size
}

// actualSectorSize returns the real byte length of sector n (1-based) for
// disk type t: always the container sector size, except double density's
// sectors 1..3, which remain 128 bytes for boot-sector compatibility.
func actualSectorSize(t DiskType, g geometry, n int) uint16 {
	if t == DoubleDensity && n >= 1 && n <= 3 {
		return 128
	}
	return g.sectorSize
}

// sectorOffset returns the byte offset of sector n within the data area
// (i.e. relative to byte 16 of the file, past the header), for disk type t.
// Double density requires walking the short-boot-sector prefix; the other
// geometries are a flat multiplication.
func sectorOffset(t DiskType, g geometry, n int) int {
	if t != DoubleDensity || n <= 3 {
		if t == DoubleDensity {
			return (n - 1) * 128
		}
		return (n - 1) * int(g.sectorSize)
	}
	return 3*128 + (n-4)*int(g.sectorSize)
}

func diskTypeFromHeader(h Header, dataLen int) DiskType {
	switch {
	case h.SectorSize == 128 && dataLen == dataAreaSize(SingleDensity):
		return SingleDensity
	case h.SectorSize == 128 && dataLen == dataAreaSize(EnhancedDensity):
		return EnhancedDensity
	case h.SectorSize == 256 && dataLen == dataAreaSize(DoubleDensity):
		return DoubleDensity
	case h.SectorSize == 256 && dataLen == dataAreaSize(QuadDensity):
		return QuadDensity
	case h.SectorSize == 128:
		return SingleDensity
	default:
		return DoubleDensity
	}
}

func sectorCountFor(t DiskType) int {
	return geometries[t].sectorCount
}

func validateDiskType(t DiskType) error {
	if _, ok := geometries[t]; !ok {
		return atticerr.New(atticerr.KindInvalidSectorSize, "unknown disk type")
	}
	return nil
}
