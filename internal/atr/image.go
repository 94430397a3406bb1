package atr

import (
	"fmt"
	"os"

	"github.com/attic/atticcore/internal/atticerr"
)

// Image owns a mutable byte buffer plus its header, the path it was loaded
// from or will be saved to, a dirty flag, and a read-only flag. Sector
// numbers throughout this package are 1-based.
type Image struct {
	header   Header
	diskType DiskType
	geo      geometry
	data     []byte
	path     string
	dirty    bool
	readOnly bool
}

// Parse reads buf as a complete ATR file (header + data area), validating
// according to v. In Lenient mode a short data area is zero-padded up to
// the declared size rather than failing SizeMismatch.
func Parse(buf []byte, v Validation) (*Image, error) {
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	data := buf[HeaderSize:]
	want := int(h.dataSize())
	if len(data) != want {
		if v == Strict {
			return nil, &atticerr.Error{Kind: atticerr.KindSizeMismatch, Subject: fmt.Sprintf("expected %d, got %d", want, len(data))}
		}
		padded := make([]byte, want)
		copy(padded, data)
		data = padded
	}
	dt := diskTypeFromHeader(h, len(data))
	return &Image{
		header:   h,
		diskType: dt,
		geo:      geometries[dt],
		data:     data,
	}, nil
}

// ParseFile reads path and parses it in strict mode.
func ParseFile(path string) (*Image, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, atticerr.Wrap(atticerr.KindReadFailed, path, err)
	}
	img, err := Parse(buf, Strict)
	if err != nil {
		return nil, err
	}
	img.path = path
	return img, nil
}

// Create builds a new, zero-initialized image of the given type at path.
// QuadDensity cannot be created (it is supported read-only): create fails
// KindUnsupportedDensity.
func Create(path string, t DiskType, readOnly bool) (*Image, error) {
	if t == QuadDensity {
		return nil, atticerr.New(atticerr.KindUnsupportedDensity, t.String())
	}
	g := geometries[t]
	img := &Image{
		header:   headerFor(dataAreaSize(t), g.sectorSize),
		diskType: t,
		geo:      g,
		data:     make([]byte, dataAreaSize(t)),
		path:     path,
		readOnly: readOnly,
		dirty:    true,
	}
	return img, nil
}

// CreateFormatted creates a new image of type t and additionally
// initializes its VTOC and a zeroed directory, ready for file operations.
func CreateFormatted(path string, t DiskType) (*Image, error) {
	img, err := Create(path, t, false)
	if err != nil {
		return nil, err
	}
	img.initializeFilesystem()
	return img, nil
}

// DiskType reports the geometry this image was parsed or created as.
func (img *Image) DiskType() DiskType { return img.diskType }

// SectorCount reports the total number of addressable sectors.
func (img *Image) SectorCount() int { return img.geo.sectorCount }

// SectorSize returns the image's nominal (container) sector size.
func (img *Image) SectorSize() uint16 { return img.header.SectorSize }

// ActualSectorSize returns the real byte length of sector n, honoring the
// double-density short-boot-sector rule.
func (img *Image) ActualSectorSize(n int) uint16 {
	return actualSectorSize(img.diskType, img.geo, n)
}

// Info summarizes an image's volume-level state for DiskManager's
// get_info/DriveInfo reporting.
type Info struct {
	DiskType    DiskType
	SectorCount int
	SectorSize  uint16
	FreeSectors int
	ReadOnly    bool
}

// Info returns a snapshot of the image's volume-level state.
func (img *Image) Info() Info {
	return Info{
		DiskType:    img.diskType,
		SectorCount: img.geo.sectorCount,
		SectorSize:  img.header.SectorSize,
		FreeSectors: img.readVTOC().countFreeSectors(),
		ReadOnly:    img.readOnly,
	}
}

// IsReadOnly reports whether writes are rejected.
func (img *Image) IsReadOnly() bool { return img.readOnly }

// IsDirty reports whether the image has unsaved modifications.
func (img *Image) IsDirty() bool { return img.dirty }

// Path returns the image's backing file path, if any.
func (img *Image) Path() string { return img.path }

func (img *Image) checkSectorRange(n int) error {
	if n < 1 || n > img.geo.sectorCount {
		return &atticerr.Error{Kind: atticerr.KindSectorOutOfRange, Subject: fmt.Sprintf("%d", n), Value: int64(n), Lo: 1, Hi: int64(img.geo.sectorCount)}
	}
	return nil
}

func (img *Image) sectorBounds(n int) (int, int) {
	off := sectorOffset(img.diskType, img.geo, n)
	sz := int(img.ActualSectorSize(n))
	return off, off + sz
}

// ReadSector returns a copy of sector n's bytes.
func (img *Image) ReadSector(n int) ([]byte, error) {
	if err := img.checkSectorRange(n); err != nil {
		return nil, err
	}
	start, end := img.sectorBounds(n)
	out := make([]byte, end-start)
	copy(out, img.data[start:end])
	return out, nil
}

// WriteSector overwrites sector n with bytes, which must match
// ActualSectorSize(n) exactly. Marks the image dirty on success.
func (img *Image) WriteSector(n int, bytes []byte) error {
	if img.readOnly {
		return atticerr.New(atticerr.KindReadOnly, fmt.Sprintf("sector %d", n))
	}
	if err := img.checkSectorRange(n); err != nil {
		return err
	}
	want := int(img.ActualSectorSize(n))
	if len(bytes) != want {
		return &atticerr.Error{Kind: atticerr.KindSectorSizeMismatch, Subject: fmt.Sprintf("sector %d: want %d, got %d", n, want, len(bytes))}
	}
	start, _ := img.sectorBounds(n)
	copy(img.data[start:start+want], bytes)
	img.dirty = true
	return nil
}

// Bytes renders the complete on-disk form (header + data area) without
// touching the filesystem, for callers that persist through their own
// abstraction (e.g. disk.Manager's hostfs.FS) rather than img.Save.
func (img *Image) Bytes() []byte {
	buf := make([]byte, 0, HeaderSize+len(img.data))
	buf = append(buf, img.header.encode()...)
	buf = append(buf, img.data...)
	return buf
}

// MarkSaved clears the dirty flag and records path as the backing file,
// for callers that wrote img.Bytes() through their own filesystem
// abstraction.
func (img *Image) MarkSaved(path string) {
	img.path = path
	img.dirty = false
}

// Save flushes the buffer to img.Path(), clearing the dirty flag. A clean
// image performs no I/O (save is idempotent).
func (img *Image) Save() error {
	if !img.dirty {
		return nil
	}
	return img.SaveAs(img.path)
}

// SaveAs writes the image to path (updating img.Path()) and clears the
// dirty flag.
func (img *Image) SaveAs(path string) error {
	buf := make([]byte, 0, HeaderSize+len(img.data))
	buf = append(buf, img.header.encode()...)
	buf = append(buf, img.data...)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	img.path = path
	img.dirty = false
	return nil
}

// Checksum is a simple additive checksum over the data area. Validate
// does not use it.
func (img *Image) Checksum() uint32 {
	var sum uint32
	for _, b := range img.data {
		sum += uint32(b)
	}
	return sum
}
