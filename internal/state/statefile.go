// Package state implements the version-2 .attic state container: a
// small binary header, a JSON metadata block, and an opaque emulator
// state blob, all written atomically so a half-written file can never
// replace a good one.
package state

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/attic/atticcore/internal/atticerr"
)

const (
	magic          = "ATTC"
	currentVersion = 0x02

	offMagic     = 0
	offVersion   = 4
	offFlags     = 5
	offReserved  = 6
	reservedSize = 10
	offMetaLen   = 16
	offMetaJSON  = 20

	minHeaderSize = offMetaJSON // 20: everything through the metadata length field
)

// StateFileFlags is the file-level bitfield at offset 0x05, distinct
// from EmulatorState.Flags.
type StateFileFlags struct {
	WasPaused       bool // bit 0
	HasBasicProgram bool // bit 1
}

func (f StateFileFlags) encode() byte {
	var b byte
	if f.WasPaused {
		b |= 1 << 0
	}
	if f.HasBasicProgram {
		b |= 1 << 1
	}
	return b
}

func decodeStateFileFlags(b byte) StateFileFlags {
	return StateFileFlags{
		WasPaused:       b&(1<<0) != 0,
		HasBasicProgram: b&(1<<1) != 0,
	}
}

// Write renders metadata, fileFlags and emu into the version-2 container
// format and atomically replaces path with the result: it writes to a
// temp file in path's directory, fsyncs it, then renames over path.
func Write(path string, metadata Metadata, fileFlags StateFileFlags, emu EmulatorState) error {
	metaBytes, err := metadata.marshal()
	if err != nil {
		return err
	}

	buf := make([]byte, 0, offMetaJSON+len(metaBytes)+tagsSize+flagsSize+len(emu.Data))
	buf = append(buf, magic...)
	buf = append(buf, currentVersion)
	buf = append(buf, fileFlags.encode())
	buf = append(buf, make([]byte, reservedSize)...)

	var lenField [4]byte
	binary.LittleEndian.PutUint32(lenField[:], uint32(len(metaBytes)))
	buf = append(buf, lenField[:]...)

	buf = append(buf, metaBytes...)
	buf = append(buf, encodeTags(emu.Tags)...)
	buf = append(buf, encodeFlags(emu.Flags)...)
	buf = append(buf, emu.Data...)

	return atomicWrite(path, buf)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".attic-tmp-*")
	if err != nil {
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return atticerr.Wrap(atticerr.KindWriteFailed, path, err)
	}
	return nil
}

// Read parses path in full: header, metadata, and emulator state body.
func Read(path string) (Metadata, EmulatorState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, EmulatorState{}, atticerr.Wrap(atticerr.KindReadFailed, path, err)
	}
	return parse(path, raw, true)
}

// ReadMetadata parses only path's header and metadata block, stopping
// before the (potentially large) emulator state body.
func ReadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, atticerr.Wrap(atticerr.KindReadFailed, path, err)
	}
	meta, _, err := parse(path, raw, false)
	return meta, err
}

func parse(path string, raw []byte, withBody bool) (Metadata, EmulatorState, error) {
	if len(raw) < minHeaderSize {
		return Metadata{}, EmulatorState{}, atticerr.Wrap(atticerr.KindTruncatedFile, path,
			fmt.Errorf("expected at least %d header bytes, got %d", minHeaderSize, len(raw)))
	}
	if string(raw[offMagic:offMagic+4]) != magic {
		return Metadata{}, EmulatorState{}, atticerr.New(atticerr.KindInvalidMagic, path)
	}
	version := raw[offVersion]
	if version != currentVersion {
		return Metadata{}, EmulatorState{}, atticerr.New(atticerr.KindUnsupportedVersion,
			fmt.Sprintf("%s: version %d", path, version))
	}
	_ = decodeStateFileFlags(raw[offFlags]) // file-level flags, not yet consumed by callers

	metaLen := binary.LittleEndian.Uint32(raw[offMetaLen : offMetaLen+4])
	metaEnd := offMetaJSON + int(metaLen)
	if metaEnd > len(raw) {
		return Metadata{}, EmulatorState{}, atticerr.Wrap(atticerr.KindTruncatedFile, path,
			fmt.Errorf("metadata declares %d bytes, only %d remain", metaLen, len(raw)-offMetaJSON))
	}

	metadata, err := unmarshalMetadata(raw[offMetaJSON:metaEnd])
	if err != nil {
		return Metadata{}, EmulatorState{}, err
	}

	if !withBody {
		return metadata, EmulatorState{}, nil
	}

	bodyStart := metaEnd
	needed := bodyStart + tagsSize + flagsSize
	if needed > len(raw) {
		return Metadata{}, EmulatorState{}, atticerr.Wrap(atticerr.KindTruncatedFile, path,
			fmt.Errorf("expected %d bytes for emulator state tags/flags, got %d", needed-bodyStart, len(raw)-bodyStart))
	}

	tags := decodeTags(raw[bodyStart : bodyStart+tagsSize])
	flags := decodeFlags(raw[bodyStart+tagsSize : bodyStart+tagsSize+flagsSize])

	dataStart := bodyStart + tagsSize + flagsSize
	dataBytes := raw[dataStart:]
	if tags.Size != 0 && uint32(len(dataBytes)) < tags.Size {
		return Metadata{}, EmulatorState{}, atticerr.Wrap(atticerr.KindTruncatedFile, path,
			fmt.Errorf("tags.size declares %d data bytes, only %d remain", tags.Size, len(dataBytes)))
	}
	if tags.Size != 0 {
		dataBytes = dataBytes[:tags.Size]
	}

	data := make([]byte, len(dataBytes))
	copy(data, dataBytes)

	return metadata, EmulatorState{Tags: tags, Flags: flags, Data: data}, nil
}
