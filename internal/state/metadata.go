package state

import (
	"encoding/json"

	"github.com/attic/atticcore/internal/atticerr"
)

// MountedDisk is one entry of StateMetadata.mounted_disks.
type MountedDisk struct {
	Drive    int    `json:"drive"`
	Path     string `json:"path"`
	DiskType string `json:"disk_type"`
	ReadOnly bool   `json:"read_only"`
}

// Metadata is the JSON-serialized header section of a .attic file.
type Metadata struct {
	Timestamp    string        `json:"timestamp"` // ISO-8601 UTC, millisecond precision
	REPLMode     REPLMode      `json:"-"`
	MountedDisks []MountedDisk `json:"mounted_disks"`
	Note         string        `json:"note,omitempty"`
	AppVersion   string        `json:"app_version"`
}

// metadataJSON is Metadata's actual on-the-wire shape; REPLMode needs its
// own nested {mode, variant} object rather than Metadata's Go field name.
type metadataJSON struct {
	Timestamp    string        `json:"timestamp"`
	REPLMode     replModeJSON  `json:"repl_mode"`
	MountedDisks []MountedDisk `json:"mounted_disks"`
	Note         string        `json:"note,omitempty"`
	AppVersion   string        `json:"app_version"`
}

func (m Metadata) marshal() ([]byte, error) {
	wire := metadataJSON{
		Timestamp:    m.Timestamp,
		REPLMode:     m.REPLMode.toJSON(),
		MountedDisks: m.MountedDisks,
		Note:         m.Note,
		AppVersion:   m.AppVersion,
	}
	if wire.MountedDisks == nil {
		wire.MountedDisks = []MountedDisk{}
	}
	return json.Marshal(wire)
}

func unmarshalMetadata(data []byte) (Metadata, error) {
	var wire metadataJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return Metadata{}, atticerr.Wrap(atticerr.KindInvalidMetadata, "malformed JSON", err)
	}
	if wire.Timestamp == "" || wire.REPLMode.Mode == "" || wire.AppVersion == "" {
		return Metadata{}, atticerr.New(atticerr.KindInvalidMetadata, "missing required field")
	}
	return Metadata{
		Timestamp:    wire.Timestamp,
		REPLMode:     wire.REPLMode.toMode(),
		MountedDisks: wire.MountedDisks,
		Note:         wire.Note,
		AppVersion:   wire.AppVersion,
	}, nil
}
