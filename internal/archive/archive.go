// Package archive persists a full run to disk and restores it. The only
// contract is the round-trip law: loading a saved run reproduces an
// equivalent run (same track ids, column values, category flags and
// settings). Two encodings are supported, chosen by file extension:
// human-readable JSON (.json) and compact msgpack (.mpk, .msgpack).
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pmctools/cyclotrack/internal/trackrun"
)

// ErrUnknownFormat indicates a file extension that maps to no encoding.
var ErrUnknownFormat = errors.New("archive: unknown format, want .json, .mpk or .msgpack")

// Save writes the run's complete state to path.
func Save(path string, run *trackrun.Run) error {
	data, err := encode(path, run.Snapshot())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Load reconstructs a run from a file written by Save.
func Load(path string) (*trackrun.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	snap := &trackrun.Snapshot{}
	if err := decode(path, data, snap); err != nil {
		return nil, err
	}
	run, err := trackrun.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("archive: %s: %w", path, err)
	}
	return run, nil
}

func encode(path string, snap *trackrun.Snapshot) ([]byte, error) {
	switch ext(path) {
	case ".json":
		return json.MarshalIndent(snap, "", "  ")
	case ".mpk", ".msgpack":
		return msgpack.Marshal(snap)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext(path))
}

func decode(path string, data []byte, snap *trackrun.Snapshot) error {
	switch ext(path) {
	case ".json":
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("archive: %s: %w", path, err)
		}
		return nil
	case ".mpk", ".msgpack":
		if err := msgpack.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("archive: %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, ext(path))
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
