package storage

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// EncodeYAML writes the snapshot as a YAML document.
func EncodeYAML(w io.Writer, snap *Snapshot) error {
	snap.Normalize()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode yaml snapshot: %w", err)
	}
	return enc.Close()
}

// DecodeYAML reads a snapshot from a YAML document. An empty document
// yields an empty snapshot.
func DecodeYAML(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		if err == io.EOF {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("decode yaml snapshot: %w", err)
	}
	return &snap, nil
}

// ReadYAMLFile decodes the snapshot stored at path.
func ReadYAMLFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeYAML(f)
}
