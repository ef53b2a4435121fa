package lookup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadJSON reads a mapping-table snapshot from a JSON array of records.
func LoadJSON(r io.Reader) (*Table, error) {
	var records []*Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding mapping table: %w", err)
	}
	return NewTable(records), nil
}

// LoadFile reads a mapping-table snapshot from a JSON file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping table: %w", err)
	}
	defer f.Close()
	return LoadJSON(f)
}
