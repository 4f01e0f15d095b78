package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// manifest persists the commit sequence number next to the index so it
// keeps increasing across invocations (and across reindex, which wipes
// the bleve directory but not the manifest).
type manifest struct {
	Seq uint64 `json:"seq"`
}

func loadManifest(path string) (*manifest, error) {
	m := &manifest{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		// A corrupt manifest only loses the sequence counter, not any
		// indexed data; start counting again.
		return &manifest{}, nil
	}
	return m, nil
}

func saveManifest(path string, m *manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write manifest tmp: %w", err)
	}
	return os.Rename(tmp, path)
}
