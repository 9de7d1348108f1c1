package index

import (
	"encoding/json"
	"os"

	"github.com/google/renameio"

	"github.com/Paranoid-AF/vctrace"
)

type snapshotFile struct {
	ContractVersion int             `json:"contract_version"`
	Dim             int             `json:"dim"`
	Entries         []snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	RequestID string    `json:"request_id"`
	Vector    []float32 `json:"vector"`
}

// SaveSnapshot writes every indexed trace vector to path as JSON. The file is
// replaced atomically, so an interrupted save leaves the previous snapshot.
func (idx *TraceIndex) SaveSnapshot(path string) error {
	idx.mu.RLock()
	entries := make([]snapshotEntry, 0, len(idx.vectors))
	for key, vec := range idx.vectors {
		entries = append(entries, snapshotEntry{RequestID: key, Vector: vec})
	}
	idx.mu.RUnlock()

	data, err := json.Marshal(snapshotFile{
		ContractVersion: vctrace.ContractVersion,
		Dim:             idx.dim,
		Entries:         entries,
	})
	if err != nil {
		return err
	}

	return renameio.WriteFile(path, data, 0644)
}

// LoadSnapshot adds the vectors saved in path to the index.
// A snapshot written for another contract version or dimension is silently skipped.
func (idx *TraceIndex) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var sf snapshotFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return err
	}

	if sf.ContractVersion != vctrace.ContractVersion || sf.Dim != idx.dim {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, e := range sf.Entries {
		if len(e.Vector) != idx.dim {
			continue
		}
		idx.vectors[e.RequestID] = e.Vector
	}
	idx.rebuild()
	return nil
}
