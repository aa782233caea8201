package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrModelMismatch is returned when a query-time embedding model id differs
// from the one recorded in the persisted index manifest. Similarity scores
// across different embedding models are meaningless, so this is fatal for the
// query rather than silently computed.
var ErrModelMismatch = errors.New("embedding model does not match index manifest")

// Manifest records what a persisted index was built with. It is written next
// to the vector file and checked on load and at query time.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	ChunkCount     int       `json:"chunk_count"`
	BuiltAt        time.Time `json:"built_at"`
}

// ManifestPath returns the manifest path for a given vector index path.
func ManifestPath(indexPath string) string {
	return indexPath + ".manifest.json"
}

// CheckModel returns ErrModelMismatch (wrapped with both ids) when modelID
// differs from the manifest's recorded embedding model.
func (m *Manifest) CheckModel(modelID string) error {
	if m.EmbeddingModel != modelID {
		return fmt.Errorf("index built with %q, query uses %q: %w", m.EmbeddingModel, modelID, ErrModelMismatch)
	}
	return nil
}

// SaveManifest writes the manifest for indexPath via temp file and atomic rename.
func SaveManifest(indexPath string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := ManifestPath(indexPath)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("swap manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest for indexPath.
func LoadManifest(indexPath string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(indexPath))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
