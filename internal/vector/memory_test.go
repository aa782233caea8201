package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result should be a, got %s", results[0].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results should be ordered by descending score")
	}
}

func TestMemoryIndex_EmptySearch(t *testing.T) {
	idx, _ := NewMemoryIndex(4)
	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("empty index search should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	// Two identical vectors: ties must preserve insertion order.
	_ = idx.Add(ctx, []string{"first", "second"}, [][]float32{{1, 0}, {1, 0}})
	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "first" || results[1].ID != "second" {
		t.Errorf("tie-break order wrong: %s, %s", results[0].ID, results[1].ID)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	if err := idx.Add(context.Background(), []string{"x"}, [][]float32{{1, 0}}); err == nil {
		t.Error("adding a wrong-dimension vector should fail")
	}
}

func TestMemoryIndex_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors")
	ctx := context.Background()

	idx, _ := NewMemoryIndex(3)
	ids := []string{"a", "b", "c"}
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 3 {
		t.Fatalf("loaded Size=%d", loaded.Size())
	}
	// Every vector retrieves itself as top-1.
	for i, v := range vecs {
		results, err := loaded.Search(ctx, v, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].ID != ids[i] {
			t.Errorf("self-similarity top-1 for %s failed: %+v", ids[i], results)
		}
	}
}

func TestMemoryIndex_LoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors")
	idx, _ := NewMemoryIndex(3)
	_ = idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	other, _ := NewMemoryIndex(4)
	if err := other.Load(path); err == nil {
		t.Error("loading into wrong-dimension index should fail")
	}
}

func TestManifest_RoundTripAndModelCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors")
	m := &Manifest{
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     1536,
		ChunkSize:      500,
		ChunkOverlap:   50,
		ChunkCount:     42,
	}
	if err := SaveManifest(path, m); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.EmbeddingModel != m.EmbeddingModel || loaded.ChunkCount != 42 {
		t.Errorf("manifest round trip mismatch: %+v", loaded)
	}
	if err := loaded.CheckModel("text-embedding-3-small"); err != nil {
		t.Errorf("matching model should pass: %v", err)
	}
	if err := loaded.CheckModel("all-MiniLM-L6-v2"); err == nil {
		t.Error("mismatched model should fail")
	}
}
