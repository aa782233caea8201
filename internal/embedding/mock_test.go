package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/medintel/medrag/internal/vector"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	a, err := e.Embed(ctx, "vitamin d deficiency")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "vitamin d deficiency")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should produce identical embeddings")
		}
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	e := NewMockEmbedder(128)
	emb, err := e.Embed(context.Background(), "diabetes symptoms include thirst")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", sum)
	}
}

func TestMockEmbedder_RelatedTextsScoreHigher(t *testing.T) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	query, _ := e.Embed(ctx, "What causes fatigue related to vitamins?")
	docA, _ := e.Embed(ctx, "Vitamin D deficiency causes fatigue and bone pain.")
	docB, _ := e.Embed(ctx, "Diabetes symptoms include thirst and frequent urination.")

	simA := vector.CosineSimilarity(query, docA)
	simB := vector.CosineSimilarity(query, docB)
	if simA <= simB {
		t.Errorf("related text should score higher: simA=%f simB=%f", simA, simB)
	}
	if simA < 0.3 {
		t.Errorf("related text should clear the default similarity floor, got %f", simA)
	}
}

func TestMockEmbedder_EmptyText(t *testing.T) {
	e := NewMockEmbedder(64)
	emb, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Error("empty text should still produce a unit vector")
	}
}

func TestMockEmbedder_BatchPreservesOrder(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(batch))
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		if vector.CosineSimilarity(batch[i], single) < 0.999 {
			t.Errorf("batch order not preserved at %d", i)
		}
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestIsTransient(t *testing.T) {
	te := &TransientError{Err: context.DeadlineExceeded}
	if !IsTransient(te) {
		t.Error("TransientError should be transient")
	}
	if IsTransient(context.Canceled) {
		t.Error("plain error should not be transient")
	}
}
