package ingest

import (
	"strings"
	"testing"

	"github.com/medintel/medrag/internal/models"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(500, 50)
	chunks := c.Chunk("doc1", "short medical note")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "short medical note" {
		t.Errorf("content changed: %q", chunks[0].Content)
	}
	if chunks[0].ID != "doc1_chunk_0" {
		t.Errorf("unexpected chunk id: %s", chunks[0].ID)
	}
}

func TestChunker_OverlapAndCoverage(t *testing.T) {
	c := NewChunker(10, 3)
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := c.Chunk("d", text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Every character of the input must appear in at least one chunk.
	joined := strings.Join(chunkContents(chunks), "")
	for _, r := range text {
		if !strings.ContainsRune(joined, r) {
			t.Errorf("character %q lost during chunking", r)
		}
	}
	// Consecutive chunks share the overlap region.
	first, second := chunks[0].Content, chunks[1].Content
	if !strings.HasPrefix(second, first[len(first)-3:]) {
		t.Errorf("expected 3-char overlap between %q and %q", first, second)
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(10, 3)
	text := "the quick brown fox jumps over the lazy dog"
	a := c.Chunk("d", text)
	b := c.Chunk("d", text)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Content != b[i].Content {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_EmptyAndWhitespace(t *testing.T) {
	c := NewChunker(10, 3)
	if got := c.Chunk("d", ""); len(got) != 0 {
		t.Errorf("empty text should produce no chunks, got %d", len(got))
	}
	if got := c.Chunk("d", "   \n\t  "); len(got) != 0 {
		t.Errorf("whitespace text should produce no chunks, got %d", len(got))
	}
}

func TestChunker_MidDocumentWhitespaceKept(t *testing.T) {
	c := NewChunker(10, 3)
	// The whitespace run is longer than the window step, so whole windows
	// fall inside it. They must survive or the reconstruction loses bytes.
	text := "abcdefghij" + strings.Repeat(" ", 25) + "klmnopqrst"
	chunks := c.Chunk("d", text)
	if got := reconstruct(chunks, 10, 3); got != text {
		t.Errorf("coverage broken:\n got %q\nwant %q", got, text)
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.ChunkIndex)
		}
	}
}

func TestChunker_TrailingWhitespaceRemainderDropped(t *testing.T) {
	c := NewChunker(10, 3)
	text := "abcdefghijklmn" + strings.Repeat(" ", 30)
	chunks := c.Chunk("d", text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	last := chunks[len(chunks)-1].Content
	if strings.TrimSpace(last) == "" {
		t.Errorf("trailing whitespace-only chunk not dropped: %q", last)
	}
	got := reconstruct(chunks, 10, 3)
	if !strings.HasPrefix(text, got) {
		t.Errorf("kept chunks do not reconstruct a prefix of the text: %q", got)
	}
	if strings.TrimRight(got, " ") != strings.TrimRight(text, " ") {
		t.Errorf("non-whitespace content lost: %q", got)
	}
}

// reconstruct rebuilds the text from each chunk's non-overlap region plus the
// final chunk's full content.
func reconstruct(chunks []*models.DocumentChunk, size, overlap int) string {
	step := size - overlap
	var b strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch.Content)
		if i == len(chunks)-1 {
			b.WriteString(ch.Content)
		} else if len(runes) > step {
			b.WriteString(string(runes[:step]))
		} else {
			b.WriteString(ch.Content)
		}
	}
	return b.String()
}

func TestChunker_MultibyteRuneBoundaries(t *testing.T) {
	c := NewChunker(4, 1)
	text := "日本語のテキストです"
	for _, ch := range c.Chunk("d", text) {
		if !isValidUTF8(ch.Content) {
			t.Errorf("chunk split mid-rune: %q", ch.Content)
		}
	}
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func chunkContents(chunks []*models.DocumentChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
