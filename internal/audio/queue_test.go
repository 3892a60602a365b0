package audio

import (
	"bytes"
	"testing"
)

func TestChunkQueue_FIFOOrder(t *testing.T) {
	q := NewChunkQueue()

	q.Push([]byte{1})
	q.Push([]byte{2, 2})
	q.Push([]byte{3, 3, 3})

	if q.Len() != 3 {
		t.Fatalf("Expected 3 chunks, got %d", q.Len())
	}
	if q.Bytes() != 6 {
		t.Errorf("Expected 6 bytes, got %d", q.Bytes())
	}

	chunks := q.Drain()
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 drained chunks, got %d", len(chunks))
	}
	for i, want := range [][]byte{{1}, {2, 2}, {3, 3, 3}} {
		if !bytes.Equal(chunks[i], want) {
			t.Errorf("Chunk %d = %v, want %v", i, chunks[i], want)
		}
	}
}

func TestChunkQueue_DrainOnce(t *testing.T) {
	q := NewChunkQueue()
	q.Push([]byte{9})

	if got := q.Drain(); len(got) != 1 {
		t.Fatalf("Expected 1 chunk from first drain, got %d", len(got))
	}
	if got := q.Drain(); got != nil {
		t.Errorf("Expected nil from second drain, got %v", got)
	}
	if !q.IsEmpty() {
		t.Error("Queue must be empty after drain")
	}
}

func TestChunkQueue_Clear(t *testing.T) {
	q := NewChunkQueue()
	q.Push([]byte{1})
	q.Push([]byte{2})

	q.Clear()
	if !q.IsEmpty() {
		t.Error("Queue must be empty after clear")
	}
	if q.Bytes() != 0 {
		t.Errorf("Expected 0 bytes after clear, got %d", q.Bytes())
	}
}
