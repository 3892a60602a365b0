package audio

import (
	"sync"
)

// ChunkQueue is a thread-safe FIFO of raw audio chunks. It preserves chunk
// boundaries and arrival order, and is unbounded: chunks buffered while
// playback is locked must survive until unlock without loss.
type ChunkQueue struct {
	mu     sync.Mutex
	chunks [][]byte
}

// NewChunkQueue creates an empty chunk queue
func NewChunkQueue() *ChunkQueue {
	return &ChunkQueue{}
}

// Push appends a chunk to the end of the queue
func (q *ChunkQueue) Push(chunk []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chunks = append(q.chunks, chunk)
}

// Drain removes and returns all buffered chunks in arrival order.
// A second Drain without intervening Push returns nil.
func (q *ChunkQueue) Drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	chunks := q.chunks
	q.chunks = nil
	return chunks
}

// Clear discards all buffered chunks
func (q *ChunkQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chunks = nil
}

// Len returns the number of buffered chunks
func (q *ChunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Bytes returns the total number of buffered bytes
func (q *ChunkQueue) Bytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, c := range q.chunks {
		total += len(c)
	}
	return total
}

// IsEmpty returns true if the queue holds no chunks
func (q *ChunkQueue) IsEmpty() bool {
	return q.Len() == 0
}
