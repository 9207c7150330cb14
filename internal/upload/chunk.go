package upload

import (
	"errors"
	"fmt"
)

// Batch size bounds.
const (
	// DefaultBatchSize is the number of items per batch when none is configured.
	DefaultBatchSize = 10

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1
)

// Chunking and session precondition errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
	ErrNoItems          = errors.New("no items to upload")
)

// Batch is an ordered, contiguous slice of items submitted as one exchange.
// The slice aliases the input to Chunk; batches exist only for the duration
// of one transport call and are never mutated.
type Batch struct {
	// Index is the 0-based position of the batch within the session.
	Index int

	Items []Item
}

// Chunk splits items into contiguous batches of at most batchSize items,
// preserving input order. The last batch may be shorter. Every input item
// appears in exactly one batch.
func Chunk(items []Item, batchSize int) ([]Batch, error) {
	if batchSize < MinBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	batches := make([]Batch, 0, NumBatches(len(items), batchSize))
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, Batch{Index: len(batches), Items: items[start:end]})
	}
	return batches, nil
}

// NumBatches returns how many batches Chunk produces for the given sizes.
func NumBatches(totalItems, batchSize int) int {
	if batchSize < MinBatchSize || totalItems <= 0 {
		return 0
	}
	n := totalItems / batchSize
	if totalItems%batchSize > 0 {
		n++
	}
	return n
}
