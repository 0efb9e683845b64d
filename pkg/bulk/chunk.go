package bulk

// MaxBatchSize is the largest batch the store's bulk primitive accepts.
const MaxBatchSize = 100

// Chunk splits items into consecutive batches of at most size items.
// Concatenating the batches reproduces items. A size outside
// (0, MaxBatchSize] is treated as MaxBatchSize.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	if len(items) == 0 {
		return nil
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}
