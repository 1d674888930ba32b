package list

// heightIndex maintains row heights with prefix sums over a Fenwick tree, so
// re-measuring one row after render is O(log n) instead of a linear
// recomputation across the sequence.
type heightIndex struct {
	tree    []int // 1-based Fenwick tree over heights
	heights []int
}

func newHeightIndex(n, estimate int) *heightIndex {
	h := &heightIndex{tree: make([]int, 1), heights: make([]int, 0, n)}
	for i := 0; i < n; i++ {
		h.Append(estimate)
	}
	return h
}

// Len returns the number of rows tracked.
func (h *heightIndex) Len() int { return len(h.heights) }

// Append adds a row with the given height at the end.
func (h *heightIndex) Append(height int) {
	h.heights = append(h.heights, height)
	i := len(h.heights) // 1-based position
	// New node covers (i-lowbit(i), i]; sum that span from stored heights.
	sum := 0
	for j := i - (i & -i); j < i; j++ {
		sum += h.heights[j]
	}
	h.tree = append(h.tree, sum)
}

// Truncate drops rows from index n onward.
func (h *heightIndex) Truncate(n int) {
	if n < 0 || n >= len(h.heights) {
		return
	}
	h.heights = h.heights[:n]
	h.tree = h.tree[:n+1]
}

// Height returns the current height of row i.
func (h *heightIndex) Height(i int) int {
	if i < 0 || i >= len(h.heights) {
		return 0
	}
	return h.heights[i]
}

// Set updates row i to the measured height.
func (h *heightIndex) Set(i, height int) {
	if i < 0 || i >= len(h.heights) {
		return
	}
	delta := height - h.heights[i]
	if delta == 0 {
		return
	}
	h.heights[i] = height
	for j := i + 1; j < len(h.tree); j += j & -j {
		h.tree[j] += delta
	}
}

// OffsetOf returns the summed height of rows [0, i), i.e. the vertical offset
// of row i.
func (h *heightIndex) OffsetOf(i int) int {
	if i > len(h.heights) {
		i = len(h.heights)
	}
	sum := 0
	for j := i; j > 0; j -= j & -j {
		sum += h.tree[j]
	}
	return sum
}

// Total returns the summed height of all rows.
func (h *heightIndex) Total() int { return h.OffsetOf(len(h.heights)) }

// IndexAt returns the index of the row containing the given vertical offset.
// Offsets past the end clamp to the last row.
func (h *heightIndex) IndexAt(offset int) int {
	n := len(h.heights)
	if n == 0 || offset <= 0 {
		return 0
	}
	if offset >= h.Total() {
		return n - 1
	}
	// Binary descent over the Fenwick tree: find the largest index whose
	// prefix sum is <= offset.
	idx := 0
	bit := 1
	for bit<<1 <= len(h.tree)-1 {
		bit <<= 1
	}
	remaining := offset
	for ; bit > 0; bit >>= 1 {
		next := idx + bit
		if next <= len(h.tree)-1 && h.tree[next] <= remaining {
			idx = next
			remaining -= h.tree[next]
		}
	}
	// idx rows are fully above the offset; the offset falls inside row idx.
	if idx >= n {
		idx = n - 1
	}
	return idx
}
