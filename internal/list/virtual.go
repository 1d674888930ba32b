package list

import "sync"

// Height classes for estimated, not-yet-measured rows.
const (
	RowHeightCompact = 1
	RowHeightNormal  = 2
)

// loadMoreRows is the distance from the bottom, in row heights, under which a
// continuation fetch is requested.
const loadMoreRows = 2

// Window is the contiguous index range to render, plus the vertical offset of
// the skipped leading rows.
type Window struct {
	Start   int // inclusive
	End     int // exclusive
	OffsetY int
}

// Virtualizer computes the minimal visible row window for a large thread
// collection with non-uniform row heights. Unmeasured rows use a fixed
// estimate; actual heights are fed back after render via Measure and
// accumulate exactly thanks to the prefix-sum index.
type Virtualizer struct {
	mu             sync.Mutex
	heights        *heightIndex
	estimate       int
	overscan       int
	viewportHeight int
	scrollTop      int
}

// NewVirtualizer creates a virtualizer over rowCount rows of the given
// estimated height class, rendering overscan extra rows on each side.
func NewVirtualizer(rowCount, estimatedHeight, overscan int) *Virtualizer {
	if estimatedHeight <= 0 {
		estimatedHeight = RowHeightNormal
	}
	if overscan < 0 {
		overscan = 0
	}
	return &Virtualizer{
		heights:  newHeightIndex(rowCount, estimatedHeight),
		estimate: estimatedHeight,
		overscan: overscan,
	}
}

// SetRowCount grows or shrinks the tracked collection. New rows start at the
// estimated height; measured heights of surviving rows are preserved.
func (v *Virtualizer) SetRowCount(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 0 {
		n = 0
	}
	for v.heights.Len() < n {
		v.heights.Append(v.estimate)
	}
	if v.heights.Len() > n {
		v.heights.Truncate(n)
		if max := v.maxScrollLocked(); v.scrollTop > max {
			v.scrollTop = max
		}
	}
}

// SetViewport records the scrollable viewport height.
func (v *Virtualizer) SetViewport(height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if height < 0 {
		height = 0
	}
	v.viewportHeight = height
}

// ScrollTo positions the top of the viewport at the given offset, clamped to
// the scrollable content.
func (v *Virtualizer) ScrollTo(top int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if top < 0 {
		top = 0
	}
	if max := v.maxScrollLocked(); top > max {
		top = max
	}
	v.scrollTop = top
}

// ScrollBy adjusts the viewport top by delta.
func (v *Virtualizer) ScrollBy(delta int) {
	v.mu.Lock()
	top := v.scrollTop + delta
	v.mu.Unlock()
	v.ScrollTo(top)
}

// ScrollTop returns the current viewport top offset.
func (v *Virtualizer) ScrollTop() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollTop
}

// Measure feeds back the actual rendered height of row i.
func (v *Virtualizer) Measure(i, actual int) {
	if actual <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.heights.Set(i, actual)
}

// OffsetOf returns the vertical offset of row i.
func (v *Virtualizer) OffsetOf(i int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.heights.OffsetOf(i)
}

// HeightOf returns the current (estimated or measured) height of row i.
func (v *Virtualizer) HeightOf(i int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.heights.Height(i)
}

// ViewportHeight returns the recorded viewport height.
func (v *Virtualizer) ViewportHeight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewportHeight
}

// TotalHeight returns the summed (estimated or measured) height of all rows.
func (v *Virtualizer) TotalHeight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.heights.Total()
}

// Window returns the index window intersecting the viewport plus overscan,
// and the offset of the skipped leading rows.
func (v *Virtualizer) Window() Window {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := v.heights.Len()
	if n == 0 || v.viewportHeight <= 0 {
		return Window{}
	}
	start := v.heights.IndexAt(v.scrollTop)
	end := v.heights.IndexAt(v.scrollTop+v.viewportHeight-1) + 1

	start -= v.overscan
	if start < 0 {
		start = 0
	}
	end += v.overscan
	if end > n {
		end = n
	}
	return Window{Start: start, End: end, OffsetY: v.heights.OffsetOf(start)}
}

// NearBottom reports whether the distance from the bottom of the content to
// the viewport bottom is under the load-more threshold.
func (v *Virtualizer) NearBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.heights.Len() == 0 || v.viewportHeight <= 0 {
		return false
	}
	remaining := v.heights.Total() - (v.scrollTop + v.viewportHeight)
	return remaining < loadMoreRows*v.estimate
}

func (v *Virtualizer) maxScrollLocked() int {
	max := v.heights.Total() - v.viewportHeight
	if max < 0 {
		max = 0
	}
	return max
}
