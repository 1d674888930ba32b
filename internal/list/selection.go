package list

import (
	"sync"

	"github.com/mailgrid/mailgrid/internal/services"
)

// ClickResult describes what a row click did to the selection.
type ClickResult struct {
	Opened     string // selection key newly opened in single mode, "" otherwise
	Deselected bool   // the already-open row was clicked again and cleared
	BulkCount  int    // size of the bulk set after the click
}

// Selection tracks the open row and the bulk-selected set for one view.
// The bulk set keeps user selection order. Range and select-all-below
// operate over loaded rows only; rows not yet paginated in are never
// implicitly fetched for selection.
type Selection struct {
	mu       sync.Mutex
	selected string // selection key of the open row, "" when none
	bulk     []string
	bulkSet  map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{bulkSet: make(map[string]struct{})}
}

// Selected returns the selection key of the open row, if any.
func (s *Selection) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Bulk returns a copy of the bulk-selected ids in selection order.
func (s *Selection) Bulk() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bulk...)
}

// BulkContains reports whether the given row id is bulk-selected.
func (s *Selection) BulkContains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bulkSet[id]
	return ok
}

// IsEmpty reports whether nothing is selected at all.
func (s *Selection) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected == "" && len(s.bulk) == 0
}

// Clear drops both the open row and the bulk set.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// ClearBulk drops the bulk set only.
func (s *Selection) ClearBulk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulk = nil
	s.bulkSet = make(map[string]struct{})
}

func (s *Selection) clearLocked() {
	s.selected = ""
	s.bulk = nil
	s.bulkSet = make(map[string]struct{})
}

// Click applies the row-click semantics for the active mode over the loaded
// rows. index must be a valid index into rows.
func (s *Selection) Click(mode Mode, index int, rows []services.ThreadSummary) ClickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(rows) {
		return ClickResult{BulkCount: len(s.bulk)}
	}
	row := rows[index]

	switch mode {
	case ModeMass:
		// Toggle membership; the open row is left as is.
		if _, ok := s.bulkSet[row.ID]; ok {
			delete(s.bulkSet, row.ID)
			for i, id := range s.bulk {
				if id == row.ID {
					s.bulk = append(s.bulk[:i], s.bulk[i+1:]...)
					break
				}
			}
		} else {
			s.bulkSet[row.ID] = struct{}{}
			s.bulk = append(s.bulk, row.ID)
		}
		return ClickResult{BulkCount: len(s.bulk)}

	case ModeRange:
		anchor := s.anchorIndexLocked(index, rows)
		lo, hi := anchor, index
		if lo > hi {
			lo, hi = hi, lo
		}
		s.replaceBulkLocked(rows[lo : hi+1])
		return ClickResult{BulkCount: len(s.bulk)}

	case ModeAllBelow:
		s.replaceBulkLocked(rows[index:])
		return ClickResult{BulkCount: len(s.bulk)}

	default: // ModeSingle
		key := row.SelectionKey()
		if s.selected == key {
			s.clearLocked()
			return ClickResult{Deselected: true}
		}
		s.selected = key
		s.bulk = nil
		s.bulkSet = make(map[string]struct{})
		return ClickResult{Opened: key}
	}
}

// anchorIndexLocked resolves the range anchor: the last bulk entry, the open
// row, or the clicked row itself when neither exists in the loaded rows.
func (s *Selection) anchorIndexLocked(clicked int, rows []services.ThreadSummary) int {
	if n := len(s.bulk); n > 0 {
		last := s.bulk[n-1]
		for i := range rows {
			if rows[i].ID == last {
				return i
			}
		}
	}
	if s.selected != "" {
		for i := range rows {
			if rows[i].SelectionKey() == s.selected {
				return i
			}
		}
	}
	return clicked
}

// replaceBulkLocked replaces the bulk set with the given rows, in row order.
// Bulk interactions clear the open row.
func (s *Selection) replaceBulkLocked(rows []services.ThreadSummary) {
	s.selected = ""
	s.bulk = make([]string, 0, len(rows))
	s.bulkSet = make(map[string]struct{}, len(rows))
	for _, r := range rows {
		s.bulk = append(s.bulk, r.ID)
		s.bulkSet[r.ID] = struct{}{}
	}
}

// ToggleAll selects every loaded row, or clears the selection when all rows
// are already selected. It returns the resulting bulk count and whether rows
// were selected (false means the toggle cleared the selection).
func (s *Selection) ToggleAll(rows []services.ThreadSummary) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rows) > 0 && len(s.bulk) == len(rows) {
		s.clearLocked()
		return 0, false
	}
	s.replaceBulkLocked(rows)
	return len(s.bulk), true
}
