package list

import "sync"

// Mode is the active selection mode. Exactly one mode is active at a time;
// it is derived from the modifiers currently held, never stored on rows.
type Mode int

const (
	ModeSingle Mode = iota
	ModeMass
	ModeRange
	ModeAllBelow
)

func (m Mode) String() string {
	switch m {
	case ModeMass:
		return "mass"
	case ModeRange:
		return "range"
	case ModeAllBelow:
		return "selectAllBelow"
	default:
		return "single"
	}
}

// Modifier identifies a mode-switching key observed at the window level.
// Primary and PrimaryAlt are platform equivalents (ctrl and meta) and map to
// the same state.
type Modifier int

const (
	ModifierPrimary Modifier = iota
	ModifierPrimaryAlt
	ModifierRange
)

// ModeReducer derives the selection mode from window-level modifier press and
// release events. Events are applied in observation order and the most recent
// derived mode wins; a window blur resets everything, which also covers
// key-up events lost while the window was unfocused.
type ModeReducer struct {
	mu       sync.Mutex
	held     map[Modifier]bool
	mode     Mode
	onChange func(Mode)
}

// NewModeReducer creates a reducer in single mode. onChange, if non-nil, is
// invoked after every mode transition.
func NewModeReducer(onChange func(Mode)) *ModeReducer {
	return &ModeReducer{held: make(map[Modifier]bool), onChange: onChange}
}

// Mode returns the currently derived mode.
func (r *ModeReducer) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// KeyDown records a modifier press.
func (r *ModeReducer) KeyDown(m Modifier) {
	r.mu.Lock()
	r.held[m] = true
	changed, mode := r.deriveLocked()
	r.mu.Unlock()
	if changed && r.onChange != nil {
		r.onChange(mode)
	}
}

// KeyUp records a modifier release.
func (r *ModeReducer) KeyUp(m Modifier) {
	r.mu.Lock()
	delete(r.held, m)
	changed, mode := r.deriveLocked()
	r.mu.Unlock()
	if changed && r.onChange != nil {
		r.onChange(mode)
	}
}

// SetHeld replaces the whole held set from a modifier bitmask snapshot, for
// event sources that report current modifier state instead of up/down pairs.
func (r *ModeReducer) SetHeld(primary, primaryAlt, rng bool) {
	r.mu.Lock()
	r.held = make(map[Modifier]bool)
	if primary {
		r.held[ModifierPrimary] = true
	}
	if primaryAlt {
		r.held[ModifierPrimaryAlt] = true
	}
	if rng {
		r.held[ModifierRange] = true
	}
	changed, mode := r.deriveLocked()
	r.mu.Unlock()
	if changed && r.onChange != nil {
		r.onChange(mode)
	}
}

// Blur resets all modes unconditionally, guarding against missed key-ups.
func (r *ModeReducer) Blur() {
	r.mu.Lock()
	r.held = make(map[Modifier]bool)
	changed, mode := r.deriveLocked()
	r.mu.Unlock()
	if changed && r.onChange != nil {
		r.onChange(mode)
	}
}

func (r *ModeReducer) deriveLocked() (bool, Mode) {
	primary := r.held[ModifierPrimary] || r.held[ModifierPrimaryAlt]
	rng := r.held[ModifierRange]
	var mode Mode
	switch {
	case primary && rng:
		mode = ModeAllBelow
	case primary:
		mode = ModeMass
	case rng:
		mode = ModeRange
	default:
		mode = ModeSingle
	}
	changed := mode != r.mode
	r.mode = mode
	return changed, mode
}
