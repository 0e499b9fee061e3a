package history

import (
	"sort"
	"sync"

	"github.com/cliplab/cliplab-agent/internal/filters"
)

// MaterializedState is the effective edit state after folding every active
// action in order.
type MaterializedState struct {
	Trim        *TrimRange     `json:"trim,omitempty"`
	Crop        *CropRect      `json:"crop,omitempty"`
	SplitPoints []float64      `json:"split_points,omitempty"`
	Filters     filters.Bundle `json:"filters"`
	Overlays    []TextOverlay  `json:"overlays,omitempty"`
	Transitions []Transition   `json:"transitions,omitempty"`
	Speed       float64        `json:"speed"`
	Volume      float64        `json:"volume"`
}

// DefaultState returns the all-defaults state of an untouched clip.
func DefaultState() MaterializedState {
	return MaterializedState{
		Filters: filters.Identity(),
		Speed:   1,
		Volume:  1,
	}
}

// Ledger is an append-only, index-addressable log of edit actions with an
// undo/redo cursor. Cursor -1 means no actions are applied; actions past the
// cursor are redoable until a new append truncates them.
type Ledger struct {
	mu      sync.Mutex
	actions []Action
	cursor  int
}

func NewLedger() *Ledger {
	return &Ledger{cursor: -1}
}

// Append records a new action, discarding any redoable tail first, and moves
// the cursor to the new last index.
func (l *Ledger) Append(a Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions[:l.cursor+1], a)
	l.cursor = len(l.actions) - 1
}

// Undo steps the cursor back one action. It reports whether anything changed.
func (l *Ledger) Undo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor < 0 {
		return false
	}
	l.cursor--
	return true
}

// Redo re-applies the next undone action, if any.
func (l *Ledger) Redo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor >= len(l.actions)-1 {
		return false
	}
	l.cursor++
	return true
}

// Cursor returns the index of the last active action, or -1.
func (l *Ledger) Cursor() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// Len returns the total number of recorded actions, including redoable ones.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// Actions returns a copy of the active prefix of the log.
func (l *Ledger) Actions() []Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Action, l.cursor+1)
	copy(out, l.actions[:l.cursor+1])
	return out
}

// Materialize folds every action up to and including the cursor into one
// effective state. Scalar kinds are last-wins; overlays and transitions
// accumulate by id with last-write-wins per id. The fold runs under the same
// lock as mutations, so no partial action is ever visible.
func (l *Ledger) Materialize() MaterializedState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := DefaultState()
	overlays := newOrderedSet[TextOverlay]()
	transitions := newOrderedSet[Transition]()

	for i := 0; i <= l.cursor; i++ {
		a := l.actions[i]
		switch a.Kind {
		case KindTrim:
			tr := *a.Trim
			state.Trim = &tr
		case KindCrop:
			cr := *a.Crop
			state.Crop = &cr
		case KindSplit:
			// Non-nil even when empty, so validation can tell "split with no
			// points" apart from "never split".
			state.SplitPoints = append([]float64{}, a.Split...)
		case KindSetFilters:
			state.Filters = *a.Filters
		case KindAddOverlay:
			overlays.put(a.Overlay.ID, *a.Overlay)
		case KindRemoveOverlay:
			overlays.remove(a.TargetID)
		case KindAddTransition:
			transitions.put(a.Transition.ID, *a.Transition)
		case KindRemoveTransition:
			transitions.remove(a.TargetID)
		case KindSetSpeed:
			state.Speed = a.Factor
		case KindSetVolume:
			state.Volume = a.Factor
		}
	}

	state.Overlays = overlays.values()
	state.Transitions = transitions.values()
	return state
}

// SegmentDurations computes the segment lengths produced by splitting a clip
// of the given total duration at the given points. Points outside (0,total)
// and duplicates are ignored.
func SegmentDurations(points []float64, total float64) []float64 {
	cuts := make([]float64, 0, len(points))
	seen := map[float64]bool{}
	for _, p := range points {
		if p <= 0 || p >= total || seen[p] {
			continue
		}
		seen[p] = true
		cuts = append(cuts, p)
	}
	sort.Float64s(cuts)

	durations := make([]float64, 0, len(cuts)+1)
	prev := 0.0
	for _, c := range cuts {
		durations = append(durations, c-prev)
		prev = c
	}
	durations = append(durations, total-prev)
	return durations
}

// orderedSet keeps insertion order on first put; a later put for an existing
// id replaces the value in place.
type orderedSet[T any] struct {
	order []string
	items map[string]T
}

func newOrderedSet[T any]() *orderedSet[T] {
	return &orderedSet[T]{items: map[string]T{}}
}

func (s *orderedSet[T]) put(id string, v T) {
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = v
}

func (s *orderedSet[T]) remove(id string) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *orderedSet[T]) values() []T {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}
