package history

import (
	"math"
	"testing"

	"github.com/cliplab/cliplab-agent/internal/filters"
)

func TestLedger_EmptyMaterializeIsDefaults(t *testing.T) {
	l := NewLedger()
	if l.Cursor() != -1 {
		t.Fatalf("cursor = %d, want -1", l.Cursor())
	}

	state := l.Materialize()
	if state.Trim != nil || state.Crop != nil {
		t.Error("empty ledger must have no trim/crop")
	}
	if !state.Filters.IsIdentity() {
		t.Error("empty ledger must have identity filters")
	}
	if state.Speed != 1 || state.Volume != 1 {
		t.Errorf("speed/volume = %v/%v, want 1/1", state.Speed, state.Volume)
	}
	if len(state.Overlays) != 0 || len(state.Transitions) != 0 {
		t.Error("empty ledger must have no overlays/transitions")
	}
}

func TestLedger_UndoRedoBounds(t *testing.T) {
	l := NewLedger()
	if l.Undo() {
		t.Error("undo on empty ledger must be a no-op")
	}
	if l.Redo() {
		t.Error("redo on empty ledger must be a no-op")
	}

	l.Append(NewSetSpeed(2))
	if !l.Undo() {
		t.Error("undo must succeed with one action")
	}
	if l.Undo() {
		t.Error("second undo must be a no-op")
	}
	if !l.Redo() {
		t.Error("redo must succeed after undo")
	}
	if l.Redo() {
		t.Error("redo at tail must be a no-op")
	}
}

func TestLedger_AppendTruncatesRedoHistory(t *testing.T) {
	l := NewLedger()
	l.Append(NewSetSpeed(0.5)) // A
	l.Append(NewSetSpeed(1.5)) // B
	l.Append(NewSetSpeed(2.0)) // C
	if l.Cursor() != 2 {
		t.Fatalf("cursor = %d, want 2", l.Cursor())
	}

	l.Undo() // cursor -> 1
	l.Append(NewSetSpeed(3.0)) // D replaces C

	if l.Len() != 3 {
		t.Errorf("len = %d, want 3 (A,B,D)", l.Len())
	}
	if l.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", l.Cursor())
	}
	if l.Redo() {
		t.Error("redo after truncating append must be a no-op")
	}
	if got := l.Materialize().Speed; got != 3.0 {
		t.Errorf("speed = %v, want 3.0 from D", got)
	}
}

func TestLedger_UndoRevertsMaterializedState(t *testing.T) {
	l := NewLedger()
	l.Append(NewTrim(0, 20))
	l.Append(NewTrim(5, 15))

	if tr := l.Materialize().Trim; tr == nil || tr.Start != 5 {
		t.Fatalf("trim = %+v, want last-wins 5-15", tr)
	}
	l.Undo()
	if tr := l.Materialize().Trim; tr == nil || tr.Start != 0 || tr.End != 20 {
		t.Fatalf("after undo trim = %+v, want 0-20", tr)
	}
}

func TestLedger_LastSetFiltersWins(t *testing.T) {
	l := NewLedger()
	first := filters.Identity()
	first.Contrast = 150
	second := filters.Identity()
	second.Sepia = 40

	l.Append(NewSetFilters(first))
	l.Append(NewSetFilters(second))

	got := l.Materialize().Filters
	if got.Sepia != 40 {
		t.Errorf("sepia = %v, want 40", got.Sepia)
	}
	if got.Contrast != 100 {
		t.Errorf("contrast = %v, want identity 100 (wholesale replace)", got.Contrast)
	}
}

func TestLedger_OverlaysAccumulateLastWritePerID(t *testing.T) {
	l := NewLedger()
	l.Append(NewAddOverlay(TextOverlay{ID: "a", Text: "first"}))
	l.Append(NewAddOverlay(TextOverlay{ID: "b", Text: "second"}))
	l.Append(NewAddOverlay(TextOverlay{ID: "a", Text: "replaced"}))

	overlays := l.Materialize().Overlays
	if len(overlays) != 2 {
		t.Fatalf("got %d overlays, want 2", len(overlays))
	}
	if overlays[0].ID != "a" || overlays[0].Text != "replaced" {
		t.Errorf("overlay a = %+v, want replaced text in original position", overlays[0])
	}
	if overlays[1].ID != "b" {
		t.Errorf("overlay order changed: %+v", overlays)
	}
}

func TestLedger_RemoveOverlayByID(t *testing.T) {
	l := NewLedger()
	l.Append(NewAddOverlay(TextOverlay{ID: "a", Text: "keep"}))
	l.Append(NewAddOverlay(TextOverlay{ID: "b", Text: "drop"}))
	l.Append(NewRemoveOverlay("b"))

	overlays := l.Materialize().Overlays
	if len(overlays) != 1 || overlays[0].ID != "a" {
		t.Fatalf("got %+v, want only overlay a", overlays)
	}

	// Undoing the removal brings it back.
	l.Undo()
	if got := l.Materialize().Overlays; len(got) != 2 {
		t.Fatalf("after undo got %d overlays, want 2", len(got))
	}
}

func TestLedger_TransitionsAccumulate(t *testing.T) {
	l := NewLedger()
	l.Append(NewAddTransition(Transition{ID: "t1", Kind: TransitionFade, Duration: 1}))
	l.Append(NewAddTransition(Transition{ID: "t2", Kind: TransitionWipe, Duration: 0.5}))
	l.Append(NewRemoveTransition("t1"))

	trs := l.Materialize().Transitions
	if len(trs) != 1 || trs[0].ID != "t2" {
		t.Fatalf("got %+v, want only t2", trs)
	}
}

func TestSegmentDurations(t *testing.T) {
	tests := []struct {
		name   string
		points []float64
		total  float64
		want   []float64
	}{
		{"two cuts", []float64{10, 25}, 30, []float64{10, 15, 5}},
		{"unsorted", []float64{25, 10}, 30, []float64{10, 15, 5}},
		{"no cuts", nil, 30, []float64{30}},
		{"out of range ignored", []float64{-5, 10, 40}, 30, []float64{10, 20}},
		{"duplicates ignored", []float64{10, 10}, 30, []float64{10, 20}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SegmentDurations(tc.points, tc.total)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if math.Abs(got[i]-tc.want[i]) > 1e-9 {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
