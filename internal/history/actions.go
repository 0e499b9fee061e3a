// Package history records edit actions in an append-only ledger with classic
// linear undo/redo and folds them into a single effective state on demand.
package history

import (
	"fmt"
	"time"

	"github.com/cliplab/cliplab-agent/internal/filters"
)

type Kind string

const (
	KindTrim             Kind = "trim"
	KindCrop             Kind = "crop"
	KindSplit            Kind = "split"
	KindSetFilters       Kind = "set_filters"
	KindAddOverlay       Kind = "add_overlay"
	KindRemoveOverlay    Kind = "remove_overlay"
	KindAddTransition    Kind = "add_transition"
	KindRemoveTransition Kind = "remove_transition"
	KindSetSpeed         Kind = "set_speed"
	KindSetVolume        Kind = "set_volume"
)

// TrimRange is a [start,end] window in seconds.
type TrimRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// CropRect is a crop rectangle in source percentages (0-100 per axis).
type CropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextOverlay is a timed text element. Records are replaced whole on edit,
// never mutated in place.
type TextOverlay struct {
	ID                string  `json:"id"`
	Text              string  `json:"text"`
	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	X                 float64 `json:"x"` // normalized 0-100
	Y                 float64 `json:"y"` // normalized 0-100
	FontSize          int     `json:"font_size"`
	Color             string  `json:"color"`
	BackgroundColor   string  `json:"background_color,omitempty"`
	BackgroundOpacity float64 `json:"background_opacity,omitempty"`
	Animation         string  `json:"animation,omitempty"`
}

// TransitionKind determines which optional Transition fields are meaningful.
type TransitionKind string

const (
	TransitionFade      TransitionKind = "fade"
	TransitionSlide     TransitionKind = "slide"
	TransitionZoom      TransitionKind = "zoom"
	TransitionDissolve  TransitionKind = "dissolve"
	TransitionWipe      TransitionKind = "wipe"
	TransitionPush      TransitionKind = "push"
	TransitionCrossfade TransitionKind = "crossfade"
)

// Transition is a timed transition effect. Optional fields that the kind
// ignores are silently not applied downstream, never rejected here.
type Transition struct {
	ID        string         `json:"id"`
	Kind      TransitionKind `json:"kind"`
	Duration  float64        `json:"duration"` // seconds, > 0
	Start     float64        `json:"start"`
	Direction string         `json:"direction,omitempty"`
	Easing    string         `json:"easing,omitempty"`
	Intensity float64        `json:"intensity,omitempty"` // 0-1
}

// AudioTrack is an extra audio source mixed into the export.
type AudioTrack struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Start   float64 `json:"start"`
	Volume  float64 `json:"volume"`
	FadeIn  float64 `json:"fade_in,omitempty"`
	FadeOut float64 `json:"fade_out,omitempty"`
}

// Action is one immutable entry in the edit ledger. Exactly one payload field
// is set, selected by Kind.
type Action struct {
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`

	Trim       *TrimRange      `json:"trim,omitempty"`
	Crop       *CropRect       `json:"crop,omitempty"`
	Split      []float64       `json:"split,omitempty"`
	Filters    *filters.Bundle `json:"filters,omitempty"`
	Overlay    *TextOverlay    `json:"overlay,omitempty"`
	Transition *Transition     `json:"transition,omitempty"`
	TargetID   string          `json:"target_id,omitempty"` // remove_* actions
	Factor     float64         `json:"factor,omitempty"`    // speed / volume
}

func newAction(kind Kind, desc string) Action {
	return Action{Kind: kind, CreatedAt: time.Now().UTC(), Description: desc}
}

func NewTrim(start, end float64) Action {
	a := newAction(KindTrim, fmt.Sprintf("Trim %.1fs-%.1fs", start, end))
	a.Trim = &TrimRange{Start: start, End: end}
	return a
}

func NewCrop(r CropRect) Action {
	a := newAction(KindCrop, fmt.Sprintf("Crop %.0f%%x%.0f%% at (%.0f,%.0f)", r.Width, r.Height, r.X, r.Y))
	a.Crop = &r
	return a
}

func NewSplit(points []float64) Action {
	a := newAction(KindSplit, fmt.Sprintf("Split at %d points", len(points)))
	a.Split = append([]float64(nil), points...)
	return a
}

func NewSetFilters(b filters.Bundle) Action {
	b = b.Clamp()
	a := newAction(KindSetFilters, "Adjust filters")
	a.Filters = &b
	return a
}

func NewAddOverlay(o TextOverlay) Action {
	a := newAction(KindAddOverlay, fmt.Sprintf("Add text %q", o.Text))
	a.Overlay = &o
	return a
}

func NewRemoveOverlay(id string) Action {
	a := newAction(KindRemoveOverlay, "Remove text overlay")
	a.TargetID = id
	return a
}

func NewAddTransition(tr Transition) Action {
	a := newAction(KindAddTransition, fmt.Sprintf("Add %s transition", tr.Kind))
	a.Transition = &tr
	return a
}

func NewRemoveTransition(id string) Action {
	a := newAction(KindRemoveTransition, "Remove transition")
	a.TargetID = id
	return a
}

func NewSetSpeed(factor float64) Action {
	a := newAction(KindSetSpeed, fmt.Sprintf("Set speed %.2fx", factor))
	a.Factor = factor
	return a
}

func NewSetVolume(factor float64) Action {
	a := newAction(KindSetVolume, fmt.Sprintf("Set volume %.0f%%", factor*100))
	a.Factor = factor
	return a
}
