// Package export renders the edited timeline into interchange formats.
// The only format in v0 is a CMX3600-style EDL.
package export

// Segment is one contiguous stretch of the edited timeline, cut from the
// source clip at trim boundaries and split points.
type Segment struct {
	Name      string `json:"name"`
	MediaPath string `json:"media_path"`
	StartMs   int    `json:"start_ms"`
	EndMs     int    `json:"end_ms"`
}
