package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cliplab/cliplab-agent/internal/history"
)

// SegmentsFromTimeline cuts the playable range of a clip into segments.
// The range is [0, duration] unless a trim narrows it; split points that
// fall strictly inside the range cut it further.
func SegmentsFromTimeline(mediaPath string, duration float64, trim *history.TrimRange, splits []float64) []Segment {
	start, end := 0.0, duration
	if trim != nil {
		start, end = trim.Start, trim.End
	}
	if end < start {
		end = start
	}

	cuts := []float64{start}
	sorted := append([]float64{}, splits...)
	sort.Float64s(sorted)
	for _, p := range sorted {
		if p > start && p < end {
			cuts = append(cuts, p)
		}
	}
	cuts = append(cuts, end)

	segments := make([]Segment, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		segments = append(segments, Segment{
			Name:      fmt.Sprintf("Segment %d", i+1),
			MediaPath: mediaPath,
			StartMs:   int(math.Round(cuts[i] * 1000)),
			EndMs:     int(math.Round(cuts[i+1] * 1000)),
		})
	}
	return segments
}

func GenerateEDL(segments []Segment, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	for i, seg := range segments {
		srcIn := msToTimecode(seg.StartMs, fps)
		srcOut := msToTimecode(seg.EndMs, fps)
		recIn := msToTimecode(recordOffsetMs, fps)
		durationMs := seg.EndMs - seg.StartMs
		recOut := msToTimecode(recordOffsetMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", seg.Name),
			fmt.Sprintf("* MEDIA PATH:  %s", seg.MediaPath),
		)

		recordOffsetMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
