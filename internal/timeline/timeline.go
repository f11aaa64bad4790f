package timeline

import "fmt"

// Segment is one script beat of the narration plan. Weight is the
// caller-declared nominal duration in seconds, not a measured time.
type Segment struct {
	ID           string
	Title        string
	Script       string
	VisualPrompt string
	Weight       float64
}

// TimedSegment is a Segment placed on the real audio timeline. The window
// [StartMs, EndMs) is half-open and measured against the actual decoded
// voiceover duration.
type TimedSegment struct {
	Segment
	Index   int
	StartMs float64
	EndMs   float64
}

// Map partitions totalMs across the segments in proportion to their
// weights. Windows are contiguous and non-overlapping: the first starts at
// 0, the last ends at totalMs, and a zero-weight segment gets a zero-width
// window. An empty segment list is a caller error.
func Map(segs []Segment, totalMs float64) ([]TimedSegment, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("timeline: no segments to map")
	}

	var totalWeight float64
	for _, s := range segs {
		totalWeight += s.Weight
	}

	timed := make([]TimedSegment, len(segs))
	var cum float64
	n := float64(len(segs))
	for i, s := range segs {
		var start, end float64
		if totalWeight > 0 {
			start = cum / totalWeight * totalMs
			cum += s.Weight
			end = cum / totalWeight * totalMs
		} else {
			// All weights zero: degenerate input, partition evenly.
			start = float64(i) / n * totalMs
			end = float64(i+1) / n * totalMs
		}
		timed[i] = TimedSegment{
			Segment: s,
			Index:   i,
			StartMs: start,
			EndMs:   end,
		}
	}

	// Pin the last boundary to the exact total so float accumulation
	// never leaves a gap at the end of the track.
	timed[len(timed)-1].EndMs = totalMs

	return timed, nil
}

// ActiveAt returns the segment whose window contains elapsedMs. Windows are
// half-open, so elapsed exactly at a boundary selects the next segment.
// Past the final boundary the last segment stays active.
func ActiveAt(timed []TimedSegment, elapsedMs float64) TimedSegment {
	for _, t := range timed {
		if elapsedMs >= t.StartMs && elapsedMs < t.EndMs {
			return t
		}
	}
	return timed[len(timed)-1]
}
