package render

import (
	"context"
	"time"

	"scenecast/internal/timeline"
)

// RunLoop redraws the surface on a fixed cadence until elapsed time reaches
// total or ctx is cancelled. It re-arms itself each tick and carries its own
// stop condition; it never signals completion — the recorder and audio graph
// own the composition lifecycle.
func RunLoop(ctx context.Context, s *Surface, timed []timeline.TimedSegment, total time.Duration, hueBase int, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	totalMs := float64(total) / float64(time.Millisecond)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		elapsed := time.Since(start)
		if elapsed >= total {
			return
		}

		elapsedMs := float64(elapsed) / float64(time.Millisecond)
		Draw(s, elapsedMs, totalMs, timeline.ActiveAt(timed, elapsedMs), hueBase)
	}
}
