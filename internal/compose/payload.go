package compose

import (
	"fmt"

	"scenecast/internal/timeline"
)

// PayloadSegment is one script beat as delivered by the planning
// collaborator. Duration is a nominal weight in seconds, not a measured
// time.
type PayloadSegment struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Script       string  `json:"script"`
	VisualPrompt string  `json:"visualPrompt"`
	Duration     float64 `json:"duration"`
}

// Voiceover is the speech collaborator's output: encoded audio bytes in a
// portable text encoding plus a container tag.
type Voiceover struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
}

// Payload is the read-only input bundle a composition runs from.
type Payload struct {
	Segments  []PayloadSegment `json:"segments"`
	Voiceover Voiceover        `json:"voiceover"`
}

// Validate checks the input contract before any resource is allocated.
func (p *Payload) Validate() error {
	if len(p.Segments) == 0 {
		return fmt.Errorf("payload: at least one segment required")
	}
	if p.Voiceover.AudioBase64 == "" {
		return fmt.Errorf("payload: voiceover audio required")
	}
	return nil
}

// timelineSegments maps the wire contract onto timeline inputs.
func (p *Payload) timelineSegments() []timeline.Segment {
	segs := make([]timeline.Segment, len(p.Segments))
	for i, s := range p.Segments {
		segs[i] = timeline.Segment{
			ID:           s.ID,
			Title:        s.Title,
			Script:       s.Script,
			VisualPrompt: s.VisualPrompt,
			Weight:       s.Duration,
		}
	}
	return segs
}
