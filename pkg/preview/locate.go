// Package preview maps a single virtual timeline cursor onto the
// underlying sources and keeps a playback element in sync with
// bounded-frequency seeks.
package preview

import (
	"github.com/clipforge/clipforge/pkg/project"
)

// Location identifies which clip owns a cursor position and where inside
// the source that position falls.
type Location struct {
	TimelineIndex int
	ClipID        string
	SourceID      string
	// TimeInClip is in source-local seconds
	TimeInClip float64
	// Speed is the clip's effective playback speed
	Speed float64
}

// Locate walks the timeline accumulating each clip's effective duration
// until the item owning currentTime is found. A cursor beyond the total
// duration clamps to the last clip's end. Returns false for an empty or
// fully dangling timeline.
func Locate(p *project.Project, currentTime float64) (Location, bool) {
	if p == nil {
		return Location{}, false
	}
	if currentTime < 0 {
		currentTime = 0
	}

	found := false
	var last Location
	accumulated := 0.0

	for i, item := range p.Timeline {
		clip, ok := p.ClipByID(item.ClipID)
		if !ok {
			continue
		}
		eff := p.EffectiveEffects(clip)
		speed := eff.SpeedValue()
		effectiveDuration := clip.Duration() / speed

		if currentTime < accumulated+effectiveDuration {
			return Location{
				TimelineIndex: i,
				ClipID:        clip.ID,
				SourceID:      clip.SourceID,
				TimeInClip:    (currentTime-accumulated)*speed + clip.StartTime,
				Speed:         speed,
			}, true
		}

		accumulated += effectiveDuration
		last = Location{
			TimelineIndex: i,
			ClipID:        clip.ID,
			SourceID:      clip.SourceID,
			TimeInClip:    clip.EndTime,
			Speed:         speed,
		}
		found = true
	}

	// Past the end: clamp to the last clip's end
	if found {
		return last, true
	}
	return Location{}, false
}
