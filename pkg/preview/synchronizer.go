package preview

import (
	"time"

	"github.com/clipforge/clipforge/pkg/project"
)

// Sync tuning. Seeks while playing are throttled to once per interval and
// skipped when the element is already within tolerance, to avoid seek
// thrashing; a paused or scrubbed cursor seeks immediately.
const (
	SeekInterval   = 250 * time.Millisecond
	DriftTolerance = 0.5 // seconds
)

// MediaElement is the narrow surface of the underlying playback element
type MediaElement interface {
	// Load switches the element to a different source
	Load(sourceID string)
	// CurrentSource returns the loaded source id, empty when none
	CurrentSource() string
	// Seek moves the element to a source-local time
	Seek(seconds float64)
	// CurrentTime reports the element's source-local position
	CurrentTime() float64
	// SetRate sets the playback rate
	SetRate(rate float64)
}

// Synchronizer advances a virtual cursor over the concatenated timeline
// and mirrors it onto a media element. Not safe for concurrent use; the
// caller drives it from a single scheduling loop.
type Synchronizer struct {
	project *project.Project
	element MediaElement

	currentTime float64
	playing     bool
	lastSeek    time.Time
	lastRate    float64
}

// NewSynchronizer creates a synchronizer over a project snapshot
func NewSynchronizer(p *project.Project, element MediaElement) *Synchronizer {
	return &Synchronizer{project: p, element: element}
}

// SetProject swaps in a new project snapshot, clamping the cursor to the
// new total duration.
func (s *Synchronizer) SetProject(p *project.Project) {
	s.project = p
	if total := p.TotalDuration(); s.currentTime > total {
		s.currentTime = total
	}
}

// Play enters the playing state
func (s *Synchronizer) Play() {
	s.playing = true
}

// Pause leaves the playing state
func (s *Synchronizer) Pause() {
	s.playing = false
}

// Playing reports the cursor state
func (s *Synchronizer) Playing() bool {
	return s.playing
}

// CurrentTime returns the virtual cursor position in output seconds
func (s *Synchronizer) CurrentTime() float64 {
	return s.currentTime
}

// Scrub moves the cursor directly and pauses playback
func (s *Synchronizer) Scrub(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if total := s.project.TotalDuration(); seconds > total {
		seconds = total
	}
	s.currentTime = seconds
	s.playing = false
}

// Advance moves the cursor by a measured frame delta while playing. On
// reaching the total duration the cursor stops and rewinds to zero.
func (s *Synchronizer) Advance(delta time.Duration) {
	if !s.playing || delta <= 0 {
		return
	}

	s.currentTime += delta.Seconds()

	if total := s.project.TotalDuration(); s.currentTime >= total {
		// Auto-rewind, not pause-in-place
		s.currentTime = 0
		s.playing = false
	}
}

// Sync mirrors the cursor onto the media element: loads the owning source,
// tracks the playback rate, and seeks when due. now is injected so the
// throttle window is testable.
func (s *Synchronizer) Sync(now time.Time) {
	loc, ok := Locate(s.project, s.currentTime)
	if !ok {
		return
	}

	if s.element.CurrentSource() != loc.SourceID {
		s.element.Load(loc.SourceID)
		// A source switch always needs an immediate seek
		s.lastSeek = time.Time{}
	}

	if loc.Speed != s.lastRate {
		s.element.SetRate(loc.Speed)
		s.lastRate = loc.Speed
	}

	due := !s.playing || s.lastSeek.IsZero() || now.Sub(s.lastSeek) >= SeekInterval
	if !due {
		return
	}

	drift := s.element.CurrentTime() - loc.TimeInClip
	if drift < 0 {
		drift = -drift
	}
	if drift > DriftTolerance {
		s.element.Seek(loc.TimeInClip)
		s.lastSeek = now
	}
}
