// Package project owns the canonical editing state: video sources, clips,
// the timeline, global effects and the subtitle track. All other components
// receive read-only snapshots or mutate through the actions package.
package project

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/pkg/effects"
)

// AllowedVideoTypes is the MIME allow-list for uploaded sources
var AllowedVideoTypes = map[string]bool{
	"video/mp4":        true,
	"video/webm":       true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
}

// InvalidMediaError reports a rejected upload kind
type InvalidMediaError struct {
	MimeType string
}

func (e *InvalidMediaError) Error() string {
	return fmt.Sprintf("invalid video type %q", e.MimeType)
}

// VideoSource is an uploaded video file. Immutable after creation except
// Duration, which is filled once metadata is probed.
type VideoSource struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Path     string  `json:"-"`
	URL      string  `json:"url,omitempty"`
	Duration float64 `json:"duration,omitempty"` // seconds; 0 = unknown
}

// Transition describes how a timeline item blends with the previous
// rendered output.
type Transition string

const (
	TransitionNone      Transition = "none"
	TransitionFade      Transition = "fade"
	TransitionCrossfade Transition = "crossfade"
)

// Clip is a bounded sub-range [StartTime, EndTime) of one source, in
// source-local seconds, with an optional effect override merged on top of
// the global effects at render time.
type Clip struct {
	ID        string                `json:"id"`
	SourceID  string                `json:"sourceId"`
	StartTime float64               `json:"startTime"`
	EndTime   float64               `json:"endTime"`
	Effects   *effects.VideoEffects `json:"effects,omitempty"`
}

// Duration returns the clip length in source seconds
func (c *Clip) Duration() float64 {
	d := c.EndTime - c.StartTime
	if d < 0 {
		return 0
	}
	return d
}

// ClampToSource clamps the clip range to [0, duration]. A zero duration
// means the source length is unknown and only the lower bound applies.
// Violated ranges are clamped, never left as negative-duration segments.
func (c *Clip) ClampToSource(duration float64) {
	if c.StartTime < 0 {
		c.StartTime = 0
	}
	if duration > 0 && c.EndTime > duration {
		c.EndTime = duration
	}
	if c.EndTime < c.StartTime {
		c.EndTime = c.StartTime
	}
}

// TimelineItem is one entry in the ordered cut. Duplicate ClipIDs are
// allowed; order is meaningful.
type TimelineItem struct {
	ClipID             string     `json:"clipId"`
	Transition         Transition `json:"transition,omitempty"`
	TransitionDuration float64    `json:"transitionDuration,omitempty"`
}

// Project is the aggregate root
type Project struct {
	Videos        []VideoSource        `json:"videos"`
	Clips         []Clip               `json:"clips"`
	Timeline      []TimelineItem       `json:"timeline"`
	GlobalEffects effects.VideoEffects `json:"globalEffects"`
	Subtitles     *SubtitleTrack       `json:"subtitles,omitempty"`
}

// New creates an empty project: zero sources, zero clips, zero timeline
// entries, neutral global effects.
func New() *Project {
	return &Project{
		Videos:   []VideoSource{},
		Clips:    []Clip{},
		Timeline: []TimelineItem{},
	}
}

// SourceDescriptor describes an incoming video upload
type SourceDescriptor struct {
	Name     string
	Path     string
	URL      string
	MimeType string
	Duration float64
}

// AddVideo appends a source, auto-creates one full-length clip and
// auto-appends one timeline entry with no transition. Returns the new
// source. Fails with InvalidMediaError when the declared kind is not an
// allowed video type.
func (p *Project) AddVideo(desc SourceDescriptor) (*VideoSource, error) {
	if !AllowedVideoTypes[desc.MimeType] {
		return nil, &InvalidMediaError{MimeType: desc.MimeType}
	}

	source := VideoSource{
		ID:       uuid.New().String(),
		Name:     desc.Name,
		Path:     desc.Path,
		URL:      desc.URL,
		Duration: desc.Duration,
	}
	p.Videos = append(p.Videos, source)

	clip := Clip{
		ID:        uuid.New().String(),
		SourceID:  source.ID,
		StartTime: 0,
		EndTime:   desc.Duration,
	}
	p.Clips = append(p.Clips, clip)

	p.Timeline = append(p.Timeline, TimelineItem{
		ClipID:     clip.ID,
		Transition: TransitionNone,
	})

	return &p.Videos[len(p.Videos)-1], nil
}

// SetSourceDuration fills a source's duration once probed, and clamps any
// clip of that source that extended past the now-known end.
func (p *Project) SetSourceDuration(sourceID string, duration float64) {
	for i := range p.Videos {
		if p.Videos[i].ID == sourceID {
			p.Videos[i].Duration = duration
			break
		}
	}
	for i := range p.Clips {
		if p.Clips[i].SourceID == sourceID {
			if p.Clips[i].EndTime == 0 || p.Clips[i].EndTime > duration {
				p.Clips[i].EndTime = duration
			}
			p.Clips[i].ClampToSource(duration)
		}
	}
}

// VideoByID resolves a source by id
func (p *Project) VideoByID(id string) (*VideoSource, bool) {
	for i := range p.Videos {
		if p.Videos[i].ID == id {
			return &p.Videos[i], true
		}
	}
	return nil, false
}

// VideoIndex returns the 1-based index of a source, 0 when absent
func (p *Project) VideoIndex(id string) int {
	for i := range p.Videos {
		if p.Videos[i].ID == id {
			return i + 1
		}
	}
	return 0
}

// ClipByID resolves a clip by id
func (p *Project) ClipByID(id string) (*Clip, bool) {
	for i := range p.Clips {
		if p.Clips[i].ID == id {
			return &p.Clips[i], true
		}
	}
	return nil, false
}

// ClipAtTimelineIndex resolves the clip referenced by a timeline position
func (p *Project) ClipAtTimelineIndex(index int) (*Clip, bool) {
	if index < 0 || index >= len(p.Timeline) {
		return nil, false
	}
	return p.ClipByID(p.Timeline[index].ClipID)
}

// EffectiveEffects shallow-merges a clip's override on top of the global
// effects; clip fields win field-by-field.
func (p *Project) EffectiveEffects(clip *Clip) effects.VideoEffects {
	if clip == nil {
		return p.GlobalEffects
	}
	return effects.Merge(&p.GlobalEffects, clip.Effects)
}

// TotalDuration is the concatenated output length in seconds, accounting
// for each clip's effective playback speed.
func (p *Project) TotalDuration() float64 {
	total := 0.0
	for _, item := range p.Timeline {
		clip, ok := p.ClipByID(item.ClipID)
		if !ok {
			continue
		}
		eff := p.EffectiveEffects(clip)
		total += clip.Duration() / eff.SpeedValue()
	}
	return total
}

// RemoveUnreferencedClips drops clips no timeline entry references.
// A clip must never be rendered without a timeline reference.
func (p *Project) RemoveUnreferencedClips() {
	referenced := make(map[string]bool, len(p.Timeline))
	for _, item := range p.Timeline {
		referenced[item.ClipID] = true
	}

	kept := p.Clips[:0]
	for _, clip := range p.Clips {
		if referenced[clip.ID] {
			kept = append(kept, clip)
		}
	}
	p.Clips = kept
}

// Validate checks the referential invariants: every timeline entry must
// resolve to a clip and every clip to a source. A violation is a programmer
// error in the mutation path, not a recoverable runtime state.
func (p *Project) Validate() error {
	for i, item := range p.Timeline {
		if _, ok := p.ClipByID(item.ClipID); !ok {
			return fmt.Errorf("timeline[%d] references unknown clip %s", i, item.ClipID)
		}
	}
	for i, clip := range p.Clips {
		if _, ok := p.VideoByID(clip.SourceID); !ok {
			return fmt.Errorf("clips[%d] references unknown source %s", i, clip.SourceID)
		}
	}
	return nil
}

// Clone deep-copies the project so callers can hold immutable snapshots
func (p *Project) Clone() *Project {
	out := &Project{
		Videos:        make([]VideoSource, len(p.Videos)),
		Clips:         make([]Clip, len(p.Clips)),
		Timeline:      make([]TimelineItem, len(p.Timeline)),
		GlobalEffects: cloneEffects(p.GlobalEffects),
	}
	copy(out.Videos, p.Videos)
	copy(out.Timeline, p.Timeline)
	for i, clip := range p.Clips {
		out.Clips[i] = clip
		if clip.Effects != nil {
			e := cloneEffects(*clip.Effects)
			out.Clips[i].Effects = &e
		}
	}
	if p.Subtitles != nil {
		track := SubtitleTrack{
			Segments: make([]SubtitleSegment, len(p.Subtitles.Segments)),
			Style:    p.Subtitles.Style,
		}
		copy(track.Segments, p.Subtitles.Segments)
		out.Subtitles = &track
	}
	return out
}

// cloneEffects copies pointer fields so a clone never aliases its source
func cloneEffects(e effects.VideoEffects) effects.VideoEffects {
	out := e
	out.Brightness = copyFloat(e.Brightness)
	out.Contrast = copyFloat(e.Contrast)
	out.Saturation = copyFloat(e.Saturation)
	out.Speed = copyFloat(e.Speed)
	out.Blur = copyFloat(e.Blur)
	out.Sharpen = copyFloat(e.Sharpen)
	out.Vignette = copyFloat(e.Vignette)
	out.FadeIn = copyFloat(e.FadeIn)
	out.FadeOut = copyFloat(e.FadeOut)
	out.Mute = copyBool(e.Mute)
	out.Flip = copyBool(e.Flip)
	if e.Rotate != nil {
		v := *e.Rotate
		out.Rotate = &v
	}
	if e.Preset != nil {
		v := *e.Preset
		out.Preset = &v
	}
	if e.AspectRatio != nil {
		v := *e.AspectRatio
		out.AspectRatio = &v
	}
	if e.Text != nil {
		v := *e.Text
		out.Text = &v
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
