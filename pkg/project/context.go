package project

import "github.com/clipforge/clipforge/pkg/effects"

// Context is the compact project summary handed to the assistant so the
// model can reference sources and clips by index.
type Context struct {
	VideoCount        int                  `json:"videoCount"`
	Videos            []VideoSummary       `json:"videos"`
	TimelineClipCount int                  `json:"timelineClipCount"`
	Timeline          []TimelineSummary    `json:"timeline"`
	GlobalEffects     effects.VideoEffects `json:"globalEffects"`
}

// VideoSummary identifies one source by 1-based index
type VideoSummary struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}

// TimelineSummary describes one timeline position
type TimelineSummary struct {
	Position   int     `json:"position"`
	VideoIndex int     `json:"videoIndex"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Transition string  `json:"transition,omitempty"`
}

// Summarize builds the assistant-facing context from the current state
func (p *Project) Summarize() Context {
	ctx := Context{
		VideoCount:        len(p.Videos),
		Videos:            make([]VideoSummary, 0, len(p.Videos)),
		TimelineClipCount: len(p.Timeline),
		Timeline:          make([]TimelineSummary, 0, len(p.Timeline)),
		GlobalEffects:     p.GlobalEffects,
	}

	for i, v := range p.Videos {
		ctx.Videos = append(ctx.Videos, VideoSummary{
			Index:    i + 1,
			Name:     v.Name,
			Duration: v.Duration,
		})
	}

	for i, item := range p.Timeline {
		summary := TimelineSummary{Position: i}
		if item.Transition != "" && item.Transition != TransitionNone {
			summary.Transition = string(item.Transition)
		}
		if clip, ok := p.ClipByID(item.ClipID); ok {
			summary.VideoIndex = p.VideoIndex(clip.SourceID)
			summary.StartTime = clip.StartTime
			summary.EndTime = clip.EndTime
		}
		ctx.Timeline = append(ctx.Timeline, summary)
	}

	return ctx
}
