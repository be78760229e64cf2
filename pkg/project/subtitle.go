package project

// SubtitleSegment is one caption. Timestamps are source-relative seconds;
// export re-localizes them to clip-relative time before burn-in.
type SubtitleSegment struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Subtitle style enumerations
const (
	FontSizeSmall  = "small"
	FontSizeMedium = "medium"
	FontSizeLarge  = "large"

	PositionTop    = "top"
	PositionCenter = "center"
	PositionBottom = "bottom"
)

// SubtitleStyle controls burn-in rendering
type SubtitleStyle struct {
	FontSize        string `json:"fontSize,omitempty"`
	Position        string `json:"position,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// DefaultSubtitleStyle is applied when a track is generated fresh
func DefaultSubtitleStyle() SubtitleStyle {
	return SubtitleStyle{
		FontSize:        FontSizeMedium,
		Position:        PositionBottom,
		Color:           "#ffffff",
		BackgroundColor: "rgba(0,0,0,0.6)",
	}
}

// SubtitleTrack is the single caption track. Segments are regenerated
// wholesale by the generator; style is mutated independently.
type SubtitleTrack struct {
	Segments []SubtitleSegment `json:"segments"`
	Style    SubtitleStyle     `json:"style"`
}

// MergeStyle shallow-merges a partial style; empty fields leave the
// current value unchanged.
func (t *SubtitleTrack) MergeStyle(partial SubtitleStyle) {
	if partial.FontSize != "" {
		t.Style.FontSize = partial.FontSize
	}
	if partial.Position != "" {
		t.Style.Position = partial.Position
	}
	if partial.Color != "" {
		t.Style.Color = partial.Color
	}
	if partial.BackgroundColor != "" {
		t.Style.BackgroundColor = partial.BackgroundColor
	}
}

// LocalizeSegments maps source-relative segments into a clip's local time:
// each overlapping segment is shifted by the clip's start and truncated to
// [0, clipDuration); segments outside the clip's range are dropped.
func LocalizeSegments(segments []SubtitleSegment, clip *Clip) []SubtitleSegment {
	if clip == nil {
		return nil
	}

	clipDuration := clip.Duration()
	var out []SubtitleSegment
	for _, seg := range segments {
		// No overlap with [clip.StartTime, clip.EndTime)
		if seg.EndTime <= clip.StartTime || seg.StartTime >= clip.EndTime {
			continue
		}

		start := seg.StartTime - clip.StartTime
		end := seg.EndTime - clip.StartTime
		if start < 0 {
			start = 0
		}
		if end > clipDuration {
			end = clipDuration
		}
		if end <= start {
			continue
		}

		out = append(out, SubtitleSegment{
			StartTime: start,
			EndTime:   end,
			Text:      seg.Text,
		})
	}
	return out
}
