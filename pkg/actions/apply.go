package actions

import (
	"github.com/google/uuid"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// Outcome reports what the reducer did. The ignored path is a first-class
// variant rather than a silently swallowed branch so callers and tests can
// assert on it.
type Outcome struct {
	Applied bool
	Reason  string // set when ignored
}

func applied() Outcome {
	return Outcome{Applied: true}
}

func ignored(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Apply folds an action into a project and returns the resulting snapshot.
// The input project is never mutated: applied actions operate on a deep
// copy, and ignored actions return the input unchanged. The result always
// satisfies the referential invariants.
func Apply(p *project.Project, action Action) (*project.Project, Outcome) {
	if p == nil {
		return nil, ignored("nil project")
	}

	switch action.Type {
	case KindAddClip:
		return applyAddClip(p, action)
	case KindRemoveClip:
		return applyRemoveClip(p, action)
	case KindReorderTimeline:
		return applyReorderTimeline(p, action)
	case KindClearTimeline:
		return applyClearTimeline(p)
	case KindSetGlobalEffects:
		return applySetGlobalEffects(p, action)
	case KindTrimClip:
		return applyTrimClip(p, action)
	case KindReplaceTimeline:
		return applyReplaceTimeline(p, action)
	case KindSetSubtitleStyle:
		return applySetSubtitleStyle(p, action)
	case KindSplitClip:
		return p, ignored("splitClip is reserved but unimplemented")
	default:
		return p, ignored("unknown action type")
	}
}

func applyAddClip(p *project.Project, action Action) (*project.Project, Outcome) {
	if action.VideoIndex < 1 || action.VideoIndex > len(p.Videos) {
		return p, ignored("videoIndex out of range")
	}

	next := p.Clone()
	source := next.Videos[action.VideoIndex-1]

	clip := project.Clip{
		ID:        uuid.New().String(),
		SourceID:  source.ID,
		StartTime: action.StartTime,
		EndTime:   action.EndTime,
		Effects:   action.Effects,
	}
	clip.ClampToSource(source.Duration)

	next.Clips = append(next.Clips, clip)
	next.Timeline = append(next.Timeline, project.TimelineItem{
		ClipID:     clip.ID,
		Transition: normalizeTransition(action.Transition),
	})

	return next, applied()
}

func applyRemoveClip(p *project.Project, action Action) (*project.Project, Outcome) {
	if action.ClipIndex == nil {
		return p, ignored("clipIndex missing")
	}
	index := *action.ClipIndex
	if index < 0 || index >= len(p.Timeline) {
		return p, ignored("clipIndex out of range")
	}

	next := p.Clone()
	next.Timeline = append(next.Timeline[:index], next.Timeline[index+1:]...)
	// Clips are refcounted against the timeline: a duplicate entry keeps
	// the clip alive.
	next.RemoveUnreferencedClips()

	return next, applied()
}

func applyReorderTimeline(p *project.Project, action Action) (*project.Project, Outcome) {
	next := p.Clone()

	reordered := make([]project.TimelineItem, 0, len(action.NewOrder))
	for _, oldIndex := range action.NewOrder {
		if oldIndex < 0 || oldIndex >= len(next.Timeline) {
			continue // invalid indices are dropped, not an error
		}
		reordered = append(reordered, next.Timeline[oldIndex])
	}

	next.Timeline = reordered
	next.RemoveUnreferencedClips()

	return next, applied()
}

func applyClearTimeline(p *project.Project) (*project.Project, Outcome) {
	next := p.Clone()
	next.Timeline = []project.TimelineItem{}
	next.Clips = []project.Clip{}
	return next, applied()
}

func applySetGlobalEffects(p *project.Project, action Action) (*project.Project, Outcome) {
	if action.Effects == nil {
		return p, ignored("effects missing")
	}

	next := p.Clone()
	next.GlobalEffects = effects.Merge(&next.GlobalEffects, action.Effects)

	return next, applied()
}

func applyTrimClip(p *project.Project, action Action) (*project.Project, Outcome) {
	if action.ClipIndex == nil {
		return p, ignored("clipIndex missing")
	}

	next := p.Clone()
	clip, ok := next.ClipAtTimelineIndex(*action.ClipIndex)
	if !ok {
		return p, ignored("clipIndex does not resolve to a clip")
	}
	if action.NewStartTime == nil && action.NewEndTime == nil {
		return p, ignored("no trim bounds supplied")
	}

	if action.NewStartTime != nil {
		clip.StartTime = *action.NewStartTime
	}
	if action.NewEndTime != nil {
		clip.EndTime = *action.NewEndTime
	}

	var sourceDuration float64
	if source, ok := next.VideoByID(clip.SourceID); ok {
		sourceDuration = source.Duration
	}
	clip.ClampToSource(sourceDuration)

	return next, applied()
}

func applyReplaceTimeline(p *project.Project, action Action) (*project.Project, Outcome) {
	next := p.Clone()

	// Wholesale replacement: the prior timeline and clips are discarded.
	next.Timeline = []project.TimelineItem{}
	next.Clips = []project.Clip{}

	for _, spec := range action.Clips {
		if spec.VideoIndex < 1 || spec.VideoIndex > len(next.Videos) {
			continue // out-of-range entries are dropped silently
		}
		source := next.Videos[spec.VideoIndex-1]

		clip := project.Clip{
			ID:        uuid.New().String(),
			SourceID:  source.ID,
			StartTime: spec.StartTime,
			EndTime:   spec.EndTime,
			Effects:   spec.Effects,
		}
		clip.ClampToSource(source.Duration)

		next.Clips = append(next.Clips, clip)
		next.Timeline = append(next.Timeline, project.TimelineItem{
			ClipID:     clip.ID,
			Transition: normalizeTransition(spec.Transition),
		})
	}

	return next, applied()
}

func applySetSubtitleStyle(p *project.Project, action Action) (*project.Project, Outcome) {
	if action.Style == nil {
		return p, ignored("style missing")
	}

	next := p.Clone()
	if next.Subtitles == nil {
		next.Subtitles = &project.SubtitleTrack{
			Segments: []project.SubtitleSegment{},
			Style:    project.DefaultSubtitleStyle(),
		}
	}
	next.Subtitles.MergeStyle(*action.Style)

	return next, applied()
}

func normalizeTransition(t project.Transition) project.Transition {
	switch t {
	case project.TransitionFade, project.TransitionCrossfade:
		return t
	default:
		return project.TransitionNone
	}
}
