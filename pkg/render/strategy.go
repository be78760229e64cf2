package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// ErrEmptyTimeline indicates there is nothing to render
var ErrEmptyTimeline = errors.New("timeline is empty")

// Strategy renders a project into a single output file. Implementations
// must honor the same filter composition and caption localization
// rules; outputPath is the desired destination, and the returned path
// is the actual artifact (it may differ when a container fallback
// applies).
type Strategy interface {
	Render(ctx context.Context, p *project.Project, format effects.Format, outputPath string, onProgress func(percent float64)) (string, error)

	// Container is the strategy's native output container extension
	Container() string
}

// renderItem pairs a timeline entry with its resolved clip
type renderItem struct {
	clip  *project.Clip
	index int
}

// renderableItems resolves the timeline into ordered clips. Dangling
// references are a store bug and surface as an error rather than being
// skipped silently.
func renderableItems(p *project.Project) ([]renderItem, error) {
	if len(p.Timeline) == 0 {
		return nil, ErrEmptyTimeline
	}

	items := make([]renderItem, 0, len(p.Timeline))
	for i, entry := range p.Timeline {
		clip, ok := p.ClipByID(entry.ClipID)
		if !ok {
			return nil, fmt.Errorf("timeline item %d references unknown clip %s", i, entry.ClipID)
		}
		items = append(items, renderItem{clip: clip, index: i})
	}
	return items, nil
}

// buildPlan computes the full render plan for one clip
func buildPlan(p *project.Project, clip *project.Clip, format effects.Format) ClipPlan {
	eff := p.EffectiveEffects(clip)
	speed := eff.SpeedValue()

	plan := ClipPlan{
		Effects:  eff,
		Format:   format,
		Speed:    speed,
		Duration: clip.Duration() / speed,
	}

	if p.Subtitles != nil && len(p.Subtitles.Segments) > 0 {
		plan.Captions = project.LocalizeSegments(p.Subtitles.Segments, clip)
		plan.Style = p.Subtitles.Style
	}

	return plan
}
