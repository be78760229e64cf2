// Package render turns a project snapshot into a single output file.
// Two strategies implement the same composition rules: a batch
// filter-graph pipeline driving the external encoder per clip, and a
// realtime capture pipeline drawing frames onto a recorded surface.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// ClipPlan is everything needed to render one timeline item
type ClipPlan struct {
	Effects effects.VideoEffects
	Format  effects.Format
	// Captions are already localized to clip-relative source time
	Captions []project.SubtitleSegment
	Style    project.SubtitleStyle
	// Speed is the effective playback speed
	Speed float64
	// Duration is the clip's output duration in seconds, after speed
	Duration float64
}

// VideoChain builds the ordered video filter chain for one clip. The
// order is fixed: filters do not commute, so scale and pad always come
// first and subtitle burn-in always comes last.
func VideoChain(plan ClipPlan) []string {
	eff := &plan.Effects
	var chain []string

	// Geometry: fit inside the target frame, centered on black
	chain = append(chain,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", plan.Format.Width, plan.Format.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", plan.Format.Width, plan.Format.Height),
	)

	// Color, only when it changes anything
	if color := effects.ResolveColor(eff); !color.Neutral() {
		chain = append(chain, fmt.Sprintf("eq=brightness=%s:contrast=%s:saturation=%s",
			trimFloat(color.Brightness), trimFloat(color.Contrast), trimFloat(color.Saturation)))
	}

	if blur := eff.BlurValue(); blur > 0 {
		chain = append(chain, fmt.Sprintf("gblur=sigma=%s", trimFloat(blur/2)))
	}

	if sharpen := eff.SharpenValue(); sharpen > 0 {
		chain = append(chain, fmt.Sprintf("unsharp=5:5:%s", trimFloat(sharpen)))
	}

	if vignette := eff.VignetteValue(); vignette > 0 {
		chain = append(chain, fmt.Sprintf("vignette=angle=%s", trimFloat(vignette*math.Pi/4)))
	}

	if eff.Flipped() {
		chain = append(chain, "hflip")
	}

	for i := 0; i < eff.RotateQuarters(); i++ {
		chain = append(chain, "transpose=1")
	}

	if speed := eff.SpeedValue(); speed != 1.0 {
		chain = append(chain, fmt.Sprintf("setpts=PTS/%s", trimFloat(speed)))
	}

	if fadeIn := eff.FadeInValue(); fadeIn > 0 {
		chain = append(chain, fmt.Sprintf("fade=t=in:st=0:d=%s", trimFloat(fadeIn)))
	}
	if fadeOut := eff.FadeOutValue(); fadeOut > 0 {
		start := plan.Duration - fadeOut
		if start < 0 {
			start = 0
		}
		chain = append(chain, fmt.Sprintf("fade=t=out:st=%s:d=%s", trimFloat(start), trimFloat(fadeOut)))
	}

	if eff.Text != nil && eff.Text.Content != "" {
		chain = append(chain, overlayFilter(eff.Text, plan.Format))
	}

	chain = append(chain, captionFilters(plan)...)

	return chain
}

// AudioChain builds the audio filter chain for one clip. The caller
// drops audio entirely when the clip is muted; this never handles mute.
func AudioChain(plan ClipPlan) []string {
	eff := &plan.Effects
	var chain []string

	for _, step := range effects.TempoChain(eff.SpeedValue()) {
		chain = append(chain, fmt.Sprintf("atempo=%s", trimFloat(step)))
	}

	if fadeIn := eff.FadeInValue(); fadeIn > 0 {
		chain = append(chain, fmt.Sprintf("afade=t=in:st=0:d=%s", trimFloat(fadeIn)))
	}
	if fadeOut := eff.FadeOutValue(); fadeOut > 0 {
		start := plan.Duration - fadeOut
		if start < 0 {
			start = 0
		}
		chain = append(chain, fmt.Sprintf("afade=t=out:st=%s:d=%s", trimFloat(start), trimFloat(fadeOut)))
	}

	return chain
}

// trimFloat formats a float compactly, dropping trailing zeros so the
// generated filter strings are stable and readable.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
