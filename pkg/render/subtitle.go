package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// captionFilters emits one drawtext filter per caption segment. The
// segments arrive clip-local in source time; the enable windows are
// divided by the playback speed because burn-in runs after the
// timestamp rescale.
func captionFilters(plan ClipPlan) []string {
	if len(plan.Captions) == 0 {
		return nil
	}

	speed := plan.Speed
	if speed <= 0 {
		speed = 1
	}

	style := plan.Style
	fontSize := fontSizePixels(style.FontSize, plan.Format.Height)
	y := captionY(style.Position)

	var out []string
	for _, seg := range plan.Captions {
		out = append(out, fmt.Sprintf(
			"drawtext=text='%s':fontsize=%d:fontcolor=%s:x=(w-text_w)/2:y=%s:box=1:boxcolor=%s:boxborderw=%d:enable='between(t,%s,%s)'",
			escapeDrawtext(seg.Text),
			fontSize,
			ffmpegColor(style.Color, "white"),
			y,
			ffmpegColor(style.BackgroundColor, "black@0.6"),
			fontSize/4,
			trimFloat(seg.StartTime/speed),
			trimFloat(seg.EndTime/speed),
		))
	}
	return out
}

// overlayFilter draws a static text overlay on every frame
func overlayFilter(text *effects.TextOverlay, format effects.Format) string {
	fontSize := text.FontSize
	if fontSize <= 0 {
		fontSize = 48 * format.Height / 1080
	}
	return fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:x=(w-text_w)/2:y=%s",
		escapeDrawtext(text.Content),
		fontSize,
		ffmpegColor(text.Color, "white"),
		captionY(text.Position),
	)
}

// fontSizePixels maps the named size to pixels, scaled to the target
// height from a 1080p baseline.
func fontSizePixels(size string, formatHeight int) int {
	base := 48
	switch size {
	case project.FontSizeSmall:
		base = 32
	case project.FontSizeLarge:
		base = 64
	}
	return base * formatHeight / 1080
}

// captionY returns the drawtext y expression for a named position
func captionY(position string) string {
	switch position {
	case project.PositionTop:
		return "h*0.08"
	case project.PositionCenter:
		return "(h-text_h)/2"
	default:
		return "h-text_h-h*0.08"
	}
}

// ffmpegColor converts a CSS-style color to ffmpeg color syntax.
// Handles "#rrggbb" and "rgba(r,g,b,a)"; anything else falls back.
func ffmpegColor(css, fallback string) string {
	css = strings.TrimSpace(css)
	if css == "" {
		return fallback
	}

	if strings.HasPrefix(css, "#") {
		return "0x" + strings.TrimPrefix(css, "#")
	}

	if strings.HasPrefix(css, "rgba(") || strings.HasPrefix(css, "rgb(") {
		inner := css[strings.Index(css, "(")+1 : len(css)-1]
		parts := strings.Split(inner, ",")
		if len(parts) >= 3 {
			r := parseColorComponent(parts[0])
			g := parseColorComponent(parts[1])
			b := parseColorComponent(parts[2])
			alpha := 1.0
			if len(parts) == 4 {
				if a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil {
					alpha = a
				}
			}
			return fmt.Sprintf("0x%02X%02X%02X@%s", r, g, b, trimFloat(alpha))
		}
	}

	// Named colors pass through untouched
	return css
}

func parseColorComponent(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// escapeDrawtext escapes text for embedding inside a drawtext filter
// argument. Backslash first, then the characters the filter parser
// treats specially.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\\\'`,
		`:`, `\:`,
		`%`, `\\%`,
	)
	return replacer.Replace(s)
}
