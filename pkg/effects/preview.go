package effects

import (
	"fmt"
	"strings"
)

// PreviewStyle is a lightweight description of how the preview layer should
// render a clip: a CSS-style filter list and a 2D transform. It is an
// on-screen approximation only and is never the export source of truth;
// fades and subtitle burn-in are export-only and intentionally absent here.
type PreviewStyle struct {
	Filter    string
	Transform string
}

// ToPreviewStyle maps an effect set to its preview-layer rendering. The
// color math uses the same ResolveColor composition as the export pipeline
// so preview and export stay visually consistent.
func ToPreviewStyle(e *VideoEffects) PreviewStyle {
	var filters []string

	color := ResolveColor(e)
	if color.Brightness != 0 {
		// CSS brightness is multiplicative around 1
		filters = append(filters, fmt.Sprintf("brightness(%s)", trimFloat(1+color.Brightness)))
	}
	if color.Contrast != 1 {
		filters = append(filters, fmt.Sprintf("contrast(%s)", trimFloat(color.Contrast)))
	}
	if color.Saturation != 1 {
		filters = append(filters, fmt.Sprintf("saturate(%s)", trimFloat(color.Saturation)))
	}
	if sepia := presetSepia(e); sepia > 0 {
		filters = append(filters, fmt.Sprintf("sepia(%s)", trimFloat(sepia)))
	}
	if blur := e.BlurValue(); blur > 0 {
		filters = append(filters, fmt.Sprintf("blur(%spx)", trimFloat(blur/2)))
	}

	var transforms []string
	if e.Flipped() {
		transforms = append(transforms, "scaleX(-1)")
	}
	if q := e.RotateQuarters(); q > 0 {
		transforms = append(transforms, fmt.Sprintf("rotate(%ddeg)", q*90))
	}

	return PreviewStyle{
		Filter:    strings.Join(filters, " "),
		Transform: strings.Join(transforms, " "),
	}
}

// trimFloat formats a float without trailing zeros
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
