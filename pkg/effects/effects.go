// Package effects defines the space of visual and audio transformations
// applied to clips, and the pure functions that resolve them into preview
// and export filter descriptions.
package effects

// Preset is a named bundle of fixed color-adjustment values
type Preset string

const (
	PresetNone      Preset = "none"
	PresetCinematic Preset = "cinematic"
	PresetRetro     Preset = "retro"
	PresetWarm      Preset = "warm"
	PresetCool      Preset = "cool"
	PresetVibrant   Preset = "vibrant"
	PresetBW        Preset = "bw"
)

// AspectRatio selects the output frame shape
type AspectRatio string

const (
	AspectOriginal AspectRatio = "original"
	Aspect16x9     AspectRatio = "16:9"
	Aspect9x16     AspectRatio = "9:16"
	Aspect1x1      AspectRatio = "1:1"
	Aspect4x3      AspectRatio = "4:3"
)

// Value ranges. Out-of-range values are clamped, never rejected.
const (
	MinBrightness = -1.0
	MaxBrightness = 1.0
	MinContrast   = 0.0
	MaxContrast   = 3.0
	MinSaturation = 0.0
	MaxSaturation = 3.0
	MinSpeed      = 0.25
	MaxSpeed      = 4.0
	MaxBlur       = 20.0
	MaxSharpen    = 2.0
	MaxVignette   = 1.0
)

// TextOverlay describes a static text overlay drawn on every frame
type TextOverlay struct {
	Content  string `json:"content"`
	Position string `json:"position,omitempty"` // top, center, bottom
	FontSize int    `json:"fontSize,omitempty"`
	Color    string `json:"color,omitempty"`
}

// VideoEffects is the full transformation record. All fields are optional;
// a nil field means "neutral, leave unchanged". Pointer fields make the
// shallow-merge semantics explicit: an override wins field by field.
type VideoEffects struct {
	Brightness  *float64     `json:"brightness,omitempty"`
	Contrast    *float64     `json:"contrast,omitempty"`
	Saturation  *float64     `json:"saturation,omitempty"`
	Speed       *float64     `json:"speed,omitempty"`
	Mute        *bool        `json:"mute,omitempty"`
	Flip        *bool        `json:"flip,omitempty"`
	Rotate      *int         `json:"rotate,omitempty"`
	Blur        *float64     `json:"blur,omitempty"`
	Sharpen     *float64     `json:"sharpen,omitempty"`
	Vignette    *float64     `json:"vignette,omitempty"`
	FadeIn      *float64     `json:"fadeIn,omitempty"`
	FadeOut     *float64     `json:"fadeOut,omitempty"`
	Preset      *Preset      `json:"preset,omitempty"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
	Text        *TextOverlay `json:"text,omitempty"`
}

// Merge shallow-merges override on top of base. Override fields win
// field-by-field; unset override fields fall through to base.
func Merge(base, override *VideoEffects) VideoEffects {
	var out VideoEffects
	if base != nil {
		out = *base
	}
	if override == nil {
		return out
	}
	if override.Brightness != nil {
		out.Brightness = override.Brightness
	}
	if override.Contrast != nil {
		out.Contrast = override.Contrast
	}
	if override.Saturation != nil {
		out.Saturation = override.Saturation
	}
	if override.Speed != nil {
		out.Speed = override.Speed
	}
	if override.Mute != nil {
		out.Mute = override.Mute
	}
	if override.Flip != nil {
		out.Flip = override.Flip
	}
	if override.Rotate != nil {
		out.Rotate = override.Rotate
	}
	if override.Blur != nil {
		out.Blur = override.Blur
	}
	if override.Sharpen != nil {
		out.Sharpen = override.Sharpen
	}
	if override.Vignette != nil {
		out.Vignette = override.Vignette
	}
	if override.FadeIn != nil {
		out.FadeIn = override.FadeIn
	}
	if override.FadeOut != nil {
		out.FadeOut = override.FadeOut
	}
	if override.Preset != nil {
		out.Preset = override.Preset
	}
	if override.AspectRatio != nil {
		out.AspectRatio = override.AspectRatio
	}
	if override.Text != nil {
		out.Text = override.Text
	}
	return out
}

// SpeedValue returns the playback speed, clamped to the valid range.
// Absent speed means 1.0.
func (e *VideoEffects) SpeedValue() float64 {
	if e == nil || e.Speed == nil {
		return 1.0
	}
	return clamp(*e.Speed, MinSpeed, MaxSpeed)
}

// Muted reports whether audio is muted
func (e *VideoEffects) Muted() bool {
	return e != nil && e.Mute != nil && *e.Mute
}

// Flipped reports whether the horizontal mirror is active
func (e *VideoEffects) Flipped() bool {
	return e != nil && e.Flip != nil && *e.Flip
}

// RotateQuarters returns the number of 90-degree clockwise rotations.
// Values outside {0,90,180,270} snap to the nearest quarter turn.
func (e *VideoEffects) RotateQuarters() int {
	if e == nil || e.Rotate == nil {
		return 0
	}
	deg := ((*e.Rotate % 360) + 360) % 360
	return (deg / 90) % 4
}

// BlurValue returns the blur radius clamped to [0, MaxBlur]
func (e *VideoEffects) BlurValue() float64 {
	if e == nil || e.Blur == nil {
		return 0
	}
	return clamp(*e.Blur, 0, MaxBlur)
}

// SharpenValue returns the sharpen amount clamped to [0, MaxSharpen]
func (e *VideoEffects) SharpenValue() float64 {
	if e == nil || e.Sharpen == nil {
		return 0
	}
	return clamp(*e.Sharpen, 0, MaxSharpen)
}

// VignetteValue returns the vignette strength clamped to [0, MaxVignette]
func (e *VideoEffects) VignetteValue() float64 {
	if e == nil || e.Vignette == nil {
		return 0
	}
	return clamp(*e.Vignette, 0, MaxVignette)
}

// FadeInValue returns the fade-in duration in seconds
func (e *VideoEffects) FadeInValue() float64 {
	if e == nil || e.FadeIn == nil || *e.FadeIn < 0 {
		return 0
	}
	return *e.FadeIn
}

// FadeOutValue returns the fade-out duration in seconds
func (e *VideoEffects) FadeOutValue() float64 {
	if e == nil || e.FadeOut == nil || *e.FadeOut < 0 {
		return 0
	}
	return *e.FadeOut
}

// PresetValue returns the active preset, PresetNone when unset
func (e *VideoEffects) PresetValue() Preset {
	if e == nil || e.Preset == nil {
		return PresetNone
	}
	return *e.Preset
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Helpers for building effect literals in callers and tests

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// PresetPtr returns a pointer to p
func PresetPtr(p Preset) *Preset { return &p }

// AspectPtr returns a pointer to a
func AspectPtr(a AspectRatio) *AspectRatio { return &a }
