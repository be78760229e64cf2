package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_OverrideWinsFieldByField(t *testing.T) {
	base := &VideoEffects{
		Brightness: Float(0.2),
		Speed:      Float(2.0),
		Mute:       Bool(true),
	}
	override := &VideoEffects{
		Brightness: Float(-0.5),
		Blur:       Float(4),
	}

	merged := Merge(base, override)

	assert.Equal(t, -0.5, *merged.Brightness)
	assert.Equal(t, 2.0, *merged.Speed) // unset in override, falls through
	assert.True(t, *merged.Mute)
	assert.Equal(t, 4.0, *merged.Blur)
}

func TestMerge_NilInputs(t *testing.T) {
	merged := Merge(nil, nil)
	assert.Nil(t, merged.Brightness)
	assert.Equal(t, 1.0, merged.SpeedValue())

	merged = Merge(nil, &VideoEffects{Speed: Float(0.5)})
	assert.Equal(t, 0.5, merged.SpeedValue())
}

func TestResolveColor_PresetThenUserComposition(t *testing.T) {
	// vibrant base: brightness 0.05, contrast 1.15, saturation 1.4
	e := &VideoEffects{
		Preset:     PresetPtr(PresetVibrant),
		Brightness: Float(0.1),
		Contrast:   Float(2.0),
		Saturation: Float(0.5),
	}

	c := ResolveColor(e)

	assert.InDelta(t, 0.15, c.Brightness, 1e-9) // additive
	assert.InDelta(t, 2.3, c.Contrast, 1e-9)    // multiplicative
	assert.InDelta(t, 0.7, c.Saturation, 1e-9)  // multiplicative
}

func TestResolveColor_Idempotent(t *testing.T) {
	e := &VideoEffects{
		Preset:     PresetPtr(PresetCinematic),
		Brightness: Float(0.3),
	}

	first := ResolveColor(e)
	second := ResolveColor(e)

	assert.Equal(t, first, second)
}

func TestResolveColor_NeutralWithoutEffects(t *testing.T) {
	c := ResolveColor(nil)
	assert.True(t, c.Neutral())

	c = ResolveColor(&VideoEffects{})
	assert.True(t, c.Neutral())
}

func TestResolveColor_ClampsOutOfRange(t *testing.T) {
	e := &VideoEffects{
		Brightness: Float(5.0),
		Contrast:   Float(-1.0),
	}

	c := ResolveColor(e)

	assert.Equal(t, MaxBrightness, c.Brightness)
	assert.Equal(t, MinContrast, c.Contrast)
}

func TestRotateQuarters(t *testing.T) {
	tests := []struct {
		degrees  int
		quarters int
	}{
		{0, 0},
		{90, 1},
		{180, 2},
		{270, 3},
		{360, 0},
		{-90, 3},
	}

	for _, tt := range tests {
		e := &VideoEffects{Rotate: Int(tt.degrees)}
		assert.Equal(t, tt.quarters, e.RotateQuarters(), "degrees=%d", tt.degrees)
	}
}

func TestSpeedValue_Clamped(t *testing.T) {
	assert.Equal(t, 1.0, (&VideoEffects{}).SpeedValue())
	assert.Equal(t, MaxSpeed, (&VideoEffects{Speed: Float(10)}).SpeedValue())
	assert.Equal(t, MinSpeed, (&VideoEffects{Speed: Float(0.01)}).SpeedValue())
}

func TestLookupFormat(t *testing.T) {
	f := LookupFormat("tiktok")
	assert.Equal(t, 1080, f.Width)
	assert.Equal(t, 1920, f.Height)

	f = LookupFormat("youtube")
	assert.Equal(t, 1920, f.Width)
	assert.Equal(t, 1080, f.Height)

	// Unknown falls back to default
	f = LookupFormat("betamax")
	assert.Equal(t, "tiktok", f.Name)
}
