package effects

// ColorAdjust is a resolved (brightness, contrast, saturation) tuple in
// export terms: brightness additive around 0, contrast and saturation
// multiplicative around 1.
type ColorAdjust struct {
	Brightness float64
	Contrast   float64
	Saturation float64
}

// Neutral reports whether the adjustment changes nothing
func (c ColorAdjust) Neutral() bool {
	return c.Brightness == 0 && c.Contrast == 1 && c.Saturation == 1
}

// presetBase holds the fixed adjustment each preset starts from. Sepia is
// used only by the preview layer; the export pipeline approximates presets
// through the eq tuple alone.
type presetColor struct {
	brightness float64
	contrast   float64
	saturation float64
	sepia      float64
}

var presetBases = map[Preset]presetColor{
	PresetNone:      {brightness: 0, contrast: 1, saturation: 1},
	PresetCinematic: {brightness: -0.05, contrast: 1.2, saturation: 1.1},
	PresetRetro:     {brightness: 0.05, contrast: 0.95, saturation: 0.8, sepia: 0.4},
	PresetWarm:      {brightness: 0.05, contrast: 1.05, saturation: 1.15},
	PresetCool:      {brightness: 0, contrast: 1.05, saturation: 0.9},
	PresetVibrant:   {brightness: 0.05, contrast: 1.15, saturation: 1.4},
	PresetBW:        {brightness: 0, contrast: 1.1, saturation: 0},
}

// ResolveColor composes the active preset with user adjustments: the preset
// supplies the base tuple, then user brightness is added and user contrast
// and saturation are multiplied on top. Results are clamped to the valid
// ranges. Pure: the same effects always resolve to the same tuple.
func ResolveColor(e *VideoEffects) ColorAdjust {
	base := presetBases[PresetNone]
	if e != nil {
		if b, ok := presetBases[e.PresetValue()]; ok {
			base = b
		}
	}

	out := ColorAdjust{
		Brightness: base.brightness,
		Contrast:   base.contrast,
		Saturation: base.saturation,
	}

	if e != nil {
		if e.Brightness != nil {
			out.Brightness += clamp(*e.Brightness, MinBrightness, MaxBrightness)
		}
		if e.Contrast != nil {
			out.Contrast *= clamp(*e.Contrast, MinContrast, MaxContrast)
		}
		if e.Saturation != nil {
			out.Saturation *= clamp(*e.Saturation, MinSaturation, MaxSaturation)
		}
	}

	out.Brightness = clamp(out.Brightness, MinBrightness, MaxBrightness)
	out.Contrast = clamp(out.Contrast, MinContrast, MaxContrast)
	out.Saturation = clamp(out.Saturation, MinSaturation, MaxSaturation)

	return out
}

// presetSepia returns the preview-only sepia amount for the active preset
func presetSepia(e *VideoEffects) float64 {
	if e == nil {
		return 0
	}
	if base, ok := presetBases[e.PresetValue()]; ok {
		return base.sepia
	}
	return 0
}
