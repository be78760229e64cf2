package subtitles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestClean_KeepsValidSegments(t *testing.T) {
	out := Clean([]RawSegment{
		{Start: floatPtr(0), End: floatPtr(2.5), Text: "hello there"},
		{Start: floatPtr(2.5), End: floatPtr(5), Text: "general"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0].StartTime)
	assert.Equal(t, 2.5, out[0].EndTime)
	assert.Equal(t, "hello there", out[0].Text)
}

func TestClean_DropsEmptyText(t *testing.T) {
	out := Clean([]RawSegment{
		{Start: floatPtr(0), End: floatPtr(2), Text: "   "},
		{Start: floatPtr(2), End: floatPtr(4), Text: "kept"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Text)
}

func TestClean_DropsMissingEndTimestamp(t *testing.T) {
	out := Clean([]RawSegment{
		{Start: floatPtr(0), End: floatPtr(2), Text: "kept"},
		{Start: floatPtr(2), Text: "end-of-stream artifact"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Text)
}

func TestClean_MissingStartDefaultsToZero(t *testing.T) {
	out := Clean([]RawSegment{
		{End: floatPtr(3), Text: "no start"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].StartTime)
}

func TestClean_HallucinationFilter(t *testing.T) {
	// Five repeats of one token: a recognition loop, dropped
	out := Clean([]RawSegment{
		{Start: floatPtr(0), End: floatPtr(2), Text: "の、の、の、の、の"},
		{Start: floatPtr(2), End: floatPtr(4), Text: "real speech"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "real speech", out[0].Text)
}

func TestClean_TwoRepeatsKept(t *testing.T) {
	out := Clean([]RawSegment{
		{Start: floatPtr(0), End: floatPtr(2), Text: "no, no, never"},
	})

	require.Len(t, out, 1)
}

func TestClean_FallbackSegmentWhenNothingSurvives(t *testing.T) {
	out := Clean([]RawSegment{
		{Start: floatPtr(0), Text: "first part"},
		{Start: floatPtr(5), Text: "second part"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].StartTime)
	assert.Equal(t, 30.0, out[0].EndTime)
	assert.Equal(t, "first part second part", out[0].Text)
}

func TestClean_EmptyInput(t *testing.T) {
	assert.Empty(t, Clean(nil))
	assert.Empty(t, Clean([]RawSegment{{Start: floatPtr(0), End: floatPtr(1), Text: ""}}))
}

func TestHallucinated(t *testing.T) {
	assert.True(t, hallucinated("の、の、の、の、の"))
	assert.True(t, hallucinated("thanks thanks thanks thanks"))
	assert.False(t, hallucinated("thanks for watching, thanks again"))
	assert.False(t, hallucinated("ordinary sentence with no loops"))
}
