package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

func buildTwoClipProject(t *testing.T) *project.Project {
	t.Helper()
	p := project.New()
	_, err := p.AddVideo(project.SourceDescriptor{
		Name:     "a.mp4",
		MimeType: "video/mp4",
		Duration: 30,
	})
	require.NoError(t, err)

	// Replace the auto clip with two explicit ranges: [5,15) and [20,30)
	source := p.Videos[0]
	p.Clips = []project.Clip{
		{ID: "c1", SourceID: source.ID, StartTime: 5, EndTime: 15},
		{ID: "c2", SourceID: source.ID, StartTime: 20, EndTime: 30},
	}
	p.Timeline = []project.TimelineItem{
		{ClipID: "c1"},
		{ClipID: "c2"},
	}
	return p
}

func TestLocate_FirstClip(t *testing.T) {
	p := buildTwoClipProject(t)

	loc, ok := Locate(p, 3)

	require.True(t, ok)
	assert.Equal(t, 0, loc.TimelineIndex)
	assert.Equal(t, "c1", loc.ClipID)
	assert.Equal(t, 8.0, loc.TimeInClip) // 3s into [5,15)
}

func TestLocate_SecondClip(t *testing.T) {
	p := buildTwoClipProject(t)

	loc, ok := Locate(p, 12)

	require.True(t, ok)
	assert.Equal(t, 1, loc.TimelineIndex)
	assert.Equal(t, "c2", loc.ClipID)
	assert.Equal(t, 22.0, loc.TimeInClip) // 2s into [20,30)
}

func TestLocate_SpeedScalesIntraClipTime(t *testing.T) {
	p := buildTwoClipProject(t)
	p.GlobalEffects.Speed = effects.Float(2.0)

	// Each clip is 5s effective; cursor 2s in means 4 source seconds
	loc, ok := Locate(p, 2)

	require.True(t, ok)
	assert.Equal(t, "c1", loc.ClipID)
	assert.Equal(t, 9.0, loc.TimeInClip) // 2*2 + 5
	assert.Equal(t, 2.0, loc.Speed)
}

func TestLocate_PastEndClampsToLastClip(t *testing.T) {
	p := buildTwoClipProject(t)

	loc, ok := Locate(p, 500)

	require.True(t, ok)
	assert.Equal(t, 1, loc.TimelineIndex)
	assert.Equal(t, 30.0, loc.TimeInClip)
}

func TestLocate_EmptyTimeline(t *testing.T) {
	p := project.New()

	_, ok := Locate(p, 0)

	assert.False(t, ok)
}
