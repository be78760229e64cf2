package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/effects"
)

func TestNew_Empty(t *testing.T) {
	p := New()
	assert.Empty(t, p.Videos)
	assert.Empty(t, p.Clips)
	assert.Empty(t, p.Timeline)
	assert.NoError(t, p.Validate())
}

func TestAddVideo_AutoClipAndTimelineEntry(t *testing.T) {
	p := New()

	source, err := p.AddVideo(SourceDescriptor{
		Name:     "beach.mp4",
		Path:     "/tmp/beach.mp4",
		MimeType: "video/mp4",
		Duration: 15,
	})
	require.NoError(t, err)

	require.Len(t, p.Videos, 1)
	require.Len(t, p.Clips, 1)
	require.Len(t, p.Timeline, 1)

	clip := p.Clips[0]
	assert.Equal(t, source.ID, clip.SourceID)
	assert.Equal(t, 0.0, clip.StartTime)
	assert.Equal(t, 15.0, clip.EndTime)
	assert.Equal(t, clip.ID, p.Timeline[0].ClipID)
	assert.Equal(t, TransitionNone, p.Timeline[0].Transition)
	assert.NoError(t, p.Validate())
}

func TestAddVideo_RejectsNonVideoType(t *testing.T) {
	p := New()

	_, err := p.AddVideo(SourceDescriptor{Name: "doc.pdf", MimeType: "application/pdf"})

	var mediaErr *InvalidMediaError
	require.ErrorAs(t, err, &mediaErr)
	assert.Equal(t, "application/pdf", mediaErr.MimeType)
	assert.Empty(t, p.Videos)
}

func TestSetSourceDuration_ClampsClips(t *testing.T) {
	p := New()
	source, err := p.AddVideo(SourceDescriptor{Name: "a.mp4", MimeType: "video/mp4"})
	require.NoError(t, err)

	// Duration unknown at upload time, clip end is 0
	assert.Equal(t, 0.0, p.Clips[0].EndTime)

	p.SetSourceDuration(source.ID, 20)

	assert.Equal(t, 20.0, p.Videos[0].Duration)
	assert.Equal(t, 20.0, p.Clips[0].EndTime)
}

func TestClip_ClampToSource(t *testing.T) {
	clip := Clip{StartTime: -2, EndTime: 50}
	clip.ClampToSource(30)
	assert.Equal(t, 0.0, clip.StartTime)
	assert.Equal(t, 30.0, clip.EndTime)

	// Inverted range collapses rather than going negative
	clip = Clip{StartTime: 10, EndTime: 5}
	clip.ClampToSource(30)
	assert.Equal(t, 0.0, clip.Duration())
}

func TestTotalDuration_AccountsForSpeed(t *testing.T) {
	p := New()
	_, err := p.AddVideo(SourceDescriptor{Name: "a.mp4", MimeType: "video/mp4", Duration: 10})
	require.NoError(t, err)

	assert.Equal(t, 10.0, p.TotalDuration())

	p.GlobalEffects.Speed = effects.Float(2.0)
	assert.Equal(t, 5.0, p.TotalDuration())

	// Per-clip override wins over global
	p.Clips[0].Effects = &effects.VideoEffects{Speed: effects.Float(0.5)}
	assert.Equal(t, 20.0, p.TotalDuration())
}

func TestEffectiveEffects_ClipOverridesGlobal(t *testing.T) {
	p := New()
	p.GlobalEffects.Brightness = effects.Float(0.1)
	p.GlobalEffects.Mute = effects.Bool(true)

	clip := &Clip{Effects: &effects.VideoEffects{Brightness: effects.Float(-0.3)}}
	eff := p.EffectiveEffects(clip)

	assert.Equal(t, -0.3, *eff.Brightness)
	assert.True(t, eff.Muted()) // global field survives
}

func TestRemoveUnreferencedClips(t *testing.T) {
	p := New()
	_, err := p.AddVideo(SourceDescriptor{Name: "a.mp4", MimeType: "video/mp4", Duration: 10})
	require.NoError(t, err)

	orphan := Clip{ID: "orphan", SourceID: p.Videos[0].ID, StartTime: 0, EndTime: 5}
	p.Clips = append(p.Clips, orphan)

	p.RemoveUnreferencedClips()

	require.Len(t, p.Clips, 1)
	assert.NotEqual(t, "orphan", p.Clips[0].ID)
	assert.NoError(t, p.Validate())
}

func TestValidate_DetectsDanglingReferences(t *testing.T) {
	p := New()
	p.Timeline = append(p.Timeline, TimelineItem{ClipID: "ghost"})
	assert.Error(t, p.Validate())

	p = New()
	p.Clips = append(p.Clips, Clip{ID: "c1", SourceID: "ghost"})
	assert.Error(t, p.Validate())
}

func TestClone_Independent(t *testing.T) {
	p := New()
	_, err := p.AddVideo(SourceDescriptor{Name: "a.mp4", MimeType: "video/mp4", Duration: 10})
	require.NoError(t, err)
	p.GlobalEffects.Speed = effects.Float(2.0)
	p.Subtitles = &SubtitleTrack{
		Segments: []SubtitleSegment{{StartTime: 1, EndTime: 2, Text: "hi"}},
		Style:    DefaultSubtitleStyle(),
	}

	clone := p.Clone()
	*clone.GlobalEffects.Speed = 0.5
	clone.Subtitles.Segments[0].Text = "changed"
	clone.Clips[0].StartTime = 99

	assert.Equal(t, 2.0, *p.GlobalEffects.Speed)
	assert.Equal(t, "hi", p.Subtitles.Segments[0].Text)
	assert.Equal(t, 0.0, p.Clips[0].StartTime)
}

func TestSummarize(t *testing.T) {
	p := New()
	_, err := p.AddVideo(SourceDescriptor{Name: "a.mp4", MimeType: "video/mp4", Duration: 12})
	require.NoError(t, err)

	ctx := p.Summarize()

	assert.Equal(t, 1, ctx.VideoCount)
	require.Len(t, ctx.Videos, 1)
	assert.Equal(t, 1, ctx.Videos[0].Index)
	assert.Equal(t, 12.0, ctx.Videos[0].Duration)
	require.Len(t, ctx.Timeline, 1)
	assert.Equal(t, 0, ctx.Timeline[0].Position)
	assert.Equal(t, 1, ctx.Timeline[0].VideoIndex)
	assert.Equal(t, 12.0, ctx.Timeline[0].EndTime)
}
