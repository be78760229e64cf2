package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

type fakeFrame struct{ w, h int }

func (f fakeFrame) Size() (int, int) { return f.w, f.h }

type fakeSource struct {
	loaded string
	seeks  []float64
	rates  []float64
	frames int
	audio  int
}

func (f *fakeSource) Load(_ context.Context, sourceID string) error {
	f.loaded = sourceID
	return nil
}
func (f *fakeSource) Seek(seconds float64) error {
	f.seeks = append(f.seeks, seconds)
	return nil
}
func (f *fakeSource) SetRate(rate float64) error {
	f.rates = append(f.rates, rate)
	return nil
}
func (f *fakeSource) NextFrame(context.Context) (Frame, error) {
	f.frames++
	return fakeFrame{w: 1920, h: 1080}, nil
}
func (f *fakeSource) CaptureAudio(ctx context.Context) error {
	f.audio++
	<-ctx.Done()
	return context.Canceled
}

type fakeSurface struct {
	draws    int
	captions []string
	filters  []string
}

func (f *fakeSurface) Size() (int, int)       { return 1080, 1920 }
func (f *fakeSurface) Clear()                 {}
func (f *fakeSurface) SetFilter(filter string) { f.filters = append(f.filters, filter) }
func (f *fakeSurface) SetTransform(bool, int) {}
func (f *fakeSurface) Reset()                 {}
func (f *fakeSurface) DrawFrame(Frame, Box)   { f.draws++ }
func (f *fakeSurface) DrawCaption(text string, _ project.SubtitleStyle, _ Box) {
	f.captions = append(f.captions, text)
}

type fakeRecorder struct {
	started  bool
	stopped  bool
	artifact string
}

func (f *fakeRecorder) Start() error { f.started = true; return nil }
func (f *fakeRecorder) Stop(context.Context) (string, error) {
	f.stopped = true
	return f.artifact, nil
}
func (f *fakeRecorder) Container() string { return "webm" }

// stepClock advances a fixed amount per reading so the realtime loop
// terminates instantly in tests
func stepClock(step time.Duration) func() time.Time {
	current := time.Unix(0, 0)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

func captureFixture(t *testing.T) (*Capture, *fakeSource, *fakeSurface, *fakeRecorder) {
	t.Helper()
	artifact := filepath.Join(t.TempDir(), "recorded.webm")
	require.NoError(t, copyFileFixture(artifact))

	source := &fakeSource{}
	surface := &fakeSurface{}
	recorder := &fakeRecorder{artifact: artifact}
	capture := NewCapture(source, surface, recorder, nil, zerolog.Nop())
	capture.clock = stepClock(500 * time.Millisecond)
	return capture, source, surface, recorder
}

func copyFileFixture(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}

func TestCapture_RendersClipsInOrder(t *testing.T) {
	capture, source, surface, recorder := captureFixture(t)
	p := exportProject(t, 2)

	outPath := filepath.Join(t.TempDir(), "out.webm")
	final, err := capture.Render(context.Background(), p,
		effects.LookupFormat("tiktok"), outPath, nil)

	require.NoError(t, err)
	assert.Equal(t, outPath, final)
	assert.True(t, recorder.started)
	assert.True(t, recorder.stopped)
	assert.Equal(t, []float64{0, 10}, source.seeks)
	assert.Equal(t, []float64{1, 1}, source.rates)
	assert.Greater(t, surface.draws, 0)
	assert.Equal(t, 2, source.audio)
}

func TestCapture_MutedClipSkipsAudio(t *testing.T) {
	capture, source, _, _ := captureFixture(t)
	p := exportProject(t, 1)
	p.GlobalEffects.Mute = effects.Bool(true)

	_, err := capture.Render(context.Background(), p,
		effects.LookupFormat("tiktok"), filepath.Join(t.TempDir(), "out.webm"), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, source.audio)
}

func TestCapture_DrawsActiveCaption(t *testing.T) {
	capture, _, surface, _ := captureFixture(t)
	p := exportProject(t, 1)
	p.Subtitles = &project.SubtitleTrack{
		// Covers the whole first clip in source time
		Segments: []project.SubtitleSegment{{StartTime: 0, EndTime: 10, Text: "caption"}},
		Style:    project.DefaultSubtitleStyle(),
	}

	_, err := capture.Render(context.Background(), p,
		effects.LookupFormat("tiktok"), filepath.Join(t.TempDir(), "out.webm"), nil)

	require.NoError(t, err)
	assert.NotEmpty(t, surface.captions)
	assert.Equal(t, "caption", surface.captions[0])
}

func TestCapture_NativeContainerFallback(t *testing.T) {
	capture, _, _, _ := captureFixture(t)
	p := exportProject(t, 1)

	// mp4 requested but no remux runner available: the artifact keeps
	// the recorder's native container
	outPath := filepath.Join(t.TempDir(), "out.mp4")
	final, err := capture.Render(context.Background(), p,
		effects.LookupFormat("tiktok"), outPath, nil)

	require.NoError(t, err)
	assert.Equal(t, ".webm", filepath.Ext(final))
}

func TestActiveCaption(t *testing.T) {
	captions := []project.SubtitleSegment{
		{StartTime: 0, EndTime: 2, Text: "first"},
		{StartTime: 4, EndTime: 6, Text: "second"},
	}

	text, ok := activeCaption(captions, 1)
	assert.True(t, ok)
	assert.Equal(t, "first", text)

	text, ok = activeCaption(captions, 5)
	assert.True(t, ok)
	assert.Equal(t, "second", text)

	_, ok = activeCaption(captions, 3)
	assert.False(t, ok)

	// End is exclusive
	_, ok = activeCaption(captions, 2)
	assert.False(t, ok)
}
