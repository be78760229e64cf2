package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/media"
	"github.com/clipforge/clipforge/pkg/project"
)

// audioGrace is added to a clip's effective duration when bounding its
// realtime audio capture.
const audioGrace = 10 * time.Second

// Frame is one decoded picture with its intrinsic size
type Frame interface {
	Size() (width, height int)
}

// PlaybackSource supplies decoded frames from one source in real time
type PlaybackSource interface {
	// Load switches the source; a repeated id is a no-op
	Load(ctx context.Context, sourceID string) error
	Seek(seconds float64) error
	SetRate(rate float64) error
	// NextFrame blocks until the next frame is due
	NextFrame(ctx context.Context) (Frame, error)
	// CaptureAudio mixes the loaded source's audio into the recorder
	// until the context ends
	CaptureAudio(ctx context.Context) error
}

// Surface is the offscreen drawing target sized to the output format
type Surface interface {
	Size() (width, height int)
	Clear()
	SetFilter(filter string)
	SetTransform(flipped bool, quarterTurns int)
	// Reset drops the active filter and transform; captions are drawn
	// unfiltered
	Reset()
	DrawFrame(frame Frame, dst Box)
	DrawCaption(text string, style project.SubtitleStyle, content Box)
}

// Recorder is the combined encoder sink fed by the surface and the
// audio mixing graph.
type Recorder interface {
	Start() error
	// Stop finalizes the sink and returns the muxed artifact path
	Stop(ctx context.Context) (string, error)
	// Container is the sink's native container extension
	Container() string
}

// Box is a placement rectangle on the surface
type Box struct {
	X, Y, W, H float64
}

// Letterbox fits a source frame inside a destination, preserving the
// source aspect ratio and centering the result.
func Letterbox(srcW, srcH, dstW, dstH int) Box {
	if srcW <= 0 || srcH <= 0 {
		return Box{W: float64(dstW), H: float64(dstH)}
	}

	scale := float64(dstW) / float64(srcW)
	if s := float64(dstH) / float64(srcH); s < scale {
		scale = s
	}

	w := float64(srcW) * scale
	h := float64(srcH) * scale
	return Box{
		X: (float64(dstW) - w) / 2,
		Y: (float64(dstH) - h) / 2,
		W: w,
		H: h,
	}
}

// Capture is the realtime strategy: it plays each clip through a
// playback source, draws frames onto a recorded surface, and muxes the
// result live. A clip of N output seconds takes at least N seconds to
// render.
type Capture struct {
	source   PlaybackSource
	surface  Surface
	recorder Recorder
	runner   media.Runner
	logger   zerolog.Logger

	// clock is swappable for tests
	clock func() time.Time
}

// NewCapture creates the realtime capture strategy. runner is used only
// for the final container remux and may be nil to always keep the
// recorder's native container.
func NewCapture(source PlaybackSource, surface Surface, recorder Recorder, runner media.Runner, logger zerolog.Logger) *Capture {
	return &Capture{
		source:   source,
		surface:  surface,
		recorder: recorder,
		runner:   runner,
		logger:   logger,
		clock:    time.Now,
	}
}

// Container returns the recorder's native container
func (s *Capture) Container() string {
	return s.recorder.Container()
}

// Render captures every timeline item in order onto the recorder, then
// remuxes into the requested container when it differs from the
// recorder's native one, falling back to the native artifact on remux
// failure.
func (s *Capture) Render(ctx context.Context, p *project.Project, format effects.Format, outputPath string, onProgress func(float64)) (string, error) {
	items, err := renderableItems(p)
	if err != nil {
		return "", err
	}

	if err := s.recorder.Start(); err != nil {
		return "", fmt.Errorf("encode: start recorder: %w", err)
	}

	total := p.TotalDuration()
	rendered := 0.0
	for _, item := range items {
		plan := buildPlan(p, item.clip, format)
		if err := s.captureClip(ctx, item.clip, plan); err != nil {
			return "", fmt.Errorf("encode: clip %d: %w", item.index, err)
		}
		rendered += plan.Duration
		if onProgress != nil && total > 0 {
			onProgress(rendered / total * 95)
		}
	}

	artifact, err := s.recorder.Stop(ctx)
	if err != nil {
		return "", fmt.Errorf("encode: stop recorder: %w", err)
	}

	final, err := s.deliver(ctx, artifact, outputPath)
	if err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return final, nil
}

// captureClip drives the frame loop for one clip
func (s *Capture) captureClip(ctx context.Context, clip *project.Clip, plan ClipPlan) error {
	if err := s.source.Load(ctx, clip.SourceID); err != nil {
		return err
	}
	if err := s.source.Seek(clip.StartTime); err != nil {
		return err
	}
	if err := s.source.SetRate(plan.Speed); err != nil {
		return err
	}

	// Audio runs beside the frame loop, bounded by the clip's effective
	// duration plus a grace period
	audioCtx, cancelAudio := context.WithTimeout(ctx,
		time.Duration(plan.Duration*float64(time.Second))+audioGrace)
	defer cancelAudio()

	audioDone := make(chan error, 1)
	if plan.Effects.Muted() {
		audioDone <- nil
	} else {
		go func() {
			audioDone <- s.source.CaptureAudio(audioCtx)
		}()
	}

	if err := s.drawLoop(ctx, clip, plan); err != nil {
		return err
	}

	cancelAudio()
	if err := <-audioDone; err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("audio capture timed out: %w", err)
		}
		return err
	}
	return nil
}

// drawLoop paints frames until the clip's effective duration elapses
func (s *Capture) drawLoop(ctx context.Context, clip *project.Clip, plan ClipPlan) error {
	eff := &plan.Effects
	style := effects.ToPreviewStyle(eff)
	surfaceW, surfaceH := s.surface.Size()

	start := s.clock()
	for {
		elapsed := s.clock().Sub(start).Seconds()
		if elapsed >= plan.Duration {
			return nil
		}

		frame, err := s.source.NextFrame(ctx)
		if err != nil {
			return err
		}

		s.surface.Clear()
		s.surface.SetFilter(style.Filter)
		s.surface.SetTransform(eff.Flipped(), eff.RotateQuarters())

		frameW, frameH := frame.Size()
		content := Letterbox(frameW, frameH, surfaceW, surfaceH)
		s.surface.DrawFrame(frame, content)

		// Captions are positioned relative to the video content area,
		// not the full surface
		s.surface.Reset()
		sourceTime := clip.StartTime + elapsed*plan.Speed
		if text, ok := activeCaption(plan.Captions, sourceTime-clip.StartTime); ok {
			s.surface.DrawCaption(text, plan.Style, content)
		}
	}
}

// activeCaption returns the caption text covering a clip-local time
func activeCaption(captions []project.SubtitleSegment, clipTime float64) (string, bool) {
	for _, seg := range captions {
		if clipTime >= seg.StartTime && clipTime < seg.EndTime {
			return seg.Text, true
		}
	}
	return "", false
}

// deliver remuxes the recorded artifact into the desired container, or
// falls back to the native container when the remux is unavailable or
// fails.
func (s *Capture) deliver(ctx context.Context, artifact, outputPath string) (string, error) {
	native := s.recorder.Container()
	desired := strings.TrimPrefix(filepath.Ext(outputPath), ".")

	if desired == native || s.runner == nil {
		return s.keepNative(artifact, outputPath, native)
	}

	err := s.runner.Run(ctx, media.RunSpec{
		Args: []string{"-y", "-i", artifact, "-c", "copy", outputPath},
	})
	if err == nil {
		return outputPath, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	s.logger.Warn().Err(err).Str("container", native).
		Msg("container remux failed, keeping native container")
	return s.keepNative(artifact, outputPath, native)
}

func (s *Capture) keepNative(artifact, outputPath, native string) (string, error) {
	ext := filepath.Ext(outputPath)
	nativePath := strings.TrimSuffix(outputPath, ext) + "." + native
	if err := copyFile(artifact, nativePath); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return nativePath, nil
}
