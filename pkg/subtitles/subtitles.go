// Package subtitles generates the caption track for a source video:
// audio extraction, speech recognition through an external model, and
// post-processing of the raw output into usable segments.
package subtitles

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/pkg/media"
	"github.com/clipforge/clipforge/pkg/project"
)

// Pipeline stages, used to label failures so the caller knows which
// step to retry.
const (
	StageExtract   = "extract"
	StageModelLoad = "model_load"
	StageRecognize = "recognize"
)

// StageError is a failure attributed to one pipeline stage
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// RawSegment is one chunk as produced by the recognizer, before any
// cleanup. Pointer timestamps distinguish missing from zero.
type RawSegment struct {
	Start *float64
	End   *float64
	Text  string
}

// Transcriber runs speech recognition over an extracted audio file
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]RawSegment, error)
}

// Generator produces a subtitle track from a source video
type Generator struct {
	runner      media.Runner
	transcriber Transcriber
	logger      zerolog.Logger
}

// NewGenerator creates a subtitle generator
func NewGenerator(runner media.Runner, transcriber Transcriber, logger zerolog.Logger) *Generator {
	return &Generator{runner: runner, transcriber: transcriber, logger: logger}
}

// Generate extracts the source's audio, transcribes it, and returns the
// cleaned segments. Failures carry a stage label (extract, model_load
// or recognize).
func (g *Generator) Generate(ctx context.Context, sourcePath, language string) ([]project.SubtitleSegment, error) {
	tempDir, err := os.MkdirTemp("", "clipforge-audio-*")
	if err != nil {
		return nil, stageErr(StageExtract, err)
	}
	defer os.RemoveAll(tempDir)

	audioPath := filepath.Join(tempDir, "audio.wav")
	if err := g.extractAudio(ctx, sourcePath, audioPath); err != nil {
		return nil, stageErr(StageExtract, err)
	}

	raw, err := g.transcriber.Transcribe(ctx, audioPath, language)
	if err != nil {
		var staged *StageError
		if !errors.As(err, &staged) {
			err = stageErr(StageRecognize, err)
		}
		return nil, err
	}

	segments := Clean(raw)
	g.logger.Info().
		Int("raw", len(raw)).
		Int("kept", len(segments)).
		Str("language", language).
		Msg("subtitles generated")

	return segments, nil
}

// extractAudio decodes the source into mono 16 kHz PCM, the input the
// recognition model expects.
func (g *Generator) extractAudio(ctx context.Context, sourcePath, audioPath string) error {
	return g.runner.Run(ctx, media.RunSpec{
		Args: []string{
			"-y",
			"-i", sourcePath,
			"-vn",
			"-acodec", "pcm_s16le",
			"-ar", "16000",
			"-ac", "1",
			audioPath,
		},
	})
}

