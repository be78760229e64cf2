package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/media"
	"github.com/clipforge/clipforge/pkg/project"
)

// Fixed encode parameters: constant-quality video, AAC audio
var encodeArgs = []string{
	"-c:v", "libx264",
	"-crf", "23",
	"-preset", "veryfast",
	"-pix_fmt", "yuv420p",
	"-c:a", "aac",
	"-b:a", "128k",
	"-movflags", "+faststart",
}

// FilterGraph is the batch strategy: each clip is trimmed and encoded
// separately with its full filter chain, then the parts are joined by a
// stream-copy concat.
type FilterGraph struct {
	runner media.Runner
	logger zerolog.Logger
}

// NewFilterGraph creates the batch filter-graph strategy
func NewFilterGraph(runner media.Runner, logger zerolog.Logger) *FilterGraph {
	return &FilterGraph{runner: runner, logger: logger}
}

// Container returns the strategy's native output container
func (s *FilterGraph) Container() string {
	return "mp4"
}

// Render encodes every timeline item in order and concatenates the
// results. A clip whose encode fails with captions present is retried
// once without them; a second failure is fatal and names the clip.
func (s *FilterGraph) Render(ctx context.Context, p *project.Project, format effects.Format, outputPath string, onProgress func(float64)) (string, error) {
	items, err := renderableItems(p)
	if err != nil {
		return "", err
	}

	tempDir, err := os.MkdirTemp("", "clipforge-export-*")
	if err != nil {
		return "", fmt.Errorf("encode: create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	report := func(percent float64) {
		if onProgress != nil {
			onProgress(percent)
		}
	}

	parts := make([]string, 0, len(items))
	total := float64(len(items))
	for i, item := range items {
		source, ok := p.VideoByID(item.clip.SourceID)
		if !ok {
			return "", fmt.Errorf("encode: clip %d references unknown source %s", item.index, item.clip.SourceID)
		}

		plan := buildPlan(p, item.clip, format)
		partPath := filepath.Join(tempDir, fmt.Sprintf("part-%03d.mp4", i))

		clipProgress := func(pct float64) {
			// Encoding spans 0-95; concat takes the rest
			report((float64(i) + pct/100) / total * 95)
		}

		if err := s.encodeClip(ctx, source.Path, item.clip, plan, partPath, clipProgress); err != nil {
			return "", fmt.Errorf("encode: clip %d: %w", item.index, err)
		}
		parts = append(parts, partPath)
	}

	if len(parts) == 1 {
		if err := copyFile(parts[0], outputPath); err != nil {
			return "", fmt.Errorf("encode: %w", err)
		}
		report(100)
		return outputPath, nil
	}

	if err := s.concat(ctx, tempDir, parts, outputPath); err != nil {
		return "", fmt.Errorf("concat: %w", err)
	}
	report(100)

	return outputPath, nil
}

// encodeClip runs one ffmpeg invocation for a clip. When the chain
// includes caption burn-in and the run fails, it retries once with the
// captions stripped before giving up.
func (s *FilterGraph) encodeClip(ctx context.Context, sourcePath string, clip *project.Clip, plan ClipPlan, partPath string, onProgress func(float64)) error {
	err := s.runner.Run(ctx, s.clipSpec(sourcePath, clip, plan, partPath, onProgress))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || len(plan.Captions) == 0 {
		return err
	}

	s.logger.Warn().Err(err).Str("clip", clip.ID).
		Msg("clip encode failed, retrying without captions")

	stripped := plan
	stripped.Captions = nil
	return s.runner.Run(ctx, s.clipSpec(sourcePath, clip, stripped, partPath, onProgress))
}

// clipSpec builds the ffmpeg invocation for one clip. The seek goes
// before the input so decoded timestamps restart at zero; the filter
// chain (fades at st=0, caption enable windows, setpts) assumes
// clip-relative time.
func (s *FilterGraph) clipSpec(sourcePath string, clip *project.Clip, plan ClipPlan, partPath string, onProgress func(float64)) media.RunSpec {
	args := []string{
		"-y",
		"-ss", trimFloat(clip.StartTime),
		"-i", sourcePath,
		"-t", trimFloat(clip.EndTime - clip.StartTime),
		"-vf", strings.Join(VideoChain(plan), ","),
	}

	if plan.Effects.Muted() {
		args = append(args, "-an")
	} else if audio := AudioChain(plan); len(audio) > 0 {
		args = append(args, "-af", strings.Join(audio, ","))
	}

	args = append(args, encodeArgs...)
	args = append(args, partPath)

	return media.RunSpec{
		Args:          args,
		TotalDuration: plan.Duration,
		OnProgress: func(progress media.Progress) {
			if onProgress != nil {
				onProgress(progress.Percent)
			}
		},
	}
}

// concat joins the encoded parts without re-encoding, via the concat
// demuxer and stream copy.
func (s *FilterGraph) concat(ctx context.Context, tempDir string, parts []string, outputPath string) error {
	listPath := filepath.Join(tempDir, "concat.txt")

	var list strings.Builder
	for _, part := range parts {
		fmt.Fprintf(&list, "file '%s'\n", part)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return err
	}

	return s.runner.Run(ctx, media.RunSpec{
		Args: []string{
			"-y",
			"-f", "concat",
			"-safe", "0",
			"-i", listPath,
			"-c", "copy",
			outputPath,
		},
	})
}

// copyFile moves a rendered part to its destination. Rename is not
// enough because the temp dir can sit on a different filesystem.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
