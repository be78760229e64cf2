package render

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// Exporter picks the output format and name, then delegates rendering
// to its strategy.
type Exporter struct {
	strategy  Strategy
	outputDir string
	logger    zerolog.Logger

	now func() time.Time
}

// NewExporter creates an exporter writing artifacts into outputDir
func NewExporter(strategy Strategy, outputDir string, logger zerolog.Logger) *Exporter {
	return &Exporter{
		strategy:  strategy,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Export renders the project into a freshly named file and returns its
// path. Unknown format names fall back to the default format.
func (e *Exporter) Export(ctx context.Context, p *project.Project, formatName string, onProgress func(float64)) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	format := effects.LookupFormat(formatName)
	name := fmt.Sprintf("edited_%s_%d.%s", format.Name, e.now().Unix(), e.strategy.Container())
	outputPath := filepath.Join(e.outputDir, name)

	e.logger.Info().
		Str("format", format.Name).
		Int("clips", len(p.Timeline)).
		Str("output", name).
		Msg("export started")

	started := e.now()
	final, err := e.strategy.Render(ctx, p, format, outputPath, onProgress)
	if err != nil {
		e.logger.Error().Err(err).Msg("export failed")
		return "", err
	}

	e.logger.Info().
		Str("output", filepath.Base(final)).
		Dur("elapsed", e.now().Sub(started)).
		Msg("export finished")

	return final, nil
}
