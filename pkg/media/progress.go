package media

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress represents a parsed ffmpeg encoding progress line
type Progress struct {
	Frame   int     // Current frame number
	FPS     float64 // Frames per second
	Seconds float64 // Current position in the output
	Speed   float64 // Encoding speed multiplier (1.0 = realtime)
	Percent float64 // 0-100, zero when the total duration is unknown
}

// ProgressParser parses ffmpeg stderr progress output
type ProgressParser struct {
	totalDuration float64

	frameRegex *regexp.Regexp
	fpsRegex   *regexp.Regexp
	timeRegex  *regexp.Regexp
	speedRegex *regexp.Regexp
}

// NewProgressParser creates a parser; totalDuration in seconds enables
// percentage computation, zero disables it.
func NewProgressParser(totalDuration float64) *ProgressParser {
	return &ProgressParser{
		totalDuration: totalDuration,
		frameRegex:    regexp.MustCompile(`frame=\s*(\d+)`),
		fpsRegex:      regexp.MustCompile(`fps=\s*([\d.]+)`),
		timeRegex:     regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})\.(\d{2})`),
		speedRegex:    regexp.MustCompile(`speed=\s*([\d.]+)x`),
	}
}

// ParseLine parses a single line of ffmpeg output. The second return is
// false when the line carries no progress information.
func (pp *ProgressParser) ParseLine(line string) (Progress, bool) {
	// Progress lines always carry a frame= field
	if !strings.Contains(line, "frame=") {
		return Progress{}, false
	}

	var progress Progress

	if matches := pp.frameRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.Frame, _ = strconv.Atoi(matches[1])
	}

	if matches := pp.fpsRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.FPS, _ = strconv.ParseFloat(matches[1], 64)
	}

	if matches := pp.timeRegex.FindStringSubmatch(line); len(matches) > 4 {
		hours, _ := strconv.Atoi(matches[1])
		minutes, _ := strconv.Atoi(matches[2])
		seconds, _ := strconv.Atoi(matches[3])
		centiseconds, _ := strconv.Atoi(matches[4])
		progress.Seconds = float64(hours)*3600 + float64(minutes)*60 +
			float64(seconds) + float64(centiseconds)/100
	}

	if matches := pp.speedRegex.FindStringSubmatch(line); len(matches) > 1 {
		progress.Speed, _ = strconv.ParseFloat(matches[1], 64)
	}

	if pp.totalDuration > 0 {
		progress.Percent = progress.Seconds / pp.totalDuration * 100
		if progress.Percent > 100 {
			progress.Percent = 100
		}
	}

	return progress, true
}
