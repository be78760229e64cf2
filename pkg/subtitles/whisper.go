package subtitles

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// WhisperCLI adapts the whisper.cpp command-line binary to the
// Transcriber interface. Binary and model resolution happen once,
// lazily; concurrent first callers wait on the same load.
type WhisperCLI struct {
	binaryPath string
	modelPath  string

	initOnce sync.Once
	initErr  error
}

// NewWhisperCLI creates the adapter. Empty binaryPath falls back to
// "whisper-cli" on PATH; modelPath must point at a ggml model file.
func NewWhisperCLI(binaryPath, modelPath string) *WhisperCLI {
	if binaryPath == "" {
		binaryPath = "whisper-cli"
	}
	return &WhisperCLI{binaryPath: binaryPath, modelPath: modelPath}
}

// init verifies the binary and model exactly once
func (w *WhisperCLI) init() error {
	w.initOnce.Do(func() {
		resolved, err := exec.LookPath(w.binaryPath)
		if err != nil {
			w.initErr = stageErr(StageModelLoad, fmt.Errorf("whisper binary not found: %w", err))
			return
		}
		w.binaryPath = resolved

		if _, err := os.Stat(w.modelPath); err != nil {
			w.initErr = stageErr(StageModelLoad, fmt.Errorf("whisper model not found: %w", err))
		}
	})
	return w.initErr
}

// Transcribe runs the model over an audio file and parses the
// timestamped output lines.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath, language string) ([]RawSegment, error) {
	if err := w.init(); err != nil {
		return nil, err
	}

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	cmd := exec.CommandContext(ctx, w.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, stageErr(StageRecognize, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	return parseWhisperOutput(output), nil
}

// segmentLine matches "[00:00:00.000 --> 00:00:05.120]  text"; the end
// timestamp group is optional because truncated final lines appear when
// the model runs off the end of the audio.
var segmentLine = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2}\.\d{3}) -->(?: (\d{2}:\d{2}:\d{2}\.\d{3}))?\]\s*(.*)$`)

func parseWhisperOutput(output []byte) []RawSegment {
	var segments []RawSegment

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		matches := segmentLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if matches == nil {
			continue
		}

		seg := RawSegment{Text: matches[3]}
		if start, ok := parseTimestamp(matches[1]); ok {
			seg.Start = &start
		}
		if end, ok := parseTimestamp(matches[2]); ok {
			seg.End = &end
		}
		segments = append(segments, seg)
	}

	return segments
}

// parseTimestamp converts "HH:MM:SS.mmm" to seconds
func parseTimestamp(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}
