// Package media locates and drives the external ffmpeg and ffprobe
// binaries. Tool discovery is lazy and memoized: the first caller pays
// the lookup cost, concurrent callers block until it finishes, and the
// result (including failure) is reused for the lifetime of the runtime.
package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ErrToolMissing indicates a required external binary was not found
var ErrToolMissing = errors.New("media tool not found")

// Runner executes an ffmpeg invocation
type Runner interface {
	Run(ctx context.Context, spec RunSpec) error
}

// Prober inspects a media file
type Prober interface {
	Probe(ctx context.Context, filePath string) (*Info, error)
}

// RunSpec describes a single ffmpeg invocation
type RunSpec struct {
	// Args are the ffmpeg arguments, without the binary name
	Args []string

	// TotalDuration in seconds, used for percentage computation; zero
	// disables percentages
	TotalDuration float64

	// OnProgress is called for each parsed progress line
	OnProgress func(Progress)

	// OnLog is called for every ffmpeg output line
	OnLog func(string)
}

// Runtime resolves and runs ffmpeg and ffprobe. The zero value discovers
// both tools on PATH; use options to pin explicit paths.
type Runtime struct {
	ffmpegPath  string
	ffprobePath string

	initOnce sync.Once
	initErr  error
}

// RuntimeOption is a functional option for Runtime
type RuntimeOption func(*Runtime)

// WithFFmpegPath sets a custom ffmpeg binary path
func WithFFmpegPath(path string) RuntimeOption {
	return func(r *Runtime) {
		r.ffmpegPath = path
	}
}

// WithFFprobePath sets a custom ffprobe binary path
func WithFFprobePath(path string) RuntimeOption {
	return func(r *Runtime) {
		r.ffprobePath = path
	}
}

// NewRuntime creates a runtime; discovery is deferred until first use
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// init resolves tool paths exactly once. sync.Once gives the in-flight
// wait: concurrent first callers all see the same outcome.
func (r *Runtime) init() error {
	r.initOnce.Do(func() {
		if r.ffmpegPath == "" {
			r.ffmpegPath = findTool("ffmpeg")
		}
		if r.ffprobePath == "" {
			r.ffprobePath = findTool("ffprobe")
		}
		if r.ffmpegPath == "" {
			r.initErr = fmt.Errorf("%w: ffmpeg", ErrToolMissing)
			return
		}
		if r.ffprobePath == "" {
			r.initErr = fmt.Errorf("%w: ffprobe", ErrToolMissing)
		}
	})
	return r.initErr
}

// findTool locates a binary, trying PATH and common install locations
func findTool(name string) string {
	candidates := []string{
		name,
		"/usr/local/bin/" + name,
		"/opt/homebrew/bin/" + name,
		"/usr/bin/" + name,
	}

	for _, path := range candidates {
		if resolved, err := exec.LookPath(path); err == nil {
			return resolved
		}
	}

	return ""
}

// Run executes ffmpeg with the given spec, streaming progress from
// stderr. On failure the returned error carries the tail of the ffmpeg
// log for diagnosis.
func (r *Runtime) Run(ctx context.Context, spec RunSpec) error {
	if err := r.init(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.ffmpegPath, spec.Args...)

	// FFmpeg writes progress to stderr
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	parser := NewProgressParser(spec.TotalDuration)
	tail := newLogTail(20)

	stderrDone := make(chan error, 1)
	go func() {
		stderrDone <- streamLines(stderr, func(line string) {
			tail.Add(line)
			if progress, ok := parser.ParseLine(line); ok && spec.OnProgress != nil {
				spec.OnProgress(progress)
			}
			if spec.OnLog != nil {
				spec.OnLog(line)
			}
		})
	}()

	stdoutDone := make(chan error, 1)
	go func() {
		stdoutDone <- streamLines(stdout, func(line string) {
			if spec.OnLog != nil {
				spec.OnLog(line)
			}
		})
	}()

	// Drain both pipes before Wait so it cannot close them mid-read
	<-stderrDone
	<-stdoutDone
	cmdErr := cmd.Wait()

	if cmdErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", cmdErr, tail.String())
	}

	return nil
}

// streamLines scans a reader line by line into fn
func streamLines(reader io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}

// logTail keeps the last n lines of output for error reporting
type logTail struct {
	lines []string
	limit int
}

func newLogTail(limit int) *logTail {
	return &logTail{limit: limit}
}

func (t *logTail) Add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[1:]
	}
}

func (t *logTail) String() string {
	return strings.Join(t.lines, "\n")
}
