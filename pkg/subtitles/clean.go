package subtitles

import (
	"strings"

	"github.com/clipforge/clipforge/pkg/project"
)

// fallbackWindow is the span of the single segment emitted when every
// chunk was rejected but the recognizer still produced text.
const fallbackWindow = 30.0

// repeatLimit is how often one token may recur inside a chunk before
// the chunk is treated as a recognition loop and dropped.
const repeatLimit = 3

// Clean post-processes raw recognizer output into usable segments:
// empty chunks and chunks without an end timestamp are dropped, a
// missing start defaults to zero, and looping hallucinations are
// filtered out. When nothing survives but text exists, a single
// fallback segment covers the default window.
func Clean(raw []RawSegment) []project.SubtitleSegment {
	var out []project.SubtitleSegment
	var fullText []string

	for _, seg := range raw {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fullText = append(fullText, text)

		// A chunk with no end timestamp is an end-of-stream artifact
		if seg.End == nil {
			continue
		}
		if hallucinated(text) {
			continue
		}

		start := 0.0
		if seg.Start != nil {
			start = *seg.Start
		}

		out = append(out, project.SubtitleSegment{
			StartTime: start,
			EndTime:   *seg.End,
			Text:      text,
		})
	}

	if len(out) == 0 && len(fullText) > 0 {
		return []project.SubtitleSegment{{
			StartTime: 0,
			EndTime:   fallbackWindow,
			Text:      strings.Join(fullText, " "),
		}}
	}

	return out
}

// hallucinated reports whether a chunk looks like the model looping on
// silence or noise: split on clause delimiters and flag any token that
// recurs more than the repeat limit.
func hallucinated(text string) bool {
	counts := make(map[string]int)
	for _, token := range strings.FieldsFunc(text, isClauseDelimiter) {
		counts[token]++
		if counts[token] > repeatLimit {
			return true
		}
	}
	return false
}

func isClauseDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', ',', '.', '!', '?', ';',
		'、', '。', '，', '！', '？', '；':
		return true
	}
	return false
}
