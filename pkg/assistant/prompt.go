package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clipforge/clipforge/pkg/project"
)

// maxPromptLength bounds user prompts before they reach the model
const maxPromptLength = 2000

// SanitizePrompt normalizes a user instruction: angle brackets and
// script URLs are stripped, whitespace is trimmed, and the result is
// capped at a fixed length.
func SanitizePrompt(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")

	lowered := strings.ToLower(s)
	for {
		index := strings.Index(lowered, "javascript:")
		if index < 0 {
			break
		}
		s = s[:index] + s[index+len("javascript:"):]
		lowered = strings.ToLower(s)
	}

	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > maxPromptLength {
		s = string(runes[:maxPromptLength])
	}
	return s
}

// systemPrompt instructs the model to answer with a single JSON object
// the bridge can parse.
const systemPrompt = `You are a video editing assistant. The user describes edits in natural language; you answer with a single JSON object and nothing else:
{
  "message": "short human-readable summary of what you did or why you could not",
  "understood": true,
  "effects": { "brightness": 0.1, "contrast": 1.2, "saturation": 1.0, "speed": 1.0, "mute": false, "flip": false, "rotate": 0, "blur": 0, "sharpen": 0, "vignette": 0, "fadeIn": 0, "fadeOut": 0, "preset": "none", "aspectRatio": "original" },
  "projectAction": { "type": "addClip|removeClip|reorderTimeline|clearTimeline|setGlobalEffects|trimClip|replaceTimeline|setSubtitleStyle", ... }
}
Omit "effects" when no effect changes. Omit "projectAction" when no timeline change is needed. Set "understood" to false when the request is not an editing instruction.`

// buildContextMessage renders the current project state for the model
func buildContextMessage(summary project.Context) string {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return "Current project state is unavailable."
	}
	return fmt.Sprintf("Current project state:\n%s", encoded)
}
