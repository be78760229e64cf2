package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/pkg/actions"
	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// historyLimit is how many prior exchanges are replayed to the model
const historyLimit = 10

// Exchange is one prior prompt/answer pair kept for conversational
// context
type Exchange struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// Reply is the assistant's structured answer. When the model output
// could not be parsed, Message carries the raw text and Understood is
// false.
type Reply struct {
	Message    string                `json:"message"`
	Understood bool                  `json:"understood"`
	Effects    *effects.VideoEffects `json:"effects,omitempty"`
	Action     *actions.Action       `json:"projectAction,omitempty"`
}

// Bridge turns user prompts into structured edit proposals
type Bridge struct {
	client ChatClient
	logger zerolog.Logger
}

// NewBridge creates an assistant bridge over a chat client
func NewBridge(client ChatClient, logger zerolog.Logger) *Bridge {
	return &Bridge{client: client, logger: logger}
}

// Propose asks the model for an edit matching the prompt. images are
// optional base64 frames giving the model visual context; history is
// replayed most-recent-last, trimmed to the limit.
func (b *Bridge) Propose(ctx context.Context, prompt string, images []string, summary project.Context, history []Exchange) (*Reply, error) {
	prompt = SanitizePrompt(prompt)

	messages := []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "system", Content: buildContextMessage(summary)},
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, exchange := range history {
		messages = append(messages,
			ChatMessage{Role: "user", Content: exchange.Prompt},
			ChatMessage{Role: "assistant", Content: exchange.Response},
		)
	}

	messages = append(messages, ChatMessage{Role: "user", Content: prompt, Images: images})

	content, err := b.client.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	reply := ParseReply(content)
	b.logger.Debug().
		Bool("understood", reply.Understood).
		Bool("hasAction", reply.Action != nil).
		Bool("hasEffects", reply.Effects != nil).
		Msg("assistant reply parsed")

	return reply, nil
}

// replyWire mirrors Reply but defers action decoding so a bad action
// does not discard the rest of the answer. The action field is named
// projectAction; the bare "action" spelling is accepted as an alias
// because models often shorten it.
type replyWire struct {
	Message       string                `json:"message"`
	Understood    *bool                 `json:"understood"`
	Effects       *effects.VideoEffects `json:"effects"`
	ProjectAction json.RawMessage       `json:"projectAction"`
	Action        json.RawMessage       `json:"action"`
}

// ParseReply decodes model output leniently: fenced or prose-wrapped
// JSON is extracted first, and unparseable output degrades to a plain
// not-understood message instead of an error.
func ParseReply(content string) *Reply {
	raw, ok := ExtractJSON(content)
	if !ok {
		return &Reply{Message: strings.TrimSpace(content)}
	}

	var wire replyWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return &Reply{Message: strings.TrimSpace(content)}
	}

	reply := &Reply{
		Message: wire.Message,
		Effects: wire.Effects,
	}
	// A parseable answer counts as understood unless it says otherwise
	reply.Understood = wire.Understood == nil || *wire.Understood

	rawAction := wire.ProjectAction
	if len(rawAction) == 0 {
		rawAction = wire.Action
	}
	if len(rawAction) > 0 && string(rawAction) != "null" {
		if action, err := actions.Parse(rawAction); err == nil {
			reply.Action = &action
		}
	}

	return reply
}

// ExtractJSON pulls the first JSON object out of model output. Fenced
// code blocks win; otherwise the slice from the first '{' to the last
// '}' is used.
func ExtractJSON(content string) (string, bool) {
	if fenced, ok := extractFenced(content); ok {
		content = fenced
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

func extractFenced(content string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		open := strings.Index(content, fence)
		if open < 0 {
			continue
		}
		rest := content[open+len(fence):]
		close := strings.Index(rest, "```")
		if close < 0 {
			continue
		}
		return rest[:close], true
	}
	return "", false
}
