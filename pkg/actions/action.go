// Package actions implements the single mutation surface of a project:
// a pure reducer folding typed edit operations into new project snapshots.
//
// The action source is an untrusted proposer (the assistant), so the
// engine is deliberately best-effort: malformed or out-of-range actions
// degrade to an explicit Ignored outcome instead of an error, and the
// reducer never produces a project violating the referential invariants.
package actions

import (
	"encoding/json"
	"fmt"

	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
)

// Kind discriminates the action union
type Kind string

const (
	KindAddClip          Kind = "addClip"
	KindRemoveClip       Kind = "removeClip"
	KindReorderTimeline  Kind = "reorderTimeline"
	KindClearTimeline    Kind = "clearTimeline"
	KindSetGlobalEffects Kind = "setGlobalEffects"
	KindTrimClip         Kind = "trimClip"
	KindReplaceTimeline  Kind = "replaceTimeline"
	KindSetSubtitleStyle Kind = "setSubtitleStyle"

	// KindSplitClip is reserved in the wire format but has no defined
	// semantics yet; the reducer recognizes and ignores it.
	KindSplitClip Kind = "splitClip"
)

// ClipSpec describes one entry of a replaceTimeline action
type ClipSpec struct {
	VideoIndex int                   `json:"videoIndex"` // 1-based
	StartTime  float64               `json:"startTime"`
	EndTime    float64               `json:"endTime"`
	Effects    *effects.VideoEffects `json:"effects,omitempty"`
	Transition project.Transition    `json:"transition,omitempty"`
}

// Action is the wire-shaped tagged union. Each kind reads only the fields
// relevant to it; extra fields are ignored. Pointer fields distinguish
// "absent" from zero where the distinction matters (trimClip bounds,
// removeClip index zero).
type Action struct {
	Type Kind `json:"type"`

	// addClip
	VideoIndex int                   `json:"videoIndex,omitempty"`
	StartTime  float64               `json:"startTime,omitempty"`
	EndTime    float64               `json:"endTime,omitempty"`
	Effects    *effects.VideoEffects `json:"effects,omitempty"`
	Transition project.Transition    `json:"transition,omitempty"`

	// removeClip, trimClip: 0-based timeline position
	ClipIndex *int `json:"clipIndex,omitempty"`

	// reorderTimeline
	NewOrder []int `json:"newOrder,omitempty"`

	// trimClip. A JSON null (or absent field) leaves that bound unchanged.
	NewStartTime *float64 `json:"newStartTime,omitempty"`
	NewEndTime   *float64 `json:"newEndTime,omitempty"`

	// replaceTimeline
	Clips []ClipSpec `json:"clips,omitempty"`

	// setSubtitleStyle
	Style *project.SubtitleStyle `json:"style,omitempty"`
}

// Parse decodes a wire action. Unknown fields are ignored; only a missing
// or unrecognized type is an error, since a typeless action cannot be
// dispatched at all.
func Parse(data []byte) (Action, error) {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return Action{}, fmt.Errorf("malformed action: %w", err)
	}
	if !action.Type.Valid() {
		return Action{}, fmt.Errorf("unknown action type %q", action.Type)
	}
	return action, nil
}

// Valid reports whether the kind belongs to the closed union
func (k Kind) Valid() bool {
	switch k {
	case KindAddClip, KindRemoveClip, KindReorderTimeline, KindClearTimeline,
		KindSetGlobalEffects, KindTrimClip, KindReplaceTimeline,
		KindSetSubtitleStyle, KindSplitClip:
		return true
	}
	return false
}
