package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// dataPrefix frames every record on the run stream.
const dataPrefix = "data:"

var (
	// ErrMissingKind is returned for payloads without a type field.
	ErrMissingKind = errors.New("event type is missing")
	// ErrUnknownKind is returned for payloads with an unrecognised type.
	ErrUnknownKind = errors.New("event type is unknown")
)

// wireEvent accepts both the backend's camelCase names and snake_case.
type wireEvent struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Label    string `json:"label"`
	Model    string `json:"model"`
	Token    string `json:"token"`
	Message  string `json:"message"`
	Prompt   string `json:"prompt"`

	AgentID      *string `json:"agentId"`
	AgentIDSnake *string `json:"agent_id"`

	TotalTokens       *float64 `json:"totalTokens"`
	TotalTokensSnake  *float64 `json:"total_tokens"`
	TokensPerSec      *float64 `json:"tokensPerSec"`
	TokensPerSecSnake *float64 `json:"tokens_per_sec"`
	LatencyMs         *float64 `json:"latencyMs"`
	LatencyMsSnake    *float64 `json:"latency_ms"`
	VramGB            *float64 `json:"vramGb"`
	VramGBSnake       *float64 `json:"vram_gb"`

	StageIndex      *float64 `json:"stageIndex"`
	StageIndexSnake *float64 `json:"stage_index"`
	AgentIDs        []string `json:"agentIds"`
	AgentIDsSnake   []string `json:"agent_ids"`

	TotalPipelineTokens      *float64 `json:"totalPipelineTokens"`
	TotalPipelineTokensSnake *float64 `json:"total_pipeline_tokens"`
	TotalPipelineMs          *float64 `json:"totalPipelineMs"`
	TotalPipelineMsSnake     *float64 `json:"total_pipeline_ms"`
	TotalAgents              *float64 `json:"totalAgents"`
	TotalAgentsSnake         *float64 `json:"total_agents"`
}

// DecodeFrame parses one stream line. It reports false for anything that is
// not a well-formed event of a known kind; callers drop those lines.
func DecodeFrame(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == "" {
		return Event{}, false
	}
	event, err := Decode([]byte(payload))
	if err != nil {
		return Event{}, false
	}
	return event, true
}

// Decode maps a JSON payload onto an Event.
func Decode(payload []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if wire.Type == "" {
		return Event{}, ErrMissingKind
	}
	kind := Kind(wire.Type)
	if !kind.Known() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, wire.Type)
	}
	event := Event{
		Kind:                kind,
		AgentID:             firstString(wire.AgentID, wire.AgentIDSnake),
		Provider:            ProviderKind(wire.Provider),
		Label:               wire.Label,
		Model:               wire.Model,
		Token:               wire.Token,
		Message:             wire.Message,
		Prompt:              wire.Prompt,
		TotalTokens:         intPtr(firstFloat(wire.TotalTokens, wire.TotalTokensSnake)),
		TokensPerSec:        nonNegative(firstFloat(wire.TokensPerSec, wire.TokensPerSecSnake)),
		LatencyMs:           nonNegative(firstFloat(wire.LatencyMs, wire.LatencyMsSnake)),
		VramGB:              nonNegative(firstFloat(wire.VramGB, wire.VramGBSnake)),
		TotalPipelineTokens: intPtr(firstFloat(wire.TotalPipelineTokens, wire.TotalPipelineTokensSnake)),
		TotalPipelineMs:     nonNegative(firstFloat(wire.TotalPipelineMs, wire.TotalPipelineMsSnake)),
		TotalAgents:         intPtr(firstFloat(wire.TotalAgents, wire.TotalAgentsSnake)),
		AgentIDs:            wire.AgentIDs,
	}
	if event.AgentIDs == nil {
		event.AgentIDs = wire.AgentIDsSnake
	}
	if index := firstFloat(wire.StageIndex, wire.StageIndexSnake); index != nil {
		event.StageIndex = int(*index)
	}
	return event, nil
}

func firstString(values ...*string) string {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, value := range values {
		if value != nil {
			return value
		}
	}
	return nil
}

// nonNegative clamps negative samples to zero.
func nonNegative(value *float64) *float64 {
	if value == nil {
		return nil
	}
	if *value < 0 {
		return Float(0)
	}
	return value
}

// intPtr converts a JSON number to a non-negative count.
func intPtr(value *float64) *int {
	if value == nil {
		return nil
	}
	if *value < 0 {
		return Int(0)
	}
	return Int(int(*value))
}
