package transcript

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Record is a single raw line from an assistant transcript.
// Only the fields the pipeline reads are decoded.
type Record struct {
	Type      string          `json:"type"`                // "user", "assistant", "system", "summary", "file-history-snapshot"
	UUID      string          `json:"uuid,omitempty"`      // Unique message identifier
	Timestamp json.RawMessage `json:"timestamp,omitempty"` // ISO 8601 string; other JSON types are kept raw
	SessionID string          `json:"sessionId,omitempty"`
	AgentID   string          `json:"agentId,omitempty"` // Set on sub-agent transcripts
	GitBranch string          `json:"gitBranch,omitempty"`
	Cwd       string          `json:"cwd,omitempty"`
	Summary   string          `json:"summary,omitempty"` // For summary records

	Message *MessageContent `json:"message,omitempty"`

	// Task results carry the spawned agent at the record level
	ToolUseResult interface{} `json:"toolUseResult,omitempty"`
}

// MessageContent contains message details for user/assistant records.
type MessageContent struct {
	Role    string      `json:"role,omitempty"`
	Model   string      `json:"model,omitempty"`   // Model ID (assistant only)
	Usage   *TokenUsage `json:"usage,omitempty"`   // Token usage (assistant only)
	Content interface{} `json:"content,omitempty"` // String or []ContentBlock
}

// TokenUsage contains token counts from the API response.
type TokenUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens,omitempty"`
}

// ContentBlock is one entry of an array-valued message content.
type ContentBlock struct {
	Type      string                 // "text", "tool_use", "tool_result", "thinking", ...
	Text      string                 // For text blocks, and flattened tool_result content
	Name      string                 // Tool name (tool_use)
	ID        string                 // Tool use ID (tool_use)
	Input     map[string]interface{} // Tool input parameters (tool_use)
	ToolUseID string                 // Reference to tool_use ID (tool_result)
	IsError   bool                   // For tool_result blocks
	HasError  bool                   // is_error key was present
	AgentID   string                 // From an embedded toolUseResult
}

// ParseRecord decodes a single JSONL line.
func ParseRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ErrNoTimestamp is returned when a record has no timestamp field.
var ErrNoTimestamp = errors.New("record has no timestamp")

// ErrTimestampNotString is returned when the timestamp is null, a number or
// any other non-string JSON value.
var ErrTimestampNotString = errors.New("timestamp is not a string")

// GetTimestamp parses the timestamp field.
// Returns ErrNoTimestamp if the timestamp field is absent or empty.
func (r *Record) GetTimestamp() (time.Time, error) {
	if len(r.Timestamp) == 0 {
		return time.Time{}, ErrNoTimestamp
	}
	var s string
	if r.Timestamp[0] != '"' {
		return time.Time{}, ErrTimestampNotString
	}
	if err := json.Unmarshal(r.Timestamp, &s); err != nil {
		return time.Time{}, err
	}
	if s == "" {
		return time.Time{}, ErrNoTimestamp
	}
	return time.Parse(time.RFC3339Nano, s)
}

// ContentText returns string content, or the joined text blocks of array content.
func (r *Record) ContentText() string {
	if r.Message == nil || r.Message.Content == nil {
		return ""
	}
	if s, ok := r.Message.Content.(string); ok {
		return s
	}
	var parts []string
	for _, b := range r.ContentBlocks() {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ContentBlocks returns the content blocks of the message.
// Returns nil if content is not an array of blocks.
func (r *Record) ContentBlocks() []ContentBlock {
	if r.Message == nil || r.Message.Content == nil {
		return nil
	}
	contentArray, ok := r.Message.Content.([]interface{})
	if !ok {
		return nil
	}

	var blocks []ContentBlock
	for _, item := range contentArray {
		blockMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		block := ContentBlock{}
		block.Type, _ = blockMap["type"].(string)
		block.Name, _ = blockMap["name"].(string)
		block.ID, _ = blockMap["id"].(string)
		block.ToolUseID, _ = blockMap["tool_use_id"].(string)
		if input, ok := blockMap["input"].(map[string]interface{}); ok {
			block.Input = input
		}
		if isErr, ok := blockMap["is_error"].(bool); ok {
			block.IsError = isErr
			block.HasError = true
		}
		switch block.Type {
		case "text":
			block.Text, _ = blockMap["text"].(string)
		case "tool_result":
			block.Text = flattenResultContent(blockMap["content"])
		}
		if tur, ok := blockMap["toolUseResult"].(map[string]interface{}); ok {
			block.AgentID, _ = tur["agentId"].(string)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// RecordAgentID returns the agentId of a record-level toolUseResult, if any.
func (r *Record) RecordAgentID() string {
	m, ok := r.ToolUseResult.(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := m["agentId"].(string)
	return id
}

// flattenResultContent turns tool_result content (string or text blocks) into text.
func flattenResultContent(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case []interface{}:
		var parts []string
		for _, item := range c {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
