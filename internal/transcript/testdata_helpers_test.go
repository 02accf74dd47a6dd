package transcript

import (
	"encoding/json"
	"strings"
)

func makeBaseFields(uuid, timestamp string) map[string]interface{} {
	m := map[string]interface{}{
		"uuid":        uuid,
		"parentUuid":  nil,
		"isSidechain": false,
		"userType":    "external",
		"cwd":         "/home/dev/projects/widget",
		"sessionId":   "test-session",
		"gitBranch":   "main",
		"version":     "1.0.0",
	}
	if timestamp != "" {
		m["timestamp"] = timestamp
	}
	return m
}

func makeUserMessage(uuid, timestamp, content string) string {
	m := makeBaseFields(uuid, timestamp)
	m["type"] = "user"
	m["message"] = map[string]interface{}{
		"role":    "user",
		"content": content,
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func makeToolResultMessage(uuid, timestamp string, results ...map[string]interface{}) string {
	m := makeBaseFields(uuid, timestamp)
	m["type"] = "user"
	m["message"] = map[string]interface{}{
		"role":    "user",
		"content": results,
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func makeAssistantMessage(uuid, timestamp, model string, content ...map[string]interface{}) string {
	m := makeBaseFields(uuid, timestamp)
	m["type"] = "assistant"
	m["message"] = map[string]interface{}{
		"model":   model,
		"role":    "assistant",
		"content": content,
		"usage": map[string]interface{}{
			"input_tokens":                100,
			"output_tokens":               50,
			"cache_creation_input_tokens": 10,
		},
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func toolUseBlock(id, name string, input map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "tool_use", "id": id, "name": name, "input": input}
}

func toolResultBlock(toolUseID, content string, isError bool) map[string]interface{} {
	return map[string]interface{}{"type": "tool_result", "tool_use_id": toolUseID, "content": content, "is_error": isError}
}

func textBlock(text string) map[string]interface{} {
	return map[string]interface{}{"type": "text", "text": text}
}

func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}
