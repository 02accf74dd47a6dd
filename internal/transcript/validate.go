package transcript

import "fmt"

// validateRecord checks the shape of a raw record before decoding.
// Returns human-readable problems; empty means the record is usable.
func validateRecord(raw map[string]interface{}) []string {
	msgType, present := raw["type"]
	if !present {
		return []string{"type: required field missing"}
	}
	t, ok := msgType.(string)
	if !ok {
		return []string{fmt.Sprintf("type: expected string, got %s", typeOf(msgType))}
	}

	var problems []string

	switch t {
	case "user", "assistant":
		msg, ok := raw["message"].(map[string]interface{})
		if !ok {
			problems = append(problems, fmt.Sprintf("message: expected object, got %s", typeOf(raw["message"])))
			break
		}
		switch c := msg["content"].(type) {
		case string, nil:
		case []interface{}:
			for i, item := range c {
				if _, ok := item.(map[string]interface{}); !ok {
					problems = append(problems, fmt.Sprintf("message.content[%d]: expected object, got %s", i, typeOf(item)))
				}
			}
		default:
			problems = append(problems, fmt.Sprintf("message.content: expected string or array, got %s", typeOf(c)))
		}
	case "system", "summary", "file-history-snapshot":
	case "":
		problems = append(problems, "type: empty")
	default:
		problems = append(problems, fmt.Sprintf("type: unrecognized value %q", t))
	}
	return problems
}

// validateBlock checks a single tool block after decoding.
func validateBlock(b ContentBlock) string {
	switch b.Type {
	case "tool_use":
		if b.ID == "" {
			return "tool_use: missing id"
		}
		if b.Name == "" {
			return "tool_use: missing name"
		}
	case "tool_result":
		if b.ToolUseID == "" {
			return "tool_result: missing tool_use_id"
		}
	}
	return ""
}

func typeOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
