package session

// Class groups tools by what they do to the workspace.
type Class int

const (
	ClassOther Class = iota
	ClassRead        // read/search
	ClassEdit        // edit/write
	ClassExec        // shell execution
	ClassTask        // spawns a sub-agent
)

func (c Class) String() string {
	switch c {
	case ClassRead:
		return "read"
	case ClassEdit:
		return "edit"
	case ClassExec:
		return "exec"
	case ClassTask:
		return "task"
	}
	return "other"
}

var toolClasses = map[string]Class{
	"Read":         ClassRead,
	"Grep":         ClassRead,
	"Glob":         ClassRead,
	"LS":           ClassRead,
	"NotebookRead": ClassRead,
	"Edit":         ClassEdit,
	"Write":        ClassEdit,
	"MultiEdit":    ClassEdit,
	"NotebookEdit": ClassEdit,
	"Bash":         ClassExec,
	"Task":         ClassTask,
	"Agent":        ClassTask,
}

// Classify returns the class for a tool name.
func Classify(toolName string) Class {
	return toolClasses[toolName]
}

// FilePath extracts the target file from tool input, by tool convention.
// Returns "" if the tool has no file target.
func FilePath(toolName string, input map[string]interface{}) string {
	if input == nil {
		return ""
	}
	var key string
	switch toolName {
	case "NotebookRead", "NotebookEdit":
		key = "notebook_path"
	case "Read", "Edit", "Write", "MultiEdit":
		key = "file_path"
	default:
		return ""
	}
	if p, ok := input[key].(string); ok {
		return p
	}
	return ""
}
