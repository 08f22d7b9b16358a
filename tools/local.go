package tools

import (
	"fmt"
	"os"
)

// maxReadFileBytes caps how much file content a tool call may return
const maxReadFileBytes = 1 << 20

// ReadFileInput is the argument struct for the read_file tool
type ReadFileInput struct {
	Path string `json:"path" description:"Path of the file to read"`
}

// ReadFileOutput is the result struct for the read_file tool
type ReadFileOutput struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// ReadFile reads a local text file and returns its content
func ReadFile(input ReadFileInput) ReadFileOutput {
	info, err := os.Stat(input.Path)
	if err != nil {
		return ReadFileOutput{Error: fmt.Sprintf("cannot access %s: %v", input.Path, err)}
	}

	if info.IsDir() {
		return ReadFileOutput{Error: fmt.Sprintf("%s is a directory", input.Path)}
	}

	if info.Size() > maxReadFileBytes {
		return ReadFileOutput{Error: fmt.Sprintf("%s is too large (%d bytes, limit %d)", input.Path, info.Size(), maxReadFileBytes)}
	}

	data, err := os.ReadFile(input.Path)
	if err != nil {
		return ReadFileOutput{Error: fmt.Sprintf("cannot read %s: %v", input.Path, err)}
	}

	return ReadFileOutput{Content: string(data)}
}

// RegisterReadFileTool registers the read_file tool on the manager
func RegisterReadFileTool(tm *ToolManager) error {
	return tm.AddLocalTool("read_file", "Read a local text file and return its content", ReadFile)
}
