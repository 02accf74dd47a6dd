package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxLineSize bounds a single record; some assistant messages are huge.
const maxLineSize = 10 * 1024 * 1024 // 10MB

// Ref identifies where a log came from.
type Ref struct {
	Name    string // File name or object key
	AgentID string // Non-empty for sub-agent logs
}

// IsSubagent reports whether the referenced log belongs to a sub-agent.
func (r Ref) IsSubagent() bool {
	return r.AgentID != ""
}

// Log is one normalized transcript source.
type Log struct {
	Ref Ref
	// SessionID is the first declared session id, falling back to the file stem.
	// For sub-agent logs this is the parent's session id.
	SessionID  string
	AgentID    string
	Events     []Event
	Anomalies  []Anomaly
	TotalLines int // Total lines processed (including invalid ones)
}

// ReadLog reads JSONL records from r and normalizes them. Malformed or
// oversized lines are skipped and recorded; only I/O failures return an error.
func ReadLog(r io.Reader, ref Ref) (*Log, error) {
	log := &Log{Ref: ref, AgentID: ref.AgentID}
	lineNumber := 0

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		lineData, tooLong, err := readLine(br, maxLineSize)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF && len(lineData) == 0 && !tooLong {
			break
		}
		lineNumber++
		if tooLong {
			log.malformed(lineNumber, fmt.Sprintf("line exceeds %d bytes", maxLineSize), lineData)
		} else {
			log.addLine(lineNumber, lineData)
		}
		if err == io.EOF {
			break
		}
	}
	log.TotalLines = lineNumber

	if log.SessionID == "" {
		log.SessionID = stem(ref.Name)
	}
	// Records without a sessionId inherit the log's
	for i := range log.Events {
		if log.Events[i].SessionID == "" {
			log.Events[i].SessionID = log.SessionID
		}
	}
	for i := range log.Anomalies {
		if log.Anomalies[i].SessionID == "" {
			log.Anomalies[i].SessionID = log.SessionID
		}
	}
	return log, nil
}

func (l *Log) addLine(lineNumber int, lineData []byte) {
	if len(bytes.TrimSpace(lineData)) == 0 {
		return
	}

	var rawMap map[string]interface{}
	if err := json.Unmarshal(lineData, &rawMap); err != nil {
		l.malformed(lineNumber, "invalid JSON: "+err.Error(), lineData)
		return
	}
	if problems := validateRecord(rawMap); len(problems) > 0 {
		l.malformed(lineNumber, strings.Join(problems, "; "), lineData)
		return
	}
	rec, err := ParseRecord(lineData)
	if err != nil {
		l.malformed(lineNumber, "decode: "+err.Error(), lineData)
		return
	}

	if l.SessionID == "" && rec.SessionID != "" {
		l.SessionID = rec.SessionID
	}
	if l.AgentID == "" && rec.AgentID != "" {
		l.AgentID = rec.AgentID
	}

	events, anomalies := Normalize(rec, lineNumber)
	l.Events = append(l.Events, events...)
	for _, a := range anomalies {
		a.Source = l.Ref.Name
		l.Anomalies = append(l.Anomalies, a)
	}
}

// readLine returns the next line without its line ending. A line longer
// than limit is consumed up to its newline and reported with tooLong; only
// its first bytes are returned.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > limit {
				tooLong = true
				line = line[:min(len(line), 256)]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, err
	}
}

func (l *Log) malformed(line int, detail string, raw []byte) {
	l.Anomalies = append(l.Anomalies, Anomaly{
		Kind:   MalformedRecord,
		Source: l.Ref.Name,
		Line:   line,
		Detail: detail + " (" + truncate(string(raw), 200) + ")",
	})
}

// stem strips directory and known extensions from a source name.
func stem(name string) string {
	base := path.Base(name)
	for _, ext := range []string{".zst", ".br", ".jsonl"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ExtractAgentID extracts the agent ID from a name like "agent-{id}.jsonl",
// optionally compressed (".jsonl.zst", ".jsonl.br").
// Returns empty string if the name doesn't match the expected pattern.
func ExtractAgentID(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".zst"), ".br")
	if !strings.HasPrefix(base, "agent-") || !strings.HasSuffix(base, ".jsonl") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "agent-"), ".jsonl")
}
