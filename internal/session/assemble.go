package session

import (
	"fmt"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

// Assemble groups normalized logs into session trees. Main logs are split
// by declared session id. Sub-agent logs become children of the session
// whose Task-class call returned their agent id, falling back to the
// declared parent session. A sub-agent log with neither is kept as a
// top-level session and reported as an orphan.
func Assemble(logs []*transcript.Log) ([]*Session, []transcript.Anomaly) {
	var anomalies []transcript.Anomaly
	roots := make(map[string]*Session)
	var rootOrder []string
	agents := make(map[string]*Session)
	var agentOrder []string
	declaredParent := make(map[string]string)

	for _, log := range logs {
		if log.AgentID == "" {
			if len(log.Events) == 0 && roots[log.SessionID] == nil {
				roots[log.SessionID] = &Session{ID: log.SessionID, Sources: []string{log.Ref.Name}}
				rootOrder = append(rootOrder, log.SessionID)
			}
			for _, e := range log.Events {
				s, ok := roots[e.SessionID]
				if !ok {
					s = &Session{ID: e.SessionID}
					roots[e.SessionID] = s
					rootOrder = append(rootOrder, e.SessionID)
				}
				s.Events = append(s.Events, e)
				addSource(s, log.Ref.Name)
			}
			continue
		}

		s, ok := agents[log.AgentID]
		if !ok {
			s = &Session{ID: log.SessionID, AgentID: log.AgentID}
			agents[log.AgentID] = s
			agentOrder = append(agentOrder, log.AgentID)
			declaredParent[log.AgentID] = log.SessionID
		}
		s.Events = append(s.Events, log.Events...)
		addSource(s, log.Ref.Name)
	}

	all := make([]*Session, 0, len(roots)+len(agents))
	for _, id := range rootOrder {
		all = append(all, roots[id])
	}
	for _, id := range agentOrder {
		all = append(all, agents[id])
	}
	for _, s := range all {
		invs, a := Correlate(s.Key(), s.Events)
		s.Invocations = invs
		anomalies = append(anomalies, a...)
		s.computeBounds()
		fillContext(s)
	}

	// agent id -> session holding the spawning call
	spawner := make(map[string]*Session)
	spawnCall := make(map[string]string)
	for _, s := range all {
		for _, inv := range s.Invocations {
			if inv.Class() != ClassTask || inv.Result == nil || inv.Result.AgentID == "" {
				continue
			}
			agentID := inv.Result.AgentID
			if _, seen := spawner[agentID]; seen || agentID == s.AgentID {
				continue
			}
			spawner[agentID] = s
			spawnCall[agentID] = inv.ID
		}
	}

	owner := make(map[string]*Session)
	for _, id := range agentOrder {
		child := agents[id]
		if p, ok := spawner[id]; ok && !createsCycle(id, p, owner) {
			owner[id] = p
			child.SpawnedBy = spawnCall[id]
			continue
		}
		if p, ok := roots[declaredParent[id]]; ok {
			owner[id] = p
		}
	}

	var top []*Session
	for _, id := range rootOrder {
		top = append(top, roots[id])
	}
	for _, id := range agentOrder {
		child := agents[id]
		p, ok := owner[id]
		if !ok {
			anomalies = append(anomalies, transcript.Anomaly{
				Kind:      transcript.OrphanSubagent,
				SessionID: child.ID,
				Source:    firstSource(child),
				Detail:    fmt.Sprintf("sub-agent %q has no parent session in this batch", id),
			})
			top = append(top, child)
			continue
		}
		p.Children = append(p.Children, child)
		if child.ProjectPath == "" {
			child.ProjectPath = p.ProjectPath
		}
		if child.GitBranch == "" {
			child.GitBranch = p.GitBranch
		}
	}

	for _, s := range all {
		SortSessions(s.Children)
	}
	SortSessions(top)
	return top, anomalies
}

// createsCycle reports whether attaching agent id under p would make id
// its own ancestor.
func createsCycle(id string, p *Session, owner map[string]*Session) bool {
	for cur := p; cur != nil; cur = owner[cur.AgentID] {
		if cur.AgentID == id {
			return true
		}
		if cur.AgentID == "" {
			return false
		}
	}
	return false
}

func fillContext(s *Session) {
	for _, e := range s.Events {
		if s.ProjectPath == "" && e.Cwd != "" {
			s.ProjectPath = e.Cwd
		}
		if s.GitBranch == "" && e.GitBranch != "" {
			s.GitBranch = e.GitBranch
		}
	}
}

func addSource(s *Session, name string) {
	for _, existing := range s.Sources {
		if existing == name {
			return
		}
	}
	s.Sources = append(s.Sources, name)
}

func firstSource(s *Session) string {
	if len(s.Sources) == 0 {
		return ""
	}
	return s.Sources[0]
}
