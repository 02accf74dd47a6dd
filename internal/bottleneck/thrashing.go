package bottleneck

import (
	"time"

	"github.com/ConfabulousDev/aist/internal/session"
)

type editThrashDetector struct{}

func (editThrashDetector) Kind() Kind { return KindEditThrashing }

type fileEdits struct {
	path        string
	count       int
	firstSeq    int
	first, last *time.Time
}

func (editThrashDetector) Detect(s *session.Session, cfg Config) []Bottleneck {
	byFile := make(map[string]*fileEdits)
	var order []*fileEdits
	for _, inv := range s.Invocations {
		if inv.Class() != session.ClassEdit {
			continue
		}
		path := inv.FilePath()
		if path == "" {
			continue
		}
		fe, ok := byFile[path]
		if !ok {
			fe = &fileEdits{path: path, firstSeq: inv.Seq}
			byFile[path] = fe
			order = append(order, fe)
		}
		fe.count++
		if ts := inv.StartedAt; ts != nil {
			if fe.first == nil || ts.Before(*fe.first) {
				fe.first = ts
			}
			if fe.last == nil || ts.After(*fe.last) {
				fe.last = ts
			}
		}
	}

	var out []Bottleneck
	for _, fe := range order {
		if fe.count < cfg.EditThrashMinEdits {
			continue
		}
		b := newFinding(s, KindEditThrashing, fe.firstSeq)
		b.Start, b.End = fe.first, fe.last
		var span time.Duration
		if fe.first != nil {
			span = fe.last.Sub(*fe.first)
		}
		b.EditThrashing = &EditThrashing{
			FilePath:  fe.path,
			EditCount: fe.count,
			Duration:  span,
		}
		out = append(out, b)
	}
	return out
}
