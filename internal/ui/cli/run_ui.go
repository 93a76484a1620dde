package cli

import (
	"context"
	"easierless/internal/engine/session"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(rt *runtime) error {
	m := initialModel(func() error {
		return rt.session().Reload(context.Background(), session.TriggerManual)
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	root := rt.paths.ProjectRoot
	var (
		mu     sync.Mutex
		cancel func()
	)
	attach := func(s *session.Session) {
		mu.Lock()
		defer mu.Unlock()
		if cancel != nil {
			cancel()
		}
		cancel = s.Subscribe(func(update session.Update) {
			p.Send(buildUpdateMsg(s, update.Generation, root))
		})
		go p.Send(buildUpdateMsg(s, s.Current(), root))
	}
	attach(rt.session())
	rt.onSwap(attach)

	_, err := p.Run()

	mu.Lock()
	if cancel != nil {
		cancel()
	}
	mu.Unlock()
	return err
}

func buildUpdateMsg(s *session.Session, gen *session.Generation, root string) updateMsg {
	sources := make(map[string]string, gen.Table.Sources().Len())
	for p := gen.Table.Sources().Oldest(); p != nil; p = p.Next() {
		sources[p.Key] = p.Value
	}
	files := make(map[string]struct{}, len(gen.Records))
	for _, rec := range gen.Records {
		files[rec.Path] = struct{}{}
	}
	return updateMsg{
		items:      s.Completions(),
		sources:    sourceLabels(sources, root),
		generation: gen.ID,
		warm:       gen.Warm,
		fileCount:  len(files),
	}
}
