package app

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"nvsview/internal/client"
	"nvsview/internal/types"
)

// loopReadyMsg reports that fetch callbacks are queued for the loop.
type loopReadyMsg struct{}

type witnessesMsg struct {
	info *types.WitnessInfo
	err  error
}

type charactersMsg struct {
	characters []types.Character
	speakers   map[int][]string
	err        error
}

// waitForLoop parks until a callback is posted. Drain runs in Update so
// viewer and loader state is only touched from the program goroutine.
func (m *Model) waitForLoop() tea.Cmd {
	ready := m.queue.Ready()
	done := m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-ready:
			return loopReadyMsg{}
		case <-done:
			return nil
		}
	}
}

func fetchWitnessesCmd(ctx context.Context, api *client.Client) tea.Cmd {
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		info, err := api.Witnesses(ctx)
		return witnessesMsg{info: info, err: err}
	}
}

func fetchCharactersCmd(ctx context.Context, api *client.Client) tea.Cmd {
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		characters, speakers, err := api.Speakers(ctx)
		return charactersMsg{characters: characters, speakers: speakers, err: err}
	}
}
