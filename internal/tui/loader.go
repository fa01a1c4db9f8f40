package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsync/internal/syncer"
)

// ErrCancelled is returned when the user interrupts a running view.
var ErrCancelled = errors.New("cancelled")

type collectDoneMsg struct {
	preview syncer.Preview
	err     error
}

type loaderModel struct {
	label     string
	collectFn func(ctx context.Context) (syncer.Preview, error)
	ctx       context.Context
	cancel    context.CancelFunc
	spinner   spinner.Model
	started   time.Time
	result    syncer.Preview
	err       error
	done      bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doCollect(), m.spinner.Tick)
}

func (m loaderModel) doCollect() tea.Cmd {
	collectFn, ctx := m.collectFn, m.ctx
	return func() tea.Msg {
		p, err := collectFn(ctx)
		return collectDoneMsg{preview: p, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case collectDoneMsg:
		m.result = msg.preview
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.started).Round(time.Second)
	return fmt.Sprintf("%s Collecting %s... %s\n", m.spinner.View(), m.label, elapsed)
}

// RunLoader shows a spinner while collectFn runs. It renders inline (no alt
// screen). ctrl+c cancels the context handed to collectFn.
func RunLoader(ctx context.Context, label string, collectFn func(ctx context.Context) (syncer.Preview, error)) (syncer.Preview, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	m := loaderModel{
		label:     label,
		collectFn: collectFn,
		ctx:       ctx,
		cancel:    cancel,
		spinner:   s,
		started:   time.Now(),
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return syncer.Preview{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
