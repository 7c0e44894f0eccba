package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

var (
	runInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	runDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	runErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// runState is shared between the pipeline workers and the TUI.
type runState struct {
	mu       sync.RWMutex
	items    []source.MediaItem
	statuses []pipeline.Status
	done     bool
	err      error
	start    time.Time
}

func newRunState() *runState {
	return &runState{start: time.Now()}
}

func (s *runState) enumerated(items []source.MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.statuses = make([]pipeline.Status, len(items))
	for i := range s.statuses {
		s.statuses[i] = pipeline.StatusPending
	}
}

func (s *runState) setStatus(index int, status pipeline.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < len(s.statuses) {
		s.statuses[index] = status
	}
}

func (s *runState) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.done = true
}

// snapshot returns copies of the item list and statuses.
func (s *runState) snapshot() ([]source.MediaItem, []pipeline.Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items, append([]pipeline.Status(nil), s.statuses...), s.done, s.err
}

// finished counts items in a terminal state.
func finished(statuses []pipeline.Status) int {
	n := 0
	for _, st := range statuses {
		if st == pipeline.StatusFailed || st == pipeline.StatusReady {
			n++
		}
	}
	return n
}

type runTickMsg time.Time

type runModel struct {
	spinner  spinner.Model
	progress progress.Model
	query    string
	state    *runState
	quitting bool
}

func newRunModel(query string, state *runState) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := progress.New(
		progress.WithScaledGradient("#FF6B6B", "#4ECDC4"),
		progress.WithWidth(40),
	)

	return runModel{spinner: s, progress: p, query: query, state: state}
}

func runTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return runTickMsg(t)
	})
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runTickCmd())
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case runTickMsg:
		_, statuses, done, _ := m.state.snapshot()
		if done {
			return m, tea.Quit
		}
		var cmds []tea.Cmd
		cmds = append(cmds, runTickCmd())
		if len(statuses) > 0 {
			cmds = append(cmds, m.progress.SetPercent(float64(finished(statuses))/float64(len(statuses))))
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m runModel) View() string {
	items, statuses, done, err := m.state.snapshot()

	if done {
		if err != nil {
			return fmt.Sprintf("\n  %s %v\n\n", runErrStyle.Render("✗"), err)
		}
		return fmt.Sprintf("\n  %s Processed %d item(s) in %s\n\n",
			runDoneStyle.Render("✓"), len(items), time.Since(m.state.start).Round(time.Second))
	}

	var b strings.Builder
	b.WriteString("\n")
	if items == nil {
		fmt.Fprintf(&b, "  %s Finding videos: %s\n\n", m.spinner.View(), runInfoStyle.Render(m.query))
		b.WriteString(runDimStyle.Render("  Press q to cancel"))
		b.WriteString("\n")
		return b.String()
	}

	fmt.Fprintf(&b, "  %s %s\n\n", m.spinner.View(), runInfoStyle.Render(m.query))
	for i, item := range items {
		label := item.Title
		if label == "" {
			label = item.ExternalID
		}
		fmt.Fprintf(&b, "  %s %s %s\n", statusIcon(statuses[i]), padRight(truncate(label, 48), 48), runDimStyle.Render(string(statuses[i])))
	}
	fmt.Fprintf(&b, "\n  %s  %d/%d\n\n", m.progress.View(), finished(statuses), len(items))
	b.WriteString(runDimStyle.Render("  Press q to cancel"))
	b.WriteString("\n")
	return b.String()
}

func statusIcon(s pipeline.Status) string {
	switch s {
	case pipeline.StatusReady:
		return runDoneStyle.Render("✓")
	case pipeline.StatusFailed:
		return runErrStyle.Render("✗")
	case pipeline.StatusPending:
		return runDimStyle.Render("•")
	default:
		return runInfoStyle.Render("›")
	}
}

// isInteractive reports whether stdout is a terminal.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// runWithProgress runs a source through the pipeline, showing live progress
// when stdout is a terminal.
func runWithProgress(ctx context.Context, proc sourceProcessor, req source.Request, limit int, opts pipeline.Options) ([]pipeline.ItemResult, error) {
	if !isInteractive() {
		return proc.ProcessSource(ctx, req, limit, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := newRunState()
	opts.OnEnumerated = state.enumerated
	opts.OnStatus = state.setStatus

	var results []pipeline.ItemResult
	resultCh := make(chan struct{})
	go func() {
		defer close(resultCh)
		var err error
		results, err = proc.ProcessSource(ctx, req, limit, opts)
		state.finish(err)
	}()

	final, err := tea.NewProgram(newRunModel(req.Query, state)).Run()
	if err != nil {
		cancel()
		<-resultCh
		return nil, err
	}
	if m, ok := final.(runModel); ok && m.quitting {
		cancel()
		<-resultCh
		return nil, context.Canceled
	}

	<-resultCh
	_, _, _, runErr := state.snapshot()
	return results, runErr
}

// spin shows a spinner while fn runs. Quitting the spinner cancels fn.
func spin(ctx context.Context, message string, fn func(ctx context.Context) error) error {
	if !isInteractive() {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := newRunState()
	done := make(chan struct{})
	go func() {
		defer close(done)
		state.finish(fn(ctx))
	}()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	_, err := tea.NewProgram(spinModel{spinner: s, message: message, state: state}).Run()

	cancel()
	<-done
	if err != nil {
		return err
	}
	_, _, _, runErr := state.snapshot()
	return runErr
}

type spinModel struct {
	spinner spinner.Model
	message string
	state   *runState
}

func (m spinModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runTickCmd())
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case runTickMsg:
		if _, _, done, _ := m.state.snapshot(); done {
			return m, tea.Quit
		}
		return m, runTickCmd()
	}
	return m, nil
}

func (m spinModel) View() string {
	if _, _, done, _ := m.state.snapshot(); done {
		return ""
	}
	return fmt.Sprintf("\n  %s %s\n", m.spinner.View(), runInfoStyle.Render(m.message))
}
