package monitor

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Sampler produces samples for the live view.
type Sampler interface {
	Sample() (Sample, error)
}

type tickMsg time.Time

type sampleMsg struct {
	sample Sample
	err    error
}

// Model is the bubbletea model of the live view.
type Model struct {
	sampler  Sampler
	interval time.Duration

	current Sample
	have    bool
	err     error

	// rate is the sequence advance per second between the last two samples.
	rate float64

	quitting bool
}

// NewModel returns a model sampling every interval.
func NewModel(sampler Sampler, interval time.Duration) Model {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return Model{sampler: sampler, interval: interval}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) sample() tea.Cmd {
	return func() tea.Msg {
		s, err := m.sampler.Sample()
		return sampleMsg{sample: s, err: err}
	}
}

// Init takes the first sample.
func (m Model) Init() tea.Cmd {
	return m.sample()
}

// Update handles key presses, ticks and samples.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		return m, m.sample()

	case sampleMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, m.tick()
		}
		if m.have {
			if dt := msg.sample.At.Sub(m.current.At).Seconds(); dt > 0 && msg.sample.Sequence >= m.current.Sequence {
				m.rate = float64(msg.sample.Sequence-m.current.Sequence) / dt
			}
		}
		m.current, m.have, m.err = msg.sample, true, nil
		return m, m.tick()
	}
	return m, nil
}

// View renders the current sample.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var out string
	if m.have {
		out = Render(m.current) + "\n"
		out += mutedStyle.Render(fmt.Sprintf("%.1f frames/s", m.rate)) + "\n"
	} else {
		out = mutedStyle.Render("waiting for first sample...") + "\n"
	}
	if m.err != nil {
		out += lipgloss.NewStyle().Foreground(colorError).Render(m.err.Error()) + "\n"
	}
	return out + mutedStyle.Render("q to quit") + "\n"
}

// Current returns the latest sample and whether one was taken.
func (m Model) Current() (Sample, bool) { return m.current, m.have }

// Rate returns the observed frames per second.
func (m Model) Rate() float64 { return m.rate }
