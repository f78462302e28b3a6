// Package tui provides the Bubble Tea live training view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/morsetrain/internal/experiment"
	statsPkg "github.com/verte-zerg/morsetrain/internal/stats"
	"github.com/verte-zerg/morsetrain/internal/trainer"
)

// EpochMsg carries one finished epoch into the view.
type EpochMsg trainer.EpochReport

// DoneMsg ends a training run.
type DoneMsg struct {
	Outcome experiment.Outcome
	Err     error
}

// Model implements the Bubble Tea training view.
type Model struct {
	title  string
	cfg    trainer.Config
	cancel context.CancelFunc

	width  int
	height int

	bar     progress.Model
	history []trainer.EpochReport
	best    trainer.EpochReport
	hasBest bool

	done    bool
	err     error
	outcome experiment.Outcome
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	improvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	stalledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a training view. cancel stops the run when the user quits.
func NewModel(title string, cfg trainer.Config, cancel context.CancelFunc) *Model {
	return &Model{
		title:  title,
		cfg:    cfg,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

// Observer forwards epoch reports to a running program.
func Observer(p *tea.Program) trainer.Observer {
	return func(r trainer.EpochReport) {
		p.Send(EpochMsg(r))
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = maxInt(10, minInt(60, msg.Width-20))
		return m, nil
	case EpochMsg:
		m.record(trainer.EpochReport(msg))
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.outcome = msg.Outcome
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" || (m.done && msg.Type == tea.KeyEnter) {
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := []string{titleStyle.Render(m.title), ""}
	lines = append(lines, m.bar.ViewAs(m.progressRatio()), "")
	lines = append(lines, m.renderStatus()...)
	if spark := m.renderSparkline(); spark != "" {
		lines = append(lines, "", labelStyle.Render("Val loss ")+valueStyle.Render(spark))
	}
	if m.done {
		lines = append(lines, "", m.renderResult())
	}
	content := strings.Join(lines, "\n")
	footer := m.renderFooter()
	if m.width == 0 || m.height < 3 {
		return content + "\n" + footer
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) record(r trainer.EpochReport) {
	m.history = append(m.history, r)
	if r.Improved || !m.hasBest {
		m.best = r
		m.hasBest = true
	}
}

func (m *Model) progressRatio() float64 {
	if m.cfg.MaxEpochs <= 0 || len(m.history) == 0 {
		return 0
	}
	if m.done {
		return 1
	}
	last := m.history[len(m.history)-1]
	return float64(last.Epoch) / float64(m.cfg.MaxEpochs)
}

func (m *Model) renderStatus() []string {
	if len(m.history) == 0 {
		return []string{labelStyle.Render("Preparing data...")}
	}
	last := m.history[len(m.history)-1]
	phase := string(last.Phase)
	switch last.Phase {
	case trainer.PhaseImproved:
		phase = improvedStyle.Render(phase)
	case trainer.PhaseStalled:
		phase = stalledStyle.Render(phase)
	}
	lr := fmt.Sprintf("%.6f", last.LearningRate)
	if last.LRDecayed {
		lr += " (decayed)"
	}
	return []string{
		field("Epoch", fmt.Sprintf("%d/%d", last.Epoch, m.cfg.MaxEpochs)),
		field("Train", fmt.Sprintf("loss %.4f  acc %.2f%%", last.TrainLoss, last.TrainAcc*100)),
		field("Val", fmt.Sprintf("loss %.4f  acc %.2f%%", last.ValLoss, last.ValAcc*100)),
		field("Best", fmt.Sprintf("loss %.4f @ epoch %d", m.best.ValLoss, m.best.Epoch)),
		field("LR", lr),
		field("Phase", phase),
	}
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-6s", label)) + valueStyle.Render(value)
}

func (m *Model) renderSparkline() string {
	if len(m.history) < 2 {
		return ""
	}
	values := make([]float64, len(m.history))
	for i, r := range m.history {
		values[i] = r.ValLoss
	}
	limit := 60
	if m.width > 0 {
		limit = maxInt(10, minInt(limit, m.width-20))
	}
	if len(values) > limit {
		values = values[len(values)-limit:]
	}
	return statsPkg.Sparkline(values)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		if errors.Is(m.err, context.Canceled) {
			return stalledStyle.Render("Training canceled.")
		}
		return errorStyle.Render(fmt.Sprintf("Training failed: %v", m.err))
	}
	res := m.outcome.Result
	return valueStyle.Render(fmt.Sprintf("Stopped: %s  best epoch %d  val loss %.4f  test acc %.2f%%",
		res.Reason, res.BestEpoch, res.BestValLoss, m.outcome.Evaluation.Accuracy*100))
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if len(m.history) > 0 {
		last := m.history[len(m.history)-1]
		segments = append(segments,
			fmt.Sprintf("Stall %d/%d", last.EpochsSinceImprovement, m.cfg.Patience),
			fmt.Sprintf("Plateau %d/%d", last.PlateauCount, m.cfg.PlateauPatience),
		)
	}
	if m.done {
		segments = append(segments, "enter/q: exit")
	} else {
		segments = append(segments, "q: stop")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
