// Package ui provides the Bubble Tea TUI for the evmnet demo.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
	"github.com/fd1az/arbitrage-bot/pkg/ui/components"
)

// Program is set by main once the Bubble Tea program is running, so
// background goroutines can deliver messages with Send.
var Program *tea.Program

// OnStartModules is invoked once the welcome screen has been
// acknowledged; main wires it to kick off module startup.
var OnStartModules func()

// Send delivers msg to the running program, if any.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}

// ErrorMsg carries a fatal error to the TUI for display.
type ErrorMsg struct{ Error error }

// SnapshotMsg carries a fresh connection snapshot into the model.
type SnapshotMsg struct{ Snapshot domain.ConnectionSnapshot }

// QueueDepthMsg reports the current transaction executor/contract
// caller queue depth.
type QueueDepthMsg struct{ Depth int }

// Model is the root Bubble Tea model for the evmnet dashboard.
type Model struct {
	keys   KeyMap
	status *components.StatusComponent

	ready      bool
	err        error
	snapshot   domain.ConnectionSnapshot
	queueDepth int
	width      int
	height     int
}

// New builds the initial dashboard model, showing a welcome screen
// until the welcome keypress fires module startup.
func New() Model {
	return Model{
		keys:   DefaultKeyMap(),
		status: components.NewStatusComponent(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case msg.String() == "q", msg.String() == "ctrl+c":
			return m, tea.Quit
		case !m.ready:
			m.ready = true
			if OnStartModules != nil {
				OnStartModules()
			}
			return m, nil
		}
		return m, nil

	case ErrorMsg:
		m.err = msg.Error
		return m, nil

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.status.Update(components.ConnectionStatus{
			Name:       "rpc",
			Connected:  msg.Snapshot.State == domain.StateConnected,
			LastBlock:  msg.Snapshot.BlockNumber,
			LastUpdate: msg.Snapshot.LastUpdate,
		})
		return m, nil

	case QueueDepthMsg:
		m.queueDepth = msg.Depth
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("fatal: %v\npress q to quit\n", m.err)
	}

	if !m.ready {
		return HeaderStyle.Render("evmnet demo") + "\n\npress any key to connect\n"
	}

	body := BoxStyle.Render(m.status.View())
	gas := m.renderGasPrices()
	balance := m.renderBalance()

	return TitleStyle.Render("evmnet") + "\n\n" +
		body + "\n" +
		gas + "\n" +
		balance + "\n" +
		fmt.Sprintf("queue depth: %d\n", m.queueDepth) +
		HelpStyle.Render("q: quit")
}

func (m Model) renderGasPrices() string {
	g := m.snapshot.GasPrices
	return fmt.Sprintf("gas (gwei)  slow=%.1f  average=%.1f  fast=%.1f", g.Slow, g.Average, g.Fast)
}

func (m Model) renderBalance() string {
	if m.snapshot.Balance == nil {
		return "balance: n/a"
	}
	return fmt.Sprintf("balance (wei): %s", m.snapshot.Balance.String())
}
