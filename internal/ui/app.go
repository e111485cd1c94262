package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

// mode is the model's input mode.
type mode int

const (
	modeBrowse mode = iota
	modePickTarget // choosing the master a slave moves to
	modeNameInput  // typing a new master pair's name
	modeConfirmQuit
)

// TreeMsg delivers a freshly reconciled tree, already flattened. Sent from
// the session's OnTree hook.
type TreeMsg struct {
	Rows []Row
}

// StateMsg delivers a session state transition. Sent from the session's
// OnState hook.
type StateMsg hierarchy.State

type opDoneMsg struct {
	flash   string
	pending []hierarchy.Edit
	err     error
}

// Model is the root application state for the interactive session.
type Model struct {
	ctx     context.Context
	session *hierarchy.Session

	keys   keyMap
	help   help.Model
	status statusBar

	rows     []Row
	cursorID int
	staged   map[int]bool
	mode     mode
	moveID   int // device being moved in modePickTarget
	input    textinput.Model

	confirmQuit bool

	flash  string
	width  int
	height int
}

// NewModel builds the session view. Wire the session's OnTree/OnState hooks
// to the running program with Program.Send(TreeMsg/StateMsg); periodic
// refresh comes from the session's AutoRefresh ticker, not from the model.
func NewModel(ctx context.Context, session *hierarchy.Session, confirmQuit bool) *Model {
	input := textinput.New()
	input.Placeholder = "master device name"
	input.CharLimit = 64

	return &Model{
		ctx:         ctx,
		session:     session,
		keys:        defaultKeyMap(),
		help:        help.New(),
		status:      newStatusBar(),
		input:       input,
		confirmQuit: confirmQuit,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.status.spinner.Tick, m.refreshCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.status.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.status.spinner, cmd = m.status.spinner.Update(msg)
		return m, cmd

	case TreeMsg:
		m.rows = msg.Rows
		m.clampCursor()
		return m, nil

	case StateMsg:
		m.status.state = hierarchy.State(msg)
		if m.status.state != hierarchy.StateError {
			m.status.lastErr = ""
		}
		return m, nil

	case opDoneMsg:
		m.status.pending = len(msg.pending)
		m.staged = stagedIDs(msg.pending)
		m.flash = msg.flash
		if msg.err != nil {
			m.status.lastErr = msg.err.Error()
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeNameInput {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			name := strings.TrimSpace(m.input.Value())
			m.mode = modeBrowse
			m.input.Blur()
			if name == "" {
				return m, nil
			}
			return m, m.stageCmd(func() error { return m.session.StageCreateMaster(name) },
				fmt.Sprintf("staged: create master %q", name))
		case key.Matches(msg, m.keys.Back):
			m.mode = modeBrowse
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.mode == modeConfirmQuit {
		switch msg.String() {
		case "y", "enter":
			return m, tea.Quit
		default:
			m.mode = modeBrowse
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.confirmQuit && m.status.pending > 0 {
			m.mode = modeConfirmQuit
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Back):
		if m.mode == modePickTarget {
			m.mode = modeBrowse
			return m, nil
		}
		if m.status.state == hierarchy.StateError {
			return m, m.acknowledgeCmd()
		}
		return m, nil
	}

	if m.mode == modePickTarget {
		if key.Matches(msg, m.keys.Confirm) {
			return m.confirmMove()
		}
		return m, nil
	}

	row, ok := m.selectedRow()

	switch {
	case key.Matches(msg, m.keys.Move):
		if ok && row.Depth == 1 {
			m.mode = modePickTarget
			m.moveID = row.ID
		}
		return m, nil

	case key.Matches(msg, m.keys.Float):
		if ok && row.Depth == 1 && row.Role != hierarchy.FloatingSlave {
			return m, m.stageCmd(func() error { return m.session.StageFloat(row.ID) },
				fmt.Sprintf("staged: float %s", row.Name))
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.mode = modeNameInput
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Remove):
		if ok && row.Depth == 0 && !row.Bucket {
			if row.Reserved {
				m.status.lastErr = "the core pointer and keyboard cannot be removed"
				return m, nil
			}
			return m, m.stageCmd(func() error { return m.session.StageRemoveMaster(row.ID) },
				fmt.Sprintf("staged: remove master %s", row.Name))
		}
		return m, nil

	case key.Matches(msg, m.keys.Apply):
		return m, m.applyCmd()

	case key.Matches(msg, m.keys.Discard):
		return m, m.cancelCmd()
	}

	return m, nil
}

func (m *Model) confirmMove() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok || row.Depth != 0 {
		return m, nil
	}
	moveID := m.moveID
	m.mode = modeBrowse

	target := row.ID
	if row.Bucket {
		target = hierarchy.FloatingID
	}
	return m, m.stageCmd(func() error { return m.session.StageReattach(moveID, target) },
		fmt.Sprintf("staged: move %d to %s", moveID, row.Name))
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Input Device Hierarchy"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(SubtleStyle.Render("querying devices..."))
		b.WriteString("\n")
	}

	for _, row := range m.rows {
		selected := row.ID == m.cursorID
		target := m.mode == modePickTarget && row.Depth == 0 && m.validTarget(row)
		b.WriteString(renderRow(row, selected, target, m.staged[row.ID]))
		b.WriteString("\n")
	}

	b.WriteString("\n")

	switch m.mode {
	case modePickTarget:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("moving device %d: pick a master (or Floating) and press enter, esc to abort", m.moveID)))
		b.WriteString("\n")
	case modeNameInput:
		b.WriteString("New master pair name: " + m.input.View())
		b.WriteString("\n")
	case modeConfirmQuit:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d unapplied change(s). Quit anyway? [y/N]", m.status.pending)))
		b.WriteString("\n")
	default:
		if m.flash != "" {
			b.WriteString(SuccessStyle.Render(m.flash))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.status.view())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// selectedRow returns the row under the cursor.
func (m *Model) selectedRow() (Row, bool) {
	for _, row := range m.rows {
		if row.ID == m.cursorID {
			return row, true
		}
	}
	return Row{}, false
}

// validTarget reports whether a move of m.moveID may land on the given root
// row. Class compatibility is rechecked at apply time; this only guides the
// picker.
func (m *Model) validTarget(root Row) bool {
	if root.Bucket {
		return true
	}
	src, ok := m.rowByID(m.moveID)
	if !ok || src.Role == hierarchy.FloatingSlave {
		return true
	}
	return src.Role.IsPointer() == root.Role.IsPointer()
}

func (m *Model) rowByID(id int) (Row, bool) {
	for _, row := range m.rows {
		if row.ID == id {
			return row, true
		}
	}
	return Row{}, false
}

// moveCursor tracks the cursor by device id so selection survives
// reconciliation; the node for an id keeps its place while it lives.
func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	idx := 0
	for i, row := range m.rows {
		if row.ID == m.cursorID {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.rows) {
		idx = len(m.rows) - 1
	}
	m.cursorID = m.rows[idx].ID
}

func (m *Model) clampCursor() {
	if len(m.rows) == 0 {
		m.cursorID = 0
		return
	}
	for _, row := range m.rows {
		if row.ID == m.cursorID {
			return
		}
	}
	m.cursorID = m.rows[0].ID
}

// refreshCmd reconciles against the live server off the event loop.
func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.session.Refresh(m.ctx)
		return opDoneMsg{pending: m.session.Pending(), err: err}
	}
}

func (m *Model) stageCmd(stage func() error, flash string) tea.Cmd {
	return func() tea.Msg {
		err := stage()
		return opDoneMsg{flash: flash, pending: m.session.Pending(), err: err}
	}
}

func (m *Model) applyCmd() tea.Cmd {
	return func() tea.Msg {
		applied, err := m.session.Apply(m.ctx)
		flash := ""
		if err == nil && applied > 0 {
			flash = fmt.Sprintf("applied %d change(s)", applied)
		}
		return opDoneMsg{flash: flash, pending: m.session.Pending(), err: err}
	}
}

func (m *Model) acknowledgeCmd() tea.Cmd {
	return func() tea.Msg {
		m.session.Acknowledge()
		return opDoneMsg{pending: m.session.Pending()}
	}
}

func (m *Model) cancelCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.session.Cancel(m.ctx)
		return opDoneMsg{flash: "discarded staged changes", err: err}
	}
}
