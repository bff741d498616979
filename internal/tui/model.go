// Package tui is the interactive review queue: it lists the transactions the
// classifier was unsure about and lets the user accept a suggestion or assign
// another category.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/review"
	"github.com/Jaikumar96/fincategorizer/internal/tui/themes"
)

// State represents the current state of the TUI.
type State int

const (
	StateLoading State = iota
	StateQueue
	StatePicker
)

// Model holds the TUI state.
type Model struct {
	ctx         context.Context
	lastError   error
	theme       themes.Theme
	statusStyle lipgloss.Style
	help        help.Model
	config      Config
	keymap      KeyMap
	queue       table.Model
	picker      table.Model
	status      string
	items       []review.QueueItem
	categories  []model.Category
	reviewed    int
	width       int
	height      int
	state       State
	busy        bool
	quitting    bool
}

// NewModel creates the review model. cfg.Reviewer and cfg.Categories must be
// set.
func NewModel(ctx context.Context, cfg Config) Model {
	theme := cfg.Theme
	m := Model{
		ctx:    ctx,
		config: cfg,
		theme:  theme,
		keymap: DefaultKeyMap(),
		help:   help.New(),
		state:  StateLoading,
		width:  cfg.Width,
		height: cfg.Height,
	}

	m.queue = table.New(
		table.WithColumns(queueColumns),
		table.WithFocused(true),
	)
	m.queue.SetStyles(theme.TableStyles())

	m.picker = table.New(
		table.WithColumns(pickerColumns),
		table.WithFocused(true),
	)
	m.picker.SetStyles(theme.TableStyles())

	m.resize()
	return m
}

// Init loads the queue and the category list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadQueue(), m.loadCategories())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case queueLoadedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.setStatus(m.theme.StatusError, "Failed to load queue: "+msg.err.Error())
		} else {
			m.items = msg.items
			m.syncQueueRows()
		}
		if m.state == StateLoading {
			m.state = StateQueue
		}
		return m, nil

	case categoriesLoadedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.setStatus(m.theme.StatusError, "Failed to load categories: "+msg.err.Error())
			return m, nil
		}
		m.categories = msg.categories
		m.syncPickerRows()
		return m, nil

	case reviewedMsg:
		m.busy = false
		return m.handleReviewed(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch m.state {
	case StateQueue:
		return m.handleQueueKey(msg)
	case StatePicker:
		return m.handlePickerKey(msg)
	}
	return m, nil
}

func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := m.selected()

	switch {
	case key.Matches(msg, m.keymap.Refresh):
		return m, m.loadQueue()

	case key.Matches(msg, m.keymap.Verify):
		if item == nil || m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.verify(item.Transaction.ID)

	case key.Matches(msg, m.keymap.Correct):
		if item == nil || m.busy {
			return m, nil
		}
		if len(m.categories) == 0 {
			m.setStatus(m.theme.StatusWarning, "Categories are still loading")
			return m, nil
		}
		m.state = StatePicker
		m.picker.SetCursor(m.categoryIndex(item.Transaction.CategoryID))
		return m, nil

	case key.Matches(msg, m.keymap.Alternative):
		if item == nil || m.busy {
			return m, nil
		}
		n := int(msg.Runes[0] - '0')
		alts := item.Transaction.Alternatives
		if n > len(alts) {
			m.setStatus(m.theme.StatusWarning, fmt.Sprintf("No alternative %d for %s", n, item.Transaction.MerchantName))
			return m, nil
		}
		m.busy = true
		return m, m.correct(item.Transaction.ID, alts[n-1].CategoryID)
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back):
		m.state = StateQueue
		return m, nil

	case key.Matches(msg, m.keymap.Select):
		m.state = StateQueue
		item := m.selected()
		idx := m.picker.Cursor()
		if item == nil || idx < 0 || idx >= len(m.categories) {
			return m, nil
		}
		m.busy = true
		return m, m.correct(item.Transaction.ID, m.categories[idx].ID)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) handleReviewed(msg reviewedMsg) Model {
	if msg.err != nil {
		m.lastError = msg.err
		m.setStatus(m.theme.StatusError, "Update failed: "+msg.err.Error())
		return m
	}

	for i := range m.items {
		if m.items[i].Transaction.ID == msg.id {
			m.items = append(m.items[:i:i], m.items[i+1:]...)
			break
		}
	}
	m.syncQueueRows()
	m.reviewed++

	txn := msg.transaction
	if msg.verified {
		m.setStatus(m.theme.StatusSuccess, fmt.Sprintf("Accepted %s as %s", txn.MerchantName, txn.CategoryName()))
	} else {
		m.setStatus(m.theme.StatusSuccess, fmt.Sprintf("Moved %s to %s", txn.MerchantName, txn.CategoryName()))
	}
	return m
}

func (m *Model) setStatus(style lipgloss.Style, text string) {
	m.statusStyle = style
	m.status = text
}

// selected returns the highlighted queue item, or nil when the queue is empty.
func (m Model) selected() *review.QueueItem {
	idx := m.queue.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return nil
	}
	return &m.items[idx]
}

func (m Model) categoryIndex(id int) int {
	for i, c := range m.categories {
		if c.ID == id {
			return i
		}
	}
	return 0
}

// Pending returns the number of transactions still in the queue.
func (m Model) Pending() int {
	return len(m.items)
}

// Reviewed returns how many transactions were accepted or corrected.
func (m Model) Reviewed() int {
	return m.reviewed
}

func (m *Model) resize() {
	// Title, detail panel, status line and help.
	reserved := 14
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.queue.SetHeight(h)
	m.queue.SetWidth(m.width)
	m.picker.SetHeight(h)
	m.help.Width = m.width
}
