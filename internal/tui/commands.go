package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 10 * time.Second

func (m Model) loadQueue() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()

		items, err := m.config.Reviewer.Queue(ctx, m.config.Session, m.config.Filter)
		return queueLoadedMsg{items: items, err: err}
	}
}

func (m Model) loadCategories() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()

		cats, err := m.config.Categories.GetCategories(ctx, m.config.Session.UserID)
		return categoriesLoadedMsg{categories: cats, err: err}
	}
}

func (m Model) verify(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()

		txn, err := m.config.Reviewer.Verify(ctx, m.config.Session, id, "")
		return reviewedMsg{id: id, transaction: txn, verified: true, err: err}
	}
}

func (m Model) correct(id string, categoryID int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()

		txn, err := m.config.Reviewer.Correct(ctx, m.config.Session, id, categoryID, "")
		return reviewedMsg{id: id, transaction: txn, err: err}
	}
}
