package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Summary reports what happened during a review session.
type Summary struct {
	Reviewed int
	Pending  int
}

// Run shows the review queue until the user quits or ctx is canceled.
func Run(ctx context.Context, cfg Config, opts ...Option) (Summary, error) {
	base := defaultConfig()
	base.Reviewer = cfg.Reviewer
	base.Categories = cfg.Categories
	base.Session = cfg.Session
	base.Filter = cfg.Filter
	for _, opt := range opts {
		opt(&base)
	}

	if base.Reviewer == nil || base.Categories == nil {
		return Summary{}, errors.New("reviewer and categories are required")
	}
	if err := base.Session.Validate(); err != nil {
		return Summary{}, err
	}

	p := tea.NewProgram(NewModel(ctx, base), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return Summary{}, fmt.Errorf("review UI failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Summary{}, nil
	}
	return Summary{Reviewed: m.Reviewed(), Pending: m.Pending()}, nil
}
