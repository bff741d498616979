package tui

import (
	"context"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/review"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/tui/themes"
)

// Reviewer is the part of review.Service the TUI drives.
type Reviewer interface {
	Queue(ctx context.Context, session model.Session, filter service.TransactionFilter) ([]review.QueueItem, error)
	Verify(ctx context.Context, session model.Session, transactionID, note string) (*model.Transaction, error)
	Correct(ctx context.Context, session model.Session, transactionID string, categoryID int, note string) (*model.Transaction, error)
}

// CategoryLister lists the categories a user may assign.
type CategoryLister interface {
	GetCategories(ctx context.Context, userID int64) ([]model.Category, error)
}

// Config holds TUI configuration.
type Config struct {
	Reviewer   Reviewer
	Categories CategoryLister
	Theme      themes.Theme
	Session    model.Session
	Filter     service.TransactionFilter
	Width      int
	Height     int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Width:  100,
		Height: 24,
	}
}

// WithTheme sets the color theme.
func WithTheme(t themes.Theme) Option {
	return func(c *Config) {
		c.Theme = t
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithFilter restricts the queue, e.g. to a date window.
func WithFilter(f service.TransactionFilter) Option {
	return func(c *Config) {
		c.Filter = f
	}
}
