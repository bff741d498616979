package tui

import (
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/review"
)

type queueLoadedMsg struct {
	err   error
	items []review.QueueItem
}

type categoriesLoadedMsg struct {
	err        error
	categories []model.Category
}

// reviewedMsg reports the outcome of a verify or correct call.
type reviewedMsg struct {
	err         error
	transaction *model.Transaction
	id          string
	verified    bool
}
