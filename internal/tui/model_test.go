package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/review"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

type fakeReviewer struct {
	queueErr  error
	actionErr error
	items     []review.QueueItem
	verified  []string
	corrected map[string]int
	mu        sync.Mutex
}

func (f *fakeReviewer) Queue(_ context.Context, _ model.Session, _ service.TransactionFilter) ([]review.QueueItem, error) {
	return f.items, f.queueErr
}

func (f *fakeReviewer) Verify(_ context.Context, _ model.Session, id, _ string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	f.verified = append(f.verified, id)
	txn := f.find(id)
	txn.IsUserCorrected = true
	return txn, nil
}

func (f *fakeReviewer) Correct(_ context.Context, _ model.Session, id string, categoryID int, _ string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	if f.corrected == nil {
		f.corrected = make(map[string]int)
	}
	f.corrected[id] = categoryID
	txn := f.find(id)
	txn.CategoryID = categoryID
	txn.Category = &model.Category{ID: categoryID, Name: "Transportation"}
	txn.IsUserCorrected = true
	return txn, nil
}

func (f *fakeReviewer) find(id string) *model.Transaction {
	for _, it := range f.items {
		if it.Transaction.ID == id {
			txn := it.Transaction
			return &txn
		}
	}
	return &model.Transaction{ID: id}
}

type fakeCategories struct {
	err  error
	cats []model.Category
}

func (f fakeCategories) GetCategories(context.Context, int64) ([]model.Category, error) {
	return f.cats, f.err
}

func queueItems() []review.QueueItem {
	food := model.Category{ID: 1, Name: "Food & Dining"}
	return []review.QueueItem{
		{
			Tier: triage.LowConfidence,
			Transaction: model.Transaction{
				ID: "t-low", MerchantName: "Ola Cabs", CategoryID: 1, Category: &food,
				ConfidenceScore: model.Float64Ptr(0.3),
				Alternatives: model.Alternatives{
					{CategoryID: 3, CategoryName: "Transportation", Score: 0.25},
				},
			},
		},
		{
			Tier: triage.NeedsReview,
			Transaction: model.Transaction{
				ID: "t-review", MerchantName: "Swiggy", CategoryID: 1, Category: &food,
				ConfidenceScore: model.Float64Ptr(0.7),
			},
		},
	}
}

func newTestModel(t *testing.T, r *fakeReviewer) Model {
	t.Helper()
	cfg := defaultConfig()
	cfg.Reviewer = r
	cfg.Categories = fakeCategories{cats: model.DefaultCategories()}
	cfg.Session = model.Session{UserID: 1}
	return NewModel(context.Background(), cfg)
}

// drive feeds msg to m and then runs every returned command to completion,
// feeding their messages back in.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	return runCmd(t, m, cmd)
}

func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = runCmd(t, m, c)
		}
		return m
	case tea.QuitMsg:
		return m
	default:
		return drive(t, m, msg)
	}
}

func loaded(t *testing.T, r *fakeReviewer) Model {
	t.Helper()
	m := newTestModel(t, r)
	return runCmd(t, m, m.Init())
}

func keyRune(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadsQueueAndCategories(t *testing.T) {
	m := loaded(t, &fakeReviewer{items: queueItems()})

	assert.Equal(t, StateQueue, m.state)
	assert.Equal(t, 2, m.Pending())
	assert.Len(t, m.categories, 15)

	view := m.View()
	assert.Contains(t, view, "Review queue")
	assert.Contains(t, view, "Ola Cabs")
	assert.Contains(t, view, "Low confidence")
	assert.Contains(t, view, "[1] Transportation")
}

func TestModel_LoadingView(t *testing.T) {
	m := newTestModel(t, &fakeReviewer{})
	assert.Contains(t, m.View(), "Loading")
}

func TestModel_VerifyRemovesItem(t *testing.T) {
	r := &fakeReviewer{items: queueItems()}
	m := loaded(t, r)

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"t-low"}, r.verified)
	assert.Equal(t, 1, m.Pending())
	assert.Equal(t, 1, m.Reviewed())
	assert.False(t, m.busy)
	assert.Contains(t, m.status, "Accepted Ola Cabs")
	assert.Equal(t, "t-review", m.selected().Transaction.ID)
}

func TestModel_AlternativeKeyCorrects(t *testing.T) {
	r := &fakeReviewer{items: queueItems()}
	m := loaded(t, r)

	m = drive(t, m, keyRune("1"))

	assert.Equal(t, 3, r.corrected["t-low"])
	assert.Equal(t, 1, m.Pending())
	assert.Contains(t, m.status, "Moved Ola Cabs to Transportation")
}

func TestModel_MissingAlternative(t *testing.T) {
	r := &fakeReviewer{items: queueItems()}
	m := loaded(t, r)

	m = drive(t, m, keyRune("2"))

	assert.Empty(t, r.corrected)
	assert.Equal(t, 2, m.Pending())
	assert.Contains(t, m.status, "No alternative 2")
}

func TestModel_PickerAssignsCategory(t *testing.T) {
	r := &fakeReviewer{items: queueItems()}
	m := loaded(t, r)

	m = drive(t, m, keyRune("c"))
	require.Equal(t, StatePicker, m.state)
	assert.Equal(t, 0, m.picker.Cursor(), "cursor starts on the current category")
	assert.Contains(t, m.View(), "Assign category to Ola Cabs")

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, StateQueue, m.state)
	assert.Equal(t, 3, r.corrected["t-low"])
	assert.Equal(t, 1, m.Pending())
}

func TestModel_PickerBack(t *testing.T) {
	r := &fakeReviewer{items: queueItems()}
	m := loaded(t, r)

	m = drive(t, m, keyRune("c"))
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, StateQueue, m.state)
	assert.Empty(t, r.corrected)
}

func TestModel_NavigationSelectsNextItem(t *testing.T) {
	r := &fakeReviewer{items: queueItems()}
	m := loaded(t, r)

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = drive(t, m, keyRune("v"))

	assert.Equal(t, []string{"t-review"}, r.verified)
}

func TestModel_ActionErrorKeepsItem(t *testing.T) {
	r := &fakeReviewer{items: queueItems(), actionErr: errors.New("lock not obtained")}
	m := loaded(t, r)

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 2, m.Pending())
	assert.Equal(t, 0, m.Reviewed())
	assert.Contains(t, m.status, "lock not obtained")
	assert.Error(t, m.lastError)
}

func TestModel_QueueLoadError(t *testing.T) {
	m := loaded(t, &fakeReviewer{queueErr: errors.New("database is locked")})

	assert.Equal(t, StateQueue, m.state)
	assert.Contains(t, m.View(), "database is locked")
}

func TestModel_EmptyQueue(t *testing.T) {
	m := loaded(t, &fakeReviewer{})

	assert.Contains(t, m.View(), "Nothing left to review")
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 0, m.Reviewed())
}

func TestModel_Quit(t *testing.T) {
	m := loaded(t, &fakeReviewer{items: queueItems()})

	next, cmd := m.Update(keyRune("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

func TestModel_ToggleHelp(t *testing.T) {
	m := loaded(t, &fakeReviewer{items: queueItems()})

	m = drive(t, m, keyRune("?"))
	assert.True(t, m.help.ShowAll)
	m = drive(t, m, keyRune("?"))
	assert.False(t, m.help.ShowAll)
}

func TestModel_WindowResize(t *testing.T) {
	m := loaded(t, &fakeReviewer{items: queueItems()})

	m = drive(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})

	assert.Equal(t, 140, m.width)
	assert.Equal(t, 40, m.height)
	assert.Equal(t, 140, m.help.Width)
}

func TestRun_RequiresDependencies(t *testing.T) {
	_, err := Run(context.Background(), Config{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{Reviewer: &fakeReviewer{}, Categories: fakeCategories{}})
	assert.Error(t, err, "anonymous session")
}
