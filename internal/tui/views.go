package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jaikumar96/fincategorizer/internal/cli"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

var queueColumns = []table.Column{
	{Title: "Tier", Width: 14},
	{Title: "Date", Width: 10},
	{Title: "Merchant", Width: 24},
	{Title: "Amount", Width: 14},
	{Title: "Category", Width: 20},
	{Title: "Conf", Width: 5},
}

var pickerColumns = []table.Column{
	{Title: "ID", Width: 4},
	{Title: "Category", Width: 28},
	{Title: "Type", Width: 8},
}

func (m *Model) syncQueueRows() {
	rows := make([]table.Row, len(m.items))
	for i, item := range m.items {
		txn := item.Transaction
		category := txn.CategoryName()
		if category == "" {
			category = fmt.Sprintf("#%d", txn.CategoryID)
		}
		rows[i] = table.Row{
			item.Tier.Label(),
			txn.TransactionDate.String(),
			truncate(txn.MerchantName, 24),
			txn.Amount.StringFixed(2) + " " + txn.Currency,
			truncate(category, 20),
			cli.FormatConfidence(txn.ConfidenceScore),
		}
	}
	m.queue.SetRows(rows)
	switch c := m.queue.Cursor(); {
	case len(rows) == 0:
	case c >= len(rows):
		m.queue.SetCursor(len(rows) - 1)
	case c < 0:
		m.queue.SetCursor(0)
	}
}

func (m *Model) syncPickerRows() {
	rows := make([]table.Row, len(m.categories))
	for i, c := range m.categories {
		rows[i] = table.Row{fmt.Sprint(c.ID), truncate(c.Name, 28), string(c.Type)}
	}
	m.picker.SetRows(rows)
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.state == StateLoading {
		return m.theme.Title.Render("Loading review queue...")
	}

	sections := []string{m.renderHeader()}

	switch {
	case m.state == StatePicker:
		sections = append(sections, m.renderPicker())
	case len(m.items) == 0:
		sections = append(sections, m.theme.StatusSuccess.Render("Nothing left to review."))
	default:
		sections = append(sections, m.queue.View(), m.renderDetail())
	}

	if m.status != "" {
		sections = append(sections, m.statusStyle.Render(m.status))
	}
	sections = append(sections, m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("Review queue")
	sub := m.theme.Subtitle.Render(fmt.Sprintf("%d awaiting review, %d reviewed this session", len(m.items), m.reviewed))
	return lipgloss.JoinVertical(lipgloss.Left, title, sub)
}

func (m Model) renderDetail() string {
	item := m.selected()
	if item == nil {
		return ""
	}
	txn := item.Transaction

	var b strings.Builder
	tier := lipgloss.NewStyle().Foreground(m.theme.TierColor(string(item.Tier))).Render(item.Tier.Label())
	fmt.Fprintf(&b, "%s  %s  %s\n", m.theme.Bold.Render(txn.MerchantName), tier, cli.FormatConfidence(txn.ConfidenceScore))
	fmt.Fprintf(&b, "Suggested: %s", txn.CategoryName())
	if item.Learned != nil {
		fmt.Fprintf(&b, "\nYou chose %s for this merchant before", m.theme.Bold.Render(item.Learned.CategoryName))
	}

	if len(txn.Alternatives) > 0 {
		b.WriteString("\nAlternatives:")
		for i, alt := range txn.Alternatives {
			if i == 9 {
				break
			}
			name := alt.CategoryName
			if name == "" {
				name = fmt.Sprintf("#%d", alt.CategoryID)
			}
			fmt.Fprintf(&b, "  [%d] %s %.0f%%", i+1, name, alt.Score*100)
		}
	}
	if note := txn.Metadata[model.NoteKey]; note != "" {
		fmt.Fprintf(&b, "\nNotes: %s", note)
	}

	return m.theme.RoundedBox.Render(b.String())
}

func (m Model) renderPicker() string {
	item := m.selected()
	heading := "Assign category"
	if item != nil {
		heading = "Assign category to " + item.Transaction.MerchantName
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.theme.Bold.Render(heading), m.picker.View())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
