// Package tui implements the interactive dashboard view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/cli"
	"fintrack/internal/finance"
)

// dataLoadedMsg signals that the finance store finished (re)initializing.
type dataLoadedMsg struct {
	err error
}

// Model is the dashboard's bubbletea model. It is a read-only consumer of
// the finance store: all state lives in the store, the model only renders
// it.
type Model struct {
	store   *finance.Store
	spinner spinner.Model
	table   table.Model
	errMsg  string
	width   int
	loaded  bool
}

// NewModel creates the dashboard model for the given store.
func NewModel(store *finance.Store) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Title", Width: 28},
		{Title: "Category", Width: 18},
		{Title: "Amount", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(10),
		table.WithFocused(true),
	)

	return Model{
		store:   store,
		spinner: sp,
		table:   t,
	}
}

// Init starts the spinner and kicks off the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadData(m.store))
}

// loadData runs the store's five-fetch initialization off the UI loop.
func loadData(store *finance.Store) tea.Cmd {
	return func() tea.Msg {
		return dataLoadedMsg{err: store.Initialize(context.Background())}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loaded = false
			m.errMsg = ""
			return m, tea.Batch(m.spinner.Tick, loadData(m.store))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case dataLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.errMsg = m.store.Err()
			if m.errMsg == "" {
				m.errMsg = msg.err.Error()
			}
			return m, nil
		}
		m.errMsg = ""
		m.table.SetRows(m.transactionRows())
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	m.table, cmd = m.table.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// transactionRows converts the cached transactions into table rows.
func (m Model) transactionRows() []table.Row {
	transactions := m.store.Transactions()
	rows := make([]table.Row, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, table.Row{
			tx.CreatedAt.Format("2006-01-02"),
			tx.Title,
			m.store.CategoryName(tx.CategoryID),
			tx.Amount.String(),
		})
	}
	return rows
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(cli.TitleStyle.Render("fintrack dashboard"))
	b.WriteString("\n")

	if !m.loaded {
		b.WriteString(fmt.Sprintf("%s Loading dashboard data...\n", m.spinner.View()))
		return b.String()
	}

	if m.errMsg != "" {
		b.WriteString(cli.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
		b.WriteString(cli.SubtleStyle.Render("r to retry • q to quit"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.balanceView())
	b.WriteString("\n")
	b.WriteString(m.summaryView())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(cli.SubtleStyle.Render("r to refresh • q to quit"))
	b.WriteString("\n")

	return b.String()
}

var balanceBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(cli.PrimaryColor).
	Padding(0, 2)

// balanceView renders the balance card with the latest history point.
func (m Model) balanceView() string {
	balance := m.store.Balance()
	line := fmt.Sprintf("Balance: %s %s", cli.RenderAmount(balance.Balance), balance.Currency)

	if history := m.store.BalanceHistory(); len(history) > 0 {
		last := history[len(history)-1]
		line += cli.SubtleStyle.Render(fmt.Sprintf("  (as of %s)", last.Date))
	}

	return balanceBoxStyle.Render(line) + "\n"
}

// summaryView renders the per-category expense totals for the month.
func (m Model) summaryView() string {
	summary := m.store.CategorySummary()
	if len(summary) == 0 {
		return cli.SubtleStyle.Render("No expenses recorded this month") + "\n"
	}

	var b strings.Builder
	b.WriteString("This month by category:\n")
	for _, entry := range summary {
		b.WriteString(fmt.Sprintf("  %s %-20s %s\n",
			cli.RenderSwatch(entry.Color),
			entry.Name,
			entry.Amount.String()))
	}
	return b.String()
}
