package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"fintrack/internal/finance"
)

// Run starts the dashboard and blocks until the user quits.
func Run(store *finance.Store) error {
	p := tea.NewProgram(NewModel(store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
