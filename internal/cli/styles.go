// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#6366F1") // Indigo
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#22C55E") // Green
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FACC15") // Yellow
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#EF4444") // Red
	// IncomeColor renders positive amounts.
	IncomeColor = lipgloss.Color("#22C55E")
	// ExpenseColor renders negative amounts.
	ExpenseColor = lipgloss.Color("#EF4444")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1D3"))

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	incomeStyle  = lipgloss.NewStyle().Foreground(IncomeColor)
	expenseStyle = lipgloss.NewStyle().Foreground(ExpenseColor)
)

// RenderAmount formats an amount with the income/expense color applied.
func RenderAmount(a model.Amount) string {
	if a.IsExpense() {
		return expenseStyle.Render(a.String())
	}
	return incomeStyle.Render("+" + a.String())
}

// RenderSwatch renders a small color swatch for a category hex color.
func RenderSwatch(hex string) string {
	if hex == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
