package model

import (
	"fmt"
	"regexp"
	"strings"
)

// CategoryType indicates whether a category groups income or expenses.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// hexColorRegex matches #RGB and #RRGGBB color codes.
var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Category represents a transaction category. Categories have an
// independent lifecycle from transactions: deleting one leaves referencing
// transactions in place, and the dangling reference degrades to an
// "Uncategorized" display.
type Category struct {
	Name  string       `json:"name"`
	Type  CategoryType `json:"type"`
	Color string       `json:"color"`
	ID    int64        `json:"id"`
}

// CategoryInput is the unvalidated payload for creating or replacing a
// category.
type CategoryInput struct {
	Name  string       `json:"name"`
	Type  CategoryType `json:"type"`
	Color string       `json:"color"`
}

// Validate checks the input before it is sent to the remote authority.
func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	if in.Type != CategoryTypeIncome && in.Type != CategoryTypeExpense {
		return fmt.Errorf("invalid category type %q: must be income or expense", in.Type)
	}
	if in.Color != "" && !hexColorRegex.MatchString(in.Color) {
		return fmt.Errorf("invalid color %q: must be a hex code like #6366f1", in.Color)
	}
	return nil
}
