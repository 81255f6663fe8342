// Package model defines the domain types shared across the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Transaction represents a single income or expense record as returned by
// the remote authority. The sign of Amount is the sole encoding of the
// transaction type; there is no separate type field on the stored record.
type Transaction struct {
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CategoryID  *int64    `json:"category"`
	Amount      Amount    `json:"amount"`
	ID          int64     `json:"id"`
}

// NewTransaction is the creation payload sent to the remote authority.
type NewTransaction struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CategoryID  *int64 `json:"category"`
	Amount      Amount `json:"amount"`
}

// TransactionIntent indicates which way a new transaction moves money.
// It only drives sign normalization of the entered amount; the stored
// record carries no type field.
type TransactionIntent string

const (
	// IntentExpense records money going out.
	IntentExpense TransactionIntent = "expense"
	// IntentIncome records money coming in.
	IntentIncome TransactionIntent = "income"
)

// TransactionInput is the raw, unvalidated input for creating or replacing
// a transaction. Amount is kept as the entered string so validation can
// reject malformed values before any network call.
type TransactionInput struct {
	Title       string
	Description string
	Amount      string
	Intent      TransactionIntent
	CategoryID  *int64
}

// Normalize validates the input and produces the creation payload.
// The intent applies the sign: expenses become negative, income positive.
// Without an intent the sign is taken as entered.
func (in TransactionInput) Normalize() (NewTransaction, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return NewTransaction{}, fmt.Errorf("title is required")
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return NewTransaction{}, err
	}

	switch in.Intent {
	case IntentExpense:
		amount = Amount(-amount.Abs())
	case IntentIncome:
		amount = Amount(amount.Abs())
	case "":
		// Sign as entered.
	default:
		return NewTransaction{}, fmt.Errorf("invalid transaction type %q", in.Intent)
	}

	return NewTransaction{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		CategoryID:  in.CategoryID,
	}, nil
}
