package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionInput_Normalize(t *testing.T) {
	catID := int64(3)

	tests := []struct {
		name    string
		input   TransactionInput
		want    NewTransaction
		wantErr bool
	}{
		{
			name:  "expense forces negative sign",
			input: TransactionInput{Title: "Milk", Amount: "4.50", Intent: IntentExpense},
			want:  NewTransaction{Title: "Milk", Amount: -4.50},
		},
		{
			name:  "expense with negative entry stays negative",
			input: TransactionInput{Title: "Milk", Amount: "-4.50", Intent: IntentExpense},
			want:  NewTransaction{Title: "Milk", Amount: -4.50},
		},
		{
			name:  "income forces positive sign",
			input: TransactionInput{Title: "Salary", Amount: "-2500", Intent: IntentIncome},
			want:  NewTransaction{Title: "Salary", Amount: 2500},
		},
		{
			name:  "no intent keeps sign as entered",
			input: TransactionInput{Title: "Refund", Amount: "-12.00"},
			want:  NewTransaction{Title: "Refund", Amount: -12},
		},
		{
			name:  "title and description trimmed",
			input: TransactionInput{Title: "  Rent  ", Description: " monthly ", Amount: "800", Intent: IntentExpense},
			want:  NewTransaction{Title: "Rent", Description: "monthly", Amount: -800},
		},
		{
			name:  "category carried through",
			input: TransactionInput{Title: "Milk", Amount: "4.50", Intent: IntentExpense, CategoryID: &catID},
			want:  NewTransaction{Title: "Milk", Amount: -4.50, CategoryID: &catID},
		},
		{
			name:    "empty title rejected",
			input:   TransactionInput{Title: "   ", Amount: "4.50", Intent: IntentExpense},
			wantErr: true,
		},
		{
			name:    "malformed amount rejected",
			input:   TransactionInput{Title: "Milk", Amount: "four fifty", Intent: IntentExpense},
			wantErr: true,
		},
		{
			name:    "unknown intent rejected",
			input:   TransactionInput{Title: "Milk", Amount: "4.50", Intent: "transfer"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransaction_UnmarshalJSON(t *testing.T) {
	data := []byte(`{
		"id": 7,
		"title": "Milk",
		"description": "weekly shop",
		"amount": "-4.50",
		"category": 3,
		"created_at": "2026-08-30T12:00:00Z"
	}`)

	var txn Transaction
	require.NoError(t, json.Unmarshal(data, &txn))

	assert.Equal(t, int64(7), txn.ID)
	assert.Equal(t, "Milk", txn.Title)
	assert.Equal(t, "weekly shop", txn.Description)
	assert.InDelta(t, -4.50, float64(txn.Amount), 0.0001)
	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, int64(3), *txn.CategoryID)
}

func TestTransaction_UnmarshalNullCategory(t *testing.T) {
	var txn Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"X","amount":"1.00","category":null}`), &txn))
	assert.Nil(t, txn.CategoryID)
}
