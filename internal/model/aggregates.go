package model

// The aggregate snapshot types below are never computed locally. They are
// always replaced wholesale with whatever the remote authority returns;
// the backend's ledger is the source of truth for financial totals.

// Balance is the current account balance with its display currency.
type Balance struct {
	Currency string `json:"currency"`
	Balance  Amount `json:"balance"`
}

// CategorySummaryEntry is one per-category expense total for the current
// month. Amounts are reported positive.
type CategorySummaryEntry struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Amount     Amount `json:"amount"`
	CategoryID int64  `json:"id"`
}

// BalancePoint is one day in the running balance history.
type BalancePoint struct {
	Date    string `json:"date"`
	Balance Amount `json:"balance"`
}

// Export is an opaque export artifact produced by the remote authority,
// together with its suggested filename and MIME type.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}
