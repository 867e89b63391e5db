package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ViewState is an immutable snapshot of everything the balance view needs to
// render. The dispatcher replaces it wholesale on every transition; consumers
// must never mutate a received snapshot.
type ViewState struct {
	// last successfully fetched balance, nil until the first success:
	Value     *decimal.Decimal
	UpdatedAt *time.Time

	IsFetching  bool
	FetchFailed bool
	IsRedacted  bool
}
