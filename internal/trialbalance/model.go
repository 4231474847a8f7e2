// Package trialbalance implements the trial balance view: fetching the report,
// gating its shape, holding the view-state and rendering it.
package trialbalance

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Report is the trial balance as computed by the accounting service. Totals and
// the balanced verdict are taken from the server and never derived from rows.
// A Report is treated as immutable once it leaves Validate.
type Report struct {
	Balances    []BalanceLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Balanced    bool
}

// EmptyReport returns the canonical report used before the first fetch and
// after a rejected payload.
func EmptyReport() Report {
	return Report{
		Balances:    []BalanceLine{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Balanced:    false,
	}
}

type reportJSON struct {
	Balances    []BalanceLine `json:"balances"`
	TotalDebit  json.Number   `json:"totalDebit"`
	TotalCredit json.Number   `json:"totalCredit"`
	Balanced    bool          `json:"balanced"`
}

// MarshalJSON encodes the report in the wire shape of the accounting service.
func (r Report) MarshalJSON() ([]byte, error) {
	balances := r.Balances
	if balances == nil {
		balances = []BalanceLine{}
	}
	return json.Marshal(reportJSON{
		Balances:    balances,
		TotalDebit:  json.Number(r.TotalDebit.String()),
		TotalCredit: json.Number(r.TotalCredit.String()),
		Balanced:    r.Balanced,
	})
}

// DuplicateAccounts lists account identifiers that appear on more than one row,
// in order of their second occurrence.
func DuplicateAccounts(r Report) []string {
	seen := make(map[string]int, len(r.Balances))
	var dups []string
	for _, line := range r.Balances {
		seen[line.Account]++
		if seen[line.Account] == 2 {
			dups = append(dups, line.Account)
		}
	}
	return dups
}
