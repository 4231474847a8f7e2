package trialbalance

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BalanceLine is one account row of the trial balance.
//
// Rows are not validated. A field that arrives with an unexpected JSON type is
// kept as display text and rendered as received, and the row re-encodes to the
// exact bytes it was decoded from.
type BalanceLine struct {
	Account string
	Name    string
	Code    string
	Type    string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal

	raw   json.RawMessage
	loose map[string]string
}

// LineCells is the display text of a row, one entry per table column.
type LineCells struct {
	Name    string
	Code    string
	Type    string
	Debit   string
	Credit  string
	Balance string
}

type lineJSON struct {
	Account string      `json:"account"`
	Name    string      `json:"name"`
	Code    string      `json:"code"`
	Type    string      `json:"type"`
	Debit   json.Number `json:"debit"`
	Credit  json.Number `json:"credit"`
	Balance json.Number `json:"balance"`
}

// UnmarshalJSON decodes a row leniently; it never fails.
func (l *BalanceLine) UnmarshalJSON(data []byte) error {
	*l = BalanceLine{raw: append(json.RawMessage(nil), data...)}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		fields = nil
	}
	l.Account = l.text("account", fields["account"])
	l.Name = l.text("name", fields["name"])
	l.Code = l.text("code", fields["code"])
	l.Type = l.text("type", fields["type"])
	l.Debit = l.amount("debit", fields["debit"])
	l.Credit = l.amount("credit", fields["credit"])
	l.Balance = l.amount("balance", fields["balance"])
	return nil
}

// MarshalJSON returns the row as received, or its fields for rows built in code.
func (l BalanceLine) MarshalJSON() ([]byte, error) {
	if l.raw != nil {
		return l.raw, nil
	}
	return json.Marshal(lineJSON{
		Account: l.Account,
		Name:    l.Name,
		Code:    l.Code,
		Type:    l.Type,
		Debit:   json.Number(l.Debit.String()),
		Credit:  json.Number(l.Credit.String()),
		Balance: json.Number(l.Balance.String()),
	})
}

// Cells returns the verbatim display text of every column.
func (l BalanceLine) Cells() LineCells {
	return LineCells{
		Name:    l.cell("name", l.Name),
		Code:    l.cell("code", l.Code),
		Type:    l.cell("type", l.Type),
		Debit:   l.cell("debit", l.Debit.String()),
		Credit:  l.cell("credit", l.Credit.String()),
		Balance: l.cell("balance", l.Balance.String()),
	}
}

// Malformed reports whether any field arrived with an unexpected JSON type.
func (l BalanceLine) Malformed() bool {
	return len(l.loose) > 0
}

func (l BalanceLine) cell(field, typed string) string {
	if text, ok := l.loose[field]; ok {
		return text
	}
	return typed
}

func (l *BalanceLine) text(field string, raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	l.markLoose(field, raw)
	return ""
}

func (l *BalanceLine) amount(field string, raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if isNumberToken(raw) {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return decimal.NewFromFloat(f)
		}
	}
	l.markLoose(field, raw)
	return decimal.Zero
}

func (l *BalanceLine) markLoose(field string, raw json.RawMessage) {
	if l.loose == nil {
		l.loose = make(map[string]string)
	}
	l.loose[field] = looseText(raw)
}

func isNumberToken(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// looseText mirrors how a browser prints an arbitrary JSON value in a cell:
// strings without quotes, nothing for null and booleans, JSON text otherwise.
func looseText(raw []byte) string {
	switch {
	case len(raw) == 0:
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	case bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte("true")), bytes.Equal(raw, []byte("false")):
		return ""
	default:
		return string(raw)
	}
}
