package trialbalance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MessageUnexpectedResponse is shown to the user when a payload fails the gate.
const MessageUnexpectedResponse = "Unexpected response from server"

var shapeValidator = validator.New()

// ShapeError reports a payload that does not have the trial balance shape.
// Payload holds the raw body for diagnostics; it is never shown to users.
type ShapeError struct {
	Payload []byte
	Err     error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("trialbalance: unexpected response shape: %v", e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// envelope carries the top-level members with their exact JSON types. A nil
// pointer means the member was missing, null, or of another type.
type envelope struct {
	Balances    *[]BalanceLine `validate:"required"`
	TotalDebit  *float64       `validate:"required"`
	TotalCredit *float64       `validate:"required"`
	Balanced    *bool          `validate:"required"`
}

// Validate gates an untrusted response body. It accepts only a JSON object whose
// balances member is an array, whose totalDebit and totalCredit members are
// numbers and whose balanced member is a boolean. Anything else yields
// EmptyReport and a *ShapeError; nothing is coerced.
func Validate(payload []byte) (Report, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(payload, &members); err != nil {
		return EmptyReport(), &ShapeError{Payload: payload, Err: err}
	}
	if members == nil {
		return EmptyReport(), &ShapeError{Payload: payload, Err: errors.New("payload is null")}
	}

	var env envelope
	err := errors.Join(
		decodeMember(members, "balances", &env.Balances),
		decodeMember(members, "totalDebit", &env.TotalDebit),
		decodeMember(members, "totalCredit", &env.TotalCredit),
		decodeMember(members, "balanced", &env.Balanced),
	)
	if err == nil {
		err = shapeValidator.Struct(env)
	}
	if err != nil {
		return EmptyReport(), &ShapeError{Payload: payload, Err: err}
	}

	return Report{
		Balances:    *env.Balances,
		TotalDebit:  decimal.NewFromFloat(*env.TotalDebit),
		TotalCredit: decimal.NewFromFloat(*env.TotalCredit),
		Balanced:    *env.Balanced,
	}, nil
}

// decodeMember looks members up by exact name; encoding/json alone would also
// match keys case-insensitively.
func decodeMember(members map[string]json.RawMessage, name string, dest any) error {
	raw, ok := members[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
