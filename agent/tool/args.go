package tool

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

// RepaymentArgs are the validated arguments of save_repayment_date.
type RepaymentArgs struct {
	RepaymentDate string
	Amount        float64
}

type repaymentArgsWire struct {
	RepaymentDate *string  `json:"repayment_date"`
	Amount        *float64 `json:"amount"`
}

// ParseRepaymentArgs decodes and validates the raw JSON arguments emitted by the model.
// The returned date is normalized to YYYY-MM-DD.
func ParseRepaymentArgs(raw string) (RepaymentArgs, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepaymentArgs{}, fmt.Errorf("%w: arguments are empty", contractx.ErrInvalidToolArguments)
	}

	var wire repaymentArgsWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return RepaymentArgs{}, fmt.Errorf("%w: decode arguments: %v", contractx.ErrInvalidToolArguments, err)
	}
	if wire.RepaymentDate == nil {
		return RepaymentArgs{}, fmt.Errorf("%w: repayment_date is required", contractx.ErrInvalidToolArguments)
	}
	if wire.Amount == nil {
		return RepaymentArgs{}, fmt.Errorf("%w: amount is required", contractx.ErrInvalidToolArguments)
	}

	date, err := time.Parse(contractx.RepaymentDateLayout, strings.TrimSpace(*wire.RepaymentDate))
	if err != nil {
		return RepaymentArgs{}, fmt.Errorf("%w: repayment_date=%q is not YYYY-MM-DD", contractx.ErrInvalidToolArguments, *wire.RepaymentDate)
	}
	if *wire.Amount <= 0 {
		return RepaymentArgs{}, fmt.Errorf("%w: amount must be > 0, got %v", contractx.ErrInvalidToolArguments, *wire.Amount)
	}

	return RepaymentArgs{
		RepaymentDate: date.Format(contractx.RepaymentDateLayout),
		Amount:        *wire.Amount,
	}, nil
}
