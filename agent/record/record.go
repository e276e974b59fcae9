// Package record persists repayment commitments to the customer record store.
package record

import (
	"time"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

// Field names of the customer document.
const (
	FieldPromisedRepaymentDate = "promised_repayment_date"
	FieldPromisedAmount        = "promised_amount"
	FieldOverdueAmount         = "overdue_amount"
	FieldCommitmentMadeAt      = "commitment_made_at"
	FieldLastContact           = "last_contact"
	FieldContactType           = "contact_type"
	FieldCommitmentStatus      = "commitment_status"
	FieldPaymentHistory        = "payment_history"
)

const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
)

func historyEntry(c contractx.Commitment) map[string]any {
	capturedAt := c.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return map[string]any{
		"date":            capturedAt.UTC(),
		"call_id":         c.CallID,
		"promised_date":   c.RepaymentDate,
		"promised_amount": c.Amount,
		"status":          string(c.Status),
	}
}
