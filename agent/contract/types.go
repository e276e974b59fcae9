package contract

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type ContactType string

const ContactTypePhoneCall ContactType = "phone_call"

type CommitmentStatus string

const (
	CommitmentPending CommitmentStatus = "pending"
	CommitmentKept    CommitmentStatus = "kept"
	CommitmentBroken  CommitmentStatus = "broken"
)

// RepaymentDateLayout is the wire format of a promised repayment date.
const RepaymentDateLayout = "2006-01-02"

// Customer is the party bound to a call by the routing layer before connect.
type Customer struct {
	ID            string  `json:"customer_id"`
	Name          string  `json:"customer_name"`
	OverdueAmount float64 `json:"overdue_amount"`
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if !(c.OverdueAmount > 0) || math.IsInf(c.OverdueAmount, 0) {
		return fmt.Errorf("%w: overdue amount must be finite and > 0, got %v", ErrValidation, c.OverdueAmount)
	}
	return nil
}

// Commitment is a customer's promise to pay Amount by RepaymentDate.
type Commitment struct {
	CustomerID    string           `json:"customer_id"`
	CallID        string           `json:"call_id"`
	RepaymentDate string           `json:"promised_repayment_date"`
	Amount        float64          `json:"promised_amount"`
	OverdueAmount float64          `json:"overdue_amount"`
	ContactType   ContactType      `json:"contact_type"`
	Status        CommitmentStatus `json:"commitment_status"`
	CapturedAt    time.Time        `json:"captured_at"`
}
