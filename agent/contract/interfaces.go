package contract

import "context"

// RecordStore persists repayment commitments against an existing customer record.
// Implementations update in place and never create or delete the customer document.
type RecordStore interface {
	SaveCommitment(ctx context.Context, c Commitment) error
}

// Speaker delivers agent utterances back to the caller's media gateway.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
