package state

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the commitment-capture phase of one call.
type Phase string

const (
	PhaseAwaitingCommitment Phase = "awaiting_commitment"
	PhaseCommitmentCaptured Phase = "commitment_captured"
)

var (
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrNilCallState      = errors.New("call state is nil")
)

// CallState tracks where a call is in the commitment flow.
// A call only ever moves forward: awaiting -> captured.
type CallState struct {
	CallID     string    `json:"call_id"`
	CustomerID string    `json:"customer_id"`
	Phase      Phase     `json:"phase"`
	StartedAt  time.Time `json:"started_at"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewCallState(callID, customerID string, now time.Time) *CallState {
	return &CallState{
		CallID:     callID,
		CustomerID: customerID,
		Phase:      PhaseAwaitingCommitment,
		StartedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (s *CallState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AwaitingCommitment reports whether the commitment tool may still be invoked.
func (s *CallState) AwaitingCommitment() bool {
	return s != nil && s.Phase == PhaseAwaitingCommitment
}

func (s *CallState) Captured() bool {
	return s != nil && s.Phase == PhaseCommitmentCaptured
}

// MarkCaptured moves the call into the captured phase. It fails if the
// commitment was already captured.
func (s *CallState) MarkCaptured(now time.Time) error {
	if s == nil {
		return ErrNilCallState
	}
	if s.Phase != PhaseAwaitingCommitment {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, PhaseCommitmentCaptured)
	}
	s.Phase = PhaseCommitmentCaptured
	s.CapturedAt = now.UTC()
	s.Touch(now)
	return nil
}

func (s *CallState) Validate() error {
	if s == nil {
		return ErrNilCallState
	}
	switch s.Phase {
	case PhaseAwaitingCommitment:
		if !s.CapturedAt.IsZero() {
			return fmt.Errorf("awaiting call %s must not have captured_at", s.CallID)
		}
	case PhaseCommitmentCaptured:
		if s.CapturedAt.IsZero() {
			return fmt.Errorf("captured call %s must have captured_at", s.CallID)
		}
	default:
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	return nil
}
