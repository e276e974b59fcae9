// Package collection implements the collections persona and the single-use
// repayment-commitment tool it is given.
package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/tanpawarit/Chative-Collections-Call/agent/conversation"
	promptx "github.com/tanpawarit/Chative-Collections-Call/agent/prompt"
	statex "github.com/tanpawarit/Chative-Collections-Call/agent/state"
	toolx "github.com/tanpawarit/Chative-Collections-Call/agent/tool"
)

// Scripts renders the system instructions that open and close a call.
type Scripts interface {
	Collector(ctx context.Context, customer contractx.Customer) (*schema.Message, error)
	Closing(ctx context.Context, repaymentDate string, amount float64) (*schema.Message, error)
}

var _ Scripts = (*promptx.Builder)(nil)

// Handler drives one call's persona and captures at most one commitment.
type Handler struct {
	callID   string
	customer contractx.Customer
	store    contractx.RecordStore
	prompts  Scripts
	state    *statex.CallState

	now func() time.Time
}

type Option func(*Handler)

func WithCallID(id string) Option {
	return func(h *Handler) {
		h.callID = strings.TrimSpace(id)
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler seeds cc with the collector persona and installs the
// save_repayment_date tool. It performs no I/O.
func NewHandler(
	ctx context.Context,
	cc *conversation.Context,
	customer contractx.Customer,
	store contractx.RecordStore,
	prompts Scripts,
	opts ...Option,
) (*Handler, error) {
	if cc == nil {
		return nil, fmt.Errorf("%w: conversation context is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: record store is required", contractx.ErrValidation)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: prompt builder is required", contractx.ErrValidation)
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		customer: customer,
		store:    store,
		prompts:  prompts,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.state = statex.NewCallState(h.callID, customer.ID, h.now())

	system, err := prompts.Collector(ctx, customer)
	if err != nil {
		return nil, err
	}
	if err := cc.SetTools(toolx.Info(toolx.SaveRepaymentDate)); err != nil {
		return nil, err
	}
	cc.AddMessage(system)

	return h, nil
}

func (h *Handler) Customer() contractx.Customer {
	return h.customer
}

func (h *Handler) Phase() statex.Phase {
	return h.state.Phase
}

// Invoke records the commitment in inv.Arguments, swaps the instruction for the
// closing script and resumes the pipeline. A failed write leaves the call
// awaiting a commitment with the tool still installed.
func (h *Handler) Invoke(ctx context.Context, inv toolx.Invocation) error {
	if inv.Tool != toolx.SaveRepaymentDate {
		return fmt.Errorf("%w: handler does not serve tool=%s", contractx.ErrToolUnavailable, inv.Tool)
	}
	if inv.Context == nil || inv.Model == nil {
		return fmt.Errorf("%w: invocation is missing context or model", contractx.ErrValidation)
	}
	if !h.state.AwaitingCommitment() {
		return fmt.Errorf("%w: commitment already captured for call=%s", contractx.ErrToolUnavailable, h.callID)
	}

	args, err := toolx.ParseRepaymentArgs(inv.Arguments)
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("customer_id", h.customer.ID).
		Str("tool_call_id", inv.CallID).
		Logger()
	logger.Info().
		Str("repayment_date", args.RepaymentDate).
		Float64("amount", args.Amount).
		Msg("saving repayment commitment")

	now := h.now()
	commitment := contractx.Commitment{
		CustomerID:    h.customer.ID,
		CallID:        h.callID,
		RepaymentDate: args.RepaymentDate,
		Amount:        args.Amount,
		OverdueAmount: h.customer.OverdueAmount,
		ContactType:   contractx.ContactTypePhoneCall,
		Status:        contractx.CommitmentPending,
		CapturedAt:    now.UTC(),
	}

	// Nothing after the write may fail short of Resume.
	closing, err := h.prompts.Closing(ctx, args.RepaymentDate, args.Amount)
	if err != nil {
		return err
	}

	// Detached so a hangup cannot abort a write that is already on the wire.
	if err := h.store.SaveCommitment(context.WithoutCancel(ctx), commitment); err != nil {
		if errors.Is(err, contractx.ErrStoreWrite) {
			return err
		}
		return fmt.Errorf("%w: customer=%s: %v", contractx.ErrStoreWrite, h.customer.ID, err)
	}
	if err := h.state.MarkCaptured(now); err != nil {
		return err
	}

	if inv.Done != nil {
		inv.Done(ctx, toolx.Result{
			Tool:    inv.Tool,
			CallID:  inv.CallID,
			Content: promptx.CommitmentSavedNotice,
		})
	}

	inv.Context.AddMessage(closing)
	inv.Context.ClearTools()

	logger.Info().Msg("commitment recorded, closing call")
	return inv.Model.Resume(ctx, inv.Context)
}
