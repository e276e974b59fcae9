package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/tanpawarit/Chative-Collections-Call/agent/conversation"
)

// ID enumerates every tool the agent can be given. Dispatch is keyed by ID;
// the string name only exists on the model wire.
type ID int

const (
	SaveRepaymentDate ID = iota + 1
)

const NameSaveRepaymentDate = "save_repayment_date"

var names = map[ID]string{
	SaveRepaymentDate: NameSaveRepaymentDate,
}

func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(id))
}

// Lookup maps a wire name emitted by the model back to its ID.
func Lookup(name string) (ID, bool) {
	name = strings.TrimSpace(name)
	for id, n := range names {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// Info returns the schema advertised to the model for id, or nil for an unknown id.
func Info(id ID) *schema.ToolInfo {
	switch id {
	case SaveRepaymentDate:
		return &schema.ToolInfo{
			Name: NameSaveRepaymentDate,
			Desc: "Save the promised repayment date and amount from the customer",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"repayment_date": {
					Type:     schema.String,
					Desc:     "The date the customer promises to pay, in YYYY-MM-DD format",
					Required: true,
				},
				"amount": {
					Type:     schema.Number,
					Desc:     "The amount the customer promises to pay",
					Required: true,
				},
			}),
		}
	default:
		return nil
	}
}

// Resumer forwards an updated conversation downstream so the agent takes its next turn.
type Resumer interface {
	Resume(ctx context.Context, cc *conversation.Context) error
}

type Result struct {
	Tool    ID
	CallID  string
	Content string
}

// ResultCallback records a tool's result against the originating call id.
type ResultCallback func(ctx context.Context, res Result)

// Invocation carries everything a handler needs for one tool call.
type Invocation struct {
	Tool      ID
	CallID    string
	Arguments string
	Model     Resumer
	Context   *conversation.Context
	Done      ResultCallback
}

type Handler interface {
	Invoke(ctx context.Context, inv Invocation) error
}

// Registry binds tool IDs to the handlers of one call session.
type Registry struct {
	handlers map[ID]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[ID]Handler, len(names))}
}

func (r *Registry) Register(id ID, h Handler) error {
	if _, ok := names[id]; !ok {
		return fmt.Errorf("%w: unknown tool id=%d", contractx.ErrValidation, int(id))
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler for tool=%s", contractx.ErrValidation, id)
	}
	r.handlers[id] = h
	return nil
}

// Resolve maps a model-emitted name to a registered tool.
func (r *Registry) Resolve(name string) (ID, error) {
	id, ok := Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: tool=%q is unknown", contractx.ErrToolUnavailable, name)
	}
	if _, ok := r.handlers[id]; !ok {
		return 0, fmt.Errorf("%w: tool=%s has no handler", contractx.ErrToolUnavailable, id)
	}
	return id, nil
}

func (r *Registry) Dispatch(ctx context.Context, inv Invocation) error {
	h, ok := r.handlers[inv.Tool]
	if !ok {
		return fmt.Errorf("%w: tool=%s has no handler", contractx.ErrToolUnavailable, inv.Tool)
	}
	return h.Invoke(ctx, inv)
}
