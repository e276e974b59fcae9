package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

type recordingHandler struct {
	calls []Invocation
	err   error
}

func (h *recordingHandler) Invoke(ctx context.Context, inv Invocation) error {
	h.calls = append(h.calls, inv)
	return h.err
}

func TestInfoSaveRepaymentDate(t *testing.T) {
	t.Parallel()

	info := Info(SaveRepaymentDate)
	if info == nil {
		t.Fatal("expected tool info")
	}
	if info.Name != NameSaveRepaymentDate {
		t.Fatalf("unexpected tool name: %s", info.Name)
	}

	js, err := info.ParamsOneOf.ToOpenAPIV3()
	if err != nil {
		t.Fatalf("ToOpenAPIV3() error = %v", err)
	}
	required := map[string]bool{}
	for _, name := range js.Required {
		required[name] = true
	}
	if !required["repayment_date"] || !required["amount"] || len(required) != 2 {
		t.Fatalf("unexpected required params: %#v", js.Required)
	}
}

func TestInfoUnknownID(t *testing.T) {
	t.Parallel()

	if Info(ID(99)) != nil {
		t.Fatal("expected nil info for unknown id")
	}
}

func TestLookupRoundTripsName(t *testing.T) {
	t.Parallel()

	id, ok := Lookup(" save_repayment_date ")
	if !ok || id != SaveRepaymentDate {
		t.Fatalf("Lookup() = %v, %v", id, ok)
	}
	if id.String() != NameSaveRepaymentDate {
		t.Fatalf("String() = %s", id.String())
	}
	if _, ok := Lookup("math.evaluate"); ok {
		t.Fatal("expected unknown tool name to miss")
	}
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{}
	reg := NewRegistry()
	if err := reg.Register(SaveRepaymentDate, h); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	id, err := reg.Resolve(NameSaveRepaymentDate)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := reg.Dispatch(context.Background(), Invocation{Tool: id, CallID: "tc-1"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(h.calls) != 1 || h.calls[0].CallID != "tc-1" {
		t.Fatalf("unexpected handler calls: %#v", h.calls)
	}
}

func TestRegistryRejectsUnknownAndUnregistered(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(ID(42), &recordingHandler{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
	if err := reg.Register(SaveRepaymentDate, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Register(nil) error = %v, want ErrValidation", err)
	}

	if _, err := reg.Resolve("inventory.query"); !errors.Is(err, contractx.ErrToolUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrToolUnavailable", err)
	}
	if _, err := reg.Resolve(NameSaveRepaymentDate); !errors.Is(err, contractx.ErrToolUnavailable) {
		t.Fatalf("Resolve() unregistered error = %v, want ErrToolUnavailable", err)
	}
	if err := reg.Dispatch(context.Background(), Invocation{Tool: SaveRepaymentDate}); !errors.Is(err, contractx.ErrToolUnavailable) {
		t.Fatalf("Dispatch() error = %v, want ErrToolUnavailable", err)
	}
}
