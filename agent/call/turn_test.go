package call

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/tanpawarit/Chative-Collections-Call/agent/conversation"
	toolx "github.com/tanpawarit/Chative-Collections-Call/agent/tool"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	t.Run("spoken reply", func(t *testing.T) {
		got, err := decide(&schema.Message{Content: "Hello"})
		if err != nil {
			t.Fatalf("decide() error = %v", err)
		}
		if got.Message.Role != schema.Assistant {
			t.Fatalf("role = %s, want assistant", got.Message.Role)
		}
		if len(got.Calls) != 0 {
			t.Fatalf("calls = %d, want 0", len(got.Calls))
		}
	})

	t.Run("missing call ids are filled", func(t *testing.T) {
		msg := schema.AssistantMessage("", []schema.ToolCall{
			{Function: schema.FunctionCall{Name: "save_repayment_date"}},
			{ID: "keep", Function: schema.FunctionCall{Name: "save_repayment_date"}},
		})
		got, err := decide(msg)
		if err != nil {
			t.Fatalf("decide() error = %v", err)
		}
		if got.Calls[0].ID != "call_1" || got.Calls[1].ID != "keep" {
			t.Fatalf("ids = %s,%s", got.Calls[0].ID, got.Calls[1].ID)
		}
		if msg.ToolCalls[0].ID != "call_1" {
			t.Fatal("assistant message must carry the synthesized id")
		}
	})

	errCases := map[string]*schema.Message{
		"nil":            nil,
		"empty":          {Role: schema.Assistant},
		"blank contents": {Content: "  "},
		"unnamed call": schema.AssistantMessage("", []schema.ToolCall{
			{ID: "x", Function: schema.FunctionCall{Name: " "}},
		}),
	}
	for name, msg := range errCases {
		t.Run(name, func(t *testing.T) {
			if _, err := decide(msg); !errors.Is(err, contractx.ErrSchemaViolation) {
				t.Fatalf("decide() error = %v, want ErrSchemaViolation", err)
			}
		})
	}
}

func TestInferBindsOnlyActiveTools(t *testing.T) {
	t.Parallel()

	model := newFakeModel(collector)
	cc := conversation.New()
	cc.AddMessage(schema.SystemMessage("closing"))

	if _, err := infer(context.Background(), model, cc); err != nil {
		t.Fatalf("infer() error = %v", err)
	}
	if *model.bindCount != 0 {
		t.Fatalf("WithTools called %d times with no active tools", *model.bindCount)
	}

	if err := cc.SetTools(toolx.Info(toolx.SaveRepaymentDate)); err != nil {
		t.Fatalf("SetTools() error = %v", err)
	}
	if _, err := infer(context.Background(), model, cc); err != nil {
		t.Fatalf("infer() error = %v", err)
	}
	if *model.bindCount != 1 {
		t.Fatalf("WithTools called %d times, want 1", *model.bindCount)
	}
	calls := model.log.snapshot()
	if len(calls[1].tools) != 1 {
		t.Fatalf("second turn tools = %d, want 1", len(calls[1].tools))
	}
}

func TestTurnGraphWrapsModelErrors(t *testing.T) {
	t.Parallel()

	model := newFakeModel(func([]*schema.Message, []*schema.ToolInfo) (*schema.Message, error) {
		return nil, errors.New("upstream 503")
	})
	turn, err := compileTurnGraph(context.Background(), model)
	if err != nil {
		t.Fatalf("compileTurnGraph() error = %v", err)
	}

	cc := conversation.New()
	cc.AddMessage(schema.SystemMessage("hi"))
	if _, err := turn.Invoke(context.Background(), cc); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Invoke() error = %v, want ErrModelInvoke", err)
	}
}
