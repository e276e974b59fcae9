package call

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/tanpawarit/Chative-Collections-Call/agent/conversation"
)

// turnDecision is the model's output for one turn: either a spoken reply or tool calls.
type turnDecision struct {
	Message *schema.Message
	Calls   []schema.ToolCall
}

func compileTurnGraph(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
) (compose.Runnable[*conversation.Context, *turnDecision], error) {
	graph := compose.NewGraph[*conversation.Context, *turnDecision]()

	if err := graph.AddLambdaNode("infer",
		compose.InvokableLambda(func(ctx context.Context, cc *conversation.Context) (*schema.Message, error) {
			return infer(ctx, chatModel, cc)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node infer: %w", err)
	}

	if err := graph.AddLambdaNode("decide",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*turnDecision, error) {
			return decide(msg)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node decide: %w", err)
	}

	edges := [][2]string{
		{compose.START, "infer"},
		{"infer", "decide"},
		{"decide", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("call.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile call turn graph: %w", err)
	}
	return runner, nil
}

func infer(ctx context.Context, chatModel einomodel.ToolCallingChatModel, cc *conversation.Context) (*schema.Message, error) {
	if cc == nil {
		return nil, fmt.Errorf("%w: conversation context is nil", contractx.ErrValidation)
	}

	var m einomodel.BaseChatModel = chatModel
	if tools := cc.Tools(); len(tools) > 0 {
		bound, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		m = bound
	}

	msg, err := m.Generate(ctx, cc.Messages())
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	return msg, nil
}

func decide(msg *schema.Message) (*turnDecision, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	if msg.Role == "" {
		msg.Role = schema.Assistant
	}

	for i := range msg.ToolCalls {
		call := &msg.ToolCalls[i]
		if strings.TrimSpace(call.Function.Name) == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}
		// Some providers omit ids; the tool reply must still reference one.
		if strings.TrimSpace(call.ID) == "" {
			call.ID = fmt.Sprintf("call_%d", i+1)
		}
	}

	if len(msg.ToolCalls) == 0 && strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("%w: reply has neither content nor tool calls", contractx.ErrSchemaViolation)
	}

	return &turnDecision{
		Message: msg,
		Calls:   msg.ToolCalls,
	}, nil
}
