package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	promptx "github.com/tanpawarit/Chative-Collections-Call/agent/prompt"
)

const waitTimeout = 2 * time.Second

type replyFunc func(in []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)

type modelCall struct {
	input []*schema.Message
	tools []*schema.ToolInfo
}

type modelLog struct {
	mu    sync.Mutex
	calls []modelCall
}

func (l *modelLog) record(in []*schema.Message, tools []*schema.ToolInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, modelCall{input: in, tools: tools})
}

func (l *modelLog) snapshot() []modelCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]modelCall, len(l.calls))
	copy(out, l.calls)
	return out
}

type fakeModel struct {
	reply     replyFunc
	tools     []*schema.ToolInfo
	log       *modelLog
	bindCount *int
}

var _ einomodel.ToolCallingChatModel = (*fakeModel)(nil)

func newFakeModel(reply replyFunc) *fakeModel {
	return &fakeModel{reply: reply, log: &modelLog{}, bindCount: new(int)}
}

func (m *fakeModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.log.record(in, m.tools)
	return m.reply(in, m.tools)
}

func (m *fakeModel) Stream(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.log.mu.Lock()
	*m.bindCount++
	m.log.mu.Unlock()
	return &fakeModel{reply: m.reply, tools: tools, log: m.log, bindCount: m.bindCount}, nil
}

// scripted replies with each message in order and fails once the script runs out.
func scripted(msgs ...*schema.Message) replyFunc {
	var mu sync.Mutex
	next := 0
	return func(in []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(msgs) {
			return nil, fmt.Errorf("script exhausted after %d replies", next)
		}
		msg := *msgs[next]
		next++
		return &msg, nil
	}
}

// collector behaves like a well-mannered collections model: it greets, turns
// "YYYY-MM-DD AMOUNT" utterances into a tool call and closes once the tool is gone.
func collector(in []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	last := in[len(in)-1]
	switch last.Role {
	case schema.System:
		if len(tools) == 0 {
			return schema.AssistantMessage("Thank you, goodbye.", nil), nil
		}
		return schema.AssistantMessage("Hello, this is Sarah from ABC Bank.", nil), nil
	case schema.User:
		var date string
		var amount float64
		if _, err := fmt.Sscanf(last.Content, "%s %f", &date, &amount); err != nil {
			return schema.AssistantMessage("When can you pay?", nil), nil
		}
		return toolCallMessage("", fmt.Sprintf(`{"repayment_date":%q,"amount":%v}`, date, amount)), nil
	default:
		return schema.AssistantMessage("Could you confirm the date and amount?", nil), nil
	}
}

func toolCallMessage(id, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID: id,
		Function: schema.FunctionCall{
			Name:      "save_repayment_date",
			Arguments: args,
		},
	}})
}

type fakeSpeaker struct {
	mu   sync.Mutex
	said []string
	ch   chan string
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{ch: make(chan string, 16)}
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.said = append(f.said, text)
	f.mu.Unlock()
	select {
	case f.ch <- text:
	default:
	}
	return nil
}

func (f *fakeSpeaker) Said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.said))
	copy(out, f.said)
	return out
}

func (f *fakeSpeaker) next(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.ch:
		return text
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for speech, said so far: %q", f.Said())
		return ""
	}
}

type fakeStore struct {
	mu    sync.Mutex
	saved []contractx.Commitment
	ctxs  []context.Context

	started chan struct{}
	release chan struct{}
}

func (f *fakeStore) SaveCommitment(ctx context.Context, c contractx.Commitment) error {
	f.mu.Lock()
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	f.saved = append(f.saved, c)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Saved() []contractx.Commitment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]contractx.Commitment, len(f.saved))
	copy(out, f.saved)
	return out
}

func testPrompts() *promptx.Builder {
	return promptx.NewBuilder(promptx.Config{
		AgentName:      "Sarah",
		BankName:       "ABC Bank",
		CurrencySymbol: "₹",
		CreditBureau:   "CIBIL",
	})
}

var chad = contractx.Customer{ID: "chad_bailey", Name: "Chad Bailey", OverdueAmount: 25000}

func newTestController(t *testing.T, store contractx.RecordStore, model einomodel.ToolCallingChatModel) *Controller {
	t.Helper()

	fixed := time.Date(2025, 2, 10, 9, 30, 0, 0, time.UTC)
	c, err := NewController(context.Background(), store, model, testPrompts(),
		WithClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func disconnect(t *testing.T, c *Controller, handle string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := c.Disconnect(ctx, handle); err != nil {
		t.Fatalf("Disconnect(%s) error = %v", handle, err)
	}
}
