package call

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/tanpawarit/Chative-Collections-Call/agent/collection"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/tanpawarit/Chative-Collections-Call/agent/conversation"
	promptx "github.com/tanpawarit/Chative-Collections-Call/agent/prompt"
	statex "github.com/tanpawarit/Chative-Collections-Call/agent/state"
	toolx "github.com/tanpawarit/Chative-Collections-Call/agent/tool"
)

// maxToolRounds bounds how many times one frame may bounce between the model
// and a failing tool before the turn is abandoned.
const maxToolRounds = 3

// Session is the state of one transport connection. Its context, handler and
// tool registry are touched only by the session's own goroutine.
type Session struct {
	handle   string
	customer contractx.Customer

	cc      *conversation.Context
	handler *collection.Handler
	tools   *toolx.Registry
	turn    compose.Runnable[*conversation.Context, *turnDecision]
	speaker contractx.Speaker

	frames chan Frame
	closed atomic.Bool
	done   chan struct{}
	cancel context.CancelFunc
	logger zerolog.Logger
}

var _ toolx.Resumer = (*Session)(nil)

func (s *Session) Handle() string {
	return s.handle
}

func (s *Session) Customer() contractx.Customer {
	return s.customer
}

func (s *Session) Phase() statex.Phase {
	return s.handler.Phase()
}

// Context returns the session's conversation. Read it only after Done is closed.
func (s *Session) Context() *conversation.Context {
	return s.cc
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Enqueue hands f to the session goroutine.
func (s *Session) Enqueue(ctx context.Context, f Frame) error {
	if s.closed.Load() {
		return fmt.Errorf("%w: call=%s", contractx.ErrSessionClosed, s.handle)
	}
	select {
	case s.frames <- f:
		return nil
	case <-s.done:
		return fmt.Errorf("%w: call=%s", contractx.ErrSessionClosed, s.handle)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume runs the next agent turn on cc. The tool handler calls it once the
// commitment is recorded and the closing instruction is installed.
func (s *Session) Resume(ctx context.Context, cc *conversation.Context) error {
	if cc != s.cc {
		return fmt.Errorf("%w: context does not belong to call=%s", contractx.ErrValidation, s.handle)
	}
	return s.respond(ctx)
}

// end stops delivery immediately and signals the pipeline to terminate.
// A store write already in flight is detached from ctx and completes.
func (s *Session) end() {
	if s.closed.Swap(true) {
		return
	}
	select {
	case s.frames <- EndFrame{}:
	default:
	}
	s.cancel()
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.frames:
			if _, ok := f.(EndFrame); ok || s.closed.Load() {
				return
			}
			if err := s.process(ctx, f); err != nil {
				s.logTurnError(err)
			}
		}
	}
}

func (s *Session) process(ctx context.Context, f Frame) error {
	switch f := f.(type) {
	case ContextFrame:
		return s.respond(ctx)
	case TranscriptFrame:
		text := strings.TrimSpace(f.Text)
		if text == "" {
			return nil
		}
		s.cc.AddMessage(schema.UserMessage(text))
		return s.respond(ctx)
	default:
		return fmt.Errorf("%w: unsupported frame %T", contractx.ErrValidation, f)
	}
}

func (s *Session) respond(ctx context.Context) error {
	for round := 0; round < maxToolRounds; round++ {
		if s.closed.Load() {
			return contractx.ErrSessionClosed
		}

		decision, err := s.turn.Invoke(ctx, s.cc)
		if err != nil {
			return err
		}
		s.cc.AddMessage(decision.Message)

		if err := s.speak(ctx, decision.Message.Content); err != nil {
			return err
		}
		if len(decision.Calls) == 0 {
			return nil
		}

		handled, err := s.dispatch(ctx, decision.Calls)
		if handled {
			return err
		}
	}
	return fmt.Errorf("%w: tool rounds exceeded for call=%s", contractx.ErrSchemaViolation, s.handle)
}

// dispatch runs the first tool call and answers any parallel extras.
// handled is true once the handler has taken over the rest of the turn.
func (s *Session) dispatch(ctx context.Context, calls []schema.ToolCall) (handled bool, err error) {
	first := calls[0]
	for _, extra := range calls[1:] {
		s.cc.AddMessage(schema.ToolMessage(promptx.ParallelCallNotice(), extra.ID))
	}

	answered := false
	err = s.invoke(ctx, first, func(ctx context.Context, res toolx.Result) {
		answered = true
		s.cc.AddMessage(schema.ToolMessage(res.Content, res.CallID))
	})
	switch {
	case err == nil:
		return true, nil
	case answered, errors.Is(err, contractx.ErrSessionClosed):
		return true, err
	}

	s.logger.Warn().Err(err).
		Str("tool", first.Function.Name).
		Str("tool_call_id", first.ID).
		Msg("tool invocation failed, re-prompting")
	s.cc.AddMessage(schema.ToolMessage(promptx.ToolFailureNotice(err), first.ID))
	return false, nil
}

func (s *Session) invoke(ctx context.Context, call schema.ToolCall, done toolx.ResultCallback) error {
	name := strings.TrimSpace(call.Function.Name)
	if !s.cc.HasTool(name) {
		return fmt.Errorf("%w: tool=%q is not active", contractx.ErrToolUnavailable, name)
	}
	id, err := s.tools.Resolve(name)
	if err != nil {
		return err
	}
	return s.tools.Dispatch(ctx, toolx.Invocation{
		Tool:      id,
		CallID:    call.ID,
		Arguments: call.Function.Arguments,
		Model:     s,
		Context:   s.cc,
		Done:      done,
	})
}

func (s *Session) speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if s.closed.Load() {
		return contractx.ErrSessionClosed
	}
	if err := s.speaker.Speak(ctx, text); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

func (s *Session) logTurnError(err error) {
	switch {
	case errors.Is(err, contractx.ErrSessionClosed), errors.Is(err, context.Canceled):
		s.logger.Debug().Err(err).Msg("turn dropped after disconnect")
	default:
		s.logger.Error().Err(err).Msg("turn failed")
	}
}
