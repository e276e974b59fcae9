// Package call manages the lifetime of collection calls: one session per
// transport connection, each with its own conversation and commitment handler.
package call

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Collections-Call/agent/collection"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/tanpawarit/Chative-Collections-Call/agent/conversation"
	promptx "github.com/tanpawarit/Chative-Collections-Call/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Collections-Call/agent/tool"
)

const defaultQueueSize = 32

type Controller struct {
	store   contractx.RecordStore
	prompts *promptx.Builder
	turn    compose.Runnable[*conversation.Context, *turnDecision]

	queueSize int
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Controller)

func WithQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func NewController(
	ctx context.Context,
	store contractx.RecordStore,
	chatModel einomodel.ToolCallingChatModel,
	prompts *promptx.Builder,
	opts ...Option,
) (*Controller, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}

	c := &Controller{
		store:     store,
		prompts:   prompts,
		queueSize: defaultQueueSize,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	turn, err := compileTurnGraph(ctx, chatModel)
	if err != nil {
		return nil, err
	}
	c.turn = turn

	return c, nil
}

// Connect starts a fresh session for handle bound to customer and lets the
// agent speak first. A stale session under the same handle is torn down and
// its context cleared before the new one is built.
func (c *Controller) Connect(ctx context.Context, handle string, customer contractx.Customer, speaker contractx.Speaker) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return fmt.Errorf("%w: call handle is required", contractx.ErrValidation)
	}
	if speaker == nil {
		return fmt.Errorf("%w: speaker is required", contractx.ErrValidation)
	}

	c.mu.Lock()
	prev := c.sessions[handle]
	delete(c.sessions, handle)
	c.mu.Unlock()
	if prev != nil {
		if err := c.stop(ctx, prev); err != nil {
			return err
		}
		prev.cc.Reset()
	}

	logger := log.With().
		Str("call_id", handle).
		Str("customer_id", customer.ID).
		Logger()
	sessCtx, cancel := context.WithCancel(logger.WithContext(context.WithoutCancel(ctx)))

	cc := conversation.New()
	handler, err := collection.NewHandler(sessCtx, cc, customer, c.store, c.prompts,
		collection.WithCallID(handle),
		collection.WithClock(c.now),
	)
	if err != nil {
		cancel()
		return err
	}
	tools := toolx.NewRegistry()
	if err := tools.Register(toolx.SaveRepaymentDate, handler); err != nil {
		cancel()
		return err
	}

	s := &Session{
		handle:   handle,
		customer: customer,
		cc:       cc,
		handler:  handler,
		tools:    tools,
		turn:     c.turn,
		speaker:  speaker,
		frames:   make(chan Frame, c.queueSize),
		done:     make(chan struct{}),
		cancel:   cancel,
		logger:   logger,
	}

	c.mu.Lock()
	c.sessions[handle] = s
	c.mu.Unlock()

	go s.run(sessCtx)

	if err := s.Enqueue(ctx, ContextFrame{}); err != nil {
		c.mu.Lock()
		if c.sessions[handle] == s {
			delete(c.sessions, handle)
		}
		c.mu.Unlock()
		if stopErr := c.stop(context.WithoutCancel(ctx), s); stopErr != nil {
			return errors.Join(err, stopErr)
		}
		return err
	}

	logger.Info().Msg("client connected, fresh context created")
	return nil
}

// Hear queues one transcribed customer utterance for the call.
func (c *Controller) Hear(ctx context.Context, handle string, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s, ok := c.Session(handle)
	if !ok {
		return fmt.Errorf("%w: call=%s", contractx.ErrSessionClosed, handle)
	}
	return s.Enqueue(ctx, TranscriptFrame{Text: text})
}

// Disconnect terminates the call's pipeline and waits for it to drain.
func (c *Controller) Disconnect(ctx context.Context, handle string) error {
	c.mu.Lock()
	s := c.sessions[handle]
	delete(c.sessions, handle)
	c.mu.Unlock()
	if s == nil {
		return fmt.Errorf("%w: call=%s", contractx.ErrSessionClosed, handle)
	}

	if err := c.stop(ctx, s); err != nil {
		return err
	}
	s.logger.Info().Str("phase", string(s.Phase())).Msg("client disconnected")
	return nil
}

// Session returns the live session for handle.
func (c *Controller) Session(handle string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[strings.TrimSpace(handle)]
	return s, ok
}

func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Close disconnects every live session.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	handles := make([]string, 0, len(c.sessions))
	for h := range c.sessions {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := c.Disconnect(ctx, h); err != nil && !errors.Is(err, contractx.ErrSessionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) stop(ctx context.Context, s *Session) error {
	s.end()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for call=%s to drain: %w", s.handle, ctx.Err())
	}
}
