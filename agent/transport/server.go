// Package transport exposes call sessions to a media gateway over websocket.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

const (
	MessageTranscript = "transcript"
	MessageHangup     = "hangup"
	MessageSpeech     = "speech"
)

// Lifecycle is the call surface the server drives.
type Lifecycle interface {
	Connect(ctx context.Context, handle string, customer contractx.Customer, speaker contractx.Speaker) error
	Hear(ctx context.Context, handle string, text string) error
	Disconnect(ctx context.Context, handle string) error
	Active() int
}

type Message struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Server struct {
	cfg      Config
	calls    Lifecycle
	upgrader websocket.Upgrader
	router   *mux.Router
}

func NewServer(cfg Config, calls Lifecycle) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if calls == nil {
		return nil, errors.New("call lifecycle is required")
	}

	s := &Server{
		cfg:   cfg,
		calls: calls,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The gateway is a trusted peer on a private network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc(cfg.Path, s.handleCall).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router = r

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains open calls within the
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("path", s.cfg.Path).Msg("call transport listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("call transport shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown call transport: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"active_sessions": s.calls.Active(),
	})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	customer, err := customerFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	handle := uuid.NewString()
	logger := log.With().Str("call_id", handle).Str("customer_id", customer.ID).Logger()
	ctx := logger.WithContext(r.Context())

	speaker := &wsSpeaker{conn: conn, timeout: s.cfg.WriteTimeout}
	if err := s.calls.Connect(ctx, handle, customer, speaker); err != nil {
		logger.Error().Err(err).Msg("connect call failed")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "connect failed"))
		return
	}
	defer s.disconnect(ctx, handle)

	s.readLoop(ctx, conn, handle)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, handle string) {
	logger := zerolog.Ctx(ctx)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn().Err(err).Msg("drop malformed gateway message")
			continue
		}

		switch msg.Type {
		case MessageTranscript:
			if err := s.calls.Hear(ctx, handle, msg.Text); err != nil {
				logger.Warn().Err(err).Msg("transcript rejected")
				if errors.Is(err, contractx.ErrSessionClosed) {
					return
				}
			}
		case MessageHangup:
			return
		default:
			logger.Warn().Str("type", msg.Type).Msg("unknown gateway message")
		}
	}
}

func (s *Server) disconnect(ctx context.Context, handle string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.calls.Disconnect(dctx, handle); err != nil && !errors.Is(err, contractx.ErrSessionClosed) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("disconnect call failed")
	}
}

func customerFromQuery(r *http.Request) (contractx.Customer, error) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("overdue_amount"))
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return contractx.Customer{}, fmt.Errorf("%w: overdue_amount=%q is not a number", contractx.ErrValidation, raw)
	}

	customer := contractx.Customer{
		ID:            strings.TrimSpace(q.Get("customer_id")),
		Name:          strings.TrimSpace(q.Get("customer_name")),
		OverdueAmount: amount,
	}
	if err := customer.Validate(); err != nil {
		return contractx.Customer{}, err
	}
	return customer, nil
}

// wsSpeaker serializes agent speech onto one connection.
type wsSpeaker struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func (w *wsSpeaker) Speak(ctx context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	deadline := time.Now().Add(w.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteJSON(Message{Type: MessageSpeech, Text: text})
}
