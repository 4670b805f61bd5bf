// Package session ties the pieces together: one bootstrap call, one
// websocket client, one store. It owns the event-handler table that turns
// decoded payloads into store mutations.
package session

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/internal/clock"
	"github.com/overkillhq/arena-client/internal/config"
	"github.com/overkillhq/arena-client/internal/decode"
	"github.com/overkillhq/arena-client/internal/httpapi"
	"github.com/overkillhq/arena-client/internal/store"
	"github.com/overkillhq/arena-client/internal/ws"
	"github.com/overkillhq/arena-client/pkg/types"
)

var ErrNoSession = errors.New("session: no game created yet")

type Session struct {
	cfg   config.Config
	api   *httpapi.Client
	store *store.Store
	clk   clock.Clock
	log   *zap.Logger

	id     string
	client *ws.Client
}

func New(cfg config.Config, st *store.Store, clk clock.Clock, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Session{
		cfg:   cfg,
		api:   httpapi.NewClient(cfg.APIBaseURL, log),
		store: st,
		clk:   clk,
		log:   log,
	}
}

func (s *Session) ID() string { return s.id }

// Store exposes the reactive store for renderers.
func (s *Session) Store() *store.Store { return s.store }

// Create bootstraps a game over HTTP, seeds the store with the initial
// roster and judges, and moves the screen from setup to loading.
func (s *Session) Create(ctx context.Context, req httpapi.CreateGameRequest) error {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	resp, err := s.api.CreateGame(ctx, req)
	if err != nil {
		s.store.SetError("failed to create game")
		return err
	}

	s.id = resp.GameID
	s.store.SessionCreated(resp.GameID)
	s.store.SeedRoster(resp.Agents)

	judges := make([]store.Judge, 0, len(resp.Judges))
	for _, j := range resp.Judges {
		judges = append(judges, store.Judge{
			ID:          j.ID,
			Name:        j.Name,
			AvatarEmoji: j.AvatarEmoji,
			Personality: j.Personality,
		})
	}
	s.store.SetJudges(judges)
	return nil
}

// Connect opens the websocket for the created session and registers the
// event handlers. The transport recovers from drops on its own; Connect only
// fails the initial open.
func (s *Session) Connect(ctx context.Context) error {
	if s.id == "" {
		return ErrNoSession
	}

	s.client = ws.NewClient(s.cfg.SessionURL(s.id), ws.Options{
		MaxReconnectAttempts: s.cfg.MaxReconnectAttempts,
		BaseReconnectDelay:   s.cfg.BaseReconnectDelay,
		Clock:                s.clk,
		Logger:               s.log,
	})
	s.registerHandlers()

	s.store.SetConnectionStatus(store.ConnConnecting)
	if err := s.client.Connect(ctx); err != nil {
		s.store.SetError("failed to connect to server")
		s.store.SetConnectionStatus(store.ConnDisconnected)
		return err
	}
	return nil
}

// StartGame asks the server to begin the tournament. The command goes over
// the socket; if it is not open yet the REST endpoint is the fallback.
func (s *Session) StartGame(ctx context.Context) error {
	if s.id == "" {
		return ErrNoSession
	}
	if s.client != nil && s.client.IsConnected() {
		s.client.Send(types.CommandStartGame, struct{}{})
		return nil
	}
	s.log.Warn("socket not open, starting game over http")
	return s.api.StartGame(ctx, s.id)
}

// Close tears the connection down. The store keeps its state; Reset is a
// separate, explicit action.
func (s *Session) Close() {
	if s.client != nil {
		s.client.Disconnect()
		s.client = nil
	}
	s.store.SetConnectionStatus(store.ConnDisconnected)
}

// Reset destroys the session and restores the store to its initial values.
func (s *Session) Reset() {
	s.Close()
	s.id = ""
	s.store.Reset()
}

// registerHandlers wires every inbound event type to decode-then-mutate.
// Decode failures are logged and dropped here; reducers never see them.
func (s *Session) registerHandlers() {
	s.client.On(types.EventConnectionEstablished, func(json.RawMessage) {
		s.store.SetConnectionStatus(store.ConnConnected)
	})

	on(s, types.EventGameStarted, decode.GameStarted, s.store.ApplyGameStarted)
	on(s, types.EventRoundStarted, decode.RoundStarted, s.store.ApplyRoundStarted)
	on(s, types.EventBattleStarted, decode.BattleStarted, s.store.ApplyBattleStarted)
	on(s, types.EventTurnCompleted, decode.TurnCompleted, s.store.ApplyTurnCompleted)
	on(s, types.EventBattleEnded, decode.BattleEnded, s.store.ApplyBattleEnded)
	on(s, types.EventRoundEnded, decode.RoundEnded, s.store.ApplyRoundEnded)
	on(s, types.EventAgentEliminated, decode.AgentEliminated, s.store.ApplyAgentEliminated)
	on(s, types.EventGameEnded, decode.GameEnded, s.store.ApplyGameEnded)

	s.client.On(types.EventError, func(data json.RawMessage) {
		ev, err := decode.ServerError(data)
		if err != nil {
			s.log.Warn("dropping malformed error event", zap.Error(err))
			return
		}
		s.store.ApplyServerError(ev)
		if !s.client.IsConnected() {
			// the transport gave up; only a new session can recover
			s.store.SetConnectionStatus(store.ConnError)
		}
	})
}

func on[T any](s *Session, eventType string, dec func(json.RawMessage) (T, error), apply func(T)) {
	s.client.On(eventType, func(data json.RawMessage) {
		ev, err := dec(data)
		if err != nil {
			s.log.Warn("dropping malformed event",
				zap.String("type", eventType), zap.Error(err))
			return
		}
		apply(ev)
	})
}
