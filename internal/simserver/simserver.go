// Package simserver is a scripted stand-in for the real tournament backend.
// It speaks the exact wire protocol the engine consumes, which makes it the
// demo server for cmd/simserver and the far end of the end-to-end tests.
package simserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/internal/httpapi"
	"github.com/overkillhq/arena-client/pkg/types"
)

const (
	defaultBattleHP = 50
	defaultGlobalHP = 100
	globalHPPerLoss = 50
)

type Options struct {
	// TurnsPerBattle is how many argument exchanges each battle runs.
	TurnsPerBattle int
	// StepDelay spaces consecutive events out so a human can watch; tests
	// leave it at zero.
	StepDelay time.Duration
	Logger    *zap.Logger
}

type Server struct {
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	games map[string]*game
}

type game struct {
	id      string
	agents  []types.AgentInfo
	judges  []httpapi.JudgeInit
	started bool
	over    bool

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func New(opts Options) *Server {
	if opts.TurnsPerBattle <= 0 {
		opts.TurnsPerBattle = 2
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		opts:  opts,
		log:   opts.Logger,
		games: make(map[string]*game),
	}
}

// Routes mounts the bootstrap endpoints and the websocket upgrade.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/game/create", s.createGame)
	r.Post("/api/game/{gameID}/start", s.startGame)
	r.Get("/api/game/{gameID}/state", s.gameState)
	r.Get("/ws/game/{gameID}", s.serveWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req httpapi.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if len(req.Choices) < 2 {
		http.Error(w, "need at least two choices", http.StatusBadRequest)
		return
	}

	g := &game{
		id:    uuid.NewString(),
		conns: make(map[*websocket.Conn]struct{}),
	}
	for i, choice := range req.Choices {
		name := choice.Name
		if name == "" {
			name = choice.Description
		}
		g.agents = append(g.agents, types.AgentInfo{
			ID:          fmt.Sprintf("agent-%d", i+1),
			Name:        name,
			BattleHP:    defaultBattleHP,
			MaxBattleHP: defaultBattleHP,
			GlobalHP:    defaultGlobalHP,
			MaxGlobalHP: defaultGlobalHP,
			Status:      "active",
		})
	}
	for _, j := range req.Judges {
		g.judges = append(g.judges, httpapi.JudgeInit{
			ID:          j.ID,
			GameID:      g.id,
			Name:        j.Name,
			Personality: j.Personality,
		})
	}

	s.mu.Lock()
	s.games[g.id] = g
	s.mu.Unlock()
	s.log.Info("game created", zap.String("game_id", g.id), zap.Int("agents", len(g.agents)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(httpapi.CreateGameResponse{
		GameID: g.id,
		Status: "created",
		Agents: g.agents,
		Judges: g.judges,
	})
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	g := s.game(chi.URLParam(r, "gameID"))
	if g == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	s.begin(g)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) gameState(w http.ResponseWriter, r *http.Request) {
	g := s.game(chi.URLParam(r, "gameID"))
	if g == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	s.mu.Lock()
	status := "created"
	if g.over {
		status = "finished"
	} else if g.started {
		status = "running"
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"game_id": g.id, "status": status})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	g := s.game(chi.URLParam(r, "gameID"))
	if g == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	g.mu.Lock()
	g.conns[conn] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.conns, conn)
		g.mu.Unlock()
	}()

	for {
		_, frame, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		var env types.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			s.log.Warn("dropping malformed client frame", zap.Error(err))
			continue
		}
		if env.Type == types.CommandStartGame {
			s.begin(g)
		}
	}
}

func (s *Server) game(id string) *game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games[id]
}

func (s *Server) begin(g *game) {
	s.mu.Lock()
	if g.started {
		s.mu.Unlock()
		return
	}
	g.started = true
	s.mu.Unlock()
	go s.runTournament(g)
}

// runTournament plays the whole script: rounds of paired battles, a bye on
// odd parity, eliminations on the second loss, then final rankings.
func (s *Server) runTournament(g *game) {
	s.emit(g, types.EventGameStarted, types.GameStarted{SessionID: g.id, Agents: g.agents})

	globalHP := make(map[string]int, len(g.agents))
	for _, a := range g.agents {
		globalHP[a.ID] = a.GlobalHP
	}

	totalBattles := 0
	roundNumber := 0
	for {
		alive := aliveIDs(g.agents, globalHP)
		if len(alive) <= 1 {
			break
		}
		roundNumber++

		matchups, bye := pair(alive)
		s.emit(g, types.EventRoundStarted, types.RoundStarted{
			RoundNumber: roundNumber,
			Matchups:    matchups,
			ByeAgentID:  bye,
		})

		for _, m := range matchups {
			totalBattles++
			s.runBattle(g, roundNumber, m, globalHP)
		}

		s.emit(g, types.EventRoundEnded, types.RoundEnded{RoundNumber: roundNumber})
	}

	winner := ""
	if alive := aliveIDs(g.agents, globalHP); len(alive) == 1 {
		winner = alive[0]
	}
	s.emit(g, types.EventGameEnded, types.GameEnded{WinnerID: winner, TotalBattles: totalBattles})

	s.mu.Lock()
	g.over = true
	s.mu.Unlock()
	s.log.Info("tournament finished",
		zap.String("game_id", g.id),
		zap.String("winner", winner),
		zap.Int("battles", totalBattles))
}

// runBattle scripts one battle: the first agent of the pairing always wins,
// damage split evenly across the configured turns.
func (s *Server) runBattle(g *game, roundNumber int, m types.MatchupInfo, globalHP map[string]int) {
	battleID := uuid.NewString()
	winner, loser := m.Agent1ID, m.Agent2ID

	s.emit(g, types.EventBattleStarted, types.BattleStarted{
		BattleID:    battleID,
		RoundNumber: roundNumber,
		Agent1ID:    m.Agent1ID,
		Agent2ID:    m.Agent2ID,
	})

	turns := s.opts.TurnsPerBattle
	perTurn := (defaultBattleHP + turns - 1) / turns
	for turn := 1; turn <= turns; turn++ {
		s.emit(g, types.EventTurnCompleted, types.TurnCompleted{
			BattleID: battleID,
			Turn: types.TurnInfo{
				TurnNumber: turn,
				Arguments: []types.ArgumentInfo{
					{AgentID: winner, Text: fmt.Sprintf("point %d for %s", turn, winner)},
					{AgentID: loser, Text: fmt.Sprintf("rebuttal %d from %s", turn, loser)},
				},
				Votes: []types.JudgeVoteInfo{
					{JudgeID: "judge-1", JudgeName: "The Bench", VotedFor: winner},
				},
				Damage:   perTurn,
				WinnerID: winner,
				LoserID:  loser,
			},
		})
	}

	globalHP[loser] = max(0, globalHP[loser]-globalHPPerLoss)
	s.emit(g, types.EventBattleEnded, types.BattleEnded{
		BattleID:     battleID,
		WinnerID:     winner,
		LoserID:      loser,
		GlobalHPLost: globalHPPerLoss,
	})

	if globalHP[loser] == 0 {
		s.emit(g, types.EventAgentEliminated, types.AgentEliminated{
			AgentID:  loser,
			GlobalHP: 0,
		})
	}
}

func (s *Server) emit(g *game, eventType string, payload any) {
	if s.opts.StepDelay > 0 {
		time.Sleep(s.opts.StepDelay)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	frame, _ := json.Marshal(types.Envelope{Type: eventType, Data: data})

	g.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
			// slow or gone, drop it
			g.mu.Lock()
			delete(g.conns, c)
			g.mu.Unlock()
		}
		cancel()
	}
}

func aliveIDs(agents []types.AgentInfo, globalHP map[string]int) []string {
	var out []string
	for _, a := range agents {
		if globalHP[a.ID] > 0 {
			out = append(out, a.ID)
		}
	}
	return out
}

// pair matches survivors in roster order; on odd parity the last one sits
// the round out as the bye.
func pair(alive []string) ([]types.MatchupInfo, string) {
	bye := ""
	if len(alive)%2 == 1 {
		bye = alive[len(alive)-1]
		alive = alive[:len(alive)-1]
	}
	matchups := make([]types.MatchupInfo, 0, len(alive)/2)
	for i := 0; i+1 < len(alive); i += 2 {
		matchups = append(matchups, types.MatchupInfo{
			Agent1ID: alive[i],
			Agent2ID: alive[i+1],
		})
	}
	return matchups, bye
}
