// Package store is the single place domain state mutates. Every inbound
// event lands here as one mutator call; subscribers get a consistent
// snapshot synchronously after each commit.
package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/internal/clock"
	"github.com/overkillhq/arena-client/internal/engine"
	"github.com/overkillhq/arena-client/pkg/types"
)

type ConnectionStatus string

const (
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnConnecting   ConnectionStatus = "connecting"
	ConnConnected    ConnectionStatus = "connected"
	ConnError        ConnectionStatus = "error"
)

// Judge is display-only bootstrap data; judges never enter reducer logic.
type Judge struct {
	ID          string
	Name        string
	AvatarEmoji string
	Personality string
}

// Snapshot is an immutable view of the whole store at one version.
type Snapshot struct {
	Version         int
	SessionID       string
	Connection      ConnectionStatus
	Screen          Screen
	FocusedBattleID string
	Loading         bool
	LastError       string
	Judges          []Judge
	State           engine.State
}

type Options struct {
	// BattleRemovalGrace is how long an ended battle lingers in the active
	// set before its removal timer fires.
	BattleRemovalGrace time.Duration
	Clock              clock.Clock
	Logger             *zap.Logger
}

type Store struct {
	opts Options

	mu              sync.Mutex
	version         int
	sessionID       string
	connection      ConnectionStatus
	screen          Screen
	focusedBattleID string
	loading         bool
	lastError       string
	judges          []Judge
	state           engine.State

	subs    map[int]func(Snapshot)
	nextSub int

	removalTimers map[string]clock.Timer
}

func New(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		opts:          opts,
		connection:    ConnDisconnected,
		screen:        ScreenSetup,
		state:         engine.NewState(),
		subs:          make(map[int]func(Snapshot)),
		removalTimers: make(map[string]clock.Timer),
	}
}

// Snapshot returns the current view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn and immediately delivers the current snapshot, so a
// late subscriber never misses the state it joined at.
func (s *Store) Subscribe(fn func(Snapshot)) int {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)
	return id
}

func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// Reset restores every field to its initial value and cancels all pending
// battle-removal timers. This is the only way out of the victory screen.
func (s *Store) Reset() {
	s.mu.Lock()
	for id, t := range s.removalTimers {
		t.Stop()
		delete(s.removalTimers, id)
	}
	s.sessionID = ""
	s.connection = ConnDisconnected
	s.screen = ScreenSetup
	s.focusedBattleID = ""
	s.loading = false
	s.lastError = ""
	s.judges = nil
	s.state = engine.NewState()
	s.commitLocked()
}

// SessionCreated records the new session id and moves setup to loading.
func (s *Store) SessionCreated(sessionID string) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.moveScreenLocked(ScreenLoading)
	s.commitLocked()
}

// EnterArena is the explicit loading-to-arena action.
func (s *Store) EnterArena() {
	s.mu.Lock()
	s.moveScreenLocked(ScreenArena)
	s.commitLocked()
}

// FocusBattle switches to the battle-detail view for an active battle.
func (s *Store) FocusBattle(battleID string) {
	s.mu.Lock()
	if _, ok := s.state.Battle(battleID); !ok {
		s.opts.Logger.Warn("cannot focus unknown battle", zap.String("battle_id", battleID))
		s.mu.Unlock()
		return
	}
	if s.moveScreenLocked(ScreenBattle) {
		s.focusedBattleID = battleID
	}
	s.commitLocked()
}

// Back returns from the battle-detail view to the arena.
func (s *Store) Back() {
	s.mu.Lock()
	if s.moveScreenLocked(ScreenArena) {
		s.focusedBattleID = ""
	}
	s.commitLocked()
}

func (s *Store) SetConnectionStatus(status ConnectionStatus) {
	s.mu.Lock()
	s.connection = status
	s.commitLocked()
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.commitLocked()
}

func (s *Store) SetError(message string) {
	s.mu.Lock()
	s.lastError = message
	s.commitLocked()
}

func (s *Store) ClearError() {
	s.SetError("")
}

func (s *Store) SetJudges(judges []Judge) {
	s.mu.Lock()
	s.judges = append([]Judge(nil), judges...)
	s.commitLocked()
}

// SeedRoster installs the roster known from session creation without
// touching the screen; the later game-started event is then a roster no-op.
func (s *Store) SeedRoster(agents []types.AgentInfo) {
	s.mu.Lock()
	s.state = engine.ApplyGameStarted(s.state, types.GameStarted{Agents: agents})
	s.commitLocked()
}

// ApplyGameStarted installs the roster and enters the arena; the screen move
// only fires from the loading screen, the one place the game can start from.
func (s *Store) ApplyGameStarted(ev types.GameStarted) {
	s.mu.Lock()
	s.state = engine.ApplyGameStarted(s.state, ev)
	if s.screen == ScreenLoading {
		s.moveScreenLocked(ScreenArena)
	}
	s.commitLocked()
}

func (s *Store) ApplyRoundStarted(ev types.RoundStarted) {
	s.mu.Lock()
	s.state = engine.ApplyRoundStarted(s.state, ev)
	s.commitLocked()
}

func (s *Store) ApplyBattleStarted(ev types.BattleStarted) {
	s.mu.Lock()
	next, effects := engine.ApplyBattleStarted(s.state, ev)
	s.state = next
	s.runEffectsLocked(effects)
	s.commitLocked()
}

func (s *Store) ApplyTurnCompleted(ev types.TurnCompleted) {
	s.mu.Lock()
	s.state = engine.ApplyTurnCompleted(s.state, ev)
	s.commitLocked()
}

func (s *Store) ApplyBattleEnded(ev types.BattleEnded) {
	s.mu.Lock()
	next, effects := engine.ApplyBattleEnded(s.state, ev)
	s.state = next
	s.runEffectsLocked(effects)
	s.commitLocked()
}

func (s *Store) ApplyRoundEnded(ev types.RoundEnded) {
	s.mu.Lock()
	s.state = engine.ApplyRoundEnded(s.state, ev)
	s.commitLocked()
}

func (s *Store) ApplyAgentEliminated(ev types.AgentEliminated) {
	s.mu.Lock()
	s.state = engine.ApplyAgentEliminated(s.state, ev)
	s.commitLocked()
}

// ApplyGameEnded records the result and advances arena to victory. If the
// user is still on a battle detail view, the move happens when that battle's
// removal sends them back to the arena.
func (s *Store) ApplyGameEnded(ev types.GameEnded) {
	s.mu.Lock()
	s.state = engine.ApplyGameEnded(s.state, ev)
	if s.screen == ScreenArena {
		s.moveScreenLocked(ScreenVictory)
	}
	s.commitLocked()
}

func (s *Store) ApplyServerError(ev types.ServerError) {
	s.SetError(ev.Message)
}

func (s *Store) runEffectsLocked(effects []engine.Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case engine.CancelBattleRemoval:
			if t, ok := s.removalTimers[e.BattleID]; ok {
				t.Stop()
				delete(s.removalTimers, e.BattleID)
			}
		case engine.ScheduleBattleRemoval:
			if t, ok := s.removalTimers[e.BattleID]; ok {
				t.Stop()
			}
			battleID := e.BattleID
			s.removalTimers[battleID] = s.opts.Clock.AfterFunc(
				s.opts.BattleRemovalGrace,
				func() { s.removeBattle(battleID) },
			)
		}
	}
}

// removeBattle is the grace timer callback: drop the battle from the active
// set and, if it was the focused one, return the user to the arena (and on
// to victory when the game already ended).
func (s *Store) removeBattle(battleID string) {
	s.mu.Lock()
	delete(s.removalTimers, battleID)
	s.state = engine.RemoveBattle(s.state, battleID)
	if s.screen == ScreenBattle && s.focusedBattleID == battleID {
		if s.moveScreenLocked(ScreenArena) {
			s.focusedBattleID = ""
		}
		if s.state.GameOver {
			s.moveScreenLocked(ScreenVictory)
		}
	}
	s.commitLocked()
}

// moveScreenLocked applies a transition if the table allows it.
func (s *Store) moveScreenLocked(to Screen) bool {
	if s.screen == to {
		return false
	}
	if !screenMoveAllowed(s.screen, to) {
		s.opts.Logger.Warn("illegal screen transition ignored",
			zap.String("from", string(s.screen)), zap.String("to", string(to)))
		return false
	}
	s.opts.Logger.Info("screen transition",
		zap.String("from", string(s.screen)), zap.String("to", string(to)))
	s.screen = to
	return true
}

// commitLocked bumps the version, releases the lock and notifies every
// subscriber with the same snapshot. Callers hold s.mu on entry.
func (s *Store) commitLocked() {
	s.version++
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:         s.version,
		SessionID:       s.sessionID,
		Connection:      s.connection,
		Screen:          s.screen,
		FocusedBattleID: s.focusedBattleID,
		Loading:         s.loading,
		LastError:       s.lastError,
		Judges:          append([]Judge(nil), s.judges...),
		State:           s.state,
	}
}
