package engine

import (
	"testing"

	"github.com/overkillhq/arena-client/pkg/types"
)

func rosterOf(n int) []types.AgentInfo {
	names := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf"}
	agents := make([]types.AgentInfo, 0, n)
	for i := 0; i < n; i++ {
		agents = append(agents, types.AgentInfo{
			ID:          names[i],
			Name:        names[i],
			BattleHP:    50,
			MaxBattleHP: 50,
			GlobalHP:    100,
			MaxGlobalHP: 100,
			Status:      "active",
		})
	}
	return agents
}

func mustAgent(t *testing.T, s State, id string) Agent {
	t.Helper()
	a, ok := s.Agent(id)
	if !ok {
		t.Fatalf("agent %q not in roster", id)
	}
	return a
}

func startedState(t *testing.T, n int) State {
	t.Helper()
	return ApplyGameStarted(NewState(), types.GameStarted{SessionID: "sess", Agents: rosterOf(n)})
}

func TestGameStarted_RosterIdempotentOnNonEmpty(t *testing.T) {
	s := startedState(t, 3)
	if len(s.Agents) != 3 {
		t.Fatalf("want 3 agents, got %d", len(s.Agents))
	}

	again := ApplyGameStarted(s, types.GameStarted{Agents: rosterOf(5)})
	if len(again.Agents) != 3 {
		t.Fatalf("duplicate game-started replaced roster: got %d agents", len(again.Agents))
	}
}

func TestRoundStarted_MatchupAgentsBattling_ByeStaysActive(t *testing.T) {
	s := startedState(t, 5)
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 1,
		Matchups: []types.MatchupInfo{
			{Agent1ID: "alpha", Agent2ID: "bravo"},
			{Agent1ID: "charlie", Agent2ID: "delta"},
		},
		ByeAgentID: "echo",
	})

	if s.CurrentRound == nil || s.CurrentRound.Number != 1 {
		t.Fatalf("current round not installed: %+v", s.CurrentRound)
	}
	if len(s.CurrentRound.Matchups) != 2 {
		t.Fatalf("want 2 matchups, got %d", len(s.CurrentRound.Matchups))
	}
	for _, id := range []string{"alpha", "bravo", "charlie", "delta"} {
		if got := mustAgent(t, s, id).Status; got != StatusBattling {
			t.Fatalf("agent %s: want battling, got %s", id, got)
		}
	}
	if got := mustAgent(t, s, "echo").Status; got != StatusActive {
		t.Fatalf("bye agent must stay active, got %s", got)
	}
}

func TestRoundStarted_RetiresUnendedPreviousRound(t *testing.T) {
	s := startedState(t, 4)
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 1,
		Matchups:    []types.MatchupInfo{{Agent1ID: "alpha", Agent2ID: "bravo"}},
	})
	// round-ended for round 1 goes missing
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 2,
		Matchups:    []types.MatchupInfo{{Agent1ID: "charlie", Agent2ID: "delta"}},
	})

	if len(s.RoundHistory) != 1 || s.RoundHistory[0].Number != 1 {
		t.Fatalf("previous round not retired: %+v", s.RoundHistory)
	}
	if s.RoundHistory[0].Status != RoundCompleted {
		t.Fatalf("retired round status: want completed, got %s", s.RoundHistory[0].Status)
	}
	if s.CurrentRound.Number != 2 {
		t.Fatalf("want current round 2, got %d", s.CurrentRound.Number)
	}
}

func TestBattleStarted_SynthesizesUnknownAgent(t *testing.T) {
	s := startedState(t, 2)
	next, effects := ApplyBattleStarted(s, types.BattleStarted{
		BattleID: "b1",
		Agent1ID: "alpha",
		Agent2ID: "ghost",
	})

	ghost := mustAgent(t, next, "ghost")
	if ghost.BattleHP != DefaultBattleHP || ghost.GlobalHP != DefaultGlobalHP {
		t.Fatalf("synthesized agent stats: %+v", ghost)
	}
	if ghost.Status != StatusBattling {
		t.Fatalf("synthesized agent status: want battling, got %s", ghost.Status)
	}
	if _, ok := next.Battle("b1"); !ok {
		t.Fatalf("battle not in active set")
	}
	if len(effects) != 1 {
		t.Fatalf("want 1 effect, got %d", len(effects))
	}
	if _, ok := effects[0].(CancelBattleRemoval); !ok {
		t.Fatalf("want CancelBattleRemoval, got %T", effects[0])
	}
}

func TestBattleStarted_AttachesMatchup(t *testing.T) {
	s := startedState(t, 4)
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 1,
		Matchups: []types.MatchupInfo{
			{Agent1ID: "alpha", Agent2ID: "bravo"},
			{Agent1ID: "charlie", Agent2ID: "delta"},
		},
	})
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "charlie", Agent2ID: "delta"})

	m := s.CurrentRound.Matchups[1]
	if m.Status != MatchupInProgress || m.BattleID != "b1" {
		t.Fatalf("matchup not attached: %+v", m)
	}
	if other := s.CurrentRound.Matchups[0]; other.Status != MatchupPending {
		t.Fatalf("unrelated matchup touched: %+v", other)
	}
}

func TestTurnCompleted_DamageFlooredAtZero(t *testing.T) {
	s := startedState(t, 2)
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})

	s = ApplyTurnCompleted(s, types.TurnCompleted{
		BattleID: "b1",
		Turn:     types.TurnInfo{TurnNumber: 1, Damage: 20, WinnerID: "alpha", LoserID: "bravo"},
	})
	if got := mustAgent(t, s, "bravo").BattleHP; got != 30 {
		t.Fatalf("after turn 1: want battleHP 30, got %d", got)
	}

	s = ApplyTurnCompleted(s, types.TurnCompleted{
		BattleID: "b1",
		Turn:     types.TurnInfo{TurnNumber: 2, Damage: 35, WinnerID: "alpha", LoserID: "bravo"},
	})
	if got := mustAgent(t, s, "bravo").BattleHP; got != 0 {
		t.Fatalf("after turn 2: want battleHP floored at 0, got %d", got)
	}

	b, _ := s.Battle("b1")
	if len(b.Turns) != 2 || b.Turns[1].Number != 2 {
		t.Fatalf("turns not appended in order: %+v", b.Turns)
	}
}

func TestTurnCompleted_DropsDuplicatesAndUnknownBattles(t *testing.T) {
	s := startedState(t, 2)
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})
	turn := types.TurnCompleted{
		BattleID: "b1",
		Turn:     types.TurnInfo{TurnNumber: 1, Damage: 10, WinnerID: "alpha", LoserID: "bravo"},
	}

	s = ApplyTurnCompleted(s, turn)
	s = ApplyTurnCompleted(s, turn) // duplicate delivery
	if got := mustAgent(t, s, "bravo").BattleHP; got != 40 {
		t.Fatalf("duplicate turn applied damage twice: battleHP %d", got)
	}

	before := s
	s = ApplyTurnCompleted(s, types.TurnCompleted{
		BattleID: "nope",
		Turn:     types.TurnInfo{TurnNumber: 1, Damage: 10, LoserID: "bravo"},
	})
	if got := mustAgent(t, s, "bravo").BattleHP; got != mustAgent(t, before, "bravo").BattleHP {
		t.Fatalf("turn for unknown battle changed state")
	}
}

func TestBattleEnded_ResetsHPAndAppliesGlobalLoss(t *testing.T) {
	s := startedState(t, 2)
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})
	s = ApplyTurnCompleted(s, types.TurnCompleted{
		BattleID: "b1",
		Turn:     types.TurnInfo{TurnNumber: 1, Damage: 50, WinnerID: "alpha", LoserID: "bravo"},
	})

	next, effects := ApplyBattleEnded(s, types.BattleEnded{
		BattleID: "b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 30,
	})

	winner := mustAgent(t, next, "alpha")
	loser := mustAgent(t, next, "bravo")
	if winner.BattleHP != winner.MaxBattleHP || loser.BattleHP != loser.MaxBattleHP {
		t.Fatalf("battle HP not reset: winner %d, loser %d", winner.BattleHP, loser.BattleHP)
	}
	if loser.GlobalHP != 70 {
		t.Fatalf("want loser globalHP 70, got %d", loser.GlobalHP)
	}
	if winner.Status != StatusActive || loser.Status != StatusActive {
		t.Fatalf("both agents should return to active: %s/%s", winner.Status, loser.Status)
	}

	b, ok := next.Battle("b1")
	if !ok {
		t.Fatalf("battle must stay in active set until grace removal")
	}
	if b.Status != BattleEnded || b.WinnerID != "alpha" || b.LoserID != "bravo" {
		t.Fatalf("battle not settled: %+v", b)
	}
	if len(next.BattleHistory) != 1 {
		t.Fatalf("battle not recorded in history")
	}
	if len(effects) != 1 {
		t.Fatalf("want 1 effect, got %d", len(effects))
	}
	if eff, ok := effects[0].(ScheduleBattleRemoval); !ok || eff.BattleID != "b1" {
		t.Fatalf("want ScheduleBattleRemoval{b1}, got %#v", effects[0])
	}

	// duplicate delivery is a no-op
	again, dupEffects := ApplyBattleEnded(next, types.BattleEnded{
		BattleID: "b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 30,
	})
	if got := mustAgent(t, again, "bravo").GlobalHP; got != 70 {
		t.Fatalf("duplicate battle-ended applied loss twice: %d", got)
	}
	if dupEffects != nil {
		t.Fatalf("duplicate battle-ended produced effects: %#v", dupEffects)
	}
}

func TestBattleEnded_EliminatesAtZero(t *testing.T) {
	s := startedState(t, 2)
	agents := cloneAgents(s.Agents)
	for i := range agents {
		if agents[i].ID == "bravo" {
			agents[i].GlobalHP = 20
		}
	}
	s.Agents = agents

	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})
	s, _ = ApplyBattleEnded(s, types.BattleEnded{
		BattleID: "b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 25,
	})

	loser := mustAgent(t, s, "bravo")
	if loser.GlobalHP != 0 {
		t.Fatalf("want globalHP floored at 0, got %d", loser.GlobalHP)
	}
	if loser.Status != StatusEliminated {
		t.Fatalf("want eliminated, got %s", loser.Status)
	}
	if len(s.EliminationOrder) != 1 || s.EliminationOrder[0] != "bravo" {
		t.Fatalf("elimination order not recorded: %v", s.EliminationOrder)
	}
}

func TestGlobalHPNonIncreasingAcrossBattles(t *testing.T) {
	s := startedState(t, 2)
	last := mustAgent(t, s, "bravo").GlobalHP

	losses := []int{10, 0, 40, 70, 15}
	for i, loss := range losses {
		id := string(rune('a'+i)) + "-battle"
		s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: id, Agent1ID: "alpha", Agent2ID: "bravo"})
		s, _ = ApplyBattleEnded(s, types.BattleEnded{BattleID: id, WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: loss})

		got := mustAgent(t, s, "bravo").GlobalHP
		if got > last {
			t.Fatalf("globalHP increased from %d to %d", last, got)
		}
		if got < 0 {
			t.Fatalf("globalHP went negative: %d", got)
		}
		last = got
	}
	if last != 0 {
		t.Fatalf("want globalHP 0 after 135 total loss, got %d", last)
	}
	if got := mustAgent(t, s, "bravo").Status; got != StatusEliminated {
		t.Fatalf("eliminated iff globalHP 0: status %s at hp 0", got)
	}
}

func TestRoundEnded_RevertsBattlingStragglers(t *testing.T) {
	s := startedState(t, 4)
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 1,
		Matchups: []types.MatchupInfo{
			{Agent1ID: "alpha", Agent2ID: "bravo"},
			{Agent1ID: "charlie", Agent2ID: "delta"},
		},
	})
	// only one battle reports its end
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})
	s, _ = ApplyBattleEnded(s, types.BattleEnded{BattleID: "b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 10})

	s = ApplyRoundEnded(s, types.RoundEnded{RoundNumber: 1})

	if s.CurrentRound != nil {
		t.Fatalf("current round should be retired")
	}
	if len(s.RoundHistory) != 1 || s.RoundHistory[0].Status != RoundCompleted {
		t.Fatalf("round not in history as completed: %+v", s.RoundHistory)
	}
	for _, id := range []string{"charlie", "delta"} {
		if got := mustAgent(t, s, id).Status; got != StatusActive {
			t.Fatalf("straggler %s: want active, got %s", id, got)
		}
	}
}

func TestAgentEliminated_Idempotent(t *testing.T) {
	s := startedState(t, 3)
	ev := types.AgentEliminated{AgentID: "bravo", GlobalHP: 0}

	once := ApplyAgentEliminated(s, ev)
	twice := ApplyAgentEliminated(once, ev)

	for _, got := range []State{once, twice} {
		a := mustAgent(t, got, "bravo")
		if a.Status != StatusEliminated || a.BattleHP != 0 || a.GlobalHP != 0 {
			t.Fatalf("forced elimination not applied: %+v", a)
		}
		if len(got.EliminationOrder) != 1 {
			t.Fatalf("elimination recorded %d times", len(got.EliminationOrder))
		}
	}
}

func TestGameEnded_RankingIsReverseEliminationOrder(t *testing.T) {
	s := startedState(t, 4)
	for i, id := range []string{"alpha", "bravo", "charlie"} {
		s = ApplyAgentEliminated(s, types.AgentEliminated{AgentID: id, GlobalHP: 0})
		if len(s.EliminationOrder) != i+1 {
			t.Fatalf("elimination %d not recorded", i+1)
		}
	}

	s = ApplyGameEnded(s, types.GameEnded{WinnerID: "delta"})

	want := []string{"delta", "charlie", "bravo", "alpha"}
	if len(s.Rankings) != len(want) {
		t.Fatalf("rankings length: want %d, got %v", len(want), s.Rankings)
	}
	for i := range want {
		if s.Rankings[i] != want[i] {
			t.Fatalf("rankings[%d]: want %s, got %s (full: %v)", i, want[i], s.Rankings[i], s.Rankings)
		}
	}
	if !s.GameOver {
		t.Fatalf("game over flag not set")
	}
}

func TestFiveAgentTournamentScenario(t *testing.T) {
	s := startedState(t, 5)

	// Round 1: two matchups plus a bye.
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 1,
		Matchups: []types.MatchupInfo{
			{Agent1ID: "alpha", Agent2ID: "bravo"},
			{Agent1ID: "charlie", Agent2ID: "delta"},
		},
		ByeAgentID: "echo",
	})

	paired := map[string]int{}
	for _, m := range s.CurrentRound.Matchups {
		paired[m.Agent1ID]++
		paired[m.Agent2ID]++
	}
	paired[s.CurrentRound.ByeAgentID]++
	if len(paired) != 5 {
		t.Fatalf("matchups plus bye must cover exactly the alive roster: %v", paired)
	}
	for id, n := range paired {
		if n != 1 {
			t.Fatalf("agent %s appears %d times in round 1", id, n)
		}
	}

	// Both battles run concurrently.
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "r1b1", Agent1ID: "alpha", Agent2ID: "bravo"})
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "r1b2", Agent1ID: "charlie", Agent2ID: "delta"})
	if len(s.ActiveBattles) != 2 {
		t.Fatalf("want 2 concurrent active battles, got %d", len(s.ActiveBattles))
	}

	// Both losers are wiped out.
	s, _ = ApplyBattleEnded(s, types.BattleEnded{BattleID: "r1b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 100})
	s, _ = ApplyBattleEnded(s, types.BattleEnded{BattleID: "r1b2", WinnerID: "charlie", LoserID: "delta", GlobalHPLost: 100})
	s = ApplyRoundEnded(s, types.RoundEnded{RoundNumber: 1})

	alive := s.AliveAgents()
	if len(alive) != 3 {
		t.Fatalf("want 3 survivors entering round 2, got %d", len(alive))
	}

	// Round 2: odd again, one matchup and one bye.
	s = ApplyRoundStarted(s, types.RoundStarted{
		RoundNumber: 2,
		Matchups:    []types.MatchupInfo{{Agent1ID: "alpha", Agent2ID: "charlie"}},
		ByeAgentID:  "echo",
	})
	if len(s.CurrentRound.Matchups) != 1 || s.CurrentRound.ByeAgentID != "echo" {
		t.Fatalf("round 2 shape wrong: %+v", s.CurrentRound)
	}
}

func TestRemoveBattle(t *testing.T) {
	s := startedState(t, 2)
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})
	s, _ = ApplyBattleEnded(s, types.BattleEnded{BattleID: "b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 10})

	s = RemoveBattle(s, "b1")
	if len(s.ActiveBattles) != 0 {
		t.Fatalf("battle not removed: %+v", s.ActiveBattles)
	}
	if len(s.BattleHistory) != 1 {
		t.Fatalf("removal must not touch history")
	}

	// removing twice is harmless
	s = RemoveBattle(s, "b1")
	if len(s.ActiveBattles) != 0 {
		t.Fatalf("second removal changed state")
	}
}

func TestReducersDoNotMutateInput(t *testing.T) {
	s := startedState(t, 2)
	s, _ = ApplyBattleStarted(s, types.BattleStarted{BattleID: "b1", Agent1ID: "alpha", Agent2ID: "bravo"})

	before := mustAgent(t, s, "bravo").BattleHP
	_ = ApplyTurnCompleted(s, types.TurnCompleted{
		BattleID: "b1",
		Turn:     types.TurnInfo{TurnNumber: 1, Damage: 20, WinnerID: "alpha", LoserID: "bravo"},
	})
	if got := mustAgent(t, s, "bravo").BattleHP; got != before {
		t.Fatalf("input state mutated: battleHP %d -> %d", before, got)
	}

	_, _ = ApplyBattleEnded(s, types.BattleEnded{BattleID: "b1", WinnerID: "alpha", LoserID: "bravo", GlobalHPLost: 100})
	if got := mustAgent(t, s, "bravo").Status; got != StatusBattling {
		t.Fatalf("input state mutated: status %s", got)
	}
	if len(s.EliminationOrder) != 0 {
		t.Fatalf("input elimination order mutated: %v", s.EliminationOrder)
	}
}
