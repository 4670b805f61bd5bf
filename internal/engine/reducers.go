package engine

import (
	"github.com/overkillhq/arena-client/pkg/types"
)

// Effect describes deferred work a reducer wants done after its state change
// commits. Reducers stay pure; the store owns the timers.
type Effect interface{ isEffect() }

// ScheduleBattleRemoval asks for the battle to leave the active set after the
// configured display-grace interval.
type ScheduleBattleRemoval struct{ BattleID string }

// CancelBattleRemoval withdraws any pending removal for the id, e.g. when a
// new battle starts under an id that still has a grace timer running.
type CancelBattleRemoval struct{ BattleID string }

func (ScheduleBattleRemoval) isEffect() {}
func (CancelBattleRemoval) isEffect()   {}

// ApplyGameStarted installs the roster, unless one is already known from
// session creation; replaying it against a populated roster is a no-op.
func ApplyGameStarted(s State, ev types.GameStarted) State {
	if len(s.Agents) > 0 {
		return s
	}
	agents := make([]Agent, 0, len(ev.Agents))
	for _, a := range ev.Agents {
		agents = append(agents, agentFromWire(a))
	}
	s.Agents = agents
	return s
}

// ApplyRoundStarted installs a new current round and flips every matchup
// participant to battling. A bye agent never battles. If the previous round's
// end event was missed, it is retired to history here.
func ApplyRoundStarted(s State, ev types.RoundStarted) State {
	if s.CurrentRound != nil && s.CurrentRound.Number == ev.RoundNumber {
		return s
	}
	if s.CurrentRound != nil {
		s = retireCurrentRound(s)
	}

	matchups := make([]Matchup, 0, len(ev.Matchups))
	for _, m := range ev.Matchups {
		matchups = append(matchups, Matchup{
			Agent1ID: m.Agent1ID,
			Agent2ID: m.Agent2ID,
			Status:   MatchupPending,
		})
	}
	s.CurrentRound = &Round{
		Number:     ev.RoundNumber,
		Matchups:   matchups,
		Status:     RoundInProgress,
		ByeAgentID: ev.ByeAgentID,
	}

	agents := cloneAgents(s.Agents)
	for i := range agents {
		if agents[i].Status == StatusEliminated {
			continue
		}
		for _, m := range matchups {
			if m.Has(agents[i].ID) {
				agents[i].Status = StatusBattling
				break
			}
		}
	}
	s.Agents = agents
	s.ActiveBattles = nil
	return s
}

// ApplyBattleStarted adds a battle to the active set and marks the owning
// matchup in progress. Agents the roster has never seen are synthesized
// rather than rejected; roster completeness is not guaranteed to precede
// battle events. Starting a battle cancels any stale removal timer for the
// same id.
func ApplyBattleStarted(s State, ev types.BattleStarted) (State, []Effect) {
	s.Agents = upsertAgent(s.Agents, ev.Agent1ID)
	s.Agents = upsertAgent(s.Agents, ev.Agent2ID)
	s.Agents = setStatusUnlessEliminated(s.Agents, ev.Agent1ID, StatusBattling)
	s.Agents = setStatusUnlessEliminated(s.Agents, ev.Agent2ID, StatusBattling)

	battle := Battle{
		ID:       ev.BattleID,
		Agent1ID: ev.Agent1ID,
		Agent2ID: ev.Agent2ID,
		Status:   BattleInProgress,
	}

	battles := cloneBattles(s.ActiveBattles)
	replaced := false
	for i := range battles {
		if battles[i].ID == ev.BattleID {
			battles[i] = battle
			replaced = true
			break
		}
	}
	if !replaced {
		battles = append(battles, battle)
	}
	s.ActiveBattles = battles

	round := cloneRound(s.CurrentRound)
	if round != nil {
		attached := false
		for i := range round.Matchups {
			if round.Matchups[i].Has(ev.Agent1ID) && round.Matchups[i].Has(ev.Agent2ID) {
				round.Matchups[i].Status = MatchupInProgress
				round.Matchups[i].BattleID = ev.BattleID
				attached = true
				break
			}
		}
		if !attached {
			// round-started was missed for this pairing
			round.Matchups = append(round.Matchups, Matchup{
				Agent1ID: ev.Agent1ID,
				Agent2ID: ev.Agent2ID,
				Status:   MatchupInProgress,
				BattleID: ev.BattleID,
			})
		}
		s.CurrentRound = round
	}

	return s, []Effect{CancelBattleRemoval{BattleID: ev.BattleID}}
}

// ApplyTurnCompleted appends a turn to its battle and applies the damage to
// the turn loser's battle HP, floored at zero. Turns for unknown battles and
// replays of already-recorded turn numbers are dropped.
func ApplyTurnCompleted(s State, ev types.TurnCompleted) State {
	battles := cloneBattles(s.ActiveBattles)
	idx := -1
	for i := range battles {
		if battles[i].ID == ev.BattleID {
			idx = i
			break
		}
	}
	if idx < 0 || battles[idx].Status != BattleInProgress {
		return s
	}

	b := battles[idx]
	if len(b.Turns) > 0 && ev.Turn.TurnNumber <= b.Turns[len(b.Turns)-1].Number {
		return s
	}

	turns := make([]Turn, len(b.Turns), len(b.Turns)+1)
	copy(turns, b.Turns)
	b.Turns = append(turns, turnFromWire(ev.Turn))
	battles[idx] = b
	s.ActiveBattles = battles

	if ev.Turn.Damage > 0 && ev.Turn.LoserID != "" {
		agents := cloneAgents(s.Agents)
		for i := range agents {
			if agents[i].ID == ev.Turn.LoserID {
				agents[i].BattleHP = max(0, agents[i].BattleHP-ev.Turn.Damage)
				break
			}
		}
		s.Agents = agents
	}
	return s
}

// ApplyBattleEnded settles a battle: winner and loser recorded, both sides'
// battle HP reset, the loser's global HP reduced and elimination applied at
// zero, the owning matchup completed. The battle stays in the active set; a
// ScheduleBattleRemoval effect retires it after the display grace. Replays
// against an already-ended battle are no-ops.
func ApplyBattleEnded(s State, ev types.BattleEnded) (State, []Effect) {
	battles := cloneBattles(s.ActiveBattles)
	idx := -1
	for i := range battles {
		if battles[i].ID == ev.BattleID {
			idx = i
			break
		}
	}
	if idx < 0 || battles[idx].Status == BattleEnded {
		return s, nil
	}

	b := battles[idx]
	b.Status = BattleEnded
	b.WinnerID = ev.WinnerID
	b.LoserID = ev.LoserID
	battles[idx] = b
	s.ActiveBattles = battles

	history := cloneBattles(s.BattleHistory)
	s.BattleHistory = append(history, b)

	agents := cloneAgents(s.Agents)
	for i := range agents {
		switch agents[i].ID {
		case ev.WinnerID:
			agents[i].BattleHP = agents[i].MaxBattleHP
			if agents[i].Status != StatusEliminated {
				agents[i].Status = StatusActive
			}
		case ev.LoserID:
			agents[i].BattleHP = agents[i].MaxBattleHP
			agents[i].GlobalHP = max(0, agents[i].GlobalHP-ev.GlobalHPLost)
			if agents[i].GlobalHP <= 0 {
				if agents[i].Status != StatusEliminated {
					s.EliminationOrder = appendElimination(s.EliminationOrder, agents[i].ID)
				}
				agents[i].Status = StatusEliminated
			} else {
				agents[i].Status = StatusActive
			}
		}
	}
	s.Agents = agents

	round := cloneRound(s.CurrentRound)
	if round != nil {
		for i := range round.Matchups {
			if round.Matchups[i].BattleID == ev.BattleID ||
				(round.Matchups[i].Has(ev.WinnerID) && round.Matchups[i].Has(ev.LoserID)) {
				round.Matchups[i].Status = MatchupCompleted
				round.Matchups[i].WinnerID = ev.WinnerID
				break
			}
		}
		s.CurrentRound = round
	}

	return s, []Effect{ScheduleBattleRemoval{BattleID: ev.BattleID}}
}

// RemoveBattle drops a battle from the active set. This is the grace timer's
// callback, never part of ApplyBattleEnded itself.
func RemoveBattle(s State, battleID string) State {
	battles := make([]Battle, 0, len(s.ActiveBattles))
	for _, b := range s.ActiveBattles {
		if b.ID != battleID {
			battles = append(battles, b)
		}
	}
	s.ActiveBattles = battles
	return s
}

// ApplyRoundEnded retires the current round to history. Any agent still
// marked battling reverts to active; that only happens when a battle's end
// event was missed.
func ApplyRoundEnded(s State, ev types.RoundEnded) State {
	if s.CurrentRound == nil {
		return s
	}
	if ev.RoundNumber != 0 && s.CurrentRound.Number != ev.RoundNumber {
		return s
	}
	return retireCurrentRound(s)
}

// ApplyAgentEliminated force-sets the agent to eliminated with the reported
// global HP. Idempotent for agents already out.
func ApplyAgentEliminated(s State, ev types.AgentEliminated) State {
	agents := upsertAgent(cloneAgents(s.Agents), ev.AgentID)
	for i := range agents {
		if agents[i].ID != ev.AgentID {
			continue
		}
		if agents[i].Status == StatusEliminated {
			return s
		}
		agents[i].Status = StatusEliminated
		agents[i].BattleHP = 0
		agents[i].GlobalHP = max(0, ev.GlobalHP)
		break
	}
	s.Agents = agents
	s.EliminationOrder = appendElimination(s.EliminationOrder, ev.AgentID)
	return s
}

// ApplyGameEnded records the winner and derives the final ranking: winner
// first, then the eliminated agents most recent first. Ranking comes from
// the recorded elimination order alone, never from HP.
func ApplyGameEnded(s State, ev types.GameEnded) State {
	s.WinnerID = ev.WinnerID
	s.GameOver = true

	rankings := make([]string, 0, len(s.EliminationOrder)+1)
	if ev.WinnerID != "" {
		rankings = append(rankings, ev.WinnerID)
	}
	for i := len(s.EliminationOrder) - 1; i >= 0; i-- {
		if s.EliminationOrder[i] == ev.WinnerID {
			continue
		}
		rankings = append(rankings, s.EliminationOrder[i])
	}
	s.Rankings = rankings
	return s
}

func retireCurrentRound(s State) State {
	round := cloneRound(s.CurrentRound)
	round.Status = RoundCompleted
	s.RoundHistory = append(append([]Round{}, s.RoundHistory...), *round)
	s.CurrentRound = nil

	agents := cloneAgents(s.Agents)
	for i := range agents {
		if agents[i].Status == StatusBattling {
			agents[i].Status = StatusActive
		}
	}
	s.Agents = agents
	return s
}

// upsertAgent guarantees the roster contains id, synthesizing a minimal
// record when it does not. Reducers call this instead of scattering nil
// checks.
func upsertAgent(agents []Agent, id string) []Agent {
	if id == "" {
		return agents
	}
	for _, a := range agents {
		if a.ID == id {
			return agents
		}
	}
	out := cloneAgents(agents)
	return append(out, Agent{
		ID:          id,
		Name:        id,
		BattleHP:    DefaultBattleHP,
		MaxBattleHP: DefaultBattleHP,
		GlobalHP:    DefaultGlobalHP,
		MaxGlobalHP: DefaultGlobalHP,
		Status:      StatusActive,
	})
}

func setStatusUnlessEliminated(agents []Agent, id string, status AgentStatus) []Agent {
	out := cloneAgents(agents)
	for i := range out {
		if out[i].ID == id && out[i].Status != StatusEliminated {
			out[i].Status = status
		}
	}
	return out
}

func appendElimination(order []string, id string) []string {
	for _, existing := range order {
		if existing == id {
			return order
		}
	}
	return append(cloneStrings(order), id)
}

func agentFromWire(a types.AgentInfo) Agent {
	status := AgentStatus(a.Status)
	switch status {
	case StatusActive, StatusBattling, StatusEliminated:
	default:
		status = StatusActive
	}
	return Agent{
		ID:          a.ID,
		Name:        a.Name,
		AvatarEmoji: a.AvatarEmoji,
		Catchphrase: a.Catchphrase,
		BattleHP:    a.BattleHP,
		MaxBattleHP: a.MaxBattleHP,
		GlobalHP:    a.GlobalHP,
		MaxGlobalHP: a.MaxGlobalHP,
		Status:      status,
	}
}

func turnFromWire(t types.TurnInfo) Turn {
	turn := Turn{
		Number:   t.TurnNumber,
		Damage:   t.Damage,
		WinnerID: t.WinnerID,
		LoserID:  t.LoserID,
	}
	for _, arg := range t.Arguments {
		turn.Arguments = append(turn.Arguments, Argument{AgentID: arg.AgentID, Text: arg.Text})
	}
	for _, v := range t.Votes {
		turn.Votes = append(turn.Votes, JudgeVote{
			JudgeID:   v.JudgeID,
			JudgeName: v.JudgeName,
			VotedFor:  v.VotedFor,
			Reaction:  v.Reaction,
			Reasoning: v.Reasoning,
		})
	}
	return turn
}
