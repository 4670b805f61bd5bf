package engine

type AgentStatus string

const (
	StatusActive     AgentStatus = "active"
	StatusBattling   AgentStatus = "battling"
	StatusEliminated AgentStatus = "eliminated"
)

type RoundStatus string

const (
	RoundPending    RoundStatus = "pending"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

type MatchupStatus string

const (
	MatchupPending    MatchupStatus = "pending"
	MatchupInProgress MatchupStatus = "in_progress"
	MatchupCompleted  MatchupStatus = "completed"
)

type BattleStatus string

const (
	BattleInProgress BattleStatus = "in_progress"
	BattleEnded      BattleStatus = "ended"
)

// Default stats for agents synthesized from a battle event that names an id
// the roster has never seen. Real rosters carry server-assigned values.
const (
	DefaultBattleHP = 100
	DefaultGlobalHP = 100
)

// Agent is one competing entity. BattleHP resets to MaxBattleHP after every
// battle it fights; GlobalHP only ever decreases, and hitting zero is a
// permanent elimination.
type Agent struct {
	ID          string
	Name        string
	AvatarEmoji string
	Catchphrase string
	BattleHP    int
	MaxBattleHP int
	GlobalHP    int
	MaxGlobalHP int
	Status      AgentStatus
}

// Matchup pairs two distinct agents within a round. It gains a BattleID when
// its battle starts and a WinnerID when it ends.
type Matchup struct {
	Agent1ID string
	Agent2ID string
	Status   MatchupStatus
	BattleID string
	WinnerID string
}

func (m Matchup) Has(agentID string) bool {
	return m.Agent1ID == agentID || m.Agent2ID == agentID
}

// Round is one elimination stage. ByeAgentID is set iff the eligible roster
// entering the round was odd; the bye agent sits the round out unharmed.
type Round struct {
	Number     int
	Matchups   []Matchup
	Status     RoundStatus
	ByeAgentID string
}

type Argument struct {
	AgentID string
	Text    string
}

type JudgeVote struct {
	JudgeID   string
	JudgeName string
	VotedFor  string
	Reaction  string
	Reasoning string
}

// Turn is immutable once appended to a battle.
type Turn struct {
	Number    int
	Arguments []Argument
	Votes     []JudgeVote
	Damage    int
	WinnerID  string
	LoserID   string
}

// Battle is the multi-turn contest backing one matchup. It stays in the
// active set for a display-grace interval after ending; removal is a timer's
// job, never a reducer's.
type Battle struct {
	ID       string
	Agent1ID string
	Agent2ID string
	Turns    []Turn
	Status   BattleStatus
	WinnerID string
	LoserID  string
}

func (b Battle) Has(agentID string) bool {
	return b.Agent1ID == agentID || b.Agent2ID == agentID
}

// State is the full domain projection. Reducers take it by value and return a
// replacement; nothing in here is ever mutated in place.
type State struct {
	Agents       []Agent
	CurrentRound *Round
	RoundHistory []Round

	// ActiveBattles holds the current round's battles, including recently
	// ended ones awaiting their grace-interval removal.
	ActiveBattles []Battle
	BattleHistory []Battle

	// EliminationOrder records agent ids in the order their eliminations were
	// processed, earliest first. It is the sole input to final ranking.
	EliminationOrder []string

	WinnerID string
	Rankings []string
	GameOver bool
}

func NewState() State {
	return State{}
}

// Agent returns a copy of the roster entry for id.
func (s State) Agent(id string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// Battle returns a copy of the active battle with the given id.
func (s State) Battle(id string) (Battle, bool) {
	for _, b := range s.ActiveBattles {
		if b.ID == id {
			return b, true
		}
	}
	return Battle{}, false
}

// AliveAgents returns every agent not yet eliminated.
func (s State) AliveAgents() []Agent {
	var out []Agent
	for _, a := range s.Agents {
		if a.Status != StatusEliminated {
			out = append(out, a)
		}
	}
	return out
}

func (s State) EliminatedAgents() []Agent {
	var out []Agent
	for _, a := range s.Agents {
		if a.Status == StatusEliminated {
			out = append(out, a)
		}
	}
	return out
}

func cloneAgents(in []Agent) []Agent {
	out := make([]Agent, len(in))
	copy(out, in)
	return out
}

func cloneBattles(in []Battle) []Battle {
	out := make([]Battle, len(in))
	copy(out, in)
	return out
}

func cloneRound(r *Round) *Round {
	if r == nil {
		return nil
	}
	c := *r
	c.Matchups = make([]Matchup, len(r.Matchups))
	copy(c.Matchups, r.Matchups)
	return &c
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
