package types

import "encoding/json"

// Envelope is the shape of every frame on the wire, both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event types. The server owns causal ordering; the client never
// reorders. ConnectionEstablished is emitted locally by the transport on
// every successful open, it never arrives on the wire.
const (
	EventGameStarted           = "game-started"
	EventRoundStarted          = "round-started"
	EventBattleStarted         = "battle-started"
	EventTurnCompleted         = "turn-completed"
	EventBattleEnded           = "battle-ended"
	EventRoundEnded            = "round-ended"
	EventAgentEliminated       = "agent-eliminated"
	EventGameEnded             = "game-ended"
	EventError                 = "error"
	EventConnectionEstablished = "connection-established"
)

// Outbound command types.
const (
	CommandStartGame = "start-game"
)

// AgentInfo is the wire shape of a competing agent. battle_hp resets every
// battle; global_hp only ever goes down.
type AgentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarEmoji string `json:"avatar_emoji,omitempty"`
	Catchphrase string `json:"catchphrase,omitempty"`
	BattleHP    int    `json:"battle_hp"`
	MaxBattleHP int    `json:"max_battle_hp"`
	GlobalHP    int    `json:"global_hp"`
	MaxGlobalHP int    `json:"max_global_hp"`
	Status      string `json:"status,omitempty"`
}

type GameStarted struct {
	SessionID string      `json:"session_id"`
	Agents    []AgentInfo `json:"agents"`
}

type MatchupInfo struct {
	Agent1ID string `json:"agent1_id"`
	Agent2ID string `json:"agent2_id"`
}

type RoundStarted struct {
	RoundNumber int           `json:"round_number"`
	Matchups    []MatchupInfo `json:"matchups"`
	ByeAgentID  string        `json:"bye_agent_id,omitempty"`
}

type BattleStarted struct {
	BattleID    string `json:"battle_id"`
	RoundNumber int    `json:"round_number"`
	Agent1ID    string `json:"agent1_id"`
	Agent2ID    string `json:"agent2_id"`
}

type ArgumentInfo struct {
	AgentID string `json:"agent_id"`
	Text    string `json:"text"`
}

type JudgeVoteInfo struct {
	JudgeID   string `json:"judge_id"`
	JudgeName string `json:"judge_name"`
	VotedFor  string `json:"voted_for"`
	Reaction  string `json:"reaction,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

type TurnInfo struct {
	TurnNumber int             `json:"turn_number"`
	Arguments  []ArgumentInfo  `json:"arguments"`
	Votes      []JudgeVoteInfo `json:"votes"`
	Damage     int             `json:"damage"`
	WinnerID   string          `json:"winner_id"`
	LoserID    string          `json:"loser_id"`
}

type TurnCompleted struct {
	BattleID string   `json:"battle_id"`
	Turn     TurnInfo `json:"turn"`
}

type BattleEnded struct {
	BattleID     string `json:"battle_id"`
	WinnerID     string `json:"winner_id"`
	LoserID      string `json:"loser_id"`
	GlobalHPLost int    `json:"global_hp_lost"`
}

type RoundEnded struct {
	RoundNumber int `json:"round_number"`
}

type AgentEliminated struct {
	AgentID      string `json:"agent_id"`
	GlobalHP     int    `json:"global_hp"`
	EliminatedBy string `json:"eliminated_by,omitempty"`
}

type GameEnded struct {
	WinnerID     string `json:"winner_id"`
	TotalBattles int    `json:"total_battles"`
}

type ServerError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
