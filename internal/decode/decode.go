// Package decode is the only place wire payloads are parsed and validated.
// Anything malformed stops here; reducers never see a bad shape.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/overkillhq/arena-client/pkg/types"
)

var (
	ErrUnknownType = errors.New("unknown event type")
	ErrBadPayload  = errors.New("malformed payload")
)

// Envelope parses the outer frame. Data may be empty for events that carry
// no payload.
func Envelope(frame []byte) (types.Envelope, error) {
	var env types.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return types.Envelope{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if env.Type == "" {
		return types.Envelope{}, fmt.Errorf("%w: missing type", ErrBadPayload)
	}
	return env, nil
}

// Event decodes a payload for the given inbound event type. The returned
// value is one of the pkg/types payload structs.
func Event(eventType string, data json.RawMessage) (any, error) {
	switch eventType {
	case types.EventGameStarted:
		return GameStarted(data)
	case types.EventRoundStarted:
		return RoundStarted(data)
	case types.EventBattleStarted:
		return BattleStarted(data)
	case types.EventTurnCompleted:
		return TurnCompleted(data)
	case types.EventBattleEnded:
		return BattleEnded(data)
	case types.EventRoundEnded:
		return RoundEnded(data)
	case types.EventAgentEliminated:
		return AgentEliminated(data)
	case types.EventGameEnded:
		return GameEnded(data)
	case types.EventError:
		return ServerError(data)
	case types.EventConnectionEstablished:
		return struct{}{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, eventType)
	}
}

func GameStarted(data json.RawMessage) (types.GameStarted, error) {
	var ev types.GameStarted
	if err := unmarshal(data, &ev); err != nil {
		return types.GameStarted{}, err
	}
	for i, a := range ev.Agents {
		if a.ID == "" {
			return types.GameStarted{}, fmt.Errorf("%w: agent %d missing id", ErrBadPayload, i)
		}
	}
	return ev, nil
}

func RoundStarted(data json.RawMessage) (types.RoundStarted, error) {
	var ev types.RoundStarted
	if err := unmarshal(data, &ev); err != nil {
		return types.RoundStarted{}, err
	}
	if ev.RoundNumber < 1 {
		return types.RoundStarted{}, fmt.Errorf("%w: round_number %d", ErrBadPayload, ev.RoundNumber)
	}
	seen := map[string]bool{}
	for i, m := range ev.Matchups {
		if m.Agent1ID == "" || m.Agent2ID == "" {
			return types.RoundStarted{}, fmt.Errorf("%w: matchup %d missing agent id", ErrBadPayload, i)
		}
		if m.Agent1ID == m.Agent2ID {
			return types.RoundStarted{}, fmt.Errorf("%w: matchup %d pairs %q with itself", ErrBadPayload, i, m.Agent1ID)
		}
		for _, id := range []string{m.Agent1ID, m.Agent2ID} {
			if seen[id] {
				return types.RoundStarted{}, fmt.Errorf("%w: agent %q in two matchups", ErrBadPayload, id)
			}
			seen[id] = true
		}
	}
	if ev.ByeAgentID != "" && seen[ev.ByeAgentID] {
		return types.RoundStarted{}, fmt.Errorf("%w: bye agent %q also in a matchup", ErrBadPayload, ev.ByeAgentID)
	}
	return ev, nil
}

func BattleStarted(data json.RawMessage) (types.BattleStarted, error) {
	var ev types.BattleStarted
	if err := unmarshal(data, &ev); err != nil {
		return types.BattleStarted{}, err
	}
	if ev.BattleID == "" || ev.Agent1ID == "" || ev.Agent2ID == "" {
		return types.BattleStarted{}, fmt.Errorf("%w: battle-started missing id", ErrBadPayload)
	}
	if ev.Agent1ID == ev.Agent2ID {
		return types.BattleStarted{}, fmt.Errorf("%w: battle pairs %q with itself", ErrBadPayload, ev.Agent1ID)
	}
	return ev, nil
}

func TurnCompleted(data json.RawMessage) (types.TurnCompleted, error) {
	var ev types.TurnCompleted
	if err := unmarshal(data, &ev); err != nil {
		return types.TurnCompleted{}, err
	}
	if ev.BattleID == "" {
		return types.TurnCompleted{}, fmt.Errorf("%w: turn-completed missing battle_id", ErrBadPayload)
	}
	if ev.Turn.TurnNumber < 1 {
		return types.TurnCompleted{}, fmt.Errorf("%w: turn_number %d", ErrBadPayload, ev.Turn.TurnNumber)
	}
	if ev.Turn.Damage < 0 {
		return types.TurnCompleted{}, fmt.Errorf("%w: negative damage %d", ErrBadPayload, ev.Turn.Damage)
	}
	return ev, nil
}

func BattleEnded(data json.RawMessage) (types.BattleEnded, error) {
	var ev types.BattleEnded
	if err := unmarshal(data, &ev); err != nil {
		return types.BattleEnded{}, err
	}
	if ev.BattleID == "" || ev.WinnerID == "" || ev.LoserID == "" {
		return types.BattleEnded{}, fmt.Errorf("%w: battle-ended missing id", ErrBadPayload)
	}
	if ev.GlobalHPLost < 0 {
		return types.BattleEnded{}, fmt.Errorf("%w: negative global_hp_lost %d", ErrBadPayload, ev.GlobalHPLost)
	}
	return ev, nil
}

func RoundEnded(data json.RawMessage) (types.RoundEnded, error) {
	var ev types.RoundEnded
	if err := unmarshal(data, &ev); err != nil {
		return types.RoundEnded{}, err
	}
	return ev, nil
}

func AgentEliminated(data json.RawMessage) (types.AgentEliminated, error) {
	var ev types.AgentEliminated
	if err := unmarshal(data, &ev); err != nil {
		return types.AgentEliminated{}, err
	}
	if ev.AgentID == "" {
		return types.AgentEliminated{}, fmt.Errorf("%w: agent-eliminated missing agent_id", ErrBadPayload)
	}
	return ev, nil
}

func GameEnded(data json.RawMessage) (types.GameEnded, error) {
	var ev types.GameEnded
	if err := unmarshal(data, &ev); err != nil {
		return types.GameEnded{}, err
	}
	if ev.WinnerID == "" {
		return types.GameEnded{}, fmt.Errorf("%w: game-ended missing winner_id", ErrBadPayload)
	}
	return ev, nil
}

func ServerError(data json.RawMessage) (types.ServerError, error) {
	var ev types.ServerError
	if err := unmarshal(data, &ev); err != nil {
		return types.ServerError{}, err
	}
	if ev.Message == "" {
		ev.Message = "unknown server error"
	}
	return ev, nil
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrBadPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}
