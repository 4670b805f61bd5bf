// Package httpapi is the session-bootstrap boundary: one REST exchange that
// creates a game and hands back the session id the websocket address is
// derived from. Everything live happens over the socket, not here.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/pkg/types"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type ChoiceInput struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Name        string `json:"name,omitempty"`
}

type JudgeInput struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Personality  string `json:"personality"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

type CreateGameRequest struct {
	Background string        `json:"background"`
	Choices    []ChoiceInput `json:"choices"`
	Judges     []JudgeInput  `json:"judges"`
}

type JudgeInit struct {
	ID           string `json:"id"`
	GameID       string `json:"game_id"`
	Name         string `json:"name"`
	AvatarEmoji  string `json:"avatar_emoji"`
	Personality  string `json:"personality"`
	ScoringStyle string `json:"scoring_style,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

type CreateGameResponse struct {
	GameID string            `json:"game_id"`
	Status string            `json:"status"`
	Agents []types.AgentInfo `json:"agents"`
	Judges []JudgeInit       `json:"judges"`
}

// CreateGame sets up a session and returns the initial roster and judges.
func (c *Client) CreateGame(ctx context.Context, req CreateGameRequest) (CreateGameResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return CreateGameResponse{}, fmt.Errorf("marshal create-game request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/game/create", bytes.NewReader(body))
	if err != nil {
		return CreateGameResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CreateGameResponse{}, fmt.Errorf("create game: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return CreateGameResponse{}, fmt.Errorf("create game: unexpected status %s", resp.Status)
	}

	var out CreateGameResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CreateGameResponse{}, fmt.Errorf("decode create-game response: %w", err)
	}
	if out.GameID == "" {
		return CreateGameResponse{}, fmt.Errorf("create game: response missing game_id")
	}
	c.log.Info("game created", zap.String("game_id", out.GameID), zap.Int("agents", len(out.Agents)))
	return out, nil
}

// StartGame kicks off the tournament for an existing session.
func (c *Client) StartGame(ctx context.Context, gameID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/game/%s/start", c.baseURL, gameID), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("start game: unexpected status %s", resp.Status)
	}
	return nil
}

// GameState fetches the server's current projection, useful after a
// reconnect to verify the stream caught the store up.
func (c *Client) GameState(ctx context.Context, gameID string) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/game/%s/state", c.baseURL, gameID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get game state: unexpected status %s", resp.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return raw, nil
}
