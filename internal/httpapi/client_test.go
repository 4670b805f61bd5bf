package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/game/create", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateGameRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Choices, 2)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"game_id": "g-42",
			"status":  "created",
			"agents": []map[string]any{
				{"id": "a1", "name": "Pizza", "battle_hp": 50, "max_battle_hp": 50, "global_hp": 100, "max_global_hp": 100},
			},
			"judges": []map[string]any{
				{"id": "j1", "game_id": "g-42", "name": "Judy", "personality": "sarcastic"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	resp, err := c.CreateGame(context.Background(), CreateGameRequest{
		Background: "dinner debate",
		Choices: []ChoiceInput{
			{ID: "c1", Description: "pizza"},
			{ID: "c2", Description: "sushi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "g-42", resp.GameID)
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "Pizza", resp.Agents[0].Name)
	require.Len(t, resp.Judges, 1)
	assert.Equal(t, "sarcastic", resp.Judges[0].Personality)
}

func TestCreateGameRejectsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "created"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).CreateGame(context.Background(), CreateGameRequest{})
	assert.ErrorContains(t, err, "game_id")
}

func TestStartGameStatusHandling(t *testing.T) {
	var path string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	require.NoError(t, c.StartGame(context.Background(), "g-42"))
	assert.Equal(t, "/game/g-42/start", path)

	status = http.StatusInternalServerError
	assert.Error(t, c.StartGame(context.Background(), "g-42"))
}

func TestGameState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/game/g-42/state", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"running"}`))
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL, nil).GameState(context.Background(), "g-42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"running"}`, string(raw))
}
