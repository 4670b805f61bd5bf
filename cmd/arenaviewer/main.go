// Command arenaviewer runs a headless tournament session against a server
// (the real backend or cmd/simserver) and prints the store as it evolves.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/internal/clock"
	"github.com/overkillhq/arena-client/internal/config"
	"github.com/overkillhq/arena-client/internal/httpapi"
	"github.com/overkillhq/arena-client/internal/session"
	"github.com/overkillhq/arena-client/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	st := store.New(store.Options{
		BattleRemovalGrace: cfg.BattleRemovalGrace,
		Logger:             log,
	})
	sess := session.New(cfg, st, clock.Real{}, log)
	defer sess.Close()

	done := make(chan store.Snapshot, 1)
	st.Subscribe(func(snap store.Snapshot) {
		render(snap)
		if snap.Screen == store.ScreenVictory {
			select {
			case done <- snap:
			default:
			}
		}
	})

	ctx := context.Background()
	if err := sess.Create(ctx, demoRequest()); err != nil {
		log.Fatal("create game", zap.Error(err))
	}
	if err := sess.Connect(ctx); err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	if err := sess.StartGame(ctx); err != nil {
		log.Fatal("start game", zap.Error(err))
	}

	select {
	case final := <-done:
		fmt.Println("\nfinal rankings:")
		for i, id := range final.State.Rankings {
			name := id
			if a, ok := final.State.Agent(id); ok {
				name = a.Name
			}
			fmt.Printf("  %d. %s\n", i+1, name)
		}
	case <-time.After(10 * time.Minute):
		log.Error("tournament never finished")
		os.Exit(1)
	}
}

func render(snap store.Snapshot) {
	fmt.Printf("[v%d] %s screen=%s", snap.Version, snap.Connection, snap.Screen)
	if snap.State.CurrentRound != nil {
		fmt.Printf(" round=%d", snap.State.CurrentRound.Number)
	}
	fmt.Printf(" alive=%d battles=%d", len(snap.State.AliveAgents()), len(snap.State.ActiveBattles))
	if snap.LastError != "" {
		fmt.Printf(" error=%q", snap.LastError)
	}
	fmt.Println()
}

func demoRequest() httpapi.CreateGameRequest {
	return httpapi.CreateGameRequest{
		Background: "which text editor should the team standardize on",
		Choices: []httpapi.ChoiceInput{
			{ID: "vim", Name: "Vim"},
			{ID: "emacs", Name: "Emacs"},
			{ID: "vscode", Name: "VS Code"},
			{ID: "helix", Name: "Helix"},
			{ID: "nano", Name: "Nano"},
		},
		Judges: []httpapi.JudgeInput{
			{ID: "judge-1", Name: "The Pragmatist", Personality: "cares about shipping"},
			{ID: "judge-2", Name: "The Purist", Personality: "cares about elegance"},
		},
	}
}
