package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/overkillhq/arena-client/internal/config"
	"github.com/overkillhq/arena-client/internal/simserver"
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

	srv := simserver.New(simserver.Options{
		StepDelay: 500 * time.Millisecond,
		Logger:    log,
	})

	log.Info("simulated tournament server listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Routes()); err != nil {
		log.Fatal("serve", zap.Error(err))
	}
}
