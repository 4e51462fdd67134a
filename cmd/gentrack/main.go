package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ferreiragah-dev/gentrack/pkg/api"
	"github.com/ferreiragah-dev/gentrack/pkg/clock"
	"github.com/ferreiragah-dev/gentrack/pkg/config"
	"github.com/ferreiragah-dev/gentrack/pkg/incident"
	"github.com/ferreiragah-dev/gentrack/pkg/logging"
	"github.com/ferreiragah-dev/gentrack/pkg/metrics"
	"github.com/ferreiragah-dev/gentrack/pkg/prober"
	"github.com/ferreiragah-dev/gentrack/pkg/scheduler"
	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

func main() {
	logger := logging.Init(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info().Msg("starting gentrack")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	s, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer s.Close()

	c := clock.Real{}
	p := prober.New(c)
	eng := incident.New()
	m := metrics.New()

	pollInterval := time.Duration(cfg.PollSeconds) * time.Second
	sch := scheduler.New(s, p, eng, c, m, logger, pollInterval)
	sch.Start()
	logger.Info().Int("poll_seconds", cfg.PollSeconds).Msg("scheduler started")

	staticDir := os.Getenv("GENTRACK_STATIC_DIR")
	if staticDir == "" {
		staticDir = "./static"
	}
	router := api.NewRouter(s, sch, m, logger, staticDir)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Info().Str("addr", addr).Msg("http server starting")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}
