package main

import (
	"context"
	"fmt"
	"killsrp"
	"net/http"
	"time"

	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx := context.Background()

	config, err := killsrp.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read config")
	}

	killsrp.SetupLogging(config.LogLevel)

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisURL})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	defer rdb.Close()

	pipeline, err := config.Pipeline(config.FetchClient())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up killmail pipeline")
	}

	m := melody.New()

	// No limit on messages
	m.Config.MaxMessageSize = 0
	m.Config.WriteWait = 5 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		queueID := s.Keys["queueID"].(string)

		log.Info().Str("queueID", queueID).Msg("new websocket connection")

		go handleWebsocket(s.Request.Context(), log.With().Str("queue-id", queueID).Logger(), rdb, s, queueID)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		queueID := s.Keys["queueID"].(string)

		log.Info().Str("queueID", queueID).Msg("closed websocket connection")
	})

	r := newServer(pipeline, rdb, m).routes()

	log.Info().Int("port", config.Port).Str("ship-names", config.ShipNameSource).Msg("http server listening")

	srv := &http.Server{Addr: fmt.Sprintf(":%d", config.Port), Handler: r}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http listener failed")
	}
}
