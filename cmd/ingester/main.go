package main

import (
	"context"
	"killsrp"
	"killsrp/feed"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const GroupID = "killsrp:ingester"

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

	consumerID, err := os.Hostname()
	if err != nil || consumerID == "" {
		consumerID = "any"
	}

	if err := feed.EnsureGroup(ctx, rdb, feed.StreamSubmissions, GroupID, consumerID); err != nil {
		log.Fatal().Err(err).Msg("failed to join submissions group")
	}

	watchSubmissions(ctx, log.With().Str("consumer", consumerID).Logger(), rdb, pipeline, consumerID)
}
