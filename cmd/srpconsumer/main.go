package main

import (
	"context"
	"killsrp"
	"killsrp/feed"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const GroupID = "killsrp:srpconsumer"
const ConsumerID = "any"

// srpconsumer stands in for the request storage layer: it takes every
// normalized killmail off the stream and logs the fields a request would be
// initialized from.
func main() {
	ctx := context.Background()

	config, err := killsrp.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read config")
	}

	killsrp.SetupLogging(zerolog.DebugLevel)

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisURL})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	defer rdb.Close()

	if err := feed.EnsureGroup(ctx, rdb, feed.StreamKillmails, GroupID, ConsumerID); err != nil {
		log.Fatal().Err(err).Msg("failed to join killmail group")
	}

	args := &redis.XReadGroupArgs{
		Group:    GroupID,
		Consumer: ConsumerID,
		Streams:  []string{feed.StreamKillmails, ">"},
		Count:    1,
		Block:    0,
		NoAck:    true,
	}

	for {
		responses, err := rdb.XReadGroup(ctx, args).Result()
		if err != nil {
			log.Error().Err(err).Msg("failed to read stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, response := range responses {
			for _, message := range response.Messages {
				entry, err := feed.DecodeEntry(message)
				if err != nil {
					log.Error().Str("message-id", message.ID).Err(err).Msg("failed to decode stream message")
					continue
				}

				event := log.Info().Str("message-id", message.ID).Str("submission-id", entry.SubmissionID)
				for name, value := range entry.Record.All() {
					event = event.Interface(name, value)
				}
				event.Msg(entry.Record.String())
			}
		}
	}
}
