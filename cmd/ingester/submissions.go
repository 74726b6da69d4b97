package main

import (
	"context"
	"killsrp/feed"
	"killsrp/killmail"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type normalizer interface {
	Normalize(ctx context.Context, source killmail.Source, rawURL string) (killmail.Record, error)
}

func watchSubmissions(ctx context.Context, logger zerolog.Logger, rdb *redis.Client, pipeline normalizer, consumerID string) {
	args := &redis.XReadGroupArgs{
		Group:    GroupID,
		Consumer: consumerID,
		Streams:  []string{feed.StreamSubmissions, ">"},
		Count:    10,
		Block:    0,
	}

	for {
		responses, err := rdb.XReadGroup(ctx, args).Result()
		if err != nil {
			logger.Error().Err(err).Msg("failed to read submissions")

			// Sleep with context cancellation
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Second):
			}

			continue
		}

		for _, response := range responses {
			for _, message := range response.Messages {
				submission, err := feed.DecodeSubmission(message)
				if err != nil {
					logger.Error().Str("message-id", message.ID).Err(err).Msg("dropping invalid submission")
					ack(ctx, logger, rdb, message.ID)
					continue
				}

				if isSubmissionSeen(submission.Source, submission.URL) {
					logger.Debug().Str("submission-id", submission.ID).Msg("skipping duplicate submission")
					ack(ctx, logger, rdb, message.ID)
					continue
				}

				submissionLogger := logger.With().
					Str("submission-id", submission.ID).
					Str("source", string(submission.Source)).
					Logger()

				go func() {
					processSubmission(ctx, submissionLogger, rdb, pipeline, submission)
					ack(ctx, submissionLogger, rdb, message.ID)
				}()
			}
		}
	}
}

func processSubmission(ctx context.Context, logger zerolog.Logger, rdb redis.Cmdable, pipeline normalizer, submission feed.Submission) {
	record, err := pipeline.Normalize(logger.WithContext(ctx), submission.Source, submission.URL)
	if err != nil {
		if killmail.IsTransient(err) {
			forgetSubmission(submission.Source, submission.URL)
		}

		logger.Error().Err(err).Str("kind", killmail.ErrorKind(err)).Str("url", submission.URL).Msg("failed to normalize killmail")
		return
	}

	if err := feed.PublishRecord(ctx, rdb, submission.ID, record); err != nil {
		forgetSubmission(submission.Source, submission.URL)
		logger.Error().Err(err).Msg("failed to publish killmail")
		return
	}

	logger.Info().Int64("killmail-id", record.KillID()).Bool("verified", record.Verified()).Msg("ingested killmail")
}

func ack(ctx context.Context, logger zerolog.Logger, rdb redis.Cmdable, messageID string) {
	if err := rdb.XAck(ctx, feed.StreamSubmissions, GroupID, messageID).Err(); err != nil {
		logger.Error().Err(err).Str("message-id", messageID).Msg("failed to ack submission")
	}
}
