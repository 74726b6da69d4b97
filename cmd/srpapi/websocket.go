package main

import (
	"context"
	"errors"
	"killsrp/feed"

	json "github.com/goccy/go-json"
	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// handleWebsocket streams new killmail records to s until the client leaves.
func handleWebsocket(ctx context.Context, logger zerolog.Logger, rdb redis.Cmdable, s *melody.Session, queueID string) {
	cursorKey, err := feed.CursorKey("websocket", queueID)
	if err != nil {
		_ = s.CloseWithMsg(melody.FormatCloseMessage(melody.ClosePolicyViolation, "missing queue ID"))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		default:
			entries, err := feed.ReadEntries(ctx, rdb, cursorKey, 10, 0)
			if err != nil {
				if errors.Is(err, context.Canceled) && s.IsClosed() {
					return
				}

				logger.Error().Err(err).Msg("failed to fetch websocket killmails")
				if err := s.CloseWithMsg(melody.FormatCloseMessage(melody.CloseInternalServerErr, "internal server error")); err != nil {
					logger.Error().Err(err).Msg("failed to close websocket after fetch error")
				}

				return
			}

			for _, entry := range entries {
				payload, err := json.Marshal(entry.Record)
				if err != nil {
					logger.Error().Err(err).Str("message-id", entry.MessageID).Msg("failed to encode killmail")
					continue
				}

				if err := s.Write(payload); err != nil {
					logger.Error().Err(err).Msg("failed to write to websocket")
					if err := s.CloseWithMsg(melody.FormatCloseMessage(melody.CloseAbnormalClosure, "write failed")); err != nil {
						logger.Error().Err(err).Msg("failed to close websocket after write error")
					}
					return
				}
			}
		}
	}
}
