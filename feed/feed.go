// Package feed moves killmail submissions and normalized records through
// Redis streams.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"killsrp/killmail"
)

const (
	StreamSubmissions = "killsrp:submissions"
	StreamKillmails   = "killsrp:killmails"
	StreamMaxLength   = 10000

	cursorTTL = 24 * time.Hour
)

// Submission is a request to normalize url with the adapter for source.
type Submission struct {
	ID     string
	Source killmail.Source
	URL    string
}

func NewSubmission(source killmail.Source, url string) Submission {
	return Submission{ID: uuid.NewString(), Source: source, URL: url}
}

// Entry is a normalized record as carried on the killmail stream.
type Entry struct {
	MessageID    string
	SubmissionID string
	Record       killmail.Record
}

func EnqueueSubmission(ctx context.Context, rdb redis.Cmdable, s Submission) error {
	args := &redis.XAddArgs{
		Stream: StreamSubmissions,
		ID:     "*",
		MaxLen: StreamMaxLength,
		Approx: true,
		Values: map[string]any{
			"submission_id": s.ID,
			"source":        string(s.Source),
			"url":           s.URL,
		},
	}

	if err := rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add submission to queue: %w", err)
	}

	return nil
}

func PublishRecord(ctx context.Context, rdb redis.Cmdable, submissionID string, record killmail.Record) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode killmail: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: StreamKillmails,
		ID:     "*",
		MaxLen: StreamMaxLength,
		Approx: true,
		Values: map[string]any{
			"killmail":      string(encoded),
			"submission_id": submissionID,
		},
	}

	if err := rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add killmail to stream: %w", err)
	}

	return nil
}

func DecodeSubmission(message redis.XMessage) (Submission, error) {
	id, _ := message.Values["submission_id"].(string)
	source, _ := message.Values["source"].(string)
	url, _ := message.Values["url"].(string)

	if id == "" || url == "" {
		return Submission{}, fmt.Errorf("invalid submission message %s", message.ID)
	}

	parsed, err := killmail.ParseSource(source)
	if err != nil {
		return Submission{}, fmt.Errorf("invalid submission message %s: %w", message.ID, err)
	}

	return Submission{ID: id, Source: parsed, URL: url}, nil
}

func DecodeEntry(message redis.XMessage) (Entry, error) {
	encoded, ok := message.Values["killmail"].(string)
	if !ok {
		return Entry{}, fmt.Errorf("invalid killmail message %s", message.ID)
	}

	var record killmail.Record
	if err := json.Unmarshal([]byte(encoded), &record); err != nil {
		return Entry{}, fmt.Errorf("failed to decode killmail message %s: %w", message.ID, err)
	}

	submissionID, _ := message.Values["submission_id"].(string)

	return Entry{MessageID: message.ID, SubmissionID: submissionID, Record: record}, nil
}

// ReadEntries reads up to count records after the reader's stored cursor and
// advances it. A reader without a cursor starts at new messages only. block
// of zero waits forever.
func ReadEntries(ctx context.Context, rdb redis.Cmdable, cursorKey string, count int64, block time.Duration) ([]Entry, error) {
	latestID, err := rdb.Get(ctx, cursorKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get latest ID from redis: %w", err)
	}

	if latestID == "" {
		latestID = "$"
	}

	entries := []Entry{}

	args := &redis.XReadArgs{
		ID:      latestID,
		Streams: []string{StreamKillmails},
		Count:   count,
		Block:   block,
	}

	streams, err := rdb.XRead(ctx, args).Result()
	if err == redis.Nil {
		return entries, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read from redis stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			latestID = message.ID

			entry, err := DecodeEntry(message)
			if err != nil {
				return nil, err
			}

			entries = append(entries, entry)
		}
	}

	if err := rdb.Set(ctx, cursorKey, latestID, cursorTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store latest ID to redis: %w", err)
	}

	return entries, nil
}

// EnsureGroup creates a consumer group and consumer on stream, tolerating an
// existing group.
func EnsureGroup(ctx context.Context, rdb redis.Cmdable, stream string, group string, consumer string) error {
	if err := rdb.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	if err := rdb.XGroupCreateConsumer(ctx, stream, group, consumer).Err(); err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	return nil
}

var ErrNoCursor = errors.New("empty cursor key")

// CursorKey names the per-reader cursor for a queue ID under a prefix.
func CursorKey(prefix string, queueID string) (string, error) {
	if queueID == "" {
		return "", ErrNoCursor
	}
	return fmt.Sprintf("stream:%s:%s", prefix, queueID), nil
}
