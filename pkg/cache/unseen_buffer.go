package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trivgame/qcache/pkg/models"
)

// Buffer is the per-user, per-category queue of questions that were fetched
// from the store but not yet delivered to the client. It is advisory only:
// losing buffer content can never double-serve a question, because store reads
// filter against the user's consumption ledger.
type Buffer interface {
	// PopUpTo atomically removes and returns up to count questions for the
	// given user and category, oldest first. Concurrent callers never observe
	// overlapping slices.
	PopUpTo(ctx context.Context, userID, category string, count int) ([]models.Question, error)

	// Append enqueues questions at the tail of the user's buffer for their
	// category, preserving arrival order.
	Append(ctx context.Context, userID string, questions []models.Question) error
}

// UnseenBuffer implements Buffer on Redis lists. Each (user, category) pair
// maps to one list of JSON-encoded question snapshots.
type UnseenBuffer struct {
	client *redis.Client
	logger *zap.Logger
}

// NewUnseenBuffer creates a Redis-backed unseen buffer.
func NewUnseenBuffer(client *redis.Client, logger *zap.Logger) *UnseenBuffer {
	return &UnseenBuffer{
		client: client,
		logger: logger.Named("unseen-buffer"),
	}
}

var _ Buffer = (*UnseenBuffer)(nil)

func bufferKey(userID, category string) string {
	return fmt.Sprintf("unseen:%s:%s", userID, category)
}

// PopUpTo issues LRANGE and LTRIM as a single MULTI/EXEC transaction, so the
// read and the trim cannot interleave with another caller's.
func (b *UnseenBuffer) PopUpTo(ctx context.Context, userID, category string, count int) ([]models.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	key := bufferKey(userID, category)

	var rangeCmd *redis.StringSliceCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, key, 0, int64(count-1))
		pipe.LTrim(ctx, key, int64(count), -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pop from unseen buffer: %w", err)
	}

	raw := rangeCmd.Val()
	questions := make([]models.Question, 0, len(raw))
	for _, payload := range raw {
		var q models.Question
		if err := json.Unmarshal([]byte(payload), &q); err != nil {
			// A corrupt entry is dropped; the store remains the source of truth.
			b.logger.Warn("Dropping malformed buffer entry",
				zap.String("user_id", userID),
				zap.String("category", category),
				zap.Error(err))
			continue
		}
		questions = append(questions, q)
	}

	return questions, nil
}

// Append RPUSHes question snapshots grouped by category. Questions for
// multiple categories may be passed in one call.
func (b *UnseenBuffer) Append(ctx context.Context, userID string, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range questions {
			payload, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("encode question %q: %w", q.ID, err)
			}
			pipe.RPush(ctx, bufferKey(userID, q.Category), payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append to unseen buffer: %w", err)
	}

	return nil
}
