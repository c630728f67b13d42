package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trivgame/qcache/pkg/cache"
	"github.com/trivgame/qcache/pkg/models"
	"github.com/trivgame/qcache/pkg/repositories"
)

// BatchService resolves client batch requests across the unseen buffer and
// the durable store.
type BatchService interface {
	// ServeBatch returns up to the requested number of questions per
	// category, never repeating a question for the same user. Categories the
	// store cannot satisfy are shorted, not errored: a smaller batch means
	// "fewer available right now".
	ServeBatch(ctx context.Context, userID string, requests []models.CategoryCount) []models.Question

	// Downvote increments the downvote count of each question id. Repeated
	// calls compound.
	Downvote(ctx context.Context, ids []string) error
}

type batchService struct {
	buffer       cache.Buffer
	questionRepo repositories.QuestionRepository
	overFetch    int
	logger       *zap.Logger
}

// NewBatchService creates a BatchService. overFetch is the per-category store
// query size; everything beyond the client's immediate need is parked in the
// unseen buffer.
func NewBatchService(
	buffer cache.Buffer,
	questionRepo repositories.QuestionRepository,
	overFetch int,
	logger *zap.Logger,
) BatchService {
	if overFetch < 1 {
		overFetch = 1
	}
	return &batchService{
		buffer:       buffer,
		questionRepo: questionRepo,
		overFetch:    overFetch,
		logger:       logger.Named("batch-service"),
	}
}

var _ BatchService = (*batchService)(nil)

func (s *batchService) ServeBatch(ctx context.Context, userID string, requests []models.CategoryCount) []models.Question {
	var served []models.Question

	// Pass 1: drain the unseen buffer. A buffer failure is treated as a
	// miss; the store remains the source of truth.
	residual := make([]models.CategoryCount, 0, len(requests))
	for _, req := range requests {
		if req.Count <= 0 {
			continue
		}

		cached, err := s.buffer.PopUpTo(ctx, userID, req.Category, req.Count)
		if err != nil {
			s.logger.Warn("Unseen buffer unavailable, falling through to store",
				zap.String("user_id", userID),
				zap.String("category", req.Category),
				zap.Error(err))
			cached = nil
		}
		served = append(served, cached...)

		if remaining := req.Count - len(cached); remaining > 0 {
			residual = append(residual, models.CategoryCount{
				Category: req.Category,
				Count:    remaining,
			})
		}
	}

	// Full buffer hit: the store is not touched at all.
	if len(residual) == 0 {
		return served
	}

	// Pass 2: fetch residual demand from the store, over-fetching to stock
	// the buffer for future requests.
	for _, req := range residual {
		limit := s.overFetch
		if req.Count > limit {
			limit = req.Count
		}

		fetched, err := s.questionRepo.FetchUnconsumed(ctx, userID, req.Category, limit)
		if err != nil {
			// Partial batch: this category is silently shorted and the
			// client retries later.
			s.logger.Error("Store fetch failed, shorting category",
				zap.String("user_id", userID),
				zap.String("category", req.Category),
				zap.Error(err))
			continue
		}

		needed := fetched
		var excess []models.Question
		if len(fetched) > req.Count {
			needed = fetched[:req.Count]
			excess = fetched[req.Count:]
		}
		served = append(served, needed...)

		if len(excess) > 0 {
			if err := s.buffer.Append(ctx, userID, excess); err != nil {
				// The consumption ledger already covers these rows, so the
				// user simply never sees them again. Acceptable loss.
				s.logger.Warn("Failed to buffer excess questions",
					zap.String("user_id", userID),
					zap.String("category", req.Category),
					zap.Int("count", len(excess)),
					zap.Error(err))
			}
		}
	}

	return served
}

func (s *batchService) Downvote(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.questionRepo.IncrementDownvotes(ctx, ids); err != nil {
		return fmt.Errorf("downvote questions: %w", err)
	}
	return nil
}
