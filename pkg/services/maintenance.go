package services

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trivgame/qcache/pkg/config"
	"github.com/trivgame/qcache/pkg/models"
	"github.com/trivgame/qcache/pkg/repositories"
	"github.com/trivgame/qcache/pkg/workqueue"
)

// TaskQueue accepts background generation work without blocking the
// scheduling loop.
type TaskQueue interface {
	TryEnqueue(task workqueue.Task) bool
}

// MaintenanceService runs the periodic eviction and replenishment jobs.
type MaintenanceService interface {
	// Run starts the background scheduler. The replenishment job fires once
	// immediately, then both jobs repeat on their configured intervals.
	// Cancel the context to stop the scheduler; it does not wait for jobs
	// already in flight.
	Run(ctx context.Context)

	// EvictOnce runs one eviction sweep. Reentrant calls are skipped.
	EvictOnce(ctx context.Context)

	// ReplenishOnce runs one replenishment pass. Reentrant calls are skipped.
	ReplenishOnce(ctx context.Context)
}

type maintenanceService struct {
	questionRepo repositories.QuestionRepository
	articleRepo  repositories.ArticleRepository
	genService   GenerationService
	queue        TaskQueue

	// categories is the process-scoped category list captured at startup.
	categories []string
	cfg        config.MaintenanceConfig
	logger     *zap.Logger

	// Per-job guards: an interval tick that arrives while the prior run is
	// still in flight is skipped, never queued behind it.
	evictMu     sync.Mutex
	replenishMu sync.Mutex
}

// NewMaintenanceService creates a MaintenanceService over the given category
// list and configuration.
func NewMaintenanceService(
	questionRepo repositories.QuestionRepository,
	articleRepo repositories.ArticleRepository,
	genService GenerationService,
	queue TaskQueue,
	categories []string,
	cfg config.MaintenanceConfig,
	logger *zap.Logger,
) MaintenanceService {
	return &maintenanceService{
		questionRepo: questionRepo,
		articleRepo:  articleRepo,
		genService:   genService,
		queue:        queue,
		categories:   categories,
		cfg:          cfg,
		logger:       logger.Named("maintenance"),
	}
}

var _ MaintenanceService = (*maintenanceService)(nil)

func (s *maintenanceService) Run(ctx context.Context) {
	go func() {
		s.logger.Info("Maintenance scheduler started",
			zap.Duration("eviction_interval", s.cfg.EvictionInterval),
			zap.Duration("replenishment_interval", s.cfg.ReplenishmentInterval),
			zap.Strings("categories", s.categories))

		// Stock up right away, then settle into the interval.
		s.ReplenishOnce(ctx)

		evictTicker := time.NewTicker(s.cfg.EvictionInterval)
		defer evictTicker.Stop()
		replenishTicker := time.NewTicker(s.cfg.ReplenishmentInterval)
		defer replenishTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Maintenance scheduler stopped")
				return
			case <-evictTicker.C:
				s.EvictOnce(ctx)
			case <-replenishTicker.C:
				s.ReplenishOnce(ctx)
			}
		}
	}()
}

func (s *maintenanceService) EvictOnce(ctx context.Context) {
	if !s.evictMu.TryLock() {
		s.logger.Warn("Eviction still in flight, skipping this run")
		return
	}
	defer s.evictMu.Unlock()

	deleted, err := s.questionRepo.EvictExpired(ctx,
		s.cfg.UsageThreshold, s.cfg.DownvoteThreshold, s.cfg.RetentionWindow)
	if err != nil {
		s.logger.Error("Eviction sweep failed", zap.Error(err))
		return
	}

	if deleted > 0 {
		s.logger.Info("Evicted questions", zap.Int64("count", deleted))
	}
}

func (s *maintenanceService) ReplenishOnce(ctx context.Context) {
	if !s.replenishMu.TryLock() {
		s.logger.Warn("Replenishment still in flight, skipping this run")
		return
	}
	defer s.replenishMu.Unlock()

	freshCounts, err := s.articleRepo.FreshCountByCategory(ctx, s.cfg.ArticleCooldown)
	if err != nil {
		s.logger.Error("Failed to count fresh articles", zap.Error(err))
		return
	}

	questionCounts, err := s.questionRepo.CountByCategory(ctx)
	if err != nil {
		s.logger.Error("Failed to count questions", zap.Error(err))
		return
	}

	var pending []models.ArticleRef
	for _, category := range s.categories {
		freshCount, ok := freshCounts[category]
		if !ok || freshCount == 0 {
			// Every article in the category is inside its cooldown window.
			// Nothing to generate from; not an error.
			s.logger.Info("Category exhausted for articles",
				zap.String("category", category))
			continue
		}

		minThreshold := minQuestionThreshold(s.cfg.MinThresholdFactor, freshCount)
		questionCount := questionCounts[category]
		if questionCount >= minThreshold {
			continue
		}

		s.logger.Info("Category under-stocked",
			zap.String("category", category),
			zap.Int("questions", questionCount),
			zap.Int("min_threshold", minThreshold))

		titles, err := s.articleRepo.FreshTitles(ctx, category,
			s.cfg.ArticleCooldown, s.cfg.ProactiveFetchCount)
		if err != nil {
			s.logger.Error("Failed to select fresh articles",
				zap.String("category", category),
				zap.Error(err))
			continue
		}

		for _, title := range titles {
			pending = append(pending, models.ArticleRef{Title: title, Category: category})
		}
	}

	// Chunk into generator-sized batches and hand them to the worker pool.
	// The scheduling loop never waits on a batch; a refused batch is picked
	// up again next cycle because its articles stay fresh.
	batchSize := s.cfg.GenerationBatchSize
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		s.queue.TryEnqueue(NewGenerationTask(s.genService, pending[start:end]))
	}
}

// minQuestionThreshold computes the minimum question count a category should
// hold, scaled from its fresh-article supply. Never below 1.
func minQuestionThreshold(factor float64, freshArticles int) int {
	threshold := int(math.Ceil(factor * float64(freshArticles)))
	if threshold < 1 {
		threshold = 1
	}
	return threshold
}
