package services

import (
	"context"
	"fmt"

	"github.com/trivgame/qcache/pkg/models"
	"github.com/trivgame/qcache/pkg/workqueue"
)

// generationTask is one generator batch dispatched by the replenishment job.
// Batches are independent: one failing or running long does not hold up
// another category's batches.
type generationTask struct {
	workqueue.BaseTask
	service GenerationService
	batch   []models.ArticleRef
}

// NewGenerationTask wraps one article batch as a work queue task.
func NewGenerationTask(service GenerationService, batch []models.ArticleRef) workqueue.Task {
	name := "generate-questions"
	if len(batch) > 0 {
		name = fmt.Sprintf("generate-questions[%s x%d]", batch[0].Category, len(batch))
	}
	return &generationTask{
		BaseTask: workqueue.NewBaseTask(name),
		service:  service,
		batch:    batch,
	}
}

func (t *generationTask) Execute(ctx context.Context) error {
	return t.service.GenerateForArticles(ctx, t.batch)
}
