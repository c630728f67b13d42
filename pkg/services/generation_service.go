package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trivgame/qcache/pkg/generator"
	"github.com/trivgame/qcache/pkg/models"
	"github.com/trivgame/qcache/pkg/repositories"
)

// QuestionGenerator is the external generation backend. One call covers a
// whole batch of article titles, aligned positionally with the results.
type QuestionGenerator interface {
	Generate(ctx context.Context, articleTitles []string) ([]generator.GeneratedQuestion, error)
}

// GenerationService turns batches of articles into stored questions.
type GenerationService interface {
	// GenerateForArticles calls the generator for one batch and stores the
	// results. A failed call abandons the whole batch with no store writes;
	// the articles stay fresh and are retried on a later cycle. Individual
	// results missing a required field are dropped, the rest are kept.
	GenerateForArticles(ctx context.Context, batch []models.ArticleRef) error
}

type generationService struct {
	gen          QuestionGenerator
	questionRepo repositories.QuestionRepository
	logger       *zap.Logger
}

// NewGenerationService creates a GenerationService.
func NewGenerationService(
	gen QuestionGenerator,
	questionRepo repositories.QuestionRepository,
	logger *zap.Logger,
) GenerationService {
	return &generationService{
		gen:          gen,
		questionRepo: questionRepo,
		logger:       logger.Named("generation-service"),
	}
}

var _ GenerationService = (*generationService)(nil)

func (s *generationService) GenerateForArticles(ctx context.Context, batch []models.ArticleRef) error {
	if len(batch) == 0 {
		return nil
	}

	titles := make([]string, len(batch))
	for i, ref := range batch {
		titles[i] = ref.Title
	}

	generated, err := s.gen.Generate(ctx, titles)
	if err != nil {
		return fmt.Errorf("generate questions for %d articles: %w", len(batch), err)
	}

	questions := make([]models.Question, 0, len(generated))
	usedTitles := make([]string, 0, len(generated))
	for i, g := range generated {
		q := models.Question{
			ID:       batch[i].Title,
			Category: batch[i].Category,
			Hint1:    g.Prompt1,
			Hint2:    g.Prompt2,
			Hint3:    g.Prompt3,
			Answer:   g.Answer,
		}
		if !q.IsComplete() {
			s.logger.Warn("Dropping incomplete generated question",
				zap.String("article", batch[i].Title),
				zap.String("category", batch[i].Category))
			continue
		}
		questions = append(questions, q)
		usedTitles = append(usedTitles, batch[i].Title)
	}

	if len(questions) == 0 {
		return fmt.Errorf("no usable questions in batch of %d", len(batch))
	}

	if err := s.questionRepo.InsertGenerated(ctx, questions, usedTitles); err != nil {
		return fmt.Errorf("store generated questions: %w", err)
	}

	s.logger.Info("Stored generated questions",
		zap.Int("requested", len(batch)),
		zap.Int("stored", len(questions)))
	return nil
}
