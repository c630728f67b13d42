package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trivgame/qcache/pkg/database"
	"github.com/trivgame/qcache/pkg/models"
)

// QuestionRepository provides data access for the question pool and the
// per-user consumption ledger.
type QuestionRepository interface {
	// FetchUnconsumed returns up to limit questions in the category that the
	// user has never been served. In the same transaction it increments each
	// returned question's usage count and records a consumption row, so a
	// question is never returned without being marked consumed or vice versa.
	FetchUnconsumed(ctx context.Context, userID, category string, limit int) ([]models.Question, error)

	// IncrementDownvotes adds one downvote to each of the given question ids.
	// Unknown ids are ignored. Repeated calls compound.
	IncrementDownvotes(ctx context.Context, ids []string) error

	// EvictExpired deletes every question whose usage count or downvote count
	// has reached its threshold, or whose age exceeds the retention window.
	// Consumption rows cascade. Returns the number of questions deleted.
	EvictExpired(ctx context.Context, usageThreshold, downvoteThreshold int, retention time.Duration) (int64, error)

	// CountByCategory returns the current question count per category.
	CountByCategory(ctx context.Context) (map[string]int, error)

	// InsertGenerated stores freshly generated questions and stamps their
	// source articles as used, in one transaction.
	InsertGenerated(ctx context.Context, questions []models.Question, articleTitles []string) error
}

type questionRepository struct {
	db *database.DB
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db *database.DB) QuestionRepository {
	return &questionRepository{db: db}
}

var _ QuestionRepository = (*questionRepository)(nil)

func (r *questionRepository) FetchUnconsumed(ctx context.Context, userID, category string, limit int) ([]models.Question, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	// SKIP LOCKED keeps two concurrent fetches for the same user from
	// selecting the same rows and colliding on the consumption insert.
	rows, err := tx.Query(ctx, `
		SELECT q.id, q.category, q.hint1, q.hint2, q.hint3, q.answer,
		       q.created_at, q.usage_count, q.downvote_count
		FROM questions q
		LEFT JOIN user_question_store uqs
			ON q.id = uqs.question_id AND uqs.user_id = $1
		WHERE uqs.question_id IS NULL
			AND q.category = $2
		ORDER BY q.created_at
		LIMIT $3
		FOR UPDATE OF q SKIP LOCKED`,
		userID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unconsumed questions: %w", err)
	}

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Hint1, &q.Hint2, &q.Hint3,
			&q.Answer, &q.CreatedAt, &q.UsageCount, &q.DownvoteCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unconsumed questions: %w", err)
	}

	if len(questions) == 0 {
		return nil, nil
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	if _, err := tx.Exec(ctx,
		`UPDATE questions SET usage_count = usage_count + 1 WHERE id = ANY($1)`,
		ids); err != nil {
		return nil, fmt.Errorf("failed to increment usage counts: %w", err)
	}

	consumption := make([][]any, len(ids))
	for i, id := range ids {
		consumption[i] = []any{userID, id}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"user_question_store"},
		[]string{"user_id", "question_id"},
		pgx.CopyFromRows(consumption)); err != nil {
		return nil, fmt.Errorf("failed to record consumption: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Reflect the increment in the returned snapshots.
	for i := range questions {
		questions[i].UsageCount++
	}

	return questions, nil
}

func (r *questionRepository) IncrementDownvotes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := r.db.Exec(ctx,
		`UPDATE questions SET downvote_count = downvote_count + 1 WHERE id = ANY($1)`,
		ids); err != nil {
		return fmt.Errorf("failed to increment downvotes: %w", err)
	}
	return nil
}

func (r *questionRepository) EvictExpired(ctx context.Context, usageThreshold, downvoteThreshold int, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	tag, err := r.db.Exec(ctx, `
		DELETE FROM questions
		WHERE usage_count >= $1
			OR downvote_count >= $2
			OR created_at < $3`,
		usageThreshold, downvoteThreshold, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to evict questions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *questionRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, COUNT(*) FROM questions GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan question count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question counts: %w", err)
	}
	return counts, nil
}

func (r *questionRepository) InsertGenerated(ctx context.Context, questions []models.Question, articleTitles []string) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`
			INSERT INTO questions (id, category, hint1, hint2, hint3, answer)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.Category, q.Hint1, q.Hint2, q.Hint3, q.Answer)
	}
	br := tx.SendBatch(ctx, batch)
	for range questions {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert generated question: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close insert batch: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE wiki_articles SET last_used = NOW() WHERE title = ANY($1)`,
		articleTitles); err != nil {
		return fmt.Errorf("failed to mark articles used: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
