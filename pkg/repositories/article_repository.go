package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/trivgame/qcache/pkg/database"
)

// ArticleRepository provides read access to the source-article corpus.
// Articles are written by the ingestion tooling; this service only reads them
// and stamps last_used through QuestionRepository.InsertGenerated.
type ArticleRepository interface {
	// Categories returns every distinct article category. Used once at
	// startup to build the process-scoped category list.
	Categories(ctx context.Context) ([]string, error)

	// FreshCountByCategory returns, per category, the number of articles that
	// are unused or were last used longer than cooldown ago.
	FreshCountByCategory(ctx context.Context, cooldown time.Duration) (map[string]int, error)

	// FreshTitles returns up to limit fresh article titles in the category.
	FreshTitles(ctx context.Context, category string, cooldown time.Duration, limit int) ([]string, error)
}

type articleRepository struct {
	db *database.DB
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *database.DB) ArticleRepository {
	return &articleRepository{db: db}
}

var _ ArticleRepository = (*articleRepository)(nil)

func (r *articleRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT category FROM wiki_articles ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return categories, nil
}

func (r *articleRepository) FreshCountByCategory(ctx context.Context, cooldown time.Duration) (map[string]int, error) {
	cutoff := time.Now().Add(-cooldown)

	rows, err := r.db.Query(ctx, `
		SELECT category, COUNT(*) FROM wiki_articles
		WHERE last_used IS NULL OR last_used < $1
		GROUP BY category`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count fresh articles: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan article count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read article counts: %w", err)
	}
	return counts, nil
}

func (r *articleRepository) FreshTitles(ctx context.Context, category string, cooldown time.Duration, limit int) ([]string, error) {
	cutoff := time.Now().Add(-cooldown)

	rows, err := r.db.Query(ctx, `
		SELECT title FROM wiki_articles
		WHERE category = $1
			AND (last_used IS NULL OR last_used < $2)
		ORDER BY last_used ASC NULLS FIRST, title
		LIMIT $3`,
		category, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fresh articles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan article title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read article titles: %w", err)
	}
	return titles, nil
}
