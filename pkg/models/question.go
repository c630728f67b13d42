package models

import "time"

// Question is a generated trivia question. The ID is the title of the source
// article, which keeps generation idempotent per article per cooldown window.
type Question struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	Hint1         string    `json:"hint1"`
	Hint2         string    `json:"hint2"`
	Hint3         string    `json:"hint3"`
	Answer        string    `json:"answer"`
	CreatedAt     time.Time `json:"created_at"`
	UsageCount    int       `json:"usage_count"`
	DownvoteCount int       `json:"downvote_count"`
}

// IsComplete reports whether the question carries every field required to be
// served. Generator output missing a hint or answer is rejected, not stored.
func (q *Question) IsComplete() bool {
	return q.ID != "" && q.Category != "" &&
		q.Hint1 != "" && q.Hint2 != "" && q.Hint3 != "" &&
		q.Answer != ""
}

// CategoryCount is one element of a batch request: how many questions the
// client wants from a single category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ArticleRef identifies a source article queued for question generation.
type ArticleRef struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// CategoryDemand is the per-category snapshot the replenishment job computes
// each cycle. It is derived from the store and never persisted.
type CategoryDemand struct {
	Category      string
	QuestionCount int
	FreshArticles int
}
