package services

import (
	"context"
	"sync"
	"time"

	"github.com/trivgame/qcache/pkg/generator"
	"github.com/trivgame/qcache/pkg/models"
	"github.com/trivgame/qcache/pkg/workqueue"
)

// mockBuffer is a configurable in-memory stand-in for the Redis unseen buffer.
type mockBuffer struct {
	mu        sync.Mutex
	entries   map[string][]models.Question // key: user|category
	popErr    error
	appendErr error
	appended  []models.Question
}

func newMockBuffer() *mockBuffer {
	return &mockBuffer{entries: make(map[string][]models.Question)}
}

func bufKey(userID, category string) string {
	return userID + "|" + category
}

func (m *mockBuffer) seed(userID string, questions ...models.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range questions {
		key := bufKey(userID, q.Category)
		m.entries[key] = append(m.entries[key], q)
	}
}

func (m *mockBuffer) PopUpTo(ctx context.Context, userID, category string, count int) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.popErr != nil {
		return nil, m.popErr
	}

	key := bufKey(userID, category)
	buffered := m.entries[key]
	n := count
	if n > len(buffered) {
		n = len(buffered)
	}
	popped := buffered[:n]
	m.entries[key] = buffered[n:]
	return popped, nil
}

func (m *mockBuffer) Append(ctx context.Context, userID string, questions []models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return m.appendErr
	}

	m.appended = append(m.appended, questions...)
	for _, q := range questions {
		key := bufKey(userID, q.Category)
		m.entries[key] = append(m.entries[key], q)
	}
	return nil
}

// mockQuestionRepo is a configurable mock for the question repository.
type mockQuestionRepo struct {
	mu sync.Mutex

	// FetchUnconsumed behavior: per-category pool drained as it is fetched.
	pool     map[string][]models.Question
	fetchErr error
	fetches  []fetchCall

	downvoted   [][]string
	downvoteErr error

	evictDeleted int64
	evictErr     error
	evictCalls   int

	counts    map[string]int
	countsErr error

	inserted       [][]models.Question
	insertedTitles [][]string
	insertErr      error
}

type fetchCall struct {
	userID   string
	category string
	limit    int
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{pool: make(map[string][]models.Question)}
}

func (m *mockQuestionRepo) seed(questions ...models.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range questions {
		m.pool[q.Category] = append(m.pool[q.Category], q)
	}
}

func (m *mockQuestionRepo) FetchUnconsumed(ctx context.Context, userID, category string, limit int) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetches = append(m.fetches, fetchCall{userID: userID, category: category, limit: limit})
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}

	available := m.pool[category]
	n := limit
	if n > len(available) {
		n = len(available)
	}
	fetched := available[:n]
	m.pool[category] = available[n:]
	return fetched, nil
}

func (m *mockQuestionRepo) IncrementDownvotes(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downvoteErr != nil {
		return m.downvoteErr
	}
	m.downvoted = append(m.downvoted, ids)
	return nil
}

func (m *mockQuestionRepo) EvictExpired(ctx context.Context, usageThreshold, downvoteThreshold int, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictCalls++
	if m.evictErr != nil {
		return 0, m.evictErr
	}
	return m.evictDeleted, nil
}

func (m *mockQuestionRepo) CountByCategory(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countsErr != nil {
		return nil, m.countsErr
	}
	return m.counts, nil
}

func (m *mockQuestionRepo) InsertGenerated(ctx context.Context, questions []models.Question, articleTitles []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, questions)
	m.insertedTitles = append(m.insertedTitles, articleTitles)
	return nil
}

// mockArticleRepo is a configurable mock for the article repository.
type mockArticleRepo struct {
	categories  []string
	freshCounts map[string]int
	freshErr    error
	titles      map[string][]string
	titlesErr   error
}

func (m *mockArticleRepo) Categories(ctx context.Context) ([]string, error) {
	return m.categories, nil
}

func (m *mockArticleRepo) FreshCountByCategory(ctx context.Context, cooldown time.Duration) (map[string]int, error) {
	if m.freshErr != nil {
		return nil, m.freshErr
	}
	return m.freshCounts, nil
}

func (m *mockArticleRepo) FreshTitles(ctx context.Context, category string, cooldown time.Duration, limit int) ([]string, error) {
	if m.titlesErr != nil {
		return nil, m.titlesErr
	}
	titles := m.titles[category]
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}

// mockGenerator is a configurable mock for the external generation backend.
type mockGenerator struct {
	results []generator.GeneratedQuestion
	err     error
	calls   [][]string
}

func (m *mockGenerator) Generate(ctx context.Context, articleTitles []string) ([]generator.GeneratedQuestion, error) {
	m.calls = append(m.calls, articleTitles)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockTaskQueue records enqueued tasks, optionally running them inline.
type mockTaskQueue struct {
	mu        sync.Mutex
	tasks     []workqueue.Task
	refuse    bool
	runInline bool
}

func (m *mockTaskQueue) TryEnqueue(task workqueue.Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refuse {
		return false
	}
	m.tasks = append(m.tasks, task)
	if m.runInline {
		_ = task.Execute(context.Background())
	}
	return true
}
