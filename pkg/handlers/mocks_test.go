package handlers

import (
	"context"

	"github.com/trivgame/qcache/pkg/models"
)

// mockBatchService is a configurable mock for handler tests.
type mockBatchService struct {
	questions   []models.Question
	downvoteErr error

	servedUser     string
	servedRequests []models.CategoryCount
	downvotedIDs   []string
}

func (m *mockBatchService) ServeBatch(ctx context.Context, userID string, requests []models.CategoryCount) []models.Question {
	m.servedUser = userID
	m.servedRequests = requests
	return m.questions
}

func (m *mockBatchService) Downvote(ctx context.Context, ids []string) error {
	if m.downvoteErr != nil {
		return m.downvoteErr
	}
	m.downvotedIDs = ids
	return nil
}
