package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/trivgame/qcache/pkg/models"
	"github.com/trivgame/qcache/pkg/services"
)

// BatchRequest is the client request for a batch of questions: how many
// questions per category, for one user.
type BatchRequest struct {
	UserID string                 `json:"user_id"`
	Batch  []models.CategoryCount `json:"batch"`
}

// BatchResponse carries the served questions. A response shorter than the
// request means fewer questions were available, not an error.
type BatchResponse struct {
	Batch []models.Question `json:"batch"`
}

// DownvoteRequest reports question ids a user voted down.
type DownvoteRequest struct {
	UserID string   `json:"user_id"`
	Batch  []string `json:"batch"`
}

// BatchHandler serves the question batch and downvote endpoints.
type BatchHandler struct {
	service services.BatchService
	logger  *zap.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(service services.BatchService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		logger:  logger.Named("batch-handler"),
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *BatchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /getbatch/", h.GetBatch)
	mux.HandleFunc("POST /downvote/", h.Downvote)
}

// GetBatch handles POST /getbatch/ requests.
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.UserID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	questions := h.service.ServeBatch(r.Context(), req.UserID, req.Batch)
	if questions == nil {
		questions = []models.Question{}
	}

	if err := WriteJSON(w, http.StatusOK, BatchResponse{Batch: questions}); err != nil {
		h.logger.Error("Failed to encode batch response", zap.Error(err))
	}
}

// Downvote handles POST /downvote/ requests. An empty batch is a no-op.
func (h *BatchHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	var req DownvoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.service.Downvote(r.Context(), req.Batch); err != nil {
		h.logger.Error("Failed to record downvotes",
			zap.String("user_id", req.UserID),
			zap.Int("count", len(req.Batch)),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "downvote_failed", "could not record downvotes")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "success"}); err != nil {
		h.logger.Error("Failed to encode downvote response", zap.Error(err))
	}
}
