package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trivgame/qcache/pkg/apperrors"
)

// GeneratedQuestion is one result from the question generation service:
// three progressively more specific prompts and the canonical answer.
type GeneratedQuestion struct {
	Prompt1 string `json:"prompt1"`
	Prompt2 string `json:"prompt2"`
	Prompt3 string `json:"prompt3"`
	Answer  string `json:"answer"`
}

type generateRequest struct {
	ArticleNames []string `json:"article_names"`
}

type generateResponse struct {
	Questions []GeneratedQuestion `json:"questions"`
	OK        bool                `json:"ok"`
	Error     string              `json:"error"`
}

// Client calls the external question generation service. One call covers a
// whole batch of article titles; batching bounds the load on the generator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a generator client. The timeout covers the full request,
// which includes the generator's own LLM latency, so it is long by default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate requests one question per article title. The response is aligned
// positionally with the input titles; a length mismatch fails the whole batch
// so no partial results are ever stored.
func (c *Client) Generate(ctx context.Context, articleTitles []string) ([]GeneratedQuestion, error) {
	if len(articleTitles) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(generateRequest{ArticleNames: articleTitles})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/questions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrGenerationFailed, resp.StatusCode)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apperrors.ErrGenerationFailed, err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrGenerationFailed, result.Error)
	}

	if len(result.Questions) != len(articleTitles) {
		return nil, fmt.Errorf("%w: requested %d, got %d",
			apperrors.ErrGeneratorMismatch, len(articleTitles), len(result.Questions))
	}

	return result.Questions, nil
}
