package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trivgame/qcache/pkg/apperrors"
)

func TestGenerate_Success(t *testing.T) {
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/questions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{
			Questions: []GeneratedQuestion{
				{Prompt1: "p1", Prompt2: "p2", Prompt3: "p3", Answer: "Saturn"},
				{Prompt1: "q1", Prompt2: "q2", Prompt3: "q3", Answer: "Jupiter"},
			},
			OK: true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	got, err := client.Generate(context.Background(), []string{"Saturn", "Jupiter"})
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].Answer != "Saturn" || got[1].Answer != "Jupiter" {
		t.Errorf("questions out of order: %+v", got)
	}
	if len(gotBody.ArticleNames) != 2 || gotBody.ArticleNames[0] != "Saturn" {
		t.Errorf("unexpected request payload: %+v", gotBody)
	}
}

func TestGenerate_EmptyBatchSkipsCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	got, err := client.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil result, got %v", got)
	}
	if called {
		t.Error("empty batch must not reach the generator")
	}
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Generate(context.Background(), []string{"Saturn"})
	if !errors.Is(err, apperrors.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerate_LengthMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{
			Questions: []GeneratedQuestion{{Prompt1: "p1", Answer: "a"}},
			OK:        true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Generate(context.Background(), []string{"Saturn", "Jupiter"})
	if !errors.Is(err, apperrors.ErrGeneratorMismatch) {
		t.Errorf("expected ErrGeneratorMismatch, got %v", err)
	}
}

func TestGenerate_GeneratorReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Error: "quota exhausted"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Generate(context.Background(), []string{"Saturn"})
	if !errors.Is(err, apperrors.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerate_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Generate(context.Background(), []string{"Saturn"})
	if !errors.Is(err, apperrors.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	_, err := client.Generate(context.Background(), []string{"Saturn"})
	if !errors.Is(err, apperrors.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed on timeout, got %v", err)
	}
}
