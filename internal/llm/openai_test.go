package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scrumkit/scrumkit/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_LLM_KEY", "sk-test")
	return NewOpenAI(config.LLMConfig{
		BaseURL:     srv.URL + "/",
		Model:       "gpt-4o",
		APIKeyEnv:   "TEST_LLM_KEY",
		Temperature: 0.7,
		MaxTokens:   2000,
	}, srv.Client())
}

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	var auth, path string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  # Summary\nAll good.  "}}]}`))
	})

	text, err := c.Generate(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "# Summary\nAll good." {
		t.Errorf("text = %q, want trimmed content", text)
	}
	if path != "/v1/chat/completions" {
		t.Errorf("path = %q, want /v1/chat/completions", path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer sk-test")
	}
	if got.Model != "gpt-4o" || got.MaxTokens != 2000 || got.Temperature != 0.7 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != "sys" ||
		got.Messages[1].Role != "user" || got.Messages[1].Content != "usr" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{"structured", http.StatusTooManyRequests, `{"error":{"type":"rate_limit_error","message":"slow down"}}`, "rate_limit_error", "slow down"},
		{"raw body", http.StatusBadGateway, "upstream unavailable", "", "upstream unavailable"},
		{"empty body", http.StatusInternalServerError, "", "", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.Generate(context.Background(), "s", "u")
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ProviderError", err)
			}
			if pe.StatusCode != tt.status || pe.Type != tt.wantType || pe.Message != tt.wantMsg {
				t.Errorf("ProviderError = %+v", pe)
			}
		})
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":"   "}}]}`} {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		if _, err := c.Generate(context.Background(), "s", "u"); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("body %s: err = %v, want ErrEmptyResponse", body, err)
		}
	}
}

func TestGenerate_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, "s", "u")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestGenerate_MalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	if _, err := c.Generate(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected decode error")
	}
}
