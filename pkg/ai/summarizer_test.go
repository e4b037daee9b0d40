package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meetingscribe/transcript-relay/pkg/config"
)

func newStreamServer(t *testing.T, chunks []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", auth)
		}

		var payload ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if !payload.Stream {
			t.Fatalf("expected streaming request")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestSummarize_ConcatenatesStream(t *testing.T) {
	ts := newStreamServer(t, []string{"Key ", "decisions ", "were made."})
	defer ts.Close()

	client := NewSummarizerClient(&config.SummarizerConfig{
		APIKey:  "test-key",
		BaseURL: ts.URL,
	})

	text, err := client.Summarize(context.Background(), "WEBVTT transcript body")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if text != "Key decisions were made." {
		t.Fatalf("unexpected summary %q", text)
	}
}

func TestSummarize_EmbedsTranscriptInPrompt(t *testing.T) {
	var gotPrompt string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if len(payload.Messages) != 1 {
			t.Fatalf("expected one message, got %d", len(payload.Messages))
		}
		gotPrompt = payload.Messages[0]["content"]
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
	}))
	defer ts.Close()

	client := NewSummarizerClient(&config.SummarizerConfig{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Summarize(context.Background(), "the transcript text"); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !strings.Contains(gotPrompt, "the transcript text") {
		t.Fatalf("prompt does not embed transcript: %q", gotPrompt)
	}
	if strings.Contains(gotPrompt, "{transcript_content}") {
		t.Fatalf("placeholder was not replaced: %q", gotPrompt)
	}
}

func TestSummarize_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewSummarizerClient(&config.SummarizerConfig{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Summarize(context.Background(), "transcript"); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestSummarize_EmptyStreamIsError(t *testing.T) {
	ts := newStreamServer(t, nil)
	defer ts.Close()

	client := NewSummarizerClient(&config.SummarizerConfig{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Summarize(context.Background(), "transcript"); err == nil {
		t.Fatal("expected error on empty stream")
	}
}
