package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// SummarizerClient is a minimal client for an OpenAI-compatible
// chat-completions API used for transcript summarization
type SummarizerClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	topP        float64
	seed        int
	maxTokens   int
	client      *http.Client
}

// NewSummarizerClient creates a summarizer client using values from the
// provided config. Pass a nil config to fall back to environment variables.
func NewSummarizerClient(cfg *config.SummarizerConfig) *SummarizerClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("SUMMARIZER_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("SUMMARIZER_BASE_URL")
		if base == "" {
			base = "https://api.openai.com"
		}
	}

	c := &SummarizerClient{
		apiKey:      apiKey,
		baseURL:     base,
		model:       "gpt-4o-mini",
		temperature: 0.2,
		topP:        0.9,
		seed:        42,
		maxTokens:   4096,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
	if cfg != nil {
		if cfg.Model != "" {
			c.model = cfg.Model
		}
		c.temperature = cfg.Temperature
		c.topP = cfg.TopP
		c.seed = cfg.Seed
		c.maxTokens = cfg.MaxTokens
		if cfg.Timeout > 0 {
			c.client.Timeout = cfg.Timeout
		}
	}
	return c
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	TopP        float64     `json:"top_p,omitempty"`
	Seed        int         `json:"seed,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream"`
}

// streamChunk is one server-sent event payload of a streamed response
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Summarize sends the transcript through the fixed prompt and returns
// the streamed response concatenated into one text
func (s *SummarizerClient) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt := strings.Replace(SummaryPrompt, "{transcript_content}", transcript, 1)

	reqBody := ChatRequest{
		Model:       s.model,
		Messages:    []map[string]string{{"role": "user", "content": prompt}},
		Temperature: s.temperature,
		TopP:        s.topP,
		Seed:        s.seed,
		MaxTokens:   s.maxTokens,
		Stream:      true,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := s.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("summarizer returned status %d", resp.StatusCode)
	}

	// Concatenate streamed delta chunks into one text
	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stream: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("empty response from summarizer")
	}
	return text, nil
}
