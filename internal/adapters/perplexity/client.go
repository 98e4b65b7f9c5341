package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/adapters/ratelimit"
	"review_dashboard/internal/domain"
)

type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration // per call, default 30s
	RequestDelay time.Duration // minimum spacing between calls, default 3s
	MaxTokens    int
}

// Client calls the chat-completions API. Calls are spaced process-wide (callers
// wait, they are never rejected) and guarded by a circuit breaker.
type Client struct {
	base      string
	key       string
	model     string
	maxTokens int
	timeout   time.Duration
	hc        *http.Client
	rl        *ratelimit.Limiter
	cb        *gobreaker.CircuitBreaker
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("perplexity API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.perplexity.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "sonar"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestDelay < 0 {
		cfg.RequestDelay = 0
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "perplexity",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		key:       cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		hc:        &http.Client{},
		rl:        ratelimit.New("perplexity", cfg.RequestDelay, 1, ratelimit.Wait),
		cb:        cb,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// AnalyzeProperty returns the model's raw analysis payload; validation is the caller's job.
func (c *Client) AnalyzeProperty(ctx context.Context, propertyName string, reviews []domain.Review) (domain.AnalysisResponse, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return domain.AnalysisResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPrompt(propertyName, reviews)
	log.Debug().Str("property", propertyName).Int("reviews", len(reviews)).Int("prompt_len", len(prompt)).Msg("calling perplexity")

	res, err := c.cb.Execute(func() (any, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		return domain.AnalysisResponse{}, err
	}
	return parseAnalysis(res.(string))
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("perplexity", "chat_completions", 0, time.Since(start))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("perplexity: timed out after %s: %w", c.timeout, ctx.Err())
		}
		return "", fmt.Errorf("perplexity: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("perplexity", "chat_completions", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("perplexity: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("perplexity: decode: %w", err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", errors.New("perplexity: no content in response")
	}
	return cr.Choices[0].Message.Content, nil
}

func parseAnalysis(content string) (domain.AnalysisResponse, error) {
	cleaned := stripFences(content)
	var out domain.AnalysisResponse
	err := json.Unmarshal([]byte(cleaned), &out)
	if err == nil {
		return out, nil
	}
	if obj, ok := outermostObject(cleaned); ok {
		var retry domain.AnalysisResponse
		if json.Unmarshal([]byte(obj), &retry) == nil {
			return retry, nil
		}
	}
	return domain.AnalysisResponse{}, fmt.Errorf("perplexity: response is not valid JSON: %w", err)
}
