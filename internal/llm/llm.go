// Package llm wraps the Anthropic Messages API behind a small completion
// interface used by the classifier and the description generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel    = string(anthropic.ModelClaudeSonnet4_20250514)
	DefaultTimeout  = 20 * time.Second
	defaultAttempts = 3
)

var ErrEmptyResponse = errors.New("llm returned empty response")

// Completion is a single system+user exchange.
type Completion struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type LLMCaller interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// CallerFunc adapts a function to LLMCaller.
type CallerFunc func(ctx context.Context, c Completion) (string, error)

func (f CallerFunc) Complete(ctx context.Context, c Completion) (string, error) { return f(ctx, c) }

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

var delayFor = backoffDelay

type Config struct {
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

type AnthropicCaller struct {
	messages AnthropicMessager
	cfg      Config
}

func NewAnthropicCaller(apiKey string, cfg Config) *AnthropicCaller {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultAttempts
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), cfg: cfg}
}

func NewAnthropicCallerFromEnv(cfg Config) (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	return NewAnthropicCaller(apiKey, cfg), nil
}

// Factory returns a constructor that builds a caller per credential, which
// is how per-request API keys reach the classifier.
func Factory(cfg Config) func(apiKey string) LLMCaller {
	return func(apiKey string) LLMCaller { return NewAnthropicCaller(apiKey, cfg) }
}

// ValidateAPIKey performs a format check only; it does not contact the API.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return errors.New("ANTHROPIC_API_KEY not configured")
	case !strings.HasPrefix(key, "sk-"):
		return errors.New("api key must start with sk-")
	case len(key) < 20:
		return errors.New("api key is too short")
	}
	return nil
}

// Complete sends one exchange, retrying transient transport failures. Each
// attempt runs under the configured timeout.
func (a *AnthropicCaller) Complete(ctx context.Context, c Completion) (string, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(c.Prompt))},
		Temperature: anthropic.Float(c.Temperature),
	}
	if c.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.System}}
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		text, err := a.once(ctx, params)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if errors.Is(err, ErrEmptyResponse) || ctx.Err() != nil {
			return "", err
		}
		kind := FailureKind(err)
		if kind != KindTimeout && kind != KindRateLimit && kind != KindServer {
			return "", err
		}
		if attempt < a.cfg.MaxAttempts {
			log.Printf("llm transient failure kind=%s attempt=%d err=%v", kind, attempt, err)
			if err := sleepCtx(ctx, delayFor(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("llm failed after %d attempts: %w", a.cfg.MaxAttempts, lastErr)
}

func (a *AnthropicCaller) once(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	resp, err := a.messages.New(callCtx, params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

const (
	KindCanceled  = "canceled"
	KindTimeout   = "timeout"
	KindRateLimit = "rate_limit"
	KindServer    = "server"
	KindClient    = "client"
	KindEmpty     = "empty"
)

// FailureKind buckets a transport error for retry and logging decisions.
func FailureKind(err error) string {
	if errors.Is(err, ErrEmptyResponse) {
		return KindEmpty
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return KindRateLimit
		case apiErr.StatusCode >= 500:
			return KindServer
		case apiErr.StatusCode >= 400:
			return KindClient
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return KindRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return KindServer
	case strings.Contains(msg, "status code: 4"):
		return KindClient
	default:
		return KindServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
