package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/generation"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

const defaultRetryBaseDelay = 2 * time.Second

// GeminiGenerator implements the generation.Generator interface using Google's Gemini API.
type GeminiGenerator struct {
	logger  *slog.Logger
	models  contentGenerator
	model   string
	limiter *rate.Limiter

	maxRetries uint64
	baseDelay  time.Duration
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a generator with a live Gemini client.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, client.Models, cfg)
}

func newGenerator(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries cannot be negative", generation.ErrInvalidConfig)
	}

	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}

	limit := rate.Inf
	if cfg.RateLimitPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RateLimitPerMinute) / 60)
	}

	return &GeminiGenerator{
		logger:     logger.With(slog.String("component", "gemini_generator")),
		models:     models,
		model:      cfg.ModelName,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: uint64(cfg.MaxRetries),
		baseDelay:  baseDelay,
	}, nil
}

// Generate implements generation.Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", generation.ErrGenerationFailed)
	}

	log := g.logger.With(slog.String("tool_type", string(req.ToolType)))

	backoff := retry.NewExponential(g.baseDelay)
	backoff = retry.WithJitterPercent(50, backoff)
	backoff = retry.WithMaxRetries(g.maxRetries, backoff)

	var (
		text    string
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		log.InfoContext(ctx, "Making Gemini API call",
			slog.Int("attempt", attempt),
			slog.Uint64("max_attempts", g.maxRetries+1))

		out, err := g.call(ctx, req.Prompt)
		if err == nil {
			text = out
			return nil
		}

		if isPermanent(err) || ctx.Err() != nil {
			log.WarnContext(ctx, "Permanent error occurred, not retrying",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}

		log.ErrorContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		return retry.RetryableError(err)
	})
	if err != nil {
		return "", g.classify(ctx, err, attempt)
	}

	log.InfoContext(ctx, "Gemini API call successful",
		slog.Int("attempt", attempt),
		slog.Int("response_length", len(text)))
	return text, nil
}

func (g *GeminiGenerator) call(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrEmptyResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates generated", generation.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", generation.ErrEmptyResponse
	}
	return b.String(), nil
}

func isPermanent(err error) bool {
	return errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrEmptyResponse)
}

// classify maps the final error so callers see a generation error, never a
// bare context or client error.
func (g *GeminiGenerator) classify(ctx context.Context, err error, attempts int) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: after %d attempts", generation.ErrTimeout, attempts)
	case errors.Is(err, generation.ErrTransientFailure):
		return fmt.Errorf("%w: exceeded maximum retry attempts (%d)", err, g.maxRetries)
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, generation.ErrEmptyResponse):
		return err
	default:
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
}
