package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"nicetravel/pkg/memcache"
)

type GatewayConfig struct {
	DefaultModel string
	MaxAttempts  int
	RetryDelay   time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
	CacheMaxSize int
}

// Gateway validates chat requests, retries transient provider failures and
// caches successful responses.
type Gateway struct {
	provider Provider
	cfg      GatewayConfig
	cache    *memcache.Store[*ChatResponse]
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewGateway(provider Provider, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	g := &Gateway{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "llm"), zap.String("provider", provider.Name())),
		sleep:    sleepContext,
	}
	if cfg.CacheEnabled {
		g.cache = memcache.NewStore[*ChatResponse](cfg.CacheTTL, cfg.CacheMaxSize)
		g.cache.StartJanitor(cfg.CacheTTL)
	}
	return g
}

func (g *Gateway) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error) {
	req, err := g.buildRequest(messages, opts, false)
	if err != nil {
		return nil, err
	}

	useCache := g.cache != nil && !opts.NoCache
	var cacheKey string
	if useCache {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encode chat request: %w", err)
		}
		cacheKey = string(body)
		if cached, ok := g.cache.Get(cacheKey); ok {
			g.logger.Debug("chat response served from cache", zap.String("model", req.Model))
			return cached, nil
		}
	}

	var resp *ChatResponse
	err = g.withRetry(ctx, "chat", func() error {
		var callErr error
		resp, callErr = g.provider.CreateChat(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		g.cache.Set(cacheKey, resp)
	}
	return resp, nil
}

// StreamChat opens a streaming completion. Streams are neither cached nor retried.
func (g *Gateway) StreamChat(ctx context.Context, messages []Message, opts ChatOptions) (ChatStream, error) {
	req, err := g.buildRequest(messages, opts, true)
	if err != nil {
		return nil, err
	}
	return g.provider.CreateChatStream(ctx, req)
}

func (g *Gateway) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	err := g.withRetry(ctx, "list_models", func() error {
		var callErr error
		models, callErr = g.provider.ListModels(ctx)
		return callErr
	})
	return models, err
}

func (g *Gateway) GetCredits(ctx context.Context) (*CreditInfo, error) {
	var credits *CreditInfo
	err := g.withRetry(ctx, "credits", func() error {
		var callErr error
		credits, callErr = g.provider.GetCredits(ctx)
		return callErr
	})
	return credits, err
}

// Close stops the cache janitor.
func (g *Gateway) Close() {
	if g.cache != nil {
		g.cache.Close()
	}
}

func (g *Gateway) buildRequest(messages []Message, opts ChatOptions, stream bool) (ChatRequest, error) {
	if err := validateMessages(messages); err != nil {
		return ChatRequest{}, err
	}
	if err := validateOptions(opts); err != nil {
		return ChatRequest{}, err
	}
	model := opts.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}
	return ChatRequest{
		Messages:       messages,
		Model:          model,
		Temperature:    opts.Temperature,
		MaxTokens:      opts.MaxTokens,
		ResponseFormat: opts.ResponseFormat,
		Stream:         stream,
	}, nil
}

// withRetry runs call up to MaxAttempts times, doubling the delay after each
// retryable failure.
func (g *Gateway) withRetry(ctx context.Context, op string, call func() error) error {
	delay := g.cfg.RetryDelay
	var err error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == g.cfg.MaxAttempts {
			break
		}

		g.logger.Warn("retrying model provider call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
