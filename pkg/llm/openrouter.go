package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	SiteURL  string
	SiteName string
	Timeout  time.Duration
}

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible API. Chat calls go
// through go-openai; the OpenRouter-only endpoints are plain JSON GETs.
type OpenRouterProvider struct {
	client     *openai.Client
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.SiteURL,
				"X-Title":      cfg.SiteName,
			},
		},
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = httpClient

	return &OpenRouterProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
	}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

func (p *OpenRouterProvider) CreateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	out := &ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Index:        c.Index,
			Message:      Message{Role: Role(c.Message.Role), Content: c.Message.Content},
			FinishReason: string(c.FinishReason),
		})
	}
	return out, nil
}

func (p *OpenRouterProvider) CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	return &openAIStream{stream: stream}, nil
}

func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]Model, error) {
	var body struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
			Pricing       struct {
				Prompt     string `json:"prompt"`
				Completion string `json:"completion"`
			} `json:"pricing"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, "/models", &body); err != nil {
		return nil, err
	}

	models := make([]Model, 0, len(body.Data))
	for _, m := range body.Data {
		models = append(models, Model{
			ID:              m.ID,
			Name:            m.Name,
			MaxTokens:       m.ContextLength,
			PromptPrice:     m.Pricing.Prompt,
			CompletionPrice: m.Pricing.Completion,
		})
	}
	return models, nil
}

func (p *OpenRouterProvider) GetCredits(ctx context.Context) (*CreditInfo, error) {
	var body struct {
		Data struct {
			TotalCredits float64 `json:"total_credits"`
			TotalUsage   float64 `json:"total_usage"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, "/credits", &body); err != nil {
		return nil, err
	}
	return &CreditInfo{
		Total:     body.Data.TotalCredits,
		Used:      body.Data.TotalUsage,
		Remaining: body.Data.TotalCredits - body.Data.TotalUsage,
	}, nil
}

func (p *OpenRouterProvider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NewAPIError(resp.StatusCode, errorDetail(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode openrouter %s: %w", path, err)
	}
	return nil
}

func toOpenAIRequest(req ChatRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:  req.Model,
		Stream: req.Stream,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.ResponseFormat != nil {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatType(req.ResponseFormat.Type),
		}
	}
	return out
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewAPIError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewAPIError(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return err
}

// errorDetail pulls error.message out of a JSON error body, falling back to the raw text.
func errorDetail(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (*StreamChunk, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, mapOpenAIError(err)
	}
	chunk := &StreamChunk{ID: resp.ID}
	if len(resp.Choices) > 0 {
		chunk.Delta = resp.Choices[0].Delta.Content
		chunk.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return chunk, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
