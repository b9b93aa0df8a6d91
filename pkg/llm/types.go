package llm

import (
	"context"
	"io"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const ResponseFormatJSONObject = "json_object"

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatOptions tune a single Chat call. Nil pointers fall back to provider defaults.
type ChatOptions struct {
	Model          string
	Temperature    *float32
	MaxTokens      *int
	ResponseFormat *ResponseFormat
	NoCache        bool
}

// ChatRequest is the body sent to the provider. Its JSON form is also the cache key.
type ChatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the text of the first choice, or "" when there is none.
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type StreamChunk struct {
	ID           string `json:"id"`
	Delta        string `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ChatStream yields chunks until Recv returns io.EOF.
type ChatStream interface {
	Recv() (*StreamChunk, error)
	io.Closer
}

type Model struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MaxTokens       int    `json:"max_tokens"`
	PromptPrice     string `json:"prompt_price,omitempty"`
	CompletionPrice string `json:"completion_price,omitempty"`
}

type CreditInfo struct {
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

// Provider is a concrete chat-completion backend. Implementations return
// *APIError for upstream HTTP failures so the gateway can decide on retries.
type Provider interface {
	Name() string
	CreateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error)
	ListModels(ctx context.Context) ([]Model, error)
	GetCredits(ctx context.Context) (*CreditInfo, error)
}

// ChatClient is what application code depends on.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)
}

func Float32(v float32) *float32 { return &v }

func Int(v int) *int { return &v }
