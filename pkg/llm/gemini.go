package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider serves chat requests from Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) CreateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	session, last, err := p.startSession(req)
	if err != nil {
		return nil, err
	}

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, mapGeminiError(err)
	}

	out := &ChatResponse{Model: req.Model}
	for i, cand := range resp.Candidates {
		out.Choices = append(out.Choices, Choice{
			Index:        i,
			Message:      Message{Role: RoleAssistant, Content: candidateText(cand)},
			FinishReason: strings.ToLower(cand.FinishReason.String()),
		})
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (p *GeminiProvider) CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	session, last, err := p.startSession(req)
	if err != nil {
		return nil, err
	}
	return &geminiStream{iter: session.SendMessageStream(ctx, genai.Text(last))}, nil
}

func (p *GeminiProvider) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	it := p.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapGeminiError(err)
		}
		models = append(models, Model{
			ID:        strings.TrimPrefix(info.Name, "models/"),
			Name:      info.DisplayName,
			MaxTokens: int(info.InputTokenLimit),
		})
	}
	return models, nil
}

func (p *GeminiProvider) GetCredits(ctx context.Context) (*CreditInfo, error) {
	return nil, ErrNotSupported
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) startSession(req ChatRequest) (*genai.ChatSession, string, error) {
	system, history, last, err := splitGeminiTurns(req.Messages)
	if err != nil {
		return nil, "", err
	}

	model := p.client.GenerativeModel(req.Model)
	applyGeminiOptions(model, req)
	if system != nil {
		model.SystemInstruction = system
	}

	session := model.StartChat()
	session.History = history
	return session, last, nil
}

func applyGeminiOptions(model *genai.GenerativeModel, req ChatRequest) {
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}
	if req.MaxTokens != nil {
		model.SetMaxOutputTokens(int32(*req.MaxTokens))
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == ResponseFormatJSONObject {
		model.ResponseMIMEType = "application/json"
	}
}

// splitGeminiTurns maps a message list onto Gemini's chat shape: system
// messages become the system instruction, everything before the final user
// message becomes history, and assistant turns are sent as "model".
func splitGeminiTurns(messages []Message) (*genai.Content, []*genai.Content, string, error) {
	var system []genai.Part
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, genai.Text(m.Content))
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		return nil, nil, "", invalidRequest("gemini requires the last message to come from the user")
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{Parts: system}
	}

	var history []*genai.Content
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return instruction, history, turns[len(turns)-1].Content, nil
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func mapGeminiError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return NewAPIError(gErr.Code, gErr.Message)
	}
	return err
}

type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Recv() (*StreamChunk, error) {
	resp, err := s.iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, mapGeminiError(err)
	}
	chunk := &StreamChunk{}
	if len(resp.Candidates) > 0 {
		chunk.Delta = candidateText(resp.Candidates[0])
		if resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			chunk.FinishReason = strings.ToLower(resp.Candidates[0].FinishReason.String())
		}
	}
	return chunk, nil
}

func (s *geminiStream) Close() error { return nil }
