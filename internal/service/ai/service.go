package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"readmegen/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

var errEmptyResponse = errors.New("model returned an empty response")

// Generator turns one prompt into README text.
type Generator interface {
	Generate(ctx context.Context, prompt string) Result
}

// Service issues single, non-streaming generation calls against one chat model.
type Service struct {
	chatModel model.BaseChatModel
	provider  string
	modelName string
}

// NewService builds the chat model for the provider. token must be non-empty.
func NewService(ctx context.Context, provider, modelName, token string, provCfg config.ProviderConfig) (*Service, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, config.ErrMissingCredential
	}
	if modelName == "" {
		modelName = provCfg.Model
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  token,
			Backend: genai.BackendGeminiAPI,
		})
		if cerr != nil {
			return nil, fmt.Errorf("new gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  token,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		maxTokens := provCfg.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 8192
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    token,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: maxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s model: %w", provider, err)
	}
	return NewServiceWithModel(chatModel, provider, modelName), nil
}

// NewServiceWithModel wraps an existing chat model.
func NewServiceWithModel(chatModel model.BaseChatModel, provider, modelName string) *Service {
	return &Service{chatModel: chatModel, provider: provider, modelName: modelName}
}

// Model reports the configured model name.
func (s *Service) Model() string {
	return s.modelName
}

// Generate sends the prompt as one user message. It never retries; every error
// is returned as a Failure.
func (s *Service) Generate(ctx context.Context, prompt string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail(fmt.Errorf("%s model panicked: %v", s.provider, r))
		}
	}()

	if s == nil || s.chatModel == nil {
		return Fail(errors.New("ai service unavailable"))
	}
	start := time.Now()
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		log.Printf("generate with %s/%s failed after %s: %v", s.provider, s.modelName, time.Since(start).Round(time.Millisecond), err)
		return Fail(err)
	}
	if resp == nil || resp.Content == "" {
		return Fail(errEmptyResponse)
	}
	log.Printf("generated %d bytes with %s/%s in %s", len(resp.Content), s.provider, s.modelName, time.Since(start).Round(time.Millisecond))
	return Success(resp.Content)
}
