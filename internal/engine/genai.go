package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"story-tasker-api/internal/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GenAIFactory builds engines backed by the hosted Gemini API. There are no
// weights to fetch, so construction only verifies the model is reachable.
type GenAIFactory struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenAIFactory creates a GenAIFactory from the engine configuration.
// An empty GenAIBaseURL keeps the SDK's default endpoint.
func NewGenAIFactory(cfg config.EngineConfig, logger *zap.Logger) *GenAIFactory {
	return &GenAIFactory{
		apiKey:  cfg.APIKey,
		baseURL: cfg.GenAIBaseURL,
		timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		logger:  logger,
	}
}

// Backend implements Factory
func (f *GenAIFactory) Backend() string {
	return config.BackendGenAI
}

// CreateEngine implements Factory
func (f *GenAIFactory) CreateEngine(ctx context.Context, modelID string, runtime RuntimeConfig, onProgress ProgressFunc) (Engine, error) {
	if f.apiKey == "" {
		return nil, NewConfigurationError("api_key", "API key is required", "the genai backend needs engine.api_key")
	}
	if onProgress != nil {
		onProgress(InitProgress{Text: "Connecting to Gemini API", Progress: 0})
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      f.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: f.baseURL},
	})
	if err != nil {
		return nil, NewNetworkError("create_client", "Failed to create GenAI client", err)
	}

	if _, err := client.Models.Get(ctx, modelID, nil); err != nil {
		return nil, handleGenAIError("get_model", err)
	}
	if onProgress != nil {
		onProgress(InitProgress{Text: "Model available", Progress: LoadingProgress})
	}

	f.logger.Info("GenAI engine created", zap.String("model", modelID))

	return &genaiEngine{
		client:  client,
		model:   modelID,
		runtime: runtime,
		timeout: f.timeout,
	}, nil
}

type genaiEngine struct {
	client  *genai.Client
	model   string
	runtime RuntimeConfig
	timeout time.Duration
}

// ChatCompletion implements Engine. System messages become the system
// instruction; assistant messages map to the model role.
func (e *genaiEngine) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if e.runtime.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, handleGenAIError("generate_content", err)
	}
	return genaiChatResponse(e.model, resp), nil
}

// genaiChatResponse keeps one choice per candidate, in order. A nil
// candidate becomes an empty choice so indexes stay aligned.
func genaiChatResponse(model string, resp *genai.GenerateContentResponse) *ChatResponse {
	out := &ChatResponse{Model: model}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		choice := Choice{Message: Message{Role: RoleAssistant}}
		if cand != nil {
			var text strings.Builder
			if cand.Content != nil {
				for _, part := range cand.Content.Parts {
					if part != nil {
						text.WriteString(part.Text)
					}
				}
			}
			choice.Message.Content = text.String()
			choice.FinishReason = string(cand.FinishReason)
		}
		out.Choices = append(out.Choices, choice)
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out
}

// handleGenAIError converts an SDK error into a typed error. Status errors
// from the API keep their HTTP status; anything else is a network failure.
func handleGenAIError(operation string, err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return NewNetworkError(operation, "GenAI request failed", err)
	}

	message := apiErr.Message
	if message == "" {
		message = apiErr.Status
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewAPIError(apiErr.Code, ErrorCodeInvalidAPIKey, message, apiErr.Status)
	case http.StatusNotFound:
		return NewAPIError(apiErr.Code, ErrorCodeModelNotFound, message, apiErr.Status)
	case http.StatusBadRequest:
		return NewAPIError(apiErr.Code, ErrorCodeInvalidRequest, message, apiErr.Status)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return NewAPIError(apiErr.Code, ErrorCodeServiceUnavailable, message, apiErr.Status)
	default:
		return NewAPIError(apiErr.Code, ErrorCodeUnknown, message, apiErr.Status)
	}
}
