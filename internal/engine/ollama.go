package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"story-tasker-api/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// OllamaFactory prepares models on an Ollama server: it waits for the
// server, pulls the model when missing and loads it into memory.
type OllamaFactory struct {
	baseURL        string
	httpClient     *http.Client
	pullClient     *http.Client
	startupTimeout time.Duration
	logger         *zap.Logger
}

type ollamaChatRequest struct {
	Model     string         `json:"model"`
	Messages  []Message      `json:"messages"`
	Stream    bool           `json:"stream"`
	Format    string         `json:"format,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error"`
}

type ollamaModelRequest struct {
	Model     string `json:"model"`
	Stream    *bool  `json:"stream,omitempty"`
	KeepAlive string `json:"keep_alive,omitempty"`
}

// ollamaPullStatus is one NDJSON line of a streaming pull
type ollamaPullStatus struct {
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

type ollamaErrorBody struct {
	Error string `json:"error"`
}

// NewOllamaFactory creates an OllamaFactory from the engine configuration
func NewOllamaFactory(cfg config.EngineConfig, logger *zap.Logger) *OllamaFactory {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	startup := time.Duration(cfg.StartupTimeout) * time.Second
	if startup <= 0 {
		startup = 60 * time.Second
	}

	return &OllamaFactory{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		// Pulls of multi-gigabyte weights are bounded by ctx only
		pullClient:     &http.Client{},
		startupTimeout: startup,
		logger:         logger,
	}
}

// Backend implements Factory
func (f *OllamaFactory) Backend() string {
	return config.BackendOllama
}

// CreateEngine implements Factory
func (f *OllamaFactory) CreateEngine(ctx context.Context, modelID string, runtime RuntimeConfig, onProgress ProgressFunc) (Engine, error) {
	report := func(text string, progress float64) {
		if onProgress != nil {
			onProgress(InitProgress{Text: text, Progress: progress})
		}
	}

	report("Connecting to inference server", 0)
	if err := f.waitForServer(ctx); err != nil {
		return nil, err
	}

	present, err := f.hasModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !present {
		f.logger.Info("Model not present, pulling", zap.String("model", modelID))
		if err := f.pull(ctx, modelID, onProgress); err != nil {
			return nil, err
		}
	}

	report("Loading model into memory", LoadingProgress)
	if err := f.load(ctx, modelID, runtime.KeepAlive); err != nil {
		return nil, err
	}

	return &ollamaEngine{
		model:      modelID,
		baseURL:    f.baseURL,
		runtime:    runtime,
		httpClient: f.httpClient,
		logger:     f.logger,
	}, nil
}

// waitForServer polls /api/version until the server answers or the startup
// budget is spent.
func (f *OllamaFactory) waitForServer(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = f.startupTimeout

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/version", nil)
		if err != nil {
			return backoff.Permanent(NewNetworkError("create_request", "Failed to create HTTP request", err))
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return NewNetworkError("probe_server", "Inference server is not reachable", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			return NewAPIError(resp.StatusCode, ErrorCodeServiceUnavailable, "Inference server is not ready", "")
		}
		return nil
	}

	notifyRetry := func(err error, wait time.Duration) {
		f.logger.Debug("Inference server not ready, retrying",
			zap.Error(err),
			zap.Duration("wait", wait))
	}

	return backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notifyRetry)
}

func (f *OllamaFactory) hasModel(ctx context.Context, modelID string) (bool, error) {
	resp, err := f.post(ctx, f.httpClient, "/api/show", ollamaModelRequest{Model: modelID})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, handleOllamaHTTPError(resp.StatusCode, body)
	}
}

func (f *OllamaFactory) pull(ctx context.Context, modelID string, onProgress ProgressFunc) error {
	stream := true
	resp, err := f.post(ctx, f.pullClient, "/api/pull", ollamaModelRequest{Model: modelID, Stream: &stream})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return handleOllamaHTTPError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	succeeded := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var status ollamaPullStatus
		if err := json.Unmarshal([]byte(line), &status); err != nil {
			return NewAPIError(resp.StatusCode, ErrorCodePullFailed, "Malformed pull status", err.Error())
		}
		if status.Error != "" {
			return NewAPIError(resp.StatusCode, ErrorCodePullFailed, status.Error, "")
		}
		if onProgress != nil {
			onProgress(pullProgress(status))
		}
		if status.Status == "success" {
			succeeded = true
		}
	}
	if err := scanner.Err(); err != nil {
		return NewNetworkError("pull_model", "Pull stream interrupted", err)
	}
	if !succeeded {
		return NewAPIError(resp.StatusCode, ErrorCodePullFailed, "Pull ended without success", modelID)
	}
	return nil
}

// pullProgress maps a pull status line to a progress report. Layer
// downloads report their completed/total fraction scaled into the
// download share of initialization.
func pullProgress(s ollamaPullStatus) InitProgress {
	switch {
	case s.Status == "success":
		return InitProgress{Text: "Model downloaded", Progress: DownloadedProgress}
	case s.Total > 0:
		fraction := float64(s.Completed) / float64(s.Total)
		return InitProgress{
			Text:     fmt.Sprintf("%s: %d%% completed", s.Status, int(fraction*100)),
			Progress: fraction * DownloadedProgress,
		}
	default:
		return InitProgress{Text: s.Status, Progress: 0}
	}
}

// load issues an empty generate request, which makes Ollama load the model
func (f *OllamaFactory) load(ctx context.Context, modelID, keepAlive string) error {
	stream := false
	resp, err := f.post(ctx, f.httpClient, "/api/generate", ollamaModelRequest{
		Model:     modelID,
		Stream:    &stream,
		KeepAlive: keepAlive,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return handleOllamaHTTPError(resp.StatusCode, body)
	}
	return nil
}

func (f *OllamaFactory) post(ctx context.Context, client *http.Client, path string, payload any) (*http.Response, error) {
	return postJSON(ctx, client, f.baseURL+path, payload)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewConfigurationError("request", "Failed to marshal request", err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewNetworkError("create_request", "Failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewNetworkError("http_request", "Failed to make HTTP request", err)
	}
	return resp, nil
}

// ollamaEngine runs chat completions against a loaded model
type ollamaEngine struct {
	model      string
	baseURL    string
	runtime    RuntimeConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// ChatCompletion implements Engine
func (e *ollamaEngine) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := ollamaChatRequest{
		Model:     e.model,
		Messages:  req.Messages,
		Stream:    false,
		KeepAlive: e.runtime.KeepAlive,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		payload.Options["num_predict"] = req.MaxTokens
	}
	if e.runtime.JSONMode {
		payload.Format = "json"
	}

	resp, err := postJSON(ctx, e.httpClient, e.baseURL+"/api/chat", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("read_response", "Failed to read response body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, handleOllamaHTTPError(resp.StatusCode, body)
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, NewAPIError(resp.StatusCode, ErrorCodeUnknown, "Failed to decode chat response", err.Error())
	}
	if chat.Error != "" {
		return nil, NewAPIError(resp.StatusCode, ErrorCodeUnknown, chat.Error, "")
	}

	e.logger.Debug("Chat completion finished",
		zap.String("model", e.model),
		zap.String("done_reason", chat.DoneReason),
		zap.Int("eval_count", chat.EvalCount))

	role := chat.Message.Role
	if role == "" {
		role = RoleAssistant
	}
	return &ChatResponse{
		Model: chat.Model,
		Choices: []Choice{{
			Message:      Message{Role: role, Content: chat.Message.Content},
			FinishReason: chat.DoneReason,
		}},
		Usage: Usage{
			PromptTokens:     chat.PromptEvalCount,
			CompletionTokens: chat.EvalCount,
		},
	}, nil
}

// handleOllamaHTTPError converts an error status into a typed error
func handleOllamaHTTPError(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var parsed ollamaErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	}

	switch statusCode {
	case http.StatusNotFound:
		return NewAPIError(statusCode, ErrorCodeModelNotFound, message, "")
	case http.StatusBadRequest:
		return NewAPIError(statusCode, ErrorCodeInvalidRequest, message, "")
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return NewAPIError(statusCode, ErrorCodeServiceUnavailable, message, "")
	default:
		return NewAPIError(statusCode, ErrorCodeUnknown, message, "")
	}
}

// IsModelNotFound reports whether err is an API error for a missing model
func IsModelNotFound(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == ErrorCodeModelNotFound
}
