package engine

// Message roles understood by every backend
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat-completion request in the common boundary shape.
// Streaming is never requested.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// Choice is one candidate completion
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage reports token accounting when the backend provides it
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse carries the candidates returned by an engine
type ChatResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// FirstContent returns the content of the first choice, or "" when the
// response has no choices.
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// InitProgress is one progress report emitted while an engine is prepared.
// Progress is a fraction in [0, 1].
type InitProgress struct {
	Text     string  `json:"text"`
	Progress float64 `json:"progress"`
}

// RuntimeConfig is the fixed runtime configuration every engine is built with
type RuntimeConfig struct {
	// KeepAlive is how long a local backend keeps the model resident, e.g. "30m"
	KeepAlive string
	// JSONMode asks the backend to constrain output to a JSON document
	JSONMode bool
}

// ModelInfo describes the pinned model behind a manager
type ModelInfo struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
}
