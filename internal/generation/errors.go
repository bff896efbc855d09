package generation

import (
	"errors"
	"fmt"
	"strings"

	"story-tasker-api/internal/tasks"
)

// ErrInvalidFormat is reported when model output cannot be turned into a
// valid task batch. A single malformed response is terminal for that call.
var ErrInvalidFormat = errors.New("model returned invalid format")

// Stages at which model output can be rejected
const (
	StageParse    = "parse"
	StageValidate = "validate"
)

// FormatError carries the diagnostics behind an ErrInvalidFormat failure.
// Error() keeps the human-readable message short; Detail() has the rest.
type FormatError struct {
	Stage   string
	Content string
	Issues  []tasks.Issue
	Cause   error
}

func (e *FormatError) Error() string {
	return ErrInvalidFormat.Error()
}

// Is makes errors.Is(err, ErrInvalidFormat) hold for every FormatError
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// Detail describes why the output was rejected
func (e *FormatError) Detail() string {
	if len(e.Issues) > 0 {
		parts := make([]string, 0, len(e.Issues))
		for _, issue := range e.Issues {
			parts = append(parts, issue.String())
		}
		return fmt.Sprintf("%s: %s", e.Stage, strings.Join(parts, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
	}
	return e.Stage
}

func newParseError(content string, cause error) *FormatError {
	return &FormatError{Stage: StageParse, Content: content, Cause: cause}
}

func newValidateError(content string, cause error) *FormatError {
	fe := &FormatError{Stage: StageValidate, Content: content, Cause: cause}
	var verr *tasks.ValidationError
	if errors.As(cause, &verr) {
		fe.Issues = verr.Issues
	}
	return fe
}

// InputError reports a story rejected before generation
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInputError reports whether err is an InputError
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

// ValidateStory rejects empty or whitespace-only stories. Generate itself
// places no constraint on the story; front ends call this first.
func ValidateStory(story string) error {
	if strings.TrimSpace(story) == "" {
		return &InputError{Field: "story", Reason: "story must not be empty"}
	}
	return nil
}
