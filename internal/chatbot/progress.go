package chatbot

import (
	"sync"
)

const (
	preparingText = "⏳ Preparing model…"
	progressSteps = 4
)

// progressThrottle decides which engine progress reports reach the chat.
// The first report of a run sends preparingText; later reports only pass
// when they cross into a new quarter. A run whose first report is already
// complete used a ready engine and sends nothing.
type progressThrottle struct {
	mu    sync.Mutex
	steps map[string]int
}

func newProgressThrottle() *progressThrottle {
	return &progressThrottle{steps: make(map[string]int)}
}

// next returns the message to send for a report of run, if any
func (t *progressThrottle) next(run, text string, progress float64) (string, bool) {
	step := int(progress * progressSteps)

	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.steps[run]
	if !seen {
		if step >= progressSteps {
			t.steps[run] = step
			return "", false
		}
		t.steps[run] = step
		return preparingText, true
	}
	if step <= last {
		return "", false
	}
	t.steps[run] = step
	return FormatProgress(text, progress), true
}

// done forgets run
func (t *progressThrottle) done(run string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.steps, run)
}
