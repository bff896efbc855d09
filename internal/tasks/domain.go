package tasks

// Priority represents the priority level of a generated task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// IsValid checks if the Priority is one of the allowed levels
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is a single actionable item extracted from a story.
// An empty Priority means the model did not assign one.
type Task struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Done     bool     `json:"done"`
	Priority Priority `json:"priority,omitempty"`
}

// HasPriority reports whether the task carries a priority
func (t Task) HasPriority() bool {
	return t.Priority != ""
}

// TaskBatch is the validated response of one generation, in model output order.
// IDs are only unique within a single batch.
type TaskBatch struct {
	Tasks []Task `json:"tasks"`
}

// Len returns the number of tasks in the batch
func (b TaskBatch) Len() int {
	return len(b.Tasks)
}
