package queue

type TaskType string

const (
	TaskTypeSummarize TaskType = "summarize_conversation"
)

// Task is one detached job carried over the Redis stream.
type Task struct {
	TaskType       TaskType
	ConversationID int64
	TraceID        *string
	Attempt        int
}
