package worker

import (
	"context"

	"github.com/jackhunterking/adpilot/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// TaskProcessor abstracts task handling for testability.
type TaskProcessor interface {
	Process(ctx context.Context, msg queue.Message) error
}
