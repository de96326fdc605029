package worker

import (
	"context"

	"basegraph.app/crmsync/internal/queue"
)

type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
}
