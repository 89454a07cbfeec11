package kafka

import (
	"context"

	"github.com/wououoo/weddingalba-chat/internal/domain"
)

// MessageProducer publishes validated messages onto the durable log.
type MessageProducer interface {
	ProduceMessage(ctx context.Context, msg *domain.Message) error
	Close() error
}

// RecordHandler receives one log record together with its partition, so the
// caller can keep per-partition processing sequential.
type RecordHandler func(ctx context.Context, partition int32, key, value []byte) error
