package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wououoo/weddingalba-chat/internal/config"
)

func testKafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:             "127.0.0.1:1",
		Topic:               "chat-messages",
		GroupID:             "chat-consumer-test",
		AutoOffsetReset:     "earliest",
		MaxPollIntervalMs:   300000,
		SessionTimeoutMs:    45000,
		HeartbeatIntervalMs: 3000,
		FetchMinBytes:       1,
		FetchMaxWaitMs:      500,
	}
}

// The underlying handle belongs to Run; Close must not return while Run may
// still be polling it.
func TestConsumerCloseWaitsForRun(t *testing.T) {
	c, err := NewConsumer(testKafkaConfig(), func(ctx context.Context, partition int32, key, value []byte) error {
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx) }()

	select {
	case <-c.done:
		t.Fatal("handle released while Run is still polling")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	c.Close()
	require.NoError(t, <-runDone)

	select {
	case <-c.done:
	default:
		t.Fatal("Close returned before Run released the handle")
	}
}
