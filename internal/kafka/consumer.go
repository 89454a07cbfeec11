package kafka

import (
	"context"
	"fmt"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/wououoo/weddingalba-chat/internal/config"
)

// Consumer polls the chat topic and hands each record to a RecordHandler.
// Offsets are auto-committed after the poll regardless of handler outcome:
// a record that fails persistence is not redelivered (accepted limitation,
// the message was already fanned out live).
type Consumer struct {
	consumer *kafka.Consumer
	topic    string
	groupID  string
	handler  RecordHandler
	done     chan struct{}
}

func NewConsumer(cfg config.KafkaConfig, handler RecordHandler) (*Consumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       cfg.Brokers,
		"group.id":                cfg.GroupID,
		"auto.offset.reset":       cfg.AutoOffsetReset,
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
		"max.poll.interval.ms":    cfg.MaxPollIntervalMs,
		"session.timeout.ms":      cfg.SessionTimeoutMs,
		"heartbeat.interval.ms":   cfg.HeartbeatIntervalMs,
		"fetch.min.bytes":         cfg.FetchMinBytes,
		"fetch.wait.max.ms":       cfg.FetchMaxWaitMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &Consumer{
		consumer: c,
		topic:    cfg.Topic,
		groupID:  cfg.GroupID,
		handler:  handler,
		done:     make(chan struct{}),
	}, nil
}

// Run starts consuming messages from Kafka. It blocks until ctx is done or a
// fatal broker error occurs. Run owns the underlying handle and closes it on
// exit; closing it concurrently with Poll is unsafe.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.done)
	defer func() {
		log.Println("Closing Kafka consumer...")
		if err := c.consumer.Close(); err != nil {
			log.Printf("Kafka consumer close error: %v", err)
		}
	}()

	if err := c.consumer.Subscribe(c.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.topic, err)
	}

	log.Printf("Kafka consumer started (topic: %s, group: %s)", c.topic, c.groupID)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer stopping...")
			return nil
		default:
		}

		ev := c.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := c.handler(ctx, e.TopicPartition.Partition, e.Key, e.Value); err != nil {
				log.Printf("record handler error (partition=%d offset=%v): %v",
					e.TopicPartition.Partition, e.TopicPartition.Offset, err)
			}
		case kafka.Error:
			log.Printf("Kafka error: %v (code=%d fatal=%v)", e, e.Code(), e.IsFatal())
			if e.IsFatal() {
				return fmt.Errorf("fatal kafka error: %w", e)
			}
		case kafka.OffsetsCommitted:
			// Normal auto-commit acknowledgement
		default:
			// Ignore other events (rebalance, etc.)
		}
	}
}

// Close blocks until Run has exited and released the handle.
func (c *Consumer) Close() {
	<-c.done
}
