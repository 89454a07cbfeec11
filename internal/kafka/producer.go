package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/wououoo/weddingalba-chat/internal/config"
	"github.com/wououoo/weddingalba-chat/internal/domain"
)

// DeliveryFailureFn is invoked from the delivery-report goroutine when a send
// exhausts its bounded retries. The submit call itself never blocks on this.
type DeliveryFailureFn func(messageID, roomID string, err error)

// ConfluentProducer is an idempotent Kafka producer keyed by room id, so all
// messages of one room land in one partition and keep their publish order.
type ConfluentProducer struct {
	producer  *kafka.Producer
	topic     string
	onFailure DeliveryFailureFn
	doneCh    chan struct{}
}

func NewConfluentProducer(cfg config.KafkaConfig, onFailure DeliveryFailureFn) (*ConfluentProducer, error) {
	// Ensure topic exists with desired partition count
	if err := ensureTopic(cfg.Brokers, cfg.Topic, cfg.Partitions); err != nil {
		log.Printf("Warning: failed to ensure topic %s: %v (may already exist)", cfg.Topic, err)
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":       cfg.Brokers,
		"enable.idempotence":      true,
		"acks":                    "all",
		"message.send.max.retries": cfg.MaxRetries,
		"request.timeout.ms":      cfg.RequestTimeoutMs,
		"delivery.timeout.ms":     cfg.DeliveryTimeoutMs,
		"linger.ms":               5,
		"compression.type":        "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer:  p,
		topic:     cfg.Topic,
		onFailure: onFailure,
		doneCh:    make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

type produceRef struct {
	messageID string
	roomID    string
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error == nil {
				continue
			}
			log.Printf("Kafka delivery failed: %v", ev.TopicPartition.Error)
			if ref, ok := ev.Opaque.(produceRef); ok && cp.onFailure != nil {
				cp.onFailure(ref.messageID, ref.roomID, ev.TopicPartition.Error)
			}
		}
	}
	close(cp.doneCh)
}

// ProduceMessage publishes msg keyed by its room id. The call is
// asynchronous: a nil return means accepted by the client library, not
// delivered. Terminal delivery failures arrive at the failure callback.
func (cp *ConfluentProducer) ProduceMessage(ctx context.Context, msg *domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:    []byte(msg.RoomID),
		Value:  value,
		Opaque: produceRef{messageID: msg.ID, roomID: msg.RoomID},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
