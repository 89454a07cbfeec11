package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/kafka"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// Accepted is the gateway's acknowledgment: the message entered the log.
// It says nothing about persistence, which happens downstream.
type Accepted struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Gateway validates drafts, stamps identity, and hands them to the log
// producer. It never touches the database.
type Gateway struct {
	producer kafka.MessageProducer
}

func NewGateway(producer kafka.MessageProducer) *Gateway {
	return &Gateway{producer: producer}
}

// Submit admits one draft into the pipeline. Validation failures are
// returned synchronously; once Produce succeeds the message is accepted.
func (g *Gateway) Submit(ctx context.Context, draft *domain.MessageDraft) (*Accepted, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             draft.ID,
		RoomID:         draft.RoomID,
		SenderID:       draft.SenderID,
		SenderName:     draft.SenderName,
		Type:           draft.Type,
		Content:        draft.Content,
		AttachmentURL:  draft.AttachmentURL,
		AttachmentType: draft.AttachmentType,
		MentionUserID:  draft.MentionUserID,
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if draft.Timestamp != nil {
		msg.Timestamp = *draft.Timestamp
	} else {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Type == domain.MessageSystem {
		msg.IsSystem = true
	}

	if err := g.producer.ProduceMessage(ctx, msg); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldRoomID, msg.RoomID).
			Msg("failed to produce message")
		return nil, domain.Wrap(domain.KindTransient, "gateway.submit", "log produce failed", err)
	}

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldRoomID, msg.RoomID).
		Str(log.FieldMsgType, string(msg.Type)).
		Msg("message accepted")

	return &Accepted{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		Timestamp: msg.Timestamp,
	}, nil
}
