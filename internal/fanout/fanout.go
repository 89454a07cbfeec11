package fanout

import (
	"context"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/hub"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/log"
	"github.com/wououoo/weddingalba-chat/pkg/pubsub"
)

type busFanout struct {
	hub        *hub.Hub
	pub        pubsub.Publisher
	instanceID string
}

// NewFanout creates a fanout that pushes to the local hub and republishes
// on the event bus so peer instances can reach their own subscribers.
func NewFanout(h *hub.Hub, pub pubsub.Publisher, instanceID string) Fanout {
	return &busFanout{
		hub:        h,
		pub:        pub,
		instanceID: instanceID,
	}
}

func (f *busFanout) DeliverMessage(ctx context.Context, msg *domain.Message) error {
	frame := &domain.MessageFrame{
		Type:    domain.FrameMessage,
		RoomID:  msg.RoomID,
		Message: msg,
	}
	if err := f.hub.BroadcastToRoom(msg.RoomID, frame); err != nil {
		return err
	}
	if err := f.publish(ctx, pubsub.RoomChannel(msg.RoomID), pubsub.EventMessage, msg.RoomID, frame); err != nil {
		return err
	}

	switch msg.Type {
	case domain.MessageMention:
		mention := &domain.MentionFrame{
			Type:    domain.FrameMention,
			RoomID:  msg.RoomID,
			Message: msg,
		}
		if err := f.hub.SendToUser(msg.MentionUserID, mention); err != nil {
			return err
		}
		if err := f.publish(ctx, pubsub.UserChannel(msg.MentionUserID), pubsub.EventMention, msg.RoomID, mention); err != nil {
			return err
		}
	case domain.MessageFile, domain.MessageImage:
		notify := &domain.NotifyFrame{
			Type:           domain.FrameNotify,
			RoomID:         msg.RoomID,
			MessageID:      msg.ID,
			AttachmentURL:  msg.AttachmentURL,
			AttachmentType: msg.AttachmentType,
		}
		if err := f.hub.BroadcastToRoom(msg.RoomID, notify); err != nil {
			return err
		}
		if err := f.publish(ctx, pubsub.RoomNotifyChannel(msg.RoomID), pubsub.EventUploadComplete, msg.RoomID, notify); err != nil {
			return err
		}
	}
	return nil
}

func (f *busFanout) DeliverTyping(ctx context.Context, roomID string, userID int64, userName string, isTyping bool) error {
	frame := &domain.TypingStateFrame{
		Type:     domain.FrameTypingState,
		RoomID:   roomID,
		UserID:   userID,
		UserName: userName,
		IsTyping: isTyping,
	}
	if err := f.hub.BroadcastToRoom(roomID, frame); err != nil {
		return err
	}
	return f.publish(ctx, pubsub.RoomTypingChannel(roomID), pubsub.EventTyping, roomID, frame)
}

func (f *busFanout) NotifyUnread(ctx context.Context, updates []store.CounterUpdate) error {
	for _, u := range updates {
		frame := &domain.UnreadFrame{
			Type:   domain.FrameUnread,
			RoomID: u.RoomID,
			Count:  u.Count,
			Total:  u.Total,
		}
		if err := f.hub.SendToUser(u.UserID, frame); err != nil {
			return err
		}
		if err := f.publish(ctx, pubsub.UserChannel(u.UserID), pubsub.EventUnreadChanged, u.RoomID, frame); err != nil {
			return err
		}
	}
	return nil
}

func (f *busFanout) NotifyRoomRead(ctx context.Context, userID int64, roomID string, total int64) error {
	frame := &domain.UnreadFrame{
		Type:   domain.FrameUnread,
		RoomID: roomID,
		Count:  0,
		Total:  total,
	}
	if err := f.hub.SendToUser(userID, frame); err != nil {
		return err
	}
	return f.publish(ctx, pubsub.UserChannel(userID), pubsub.EventRoomRead, roomID, frame)
}

func (f *busFanout) publish(ctx context.Context, channel, eventType, roomID string, payload interface{}) error {
	ev, err := pubsub.NewEvent(eventType, roomID, payload)
	if err != nil {
		return err
	}
	ev.Origin = f.instanceID
	if err := f.pub.Publish(ctx, channel, ev); err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldChannel, channel).Msg("failed to publish event")
		return err
	}
	return nil
}
