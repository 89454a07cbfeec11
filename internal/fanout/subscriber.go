package fanout

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wououoo/weddingalba-chat/internal/hub"
	"github.com/wououoo/weddingalba-chat/pkg/log"
	"github.com/wououoo/weddingalba-chat/pkg/pubsub"
)

// Subscriber bridges the event bus back into the local hub. Events published
// by this instance are skipped; peer events are replayed to local subscribers.
type Subscriber struct {
	hub        *hub.Hub
	sub        pubsub.Subscriber
	instanceID string
}

func NewSubscriber(h *hub.Hub, sub pubsub.Subscriber, instanceID string) *Subscriber {
	return &Subscriber{
		hub:        h,
		sub:        sub,
		instanceID: instanceID,
	}
}

// Run subscribes to all chat channels and routes foreign events until the
// context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	events, err := s.sub.SubscribePattern(ctx, "chat:*")
	if err != nil {
		return err
	}

	l := log.L()
	l.Info().Str("instance_id", s.instanceID).Msg("event bus subscriber started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Origin == s.instanceID {
				continue
			}
			s.route(ev)
		}
	}
}

func (s *Subscriber) route(ev *pubsub.Event) {
	if userID, ok := parseUserChannel(ev.Channel); ok {
		if err := s.hub.SendToUser(userID, json.RawMessage(ev.Payload)); err != nil {
			l := log.L()
			l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to deliver bus event to user")
		}
		return
	}
	if ev.RoomID == "" {
		return
	}
	if err := s.hub.BroadcastToRoom(ev.RoomID, json.RawMessage(ev.Payload)); err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoomID, ev.RoomID).Msg("failed to deliver bus event to room")
	}
}

func parseUserChannel(channel string) (int64, bool) {
	const prefix = "chat:user:"
	if !strings.HasPrefix(channel, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(channel[len(prefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
