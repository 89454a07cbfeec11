package fanout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wououoo/weddingalba-chat/internal/config"
	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/hub"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/pubsub"
)

type capturedEvent struct {
	channel string
	event   *pubsub.Event
}

type fakePublisher struct {
	published []capturedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, ev *pubsub.Event) error {
	p.published = append(p.published, capturedEvent{channel: channel, event: ev})
	return nil
}

func newTestHub() *hub.Hub {
	h := hub.NewHub(config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	})
	go h.Run()
	return h
}

func receiveFrame(t *testing.T, c *hub.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliverMessageReachesRoom(t *testing.T) {
	h := newTestHub()
	pub := &fakePublisher{}
	fan := NewFanout(h, pub, "instance-a")

	subscriber := hub.NewClient("c1", 7, nil, h)
	h.Register(subscriber)
	h.Subscribe(subscriber, "room-1")

	outsider := hub.NewClient("c2", 8, nil, h)
	h.Register(outsider)
	h.Subscribe(outsider, "room-2")

	msg := &domain.Message{ID: "m1", RoomID: "room-1", SenderID: 9, Type: domain.MessageChat, Content: "hi"}
	require.NoError(t, fan.DeliverMessage(context.Background(), msg))

	frame := receiveFrame(t, subscriber)
	assert.Equal(t, domain.FrameMessage, frame["type"])
	assert.Equal(t, "room-1", frame["room_id"])
	assertNoFrame(t, outsider)

	require.Len(t, pub.published, 1)
	assert.Equal(t, pubsub.RoomChannel("room-1"), pub.published[0].channel)
	assert.Equal(t, "instance-a", pub.published[0].event.Origin)
}

func TestDeliverMentionReachesUserChannel(t *testing.T) {
	h := newTestHub()
	pub := &fakePublisher{}
	fan := NewFanout(h, pub, "instance-a")

	roomClient := hub.NewClient("c1", 7, nil, h)
	h.Register(roomClient)
	h.Subscribe(roomClient, "room-1")

	mentioned := hub.NewClient("c2", 5, nil, h)
	h.Register(mentioned)

	msg := &domain.Message{
		ID: "m1", RoomID: "room-1", SenderID: 9,
		Type: domain.MessageMention, Content: "@you ping", MentionUserID: 5,
	}
	require.NoError(t, fan.DeliverMessage(context.Background(), msg))

	roomFrame := receiveFrame(t, roomClient)
	assert.Equal(t, domain.FrameMessage, roomFrame["type"])

	userFrame := receiveFrame(t, mentioned)
	assert.Equal(t, domain.FrameMention, userFrame["type"])

	// Room channel and the mentioned user's private channel, one event each.
	require.Len(t, pub.published, 2)
	assert.Equal(t, pubsub.RoomChannel("room-1"), pub.published[0].channel)
	assert.Equal(t, pubsub.UserChannel(5), pub.published[1].channel)
}

func TestDeliverAttachmentEmitsNotify(t *testing.T) {
	h := newTestHub()
	pub := &fakePublisher{}
	fan := NewFanout(h, pub, "instance-a")

	subscriber := hub.NewClient("c1", 7, nil, h)
	h.Register(subscriber)
	h.Subscribe(subscriber, "room-1")

	msg := &domain.Message{
		ID: "m1", RoomID: "room-1", SenderID: 9,
		Type: domain.MessageImage, AttachmentURL: "https://cdn.example.com/p.jpg", AttachmentType: "image/jpeg",
	}
	require.NoError(t, fan.DeliverMessage(context.Background(), msg))

	first := receiveFrame(t, subscriber)
	assert.Equal(t, domain.FrameMessage, first["type"])
	second := receiveFrame(t, subscriber)
	assert.Equal(t, domain.FrameNotify, second["type"])
	assert.Equal(t, "m1", second["message_id"])

	require.Len(t, pub.published, 2)
	assert.Equal(t, pubsub.RoomNotifyChannel("room-1"), pub.published[1].channel)
}

func TestNotifyUnreadReachesEachUser(t *testing.T) {
	h := newTestHub()
	pub := &fakePublisher{}
	fan := NewFanout(h, pub, "instance-a")

	userA := hub.NewClient("c1", 7, nil, h)
	h.Register(userA)
	userB := hub.NewClient("c2", 8, nil, h)
	h.Register(userB)

	updates := []store.CounterUpdate{
		{UserID: 7, RoomID: "room-1", Count: 2, Total: 5},
		{UserID: 8, RoomID: "room-1", Count: 1, Total: 1},
	}
	require.NoError(t, fan.NotifyUnread(context.Background(), updates))

	frameA := receiveFrame(t, userA)
	assert.Equal(t, domain.FrameUnread, frameA["type"])
	assert.Equal(t, float64(2), frameA["count"])
	assert.Equal(t, float64(5), frameA["total"])

	frameB := receiveFrame(t, userB)
	assert.Equal(t, float64(1), frameB["count"])

	require.Len(t, pub.published, 2)
	assert.Equal(t, pubsub.UserChannel(7), pub.published[0].channel)
	assert.Equal(t, pubsub.UserChannel(8), pub.published[1].channel)
}

func TestDeliverTyping(t *testing.T) {
	h := newTestHub()
	pub := &fakePublisher{}
	fan := NewFanout(h, pub, "instance-a")

	subscriber := hub.NewClient("c1", 7, nil, h)
	h.Register(subscriber)
	h.Subscribe(subscriber, "room-1")

	require.NoError(t, fan.DeliverTyping(context.Background(), "room-1", 9, "minsu", true))

	frame := receiveFrame(t, subscriber)
	assert.Equal(t, domain.FrameTypingState, frame["type"])
	assert.Equal(t, true, frame["is_typing"])

	require.Len(t, pub.published, 1)
	assert.Equal(t, pubsub.RoomTypingChannel("room-1"), pub.published[0].channel)
}
