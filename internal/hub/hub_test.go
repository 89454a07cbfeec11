package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wououoo/weddingalba-chat/internal/config"
)

func newRunningHub() *Hub {
	h := NewHub(config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	})
	go h.Run()
	return h
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func TestBroadcastToRoom(t *testing.T) {
	h := newRunningHub()

	a := NewClient("a", 1, nil, h)
	b := NewClient("b", 2, nil, h)
	h.Register(a)
	h.Register(b)
	h.Subscribe(a, "room-1")
	h.Subscribe(b, "room-1")

	require.NoError(t, h.BroadcastToRoom("room-1", map[string]string{"type": "message"}))

	assert.NotEmpty(t, recv(t, a))
	assert.NotEmpty(t, recv(t, b))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newRunningHub()

	a := NewClient("a", 1, nil, h)
	h.Register(a)
	h.Subscribe(a, "room-1")
	assert.Equal(t, 1, h.RoomSubscriberCount("room-1"))

	h.Unsubscribe(a, "room-1")
	assert.Equal(t, 0, h.RoomSubscriberCount("room-1"))

	require.NoError(t, h.BroadcastToRoom("room-1", map[string]string{"type": "message"}))

	select {
	case data := <-a.Send:
		t.Fatalf("unexpected delivery after unsubscribe: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendToUserReachesAllConnections(t *testing.T) {
	h := newRunningHub()

	// Same user on two devices.
	phone := NewClient("phone", 7, nil, h)
	laptop := NewClient("laptop", 7, nil, h)
	other := NewClient("other", 8, nil, h)
	h.Register(phone)
	h.Register(laptop)
	h.Register(other)

	require.NoError(t, h.SendToUser(7, map[string]string{"type": "unread"}))

	assert.NotEmpty(t, recv(t, phone))
	assert.NotEmpty(t, recv(t, laptop))

	select {
	case data := <-other.Send:
		t.Fatalf("unexpected delivery to another user: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterCleansRoomMembership(t *testing.T) {
	h := newRunningHub()

	a := NewClient("a", 1, nil, h)
	h.Register(a)
	h.Subscribe(a, "room-1")

	h.Unregister(a)

	// Unregister is async; wait for the membership to drop.
	require.Eventually(t, func() bool {
		return h.RoomSubscriberCount("room-1") == 0
	}, time.Second, 10*time.Millisecond)
}
