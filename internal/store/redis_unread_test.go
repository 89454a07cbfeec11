package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestUnreadIncrementAccumulates(t *testing.T) {
	unread := NewRedisUnreadStore(newTestRedis(t))
	ctx := context.Background()

	updates, err := unread.Increment(ctx, "room-1", []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(1), updates[0].Count)
	assert.Equal(t, int64(1), updates[0].Total)

	// Two more messages land in the same room.
	_, err = unread.Increment(ctx, "room-1", []int64{7, 8})
	require.NoError(t, err)
	updates, err = unread.Increment(ctx, "room-1", []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updates[0].Count)
	assert.Equal(t, int64(3), updates[0].Total)

	count, err := unread.Get(ctx, 7, "room-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUnreadTotalSpansRooms(t *testing.T) {
	unread := NewRedisUnreadStore(newTestRedis(t))
	ctx := context.Background()

	_, err := unread.Increment(ctx, "room-1", []int64{7})
	require.NoError(t, err)
	_, err = unread.Increment(ctx, "room-1", []int64{7})
	require.NoError(t, err)
	updates, err := unread.Increment(ctx, "room-2", []int64{7})
	require.NoError(t, err)

	assert.Equal(t, int64(1), updates[0].Count)
	assert.Equal(t, int64(3), updates[0].Total)
}

func TestMarkRoomReadClearsAtomically(t *testing.T) {
	unread := NewRedisUnreadStore(newTestRedis(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := unread.Increment(ctx, "room-1", []int64{7})
		require.NoError(t, err)
	}
	_, err := unread.Increment(ctx, "room-2", []int64{7})
	require.NoError(t, err)

	cleared, total, err := unread.MarkRoomRead(ctx, 7, "room-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)
	assert.Equal(t, int64(1), total, "other rooms' counts remain in the total")

	count, err := unread.Get(ctx, 7, "room-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Marking an already-read room clears nothing and leaves the total.
	cleared, total, err = unread.MarkRoomRead(ctx, 7, "room-1")
	require.NoError(t, err)
	assert.Zero(t, cleared)
	assert.Equal(t, int64(1), total)
}

func TestMarkRoomReadUnknownUser(t *testing.T) {
	unread := NewRedisUnreadStore(newTestRedis(t))
	ctx := context.Background()

	cleared, total, err := unread.MarkRoomRead(ctx, 404, "room-1")
	require.NoError(t, err)
	assert.Zero(t, cleared)
	assert.Zero(t, total)
}

func TestUnreadSummary(t *testing.T) {
	unread := NewRedisUnreadStore(newTestRedis(t))
	ctx := context.Background()

	_, err := unread.Increment(ctx, "room-1", []int64{7})
	require.NoError(t, err)
	_, err = unread.Increment(ctx, "room-1", []int64{7})
	require.NoError(t, err)
	_, err = unread.Increment(ctx, "room-2", []int64{7})
	require.NoError(t, err)

	summary, err := unread.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	require.Len(t, summary.Rooms, 2)

	counts := map[string]int64{}
	for _, r := range summary.Rooms {
		counts[r.RoomID] = r.Count
	}
	assert.Equal(t, int64(2), counts["room-1"])
	assert.Equal(t, int64(1), counts["room-2"])

	// Cleared rooms drop out of the summary.
	_, _, err = unread.MarkRoomRead(ctx, 7, "room-1")
	require.NoError(t, err)

	summary, err = unread.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Total)
	require.Len(t, summary.Rooms, 1)
	assert.Equal(t, "room-2", summary.Rooms[0].RoomID)
}

func TestUnreadSummaryEmpty(t *testing.T) {
	unread := NewRedisUnreadStore(newTestRedis(t))

	summary, err := unread.Summary(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Rooms)
}
