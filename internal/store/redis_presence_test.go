package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingSetAndStop(t *testing.T) {
	presence := NewRedisPresenceStore(newTestRedis(t), PresenceConfig{})
	ctx := context.Background()

	require.NoError(t, presence.SetTyping(ctx, "room-1", 7, "hyejin", true))
	require.NoError(t, presence.SetTyping(ctx, "room-1", 8, "minsu", true))

	users, err := presence.GetTypingUsers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Explicit stop removes the entry before any TTL.
	require.NoError(t, presence.SetTyping(ctx, "room-1", 7, "hyejin", false))

	users, err = presence.GetTypingUsers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(8), users[0].UserID)
	assert.Equal(t, "minsu", users[0].UserName)
}

func TestTypingExpiresWithoutStop(t *testing.T) {
	presence := NewRedisPresenceStore(newTestRedis(t), PresenceConfig{TypingTTL: 50 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, presence.SetTyping(ctx, "room-1", 7, "hyejin", true))

	users, err := presence.GetTypingUsers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, users, 1)

	// No stop signal arrives; the entry ages out past the TTL and the next
	// read prunes it.
	time.Sleep(80 * time.Millisecond)

	users, err = presence.GetTypingUsers(ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestTypingRefreshKeepsEntryAlive(t *testing.T) {
	presence := NewRedisPresenceStore(newTestRedis(t), PresenceConfig{TypingTTL: 100 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, presence.SetTyping(ctx, "room-1", 7, "hyejin", true))
	time.Sleep(60 * time.Millisecond)
	// A fresh keystroke re-upserts and resets the clock.
	require.NoError(t, presence.SetTyping(ctx, "room-1", 7, "hyejin", true))
	time.Sleep(60 * time.Millisecond)

	users, err := presence.GetTypingUsers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestPresenceOnlineOffline(t *testing.T) {
	presence := NewRedisPresenceStore(newTestRedis(t), PresenceConfig{})
	ctx := context.Background()

	require.NoError(t, presence.SetOnline(ctx, "room-1", 7))
	require.NoError(t, presence.SetOnline(ctx, "room-1", 8))

	users, err := presence.GetOnlineUsers(ctx, "room-1")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, presence.SetOffline(ctx, "room-1", 7))

	users, err = presence.GetOnlineUsers(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(8), users[0].UserID)
}

func TestSessionRegistry(t *testing.T) {
	presence := NewRedisPresenceStore(newTestRedis(t), PresenceConfig{})
	ctx := context.Background()

	require.NoError(t, presence.RegisterSession(ctx, "room-1", 7, "conn-abc"))

	connID, err := presence.LookupSession(ctx, "room-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "conn-abc", connID)

	require.NoError(t, presence.DeregisterSession(ctx, "room-1", 7))

	connID, err = presence.LookupSession(ctx, "room-1", 7)
	require.NoError(t, err)
	assert.Empty(t, connID)
}
