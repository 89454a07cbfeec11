package store

import (
	"context"

	"github.com/wououoo/weddingalba-chat/internal/domain"
)

// PresenceStore holds the ephemeral per-room state: who is typing, who is
// online, and which connection a (room, user) pair is attached to. Nothing
// in here is durable; every entry expires on its own.
type PresenceStore interface {
	// SetTyping upserts (isTyping=true) or immediately deletes
	// (isTyping=false) the typing entry for a user in a room.
	SetTyping(ctx context.Context, roomID string, userID int64, userName string, isTyping bool) error

	// GetTypingUsers returns the live typing entries of a room, lazily
	// deleting entries older than the TTL even if Redis has not expired
	// the key yet.
	GetTypingUsers(ctx context.Context, roomID string) ([]domain.TypingUser, error)

	// SetOnline upserts the presence entry for a user in a room.
	SetOnline(ctx context.Context, roomID string, userID int64) error

	// SetOffline deletes the presence entry immediately.
	SetOffline(ctx context.Context, roomID string, userID int64) error

	// GetOnlineUsers returns the live presence entries of a room.
	GetOnlineUsers(ctx context.Context, roomID string) ([]domain.OnlineUser, error)

	// RegisterSession maps (room, user) to a connection id for join/leave
	// bookkeeping. Join and leave are silent: no message is broadcast.
	RegisterSession(ctx context.Context, roomID string, userID int64, connID string) error
	DeregisterSession(ctx context.Context, roomID string, userID int64) error
	LookupSession(ctx context.Context, roomID string, userID int64) (string, error)

	Close() error
}

// CounterUpdate reports the post-increment state of one recipient's counters.
type CounterUpdate struct {
	UserID int64
	RoomID string
	Count  int64
	Total  int64
}

// UnreadStore maintains the eventually-consistent unread counters. All
// mutations are atomic counter operations at the storage layer; the data is
// a rebuildable projection of the message stream, never a source of truth.
type UnreadStore interface {
	// Increment bumps the per-(recipient, room) counter and the recipient's
	// total for every recipient, and returns the new values.
	Increment(ctx context.Context, roomID string, recipients []int64) ([]CounterUpdate, error)

	// MarkRoomRead atomically reads and clears the per-room counter and
	// decrements the total by the value cleared.
	MarkRoomRead(ctx context.Context, userID int64, roomID string) (cleared, total int64, err error)

	// Get returns one per-room counter; a missing entry is zero.
	Get(ctx context.Context, userID int64, roomID string) (int64, error)

	// Summary returns the non-zero per-room counters plus the total.
	Summary(ctx context.Context, userID int64) (*domain.UnreadSummary, error)

	Close() error
}
