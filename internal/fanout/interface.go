package fanout

import (
	"context"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/store"
)

// Fanout delivers processed chat events to live subscribers, locally through
// the hub and across instances through the event bus.
type Fanout interface {
	// DeliverMessage pushes a message to its room channel. MENTION messages
	// additionally reach the mentioned user's private channel; FILE and IMAGE
	// messages additionally reach the room notify channel.
	DeliverMessage(ctx context.Context, msg *domain.Message) error

	// DeliverTyping pushes a typing state change to the room typing channel.
	DeliverTyping(ctx context.Context, roomID string, userID int64, userName string, isTyping bool) error

	// NotifyUnread pushes unread counter changes to each affected user's
	// private channel.
	NotifyUnread(ctx context.Context, updates []store.CounterUpdate) error

	// NotifyRoomRead pushes a cleared-room counter update to one user.
	NotifyRoomRead(ctx context.Context, userID int64, roomID string, total int64) error
}
