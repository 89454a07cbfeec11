package service

import (
	"context"
	"time"

	"github.com/wououoo/weddingalba-chat/internal/domain"
)

// RoomService owns room lifecycle and membership.
type RoomService interface {
	// GetOrCreatePersonalRoom returns the PERSONAL room for the exact
	// (host, guest, posting) triple, creating it on first use. Idempotent:
	// concurrent callers converge on the same room.
	GetOrCreatePersonalRoom(ctx context.Context, hostID, guestID, postingID int64) (*domain.Room, error)

	// CreateGroupRoom creates a GROUP or PUBLIC room with the creator as
	// admin. An initial participant list larger than the room capacity is
	// rejected before anything is written.
	CreateGroupRoom(ctx context.Context, creatorID int64, name, description string, participantIDs []int64, isPublic bool) (*domain.Room, error)

	// AddParticipant admits a user into a room. Re-adding an active member
	// is a no-op; a soft-left member is reactivated on the same row.
	AddParticipant(ctx context.Context, roomID string, userID, inviterID int64) error

	// LeaveRoom soft-leaves the membership row.
	LeaveRoom(ctx context.Context, roomID string, userID int64) error

	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListUserRooms(ctx context.Context, userID int64) ([]domain.Room, error)
}

// FastInit is the single-call room entry payload.
type FastInit struct {
	Room        *domain.Room     `json:"room"`
	Messages    []domain.Message `json:"messages"`
	UnreadCount int64            `json:"unread_count"`
}

// HistoryService reads the durable message store and settles read state.
type HistoryService interface {
	ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int64, error)
	ListSince(ctx context.Context, roomID string, since time.Time, limit int) ([]domain.Message, error)
	Search(ctx context.Context, roomID, keyword string, page, pageSize int) ([]domain.Message, int64, error)

	// RoomFastInit returns room metadata, the latest page of messages and
	// the caller's unread count in one call.
	RoomFastInit(ctx context.Context, roomID string, userID int64) (*FastInit, error)

	// MarkRoomRead clears the caller's unread counter for the room, records
	// lastMessageID as the read watermark on the membership row and signals
	// the new totals. An empty lastMessageID falls back to the room's newest
	// message.
	MarkRoomRead(ctx context.Context, roomID string, userID int64, lastMessageID string) (cleared, total int64, err error)

	// DeleteMessage soft-deletes the requester's own message.
	DeleteMessage(ctx context.Context, messageID string, requesterID int64) error
}
