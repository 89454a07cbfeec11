package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wououoo/weddingalba-chat/internal/domain"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

// MessageRepository is the durable message store. SaveMessage is the single
// duplicate gate of the pipeline: inserted=false means the id was already
// seen, and downstream counter updates must be skipped.
type MessageRepository interface {
	// SaveMessage inserts msg, ignoring the write if a row with the same id
	// already exists. Returns whether a new row was inserted.
	SaveMessage(ctx context.Context, msg *domain.Message) (inserted bool, err error)

	// GetByID fetches one message.
	GetByID(ctx context.Context, id string) (*domain.Message, error)

	// ListByRoom returns a room's messages newest-first, paged.
	ListByRoom(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int64, error)

	// ListSince returns a room's messages at or after since, oldest-first.
	ListSince(ctx context.Context, roomID string, since time.Time, limit int) ([]domain.Message, error)

	// Recent returns the latest n messages of a room, newest-first.
	Recent(ctx context.Context, roomID string, n int) ([]domain.Message, error)

	// Search finds messages in a room whose content matches keyword, newest-first.
	Search(ctx context.Context, roomID, keyword string, page, pageSize int) ([]domain.Message, int64, error)

	// SoftDelete blanks the content of the sender's own message and marks it deleted.
	SoftDelete(ctx context.Context, id string, requesterID int64) error
}

// RoomRepository owns room rows.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)

	// FindPersonal looks up the PERSONAL room for an exact (host, guest, posting) triple.
	FindPersonal(ctx context.Context, hostID, guestID, postingID int64) (*domain.Room, error)

	// TouchActivity bumps last_message_at/last_active_at.
	TouchActivity(ctx context.Context, roomID string, at time.Time) error

	// ListByUser returns the rooms where the user is an active participant,
	// most recently active first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Room, error)
}

// ParticipantRepository owns membership rows.
type ParticipantRepository interface {
	Create(ctx context.Context, p *domain.Participant) error

	// Get returns the row for (roomID, userID) whether active or soft-left.
	Get(ctx context.Context, roomID string, userID int64) (*domain.Participant, error)

	ListActive(ctx context.Context, roomID string) ([]domain.Participant, error)
	CountActive(ctx context.Context, roomID string) (int64, error)

	// Reactivate flips a soft-left row back to active, clearing left_at and
	// resetting joined_at.
	Reactivate(ctx context.Context, roomID string, userID int64, at time.Time) error

	// Deactivate soft-leaves the row (is_active=false, left_at set).
	Deactivate(ctx context.Context, roomID string, userID int64, at time.Time) error

	// UpdateLastRead records the read watermark on the membership row.
	UpdateLastRead(ctx context.Context, roomID string, userID int64, messageID string, at time.Time) error
}
