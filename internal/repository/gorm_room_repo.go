package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create creates a new room.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	if room.ID == "" {
		room.ID = uuid.New().String()
	}

	model := domain.RoomToModel(room)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// FindPersonal looks up the PERSONAL room for an exact (host, guest, posting) triple.
func (r *GormRoomRepository) FindPersonal(ctx context.Context, hostID, guestID, postingID int64) (*domain.Room, error) {
	var model domain.RoomModel
	result := r.db.WithContext(ctx).
		Where("type = ? AND host_id = ? AND guest_id = ? AND posting_id = ?",
			string(domain.RoomPersonal), hostID, guestID, postingID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// TouchActivity bumps last_message_at/last_active_at on a room.
func (r *GormRoomRepository) TouchActivity(ctx context.Context, roomID string, at time.Time) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"last_active_at":  at,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to touch room activity")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListByUser returns the rooms where the user is an active participant,
// most recently active first.
func (r *GormRoomRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Room, error) {
	l := log.Ctx(ctx)

	var models []domain.RoomModel
	result := r.db.WithContext(ctx).
		Joins("JOIN chat_participants ON chat_participants.room_id = chat_rooms.id").
		Where("chat_participants.user_id = ? AND chat_participants.is_active = ?", userID, true).
		Order("chat_rooms.last_active_at DESC NULLS LAST").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldUserID, userID).Msg("failed to list user rooms")
		return nil, result.Error
	}

	rooms := make([]domain.Room, len(models))
	for i := range models {
		rooms[i] = *models[i].ToDomain()
	}
	return rooms, nil
}
