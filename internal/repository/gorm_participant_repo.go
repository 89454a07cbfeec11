package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// GormParticipantRepository implements ParticipantRepository using GORM.
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewGormParticipantRepository creates a new GORM-based participant repository.
func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	return &GormParticipantRepository{db: db}
}

// Create inserts a new membership row.
func (r *GormParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	l := log.Ctx(ctx)

	model := domain.ParticipantToModel(p)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, p.RoomID).Int64(log.FieldUserID, p.UserID).
			Msg("failed to create participant")
		return result.Error
	}
	return nil
}

// Get returns the row for (roomID, userID) whether active or soft-left.
func (r *GormParticipantRepository) Get(ctx context.Context, roomID string, userID int64) (*domain.Participant, error) {
	var model domain.ParticipantModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListActive returns the active participants of a room.
func (r *GormParticipantRepository) ListActive(ctx context.Context, roomID string) ([]domain.Participant, error) {
	var models []domain.ParticipantModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	participants := make([]domain.Participant, len(models))
	for i := range models {
		participants[i] = *models[i].ToDomain()
	}
	return participants, nil
}

// CountActive counts the active participants of a room.
func (r *GormParticipantRepository) CountActive(ctx context.Context, roomID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&count)
	return count, result.Error
}

// Reactivate flips a soft-left row back to active.
func (r *GormParticipantRepository) Reactivate(ctx context.Context, roomID string, userID int64, at time.Time) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, false).
		Updates(map[string]interface{}{
			"is_active": true,
			"left_at":   nil,
			"joined_at": at,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Int64(log.FieldUserID, userID).
			Msg("failed to reactivate participant")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// Deactivate soft-leaves the row.
func (r *GormParticipantRepository) Deactivate(ctx context.Context, roomID string, userID int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Updates(map[string]interface{}{
			"is_active": false,
			"left_at":   at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// UpdateLastRead records the read watermark on the membership row.
func (r *GormParticipantRepository) UpdateLastRead(ctx context.Context, roomID string, userID int64, messageID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Updates(map[string]interface{}{
			"last_read_message_id": messageID,
			"last_read_at":         at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}
