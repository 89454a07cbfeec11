package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// SaveMessage persists a message with insert-or-ignore on the primary key.
// A redelivered record with a known id is absorbed, not an error.
func (r *GormMessageRepository) SaveMessage(ctx context.Context, msg *domain.Message) (bool, error) {
	l := log.Ctx(ctx)

	model := domain.MessageToModel(msg)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldMessageID, msg.ID).Msg("failed to save message")
		return false, result.Error
	}

	inserted := result.RowsAffected > 0
	if !inserted {
		l.Debug().Str(log.FieldMessageID, msg.ID).Msg("duplicate message id absorbed")
	}
	return inserted, nil
}

// GetByID retrieves a message by id.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByRoom returns a room's messages newest-first with page/page_size paging.
func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int64, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("room_id = ?", roomID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to count messages")
		return nil, 0, err
	}

	var models []domain.MessageModel
	if err := query.Order("timestamp DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		return nil, 0, err
	}

	return toDomainMessages(models), total, nil
}

// ListSince returns a room's messages at or after since, oldest-first.
func (r *GormMessageRepository) ListSince(ctx context.Context, roomID string, since time.Time, limit int) ([]domain.Message, error) {
	if limit < 1 {
		limit = 50
	}

	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND timestamp >= ?", roomID, since).
		Order("timestamp ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMessages(models), nil
}

// Recent returns the latest n messages of a room, newest-first.
func (r *GormMessageRepository) Recent(ctx context.Context, roomID string, n int) ([]domain.Message, error) {
	if n < 1 {
		n = 20
	}

	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp DESC").
		Limit(n).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMessages(models), nil
}

// Search finds messages in a room whose content matches keyword.
func (r *GormMessageRepository) Search(ctx context.Context, roomID, keyword string, page, pageSize int) ([]domain.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize
	pattern := "%" + keyword + "%"

	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("room_id = ? AND is_deleted = ? AND content LIKE ?", roomID, false, pattern)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []domain.MessageModel
	if err := query.Order("timestamp DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	return toDomainMessages(models), total, nil
}

// SoftDelete blanks a message's content and marks it deleted. Only the
// sender may delete; the row itself is never removed.
func (r *GormMessageRepository) SoftDelete(ctx context.Context, id string, requesterID int64) error {
	l := log.Ctx(ctx)

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", id, requesterID, false).
		Updates(map[string]interface{}{
			"content":    "",
			"is_deleted": true,
			"deleted_at": now,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to soft delete message")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func toDomainMessages(models []domain.MessageModel) []domain.Message {
	messages := make([]domain.Message, len(models))
	for i := range models {
		messages[i] = *models[i].ToDomain()
	}
	return messages
}
