package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/fanout"
	"github.com/wououoo/weddingalba-chat/internal/repository"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

type historyService struct {
	messages     repository.MessageRepository
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	unread       store.UnreadStore
	fanout       fanout.Fanout

	// Coalesces concurrent fast-init reads of the same room's recent page.
	group         singleflight.Group
	fastInitLimit int
}

func NewHistoryService(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	participants repository.ParticipantRepository,
	unread store.UnreadStore,
	fan fanout.Fanout,
	fastInitLimit int,
) HistoryService {
	if fastInitLimit <= 0 {
		fastInitLimit = 20
	}
	return &historyService{
		messages:      messages,
		rooms:         rooms,
		participants:  participants,
		unread:        unread,
		fanout:        fan,
		fastInitLimit: fastInitLimit,
	}
}

func (s *historyService) ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int64, error) {
	return s.messages.ListByRoom(ctx, roomID, page, pageSize)
}

func (s *historyService) ListSince(ctx context.Context, roomID string, since time.Time, limit int) ([]domain.Message, error) {
	return s.messages.ListSince(ctx, roomID, since, limit)
}

func (s *historyService) Search(ctx context.Context, roomID, keyword string, page, pageSize int) ([]domain.Message, int64, error) {
	if keyword == "" {
		return nil, 0, domain.E(domain.KindValidation, "history.search", "keyword is required")
	}
	return s.messages.Search(ctx, roomID, keyword, page, pageSize)
}

func (s *historyService) RoomFastInit(ctx context.Context, roomID string, userID int64) (*FastInit, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, domain.E(domain.KindNotFound, "history.init", "room not found")
		}
		return nil, err
	}

	recent, err, _ := s.group.Do(fmt.Sprintf("recent:%s", roomID), func() (interface{}, error) {
		return s.messages.Recent(ctx, roomID, s.fastInitLimit)
	})
	if err != nil {
		return nil, err
	}

	count, err := s.unread.Get(ctx, userID, roomID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("unread read failed, reporting zero")
		count = 0
	}

	return &FastInit{
		Room:        room,
		Messages:    recent.([]domain.Message),
		UnreadCount: count,
	}, nil
}

func (s *historyService) MarkRoomRead(ctx context.Context, roomID string, userID int64, lastMessageID string) (int64, int64, error) {
	cleared, total, err := s.unread.MarkRoomRead(ctx, userID, roomID)
	if err != nil {
		return 0, 0, err
	}

	// Watermark bookkeeping is best-effort: the counter clear above is the
	// authoritative state change. The caller-supplied id bounds the watermark
	// so a message that lands mid-call is not stamped as read.
	if lastMessageID == "" {
		if latest, err := s.messages.Recent(ctx, roomID, 1); err == nil && len(latest) > 0 {
			lastMessageID = latest[0].ID
		}
	}
	if lastMessageID != "" {
		if err := s.participants.UpdateLastRead(ctx, roomID, userID, lastMessageID, time.Now().UTC()); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Int64(log.FieldUserID, userID).Msg("read watermark update failed")
		}
	}

	if err := s.fanout.NotifyRoomRead(ctx, userID, roomID, total); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("room read fanout failed")
	}
	return cleared, total, nil
}

func (s *historyService) DeleteMessage(ctx context.Context, messageID string, requesterID int64) error {
	err := s.messages.SoftDelete(ctx, messageID, requesterID)
	if errors.Is(err, repository.ErrMessageNotFound) {
		return domain.E(domain.KindNotFound, "history.delete", "message not found or not deletable")
	}
	return err
}
