package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/repository"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

type roomService struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
}

func NewRoomService(rooms repository.RoomRepository, participants repository.ParticipantRepository) RoomService {
	return &roomService{
		rooms:        rooms,
		participants: participants,
	}
}

func (s *roomService) GetOrCreatePersonalRoom(ctx context.Context, hostID, guestID, postingID int64) (*domain.Room, error) {
	if hostID == 0 || guestID == 0 || postingID == 0 {
		return nil, domain.E(domain.KindValidation, "room.personal", "host_id, guest_id and posting_id are required")
	}
	if hostID == guestID {
		return nil, domain.E(domain.KindValidation, "room.personal", "host and guest must differ")
	}

	existing, err := s.rooms.FindPersonal(ctx, hostID, guestID, postingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrRoomNotFound) {
		return nil, err
	}

	room := &domain.Room{
		Type:            domain.RoomPersonal,
		CreatorID:       hostID,
		HostID:          hostID,
		GuestID:         guestID,
		PostingID:       postingID,
		MaxParticipants: domain.PersonalCapacity,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		// Lost the race to a concurrent creator: the unique index on the
		// triple guarantees the winner's room is the one to return.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.rooms.FindPersonal(ctx, hostID, guestID, postingID)
		}
		return nil, err
	}

	now := time.Now().UTC()
	members := []*domain.Participant{
		{RoomID: room.ID, UserID: hostID, Role: domain.RoleAdmin, JoinedAt: now, IsActive: true, NotificationEnabled: true},
		{RoomID: room.ID, UserID: guestID, Role: domain.RoleMember, JoinedAt: now, IsActive: true, NotificationEnabled: true},
	}
	for _, m := range members {
		if err := s.participants.Create(ctx, m); err != nil {
			return nil, err
		}
	}

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldRoomID, room.ID).Int64("host_id", hostID).Int64("guest_id", guestID).Msg("personal room created")
	return room, nil
}

func (s *roomService) CreateGroupRoom(ctx context.Context, creatorID int64, name, description string, participantIDs []int64, isPublic bool) (*domain.Room, error) {
	if creatorID == 0 {
		return nil, domain.E(domain.KindValidation, "room.group", "creator_id is required")
	}
	if name == "" {
		return nil, domain.E(domain.KindValidation, "room.group", "name is required")
	}

	capacity := domain.DefaultGroupCapacity
	if isPublic {
		capacity = domain.DefaultPublicCapacity
	}

	members := dedupeMembers(creatorID, participantIDs)
	if len(members) > capacity {
		return nil, domain.E(domain.KindCapacity, "room.group", "participant list exceeds room capacity")
	}

	roomType := domain.RoomGroup
	if isPublic {
		roomType = domain.RoomPublic
	}
	room := &domain.Room{
		Type:            roomType,
		CreatorID:       creatorID,
		Name:            name,
		Description:     description,
		MaxParticipants: capacity,
		IsPublic:        isPublic,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, userID := range members {
		role := domain.RoleMember
		if userID == creatorID {
			role = domain.RoleAdmin
		}
		p := &domain.Participant{
			RoomID:              room.ID,
			UserID:              userID,
			Role:                role,
			JoinedAt:            now,
			IsActive:            true,
			NotificationEnabled: true,
		}
		if err := s.participants.Create(ctx, p); err != nil {
			return nil, err
		}
	}

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldRoomID, room.ID).Int64(log.FieldUserID, creatorID).Int("members", len(members)).Msg("group room created")
	return room, nil
}

func (s *roomService) AddParticipant(ctx context.Context, roomID string, userID, inviterID int64) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return domain.E(domain.KindNotFound, "room.add", "room not found")
		}
		return err
	}

	existing, err := s.participants.Get(ctx, roomID, userID)
	if err != nil && !errors.Is(err, repository.ErrParticipantNotFound) {
		return err
	}
	if existing != nil && existing.IsActive {
		return nil
	}

	if room.Type == domain.RoomGroup && !room.IsPublic && inviterID != userID {
		inviter, err := s.participants.Get(ctx, roomID, inviterID)
		if err != nil {
			if errors.Is(err, repository.ErrParticipantNotFound) {
				return domain.E(domain.KindForbidden, "room.add", "inviter is not a member")
			}
			return err
		}
		if !inviter.IsActive || !inviter.Role.CanInvite() {
			return domain.E(domain.KindForbidden, "room.add", "inviter may not invite")
		}
	}
	if room.Type == domain.RoomGroup && !room.IsPublic && inviterID == userID {
		return domain.E(domain.KindForbidden, "room.add", "private group rooms are invite-only")
	}

	count, err := s.participants.CountActive(ctx, roomID)
	if err != nil {
		return err
	}
	if count >= int64(room.MaxParticipants) {
		return domain.E(domain.KindCapacity, "room.add", "room is full")
	}

	now := time.Now().UTC()
	if existing != nil {
		return s.participants.Reactivate(ctx, roomID, userID, now)
	}
	return s.participants.Create(ctx, &domain.Participant{
		RoomID:              roomID,
		UserID:              userID,
		Role:                domain.RoleMember,
		JoinedAt:            now,
		IsActive:            true,
		NotificationEnabled: true,
	})
}

func (s *roomService) LeaveRoom(ctx context.Context, roomID string, userID int64) error {
	err := s.participants.Deactivate(ctx, roomID, userID, time.Now().UTC())
	if errors.Is(err, repository.ErrParticipantNotFound) {
		return domain.E(domain.KindNotFound, "room.leave", "not a member of this room")
	}
	return err
}

func (s *roomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, domain.E(domain.KindNotFound, "room.get", "room not found")
	}
	return room, err
}

func (s *roomService) ListUserRooms(ctx context.Context, userID int64) ([]domain.Room, error) {
	return s.rooms.ListByUser(ctx, userID)
}

func dedupeMembers(creatorID int64, participantIDs []int64) []int64 {
	seen := map[int64]bool{creatorID: true}
	members := []int64{creatorID}
	for _, id := range participantIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	return members
}
