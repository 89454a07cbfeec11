package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/repository"
)

func newRoomService(t *testing.T) (RoomService, repository.ParticipantRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.RoomModel{}, &domain.ParticipantModel{}))

	participants := repository.NewGormParticipantRepository(db)
	return NewRoomService(repository.NewGormRoomRepository(db), participants), participants
}

func TestPersonalRoomIdempotent(t *testing.T) {
	svc, _ := newRoomService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreatePersonalRoom(ctx, 10, 20, 300)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomPersonal, first.Type)
	assert.Equal(t, domain.PersonalCapacity, first.MaxParticipants)

	second, err := svc.GetOrCreatePersonalRoom(ctx, 10, 20, 300)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same triple must land on the same room")

	// A different posting is a different conversation.
	third, err := svc.GetOrCreatePersonalRoom(ctx, 10, 20, 301)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestPersonalRoomSeedsMembers(t *testing.T) {
	svc, participants := newRoomService(t)
	ctx := context.Background()

	room, err := svc.GetOrCreatePersonalRoom(ctx, 10, 20, 300)
	require.NoError(t, err)

	host, err := participants.Get(ctx, room.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, host.Role)

	guest, err := participants.Get(ctx, room.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, guest.Role)
}

func TestPersonalRoomValidation(t *testing.T) {
	svc, _ := newRoomService(t)
	ctx := context.Background()

	_, err := svc.GetOrCreatePersonalRoom(ctx, 10, 10, 300)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.GetOrCreatePersonalRoom(ctx, 0, 20, 300)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCreateGroupRoomCapacity(t *testing.T) {
	svc, _ := newRoomService(t)
	ctx := context.Background()

	// 19 invitees + creator = 20, exactly at the private limit.
	ids := make([]int64, 19)
	for i := range ids {
		ids[i] = int64(i + 2)
	}
	room, err := svc.CreateGroupRoom(ctx, 1, "planning", "", ids, false)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGroupCapacity, room.MaxParticipants)

	// One more overflows and nothing is written.
	ids = append(ids, 99)
	_, err = svc.CreateGroupRoom(ctx, 1, "too big", "", ids, false)
	assert.True(t, domain.IsKind(err, domain.KindCapacity))

	// The same list fits a public room.
	pub, err := svc.CreateGroupRoom(ctx, 1, "open hall", "", ids, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomPublic, pub.Type)
	assert.Equal(t, domain.DefaultPublicCapacity, pub.MaxParticipants)
}

func TestAddParticipantRules(t *testing.T) {
	svc, participants := newRoomService(t)
	ctx := context.Background()

	room, err := svc.CreateGroupRoom(ctx, 1, "vendors", "", []int64{2}, false)
	require.NoError(t, err)

	t.Run("re-add active member is a no-op", func(t *testing.T) {
		require.NoError(t, svc.AddParticipant(ctx, room.ID, 2, 1))
		count, err := participants.CountActive(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("admin may invite", func(t *testing.T) {
		require.NoError(t, svc.AddParticipant(ctx, room.ID, 3, 1))
	})

	t.Run("plain member may not invite", func(t *testing.T) {
		err := svc.AddParticipant(ctx, room.ID, 4, 2)
		assert.True(t, domain.IsKind(err, domain.KindForbidden))
	})

	t.Run("private group rejects self-join", func(t *testing.T) {
		err := svc.AddParticipant(ctx, room.ID, 5, 5)
		assert.True(t, domain.IsKind(err, domain.KindForbidden))
	})

	t.Run("unknown room", func(t *testing.T) {
		err := svc.AddParticipant(ctx, "missing", 5, 1)
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
	})
}

func TestAddParticipantAtCapacity(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.RoomModel{}, &domain.ParticipantModel{}))

	rooms := repository.NewGormRoomRepository(db)
	participants := repository.NewGormParticipantRepository(db)
	svc := NewRoomService(rooms, participants)
	ctx := context.Background()

	room := &domain.Room{Type: domain.RoomGroup, CreatorID: 1, Name: "duo", MaxParticipants: 2, CreatedAt: time.Now()}
	require.NoError(t, rooms.Create(ctx, room))
	require.NoError(t, participants.Create(ctx, &domain.Participant{
		RoomID: room.ID, UserID: 1, Role: domain.RoleAdmin, JoinedAt: time.Now(), IsActive: true,
	}))
	require.NoError(t, participants.Create(ctx, &domain.Participant{
		RoomID: room.ID, UserID: 2, Role: domain.RoleMember, JoinedAt: time.Now(), IsActive: true,
	}))

	err = svc.AddParticipant(ctx, room.ID, 3, 1)
	assert.True(t, domain.IsKind(err, domain.KindCapacity))

	// Nothing was written for the rejected invitee.
	count, err := participants.CountActive(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	_, err = participants.Get(ctx, room.ID, 3)
	assert.ErrorIs(t, err, repository.ErrParticipantNotFound)
}

func TestLeaveAndRejoinReactivates(t *testing.T) {
	svc, participants := newRoomService(t)
	ctx := context.Background()

	room, err := svc.CreateGroupRoom(ctx, 1, "vendors", "", []int64{2}, false)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, room.ID, 2))
	count, err := participants.CountActive(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Re-invite flips the same row back instead of inserting a second one.
	require.NoError(t, svc.AddParticipant(ctx, room.ID, 2, 1))

	p, err := participants.Get(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Nil(t, p.LeftAt)

	count, err = participants.CountActive(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLeaveRoomNotMember(t *testing.T) {
	svc, _ := newRoomService(t)
	ctx := context.Background()

	room, err := svc.CreateGroupRoom(ctx, 1, "vendors", "", nil, false)
	require.NoError(t, err)

	err = svc.LeaveRoom(ctx, room.ID, 99)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestPublicRoomSelfJoinAndCapacity(t *testing.T) {
	svc, _ := newRoomService(t)
	ctx := context.Background()

	room, err := svc.CreateGroupRoom(ctx, 1, "open hall", "", nil, true)
	require.NoError(t, err)

	// Public rooms are open: anyone may join themselves.
	require.NoError(t, svc.AddParticipant(ctx, room.ID, 7, 7))

	rooms, err := svc.ListUserRooms(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)
}
