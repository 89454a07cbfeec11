package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/repository"
	"github.com/wououoo/weddingalba-chat/internal/store"
)

type recordingFanout struct {
	roomReads []int64 // totals signalled per NotifyRoomRead call
}

func (f *recordingFanout) DeliverMessage(ctx context.Context, msg *domain.Message) error { return nil }
func (f *recordingFanout) DeliverTyping(ctx context.Context, roomID string, userID int64, userName string, isTyping bool) error {
	return nil
}
func (f *recordingFanout) NotifyUnread(ctx context.Context, updates []store.CounterUpdate) error {
	return nil
}
func (f *recordingFanout) NotifyRoomRead(ctx context.Context, userID int64, roomID string, total int64) error {
	f.roomReads = append(f.roomReads, total)
	return nil
}

type historyFixture struct {
	svc          HistoryService
	messages     repository.MessageRepository
	participants repository.ParticipantRepository
	unread       store.UnreadStore
	fanout       *recordingFanout
	roomID       string
}

func newHistoryFixture(t *testing.T) *historyFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.MessageModel{}, &domain.RoomModel{}, &domain.ParticipantModel{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	messages := repository.NewGormMessageRepository(db)
	rooms := repository.NewGormRoomRepository(db)
	participants := repository.NewGormParticipantRepository(db)
	unread := store.NewRedisUnreadStore(client)
	fan := &recordingFanout{}

	ctx := context.Background()
	room := &domain.Room{Type: domain.RoomGroup, CreatorID: 1, Name: "planning", MaxParticipants: 20, CreatedAt: time.Now()}
	require.NoError(t, rooms.Create(ctx, room))
	require.NoError(t, participants.Create(ctx, &domain.Participant{
		RoomID: room.ID, UserID: 7, Role: domain.RoleMember, JoinedAt: time.Now(), IsActive: true,
	}))

	return &historyFixture{
		svc:          NewHistoryService(messages, rooms, participants, unread, fan, 20),
		messages:     messages,
		participants: participants,
		unread:       unread,
		fanout:       fan,
		roomID:       room.ID,
	}
}

func (f *historyFixture) seedMessages(t *testing.T, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := f.messages.SaveMessage(context.Background(), &domain.Message{
			ID:        fmt.Sprintf("m%d", i),
			RoomID:    f.roomID,
			SenderID:  1,
			Type:      domain.MessageChat,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestRoomFastInit(t *testing.T) {
	f := newHistoryFixture(t)
	f.seedMessages(t, 25)
	ctx := context.Background()

	_, err := f.unread.Increment(ctx, f.roomID, []int64{7})
	require.NoError(t, err)
	_, err = f.unread.Increment(ctx, f.roomID, []int64{7})
	require.NoError(t, err)

	init, err := f.svc.RoomFastInit(ctx, f.roomID, 7)
	require.NoError(t, err)

	assert.Equal(t, f.roomID, init.Room.ID)
	require.Len(t, init.Messages, 20, "fast init caps at the configured page")
	assert.Equal(t, "m24", init.Messages[0].ID, "newest first")
	assert.Equal(t, int64(2), init.UnreadCount)
}

func TestRoomFastInitUnknownRoom(t *testing.T) {
	f := newHistoryFixture(t)

	_, err := f.svc.RoomFastInit(context.Background(), "missing", 7)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestMarkRoomReadSettlesState(t *testing.T) {
	f := newHistoryFixture(t)
	f.seedMessages(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.unread.Increment(ctx, f.roomID, []int64{7})
		require.NoError(t, err)
	}

	cleared, total, err := f.svc.MarkRoomRead(ctx, f.roomID, 7, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)
	assert.Zero(t, total)

	// Without a caller-supplied id the watermark falls back to the newest
	// message.
	p, err := f.participants.Get(ctx, f.roomID, 7)
	require.NoError(t, err)
	assert.Equal(t, "m2", p.LastReadMessageID)

	// The cleared total was signalled to the reader's devices.
	require.Len(t, f.fanout.roomReads, 1)
	assert.Zero(t, f.fanout.roomReads[0])
}

func TestMarkRoomReadHonorsCallerWatermark(t *testing.T) {
	f := newHistoryFixture(t)
	f.seedMessages(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.unread.Increment(ctx, f.roomID, []int64{7})
		require.NoError(t, err)
	}

	// A message lands after the client last rendered the room but before
	// its mark-read request is processed.
	_, err := f.messages.SaveMessage(ctx, &domain.Message{
		ID:        "m3",
		RoomID:    f.roomID,
		SenderID:  1,
		Type:      domain.MessageChat,
		Content:   "late arrival",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, _, err = f.svc.MarkRoomRead(ctx, f.roomID, 7, "m2")
	require.NoError(t, err)

	// The watermark stays at the id the caller actually saw.
	p, err := f.participants.Get(ctx, f.roomID, 7)
	require.NoError(t, err)
	assert.Equal(t, "m2", p.LastReadMessageID)
}

func TestSearchRequiresKeyword(t *testing.T) {
	f := newHistoryFixture(t)

	_, _, err := f.svc.Search(context.Background(), f.roomID, "", 1, 10)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
