package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/wououoo/weddingalba-chat/internal/domain"
)

// redisUnreadStore implements UnreadStore on Redis.
//
// Key patterns:
//
//	unread:rooms:{user_id}   HASH<room_id -> count>  (hash fields double as
//	                         the user's tracked-room set)
//	unread:total:{user_id}   STRING<count>
type redisUnreadStore struct {
	client *redis.Client
}

// NewRedisUnreadStore creates a Redis-backed unread counter store.
func NewRedisUnreadStore(client *redis.Client) UnreadStore {
	return &redisUnreadStore{client: client}
}

func unreadRoomsKey(userID int64) string {
	return fmt.Sprintf("unread:rooms:%d", userID)
}

func unreadTotalKey(userID int64) string {
	return fmt.Sprintf("unread:total:%d", userID)
}

// markReadScript atomically reads-and-clears a per-room counter and
// decrements the total by the value cleared, flooring the total at zero.
// A plain GET+DEL+DECRBY sequence would race with concurrent increments.
var markReadScript = redis.NewScript(`
local cleared = redis.call('HGET', KEYS[1], ARGV[1])
if cleared then
  cleared = tonumber(cleared)
else
  cleared = 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
local total = 0
if cleared > 0 then
  total = redis.call('DECRBY', KEYS[2], cleared)
  if total < 0 then
    redis.call('SET', KEYS[2], 0)
    total = 0
  end
else
  local t = redis.call('GET', KEYS[2])
  if t then total = tonumber(t) end
end
return {cleared, total}
`)

// Increment bumps counters via pipelined HINCRBY/INCRBY. Never
// read-modify-write: concurrent senders must not lose updates.
func (s *redisUnreadStore) Increment(ctx context.Context, roomID string, recipients []int64) ([]CounterUpdate, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	pipe := s.client.TxPipeline()
	countCmds := make([]*redis.IntCmd, len(recipients))
	totalCmds := make([]*redis.IntCmd, len(recipients))
	for i, userID := range recipients {
		countCmds[i] = pipe.HIncrBy(ctx, unreadRoomsKey(userID), roomID, 1)
		totalCmds[i] = pipe.IncrBy(ctx, unreadTotalKey(userID), 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	updates := make([]CounterUpdate, len(recipients))
	for i, userID := range recipients {
		updates[i] = CounterUpdate{
			UserID: userID,
			RoomID: roomID,
			Count:  countCmds[i].Val(),
			Total:  totalCmds[i].Val(),
		}
	}
	return updates, nil
}

func (s *redisUnreadStore) MarkRoomRead(ctx context.Context, userID int64, roomID string) (int64, int64, error) {
	res, err := markReadScript.Run(ctx, s.client,
		[]string{unreadRoomsKey(userID), unreadTotalKey(userID)}, roomID).Result()
	if err != nil {
		return 0, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected mark-read script result: %v", res)
	}

	cleared, _ := vals[0].(int64)
	total, _ := vals[1].(int64)
	return cleared, total, nil
}

func (s *redisUnreadStore) Get(ctx context.Context, userID int64, roomID string) (int64, error) {
	val, err := s.client.HGet(ctx, unreadRoomsKey(userID), roomID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (s *redisUnreadStore) Summary(ctx context.Context, userID int64) (*domain.UnreadSummary, error) {
	pipe := s.client.TxPipeline()
	roomsCmd := pipe.HGetAll(ctx, unreadRoomsKey(userID))
	totalCmd := pipe.Get(ctx, unreadTotalKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	summary := &domain.UnreadSummary{Rooms: []domain.RoomUnread{}}

	for roomID, raw := range roomsCmd.Val() {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || count <= 0 {
			continue
		}
		summary.Rooms = append(summary.Rooms, domain.RoomUnread{RoomID: roomID, Count: count})
	}

	if raw, err := totalCmd.Result(); err == nil {
		if total, err := strconv.ParseInt(raw, 10, 64); err == nil {
			summary.Total = total
		}
	}

	return summary, nil
}

// Close is a no-op: the Redis client is shared and owned by the caller.
func (s *redisUnreadStore) Close() error {
	return nil
}
