package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// PresenceConfig holds the TTLs of the three ephemeral key families.
type PresenceConfig struct {
	TypingTTL   time.Duration
	PresenceTTL time.Duration
	SessionTTL  time.Duration
}

// redisPresenceStore implements PresenceStore on Redis.
//
// Key patterns:
//
//	typing:room:{room_id}     HASH<user_id -> json{user_name, ts}>  TTL ~10s
//	presence:room:{room_id}   HASH<user_id -> unix seconds>         TTL ~5min
//	chatsess:{room_id}:{user_id}  STRING<conn_id>                   TTL ~1h
type redisPresenceStore struct {
	client *redis.Client
	cfg    PresenceConfig
}

// NewRedisPresenceStore creates a Redis-backed presence/typing store.
func NewRedisPresenceStore(client *redis.Client, cfg PresenceConfig) PresenceStore {
	if cfg.TypingTTL <= 0 {
		cfg.TypingTTL = 10 * time.Second
	}
	if cfg.PresenceTTL <= 0 {
		cfg.PresenceTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &redisPresenceStore{client: client, cfg: cfg}
}

func typingKey(roomID string) string {
	return fmt.Sprintf("typing:room:%s", roomID)
}

func presenceKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s", roomID)
}

func sessionKey(roomID string, userID int64) string {
	return fmt.Sprintf("chatsess:%s:%d", roomID, userID)
}

type typingEntry struct {
	UserName  string `json:"user_name"`
	Timestamp int64  `json:"ts"` // unix milliseconds
}

func (s *redisPresenceStore) SetTyping(ctx context.Context, roomID string, userID int64, userName string, isTyping bool) error {
	key := typingKey(roomID)
	field := strconv.FormatInt(userID, 10)

	if !isTyping {
		// Explicit stop deletes immediately instead of waiting for the TTL.
		return s.client.HDel(ctx, key, field).Err()
	}

	entry := typingEntry{UserName: userName, Timestamp: time.Now().UnixMilli()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, s.cfg.TypingTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisPresenceStore) GetTypingUsers(ctx context.Context, roomID string) ([]domain.TypingUser, error) {
	key := typingKey(roomID)

	entries, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.cfg.TypingTTL)
	users := make([]domain.TypingUser, 0, len(entries))
	var stale []string

	for field, raw := range entries {
		userID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			stale = append(stale, field)
			continue
		}

		var entry typingEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			stale = append(stale, field)
			continue
		}

		ts := time.UnixMilli(entry.Timestamp)
		if ts.Before(cutoff) {
			stale = append(stale, field)
			continue
		}

		users = append(users, domain.TypingUser{
			UserID:    userID,
			UserName:  entry.UserName,
			Timestamp: ts,
		})
	}

	if len(stale) > 0 {
		if err := s.client.HDel(ctx, key, stale...).Err(); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to prune stale typing entries")
		}
	}

	return users, nil
}

func (s *redisPresenceStore) SetOnline(ctx context.Context, roomID string, userID int64) error {
	key := presenceKey(roomID)
	field := strconv.FormatInt(userID, 10)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, time.Now().Unix())
	pipe.Expire(ctx, key, s.cfg.PresenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisPresenceStore) SetOffline(ctx context.Context, roomID string, userID int64) error {
	return s.client.HDel(ctx, presenceKey(roomID), strconv.FormatInt(userID, 10)).Err()
}

func (s *redisPresenceStore) GetOnlineUsers(ctx context.Context, roomID string) ([]domain.OnlineUser, error) {
	entries, err := s.client.HGetAll(ctx, presenceKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.cfg.PresenceTTL)
	users := make([]domain.OnlineUser, 0, len(entries))
	var stale []string

	for field, raw := range entries {
		userID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			stale = append(stale, field)
			continue
		}
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			stale = append(stale, field)
			continue
		}

		lastSeen := time.Unix(seconds, 0)
		if lastSeen.Before(cutoff) {
			stale = append(stale, field)
			continue
		}

		users = append(users, domain.OnlineUser{UserID: userID, LastSeen: lastSeen})
	}

	if len(stale) > 0 {
		if err := s.client.HDel(ctx, presenceKey(roomID), stale...).Err(); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to prune stale presence entries")
		}
	}

	return users, nil
}

func (s *redisPresenceStore) RegisterSession(ctx context.Context, roomID string, userID int64, connID string) error {
	return s.client.Set(ctx, sessionKey(roomID, userID), connID, s.cfg.SessionTTL).Err()
}

func (s *redisPresenceStore) DeregisterSession(ctx context.Context, roomID string, userID int64) error {
	return s.client.Del(ctx, sessionKey(roomID, userID)).Err()
}

func (s *redisPresenceStore) LookupSession(ctx context.Context, roomID string, userID int64) (string, error) {
	val, err := s.client.Get(ctx, sessionKey(roomID, userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Close is a no-op: the Redis client is shared and owned by the caller.
func (s *redisPresenceStore) Close() error {
	return nil
}
