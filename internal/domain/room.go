package domain

import "time"

// RoomType distinguishes the three room shapes.
type RoomType string

const (
	RoomPersonal RoomType = "PERSONAL"
	RoomGroup    RoomType = "GROUP"
	RoomPublic   RoomType = "PUBLIC"
)

// Default group room capacities.
const (
	DefaultGroupCapacity  = 20
	DefaultPublicCapacity = 100
	PersonalCapacity      = 2
)

// Room groups participants who exchange messages. Rooms are created once and
// never physically deleted; lastMessageAt/lastActiveAt are mutated by the
// consumer as messages are persisted.
type Room struct {
	ID              string     `json:"id"`
	Type            RoomType   `json:"type"`
	CreatorID       int64      `json:"creator_id"`
	HostID          int64      `json:"host_id,omitempty"`
	GuestID         int64      `json:"guest_id,omitempty"`
	PostingID       int64      `json:"posting_id,omitempty"`
	Name            string     `json:"name,omitempty"`
	Description     string     `json:"description,omitempty"`
	MaxParticipants int        `json:"max_participants"`
	IsPublic        bool       `json:"is_public"`
	CreatedAt       time.Time  `json:"created_at"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	LastActiveAt    *time.Time `json:"last_active_at,omitempty"`
}

// ParticipantRole is the permission level inside a room.
type ParticipantRole string

const (
	RoleAdmin     ParticipantRole = "ADMIN"
	RoleModerator ParticipantRole = "MODERATOR"
	RoleMember    ParticipantRole = "MEMBER"
)

// CanInvite reports whether this role may invite into a non-public group room.
func (r ParticipantRole) CanInvite() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Participant is a (room, user) membership row. At most one row exists per
// pair; leaving soft-deactivates it and rejoining reactivates the same row.
// State machine: NEW -> ACTIVE -> LEFT -> ACTIVE -> ... (never terminal).
type Participant struct {
	RoomID              string          `json:"room_id"`
	UserID              int64           `json:"user_id"`
	Role                ParticipantRole `json:"role"`
	JoinedAt            time.Time       `json:"joined_at"`
	LeftAt              *time.Time      `json:"left_at,omitempty"`
	IsActive            bool            `json:"is_active"`
	LastReadMessageID   string          `json:"last_read_message_id,omitempty"`
	LastReadAt          *time.Time      `json:"last_read_at,omitempty"`
	NotificationEnabled bool            `json:"notification_enabled"`
}

// TypingUser is one entry of a room's ephemeral typing set.
type TypingUser struct {
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Timestamp time.Time `json:"timestamp"`
}

// OnlineUser is one entry of a room's ephemeral presence set.
type OnlineUser struct {
	UserID   int64     `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}

// RoomUnread pairs a room with its unread counter for one user.
type RoomUnread struct {
	RoomID string `json:"room_id"`
	Count  int64  `json:"count"`
}

// UnreadSummary is the per-user aggregate: non-zero rooms plus the total.
type UnreadSummary struct {
	Rooms []RoomUnread `json:"rooms"`
	Total int64        `json:"total"`
}
