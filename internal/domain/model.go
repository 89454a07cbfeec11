package domain

import (
	"time"
)

// MessageModel is the GORM model for the chat_messages table.
// The primary key on id is what makes persistence idempotent: a redelivered
// record hits the same row and is absorbed by an insert-or-ignore.
type MessageModel struct {
	ID             string `gorm:"type:varchar(36);primaryKey"`
	RoomID         string `gorm:"type:varchar(36);index:idx_room_ts,priority:1;not null"`
	SenderID       int64  `gorm:"index;not null"`
	SenderName     string `gorm:"type:varchar(100)"`
	Type           string `gorm:"type:varchar(20);not null"`
	Content        string `gorm:"type:varchar(1000)"`
	AttachmentURL  string `gorm:"type:text"`
	AttachmentType string `gorm:"type:varchar(50)"`
	MentionUserID  int64  `gorm:"default:0"`
	Timestamp      time.Time `gorm:"index:idx_room_ts,priority:2;not null"`
	IsSystem       bool      `gorm:"default:false"`
	IsDeleted      bool      `gorm:"default:false"`
	DeletedAt      *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		RoomID:         m.RoomID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Type:           MessageType(m.Type),
		Content:        m.Content,
		AttachmentURL:  m.AttachmentURL,
		AttachmentType: m.AttachmentType,
		MentionUserID:  m.MentionUserID,
		Timestamp:      m.Timestamp,
		IsSystem:       m.IsSystem,
		IsDeleted:      m.IsDeleted,
		DeletedAt:      m.DeletedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		RoomID:         msg.RoomID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		Type:           string(msg.Type),
		Content:        msg.Content,
		AttachmentURL:  msg.AttachmentURL,
		AttachmentType: msg.AttachmentType,
		MentionUserID:  msg.MentionUserID,
		Timestamp:      msg.Timestamp,
		IsSystem:       msg.IsSystem,
		IsDeleted:      msg.IsDeleted,
		DeletedAt:      msg.DeletedAt,
	}
}

// RoomModel is the GORM model for the chat_rooms table.
// Personal rooms carry a unique (host_id, guest_id, posting_id) triple so a
// second get-or-create with the same triple lands on the existing row.
type RoomModel struct {
	ID              string `gorm:"type:varchar(36);primaryKey"`
	Type            string `gorm:"type:varchar(20);index;not null"`
	CreatorID       int64  `gorm:"index;not null"`
	HostID          *int64 `gorm:"uniqueIndex:idx_personal_triple"`
	GuestID         *int64 `gorm:"uniqueIndex:idx_personal_triple"`
	PostingID       *int64 `gorm:"uniqueIndex:idx_personal_triple"`
	Name            string `gorm:"type:varchar(100)"`
	Description     string `gorm:"type:text"`
	MaxParticipants int    `gorm:"not null"`
	IsPublic        bool   `gorm:"default:false"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	LastMessageAt   *time.Time
	LastActiveAt    *time.Time
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "chat_rooms"
}

// ToDomain converts RoomModel to domain Room.
func (m *RoomModel) ToDomain() *Room {
	r := &Room{
		ID:              m.ID,
		Type:            RoomType(m.Type),
		CreatorID:       m.CreatorID,
		Name:            m.Name,
		Description:     m.Description,
		MaxParticipants: m.MaxParticipants,
		IsPublic:        m.IsPublic,
		CreatedAt:       m.CreatedAt,
		LastMessageAt:   m.LastMessageAt,
		LastActiveAt:    m.LastActiveAt,
	}
	if m.HostID != nil {
		r.HostID = *m.HostID
	}
	if m.GuestID != nil {
		r.GuestID = *m.GuestID
	}
	if m.PostingID != nil {
		r.PostingID = *m.PostingID
	}
	return r
}

// RoomToModel converts domain Room to RoomModel.
func RoomToModel(r *Room) *RoomModel {
	m := &RoomModel{
		ID:              r.ID,
		Type:            string(r.Type),
		CreatorID:       r.CreatorID,
		Name:            r.Name,
		Description:     r.Description,
		MaxParticipants: r.MaxParticipants,
		IsPublic:        r.IsPublic,
		CreatedAt:       r.CreatedAt,
		LastMessageAt:   r.LastMessageAt,
		LastActiveAt:    r.LastActiveAt,
	}
	if r.Type == RoomPersonal {
		host, guest, posting := r.HostID, r.GuestID, r.PostingID
		m.HostID, m.GuestID, m.PostingID = &host, &guest, &posting
	}
	return m
}

// ParticipantModel is the GORM model for the chat_participants table.
type ParticipantModel struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	RoomID              string `gorm:"type:varchar(36);uniqueIndex:idx_room_user;index;not null"`
	UserID              int64  `gorm:"uniqueIndex:idx_room_user;index;not null"`
	Role                string `gorm:"type:varchar(20);not null;default:'MEMBER'"`
	JoinedAt            time.Time `gorm:"not null"`
	LeftAt              *time.Time
	IsActive            bool   `gorm:"index;default:true"`
	LastReadMessageID   string `gorm:"type:varchar(36)"`
	LastReadAt          *time.Time
	NotificationEnabled bool `gorm:"default:true"`
}

// TableName specifies the table name for ParticipantModel.
func (ParticipantModel) TableName() string {
	return "chat_participants"
}

// ToDomain converts ParticipantModel to domain Participant.
func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		RoomID:              m.RoomID,
		UserID:              m.UserID,
		Role:                ParticipantRole(m.Role),
		JoinedAt:            m.JoinedAt,
		LeftAt:              m.LeftAt,
		IsActive:            m.IsActive,
		LastReadMessageID:   m.LastReadMessageID,
		LastReadAt:          m.LastReadAt,
		NotificationEnabled: m.NotificationEnabled,
	}
}

// ParticipantToModel converts domain Participant to ParticipantModel.
func ParticipantToModel(p *Participant) *ParticipantModel {
	return &ParticipantModel{
		RoomID:              p.RoomID,
		UserID:              p.UserID,
		Role:                string(p.Role),
		JoinedAt:            p.JoinedAt,
		LeftAt:              p.LeftAt,
		IsActive:            p.IsActive,
		LastReadMessageID:   p.LastReadMessageID,
		LastReadAt:          p.LastReadAt,
		NotificationEnabled: p.NotificationEnabled,
	}
}
