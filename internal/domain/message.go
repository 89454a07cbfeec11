package domain

import "time"

// MessageType classifies every message that flows through the pipeline.
// TYPING and STOP_TYPING are ephemeral: they are carried over the log for
// uniform transport but never persisted.
type MessageType string

const (
	MessageChat       MessageType = "CHAT"
	MessageJoin       MessageType = "JOIN"
	MessageLeave      MessageType = "LEAVE"
	MessageTyping     MessageType = "TYPING"
	MessageStopTyping MessageType = "STOP_TYPING"
	MessageSystem     MessageType = "SYSTEM"
	MessageMention    MessageType = "MENTION"
	MessageFile       MessageType = "FILE"
	MessageImage      MessageType = "IMAGE"
)

// AllMessageTypes lists every known type. Consumer stages switch over the
// type exhaustively; a type missing from a switch is a bug, not a default.
var AllMessageTypes = []MessageType{
	MessageChat, MessageJoin, MessageLeave, MessageTyping, MessageStopTyping,
	MessageSystem, MessageMention, MessageFile, MessageImage,
}

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageChat, MessageJoin, MessageLeave, MessageTyping, MessageStopTyping,
		MessageSystem, MessageMention, MessageFile, MessageImage:
		return true
	}
	return false
}

// Ephemeral reports whether messages of this type bypass the durable store.
func (t MessageType) Ephemeral() bool {
	return t == MessageTyping || t == MessageStopTyping
}

// MaxContentLength is the upper bound on message content accepted at the gateway.
const MaxContentLength = 1000

// Message is the unit that travels client -> gateway -> log -> consumer.
// Immutable once persisted, except for soft delete.
type Message struct {
	ID             string      `json:"id"`
	RoomID         string      `json:"room_id"`
	SenderID       int64       `json:"sender_id"`
	SenderName     string      `json:"sender_name,omitempty"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content,omitempty"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`
	AttachmentType string      `json:"attachment_type,omitempty"`
	MentionUserID  int64       `json:"mention_user_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	IsSystem       bool        `json:"is_system,omitempty"`
	IsDeleted      bool        `json:"is_deleted,omitempty"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
}

// MessageDraft is the inbound shape accepted by the ingestion gateway.
// ID and Timestamp are optional; the gateway stamps them when absent.
type MessageDraft struct {
	ID             string      `json:"id,omitempty"`
	RoomID         string      `json:"room_id" binding:"required"`
	SenderID       int64       `json:"sender_id"`
	SenderName     string      `json:"sender_name,omitempty"`
	Type           MessageType `json:"type" binding:"required"`
	Content        string      `json:"content,omitempty"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`
	AttachmentType string      `json:"attachment_type,omitempty"`
	MentionUserID  int64       `json:"mention_user_id,omitempty"`
	Timestamp      *time.Time  `json:"timestamp,omitempty"`
}

// Validate checks the draft against gateway admission rules.
func (d *MessageDraft) Validate() error {
	if d.RoomID == "" {
		return E(KindValidation, "draft.validate", "room_id is required")
	}
	if d.SenderID == 0 {
		return E(KindValidation, "draft.validate", "sender_id is required")
	}
	if !d.Type.Valid() {
		return E(KindValidation, "draft.validate", "unknown message type: "+string(d.Type))
	}
	if !d.Type.Ephemeral() && d.Content == "" && d.AttachmentURL == "" {
		return E(KindValidation, "draft.validate", "content or attachment_url is required")
	}
	if len([]rune(d.Content)) > MaxContentLength {
		return E(KindValidation, "draft.validate", "content exceeds 1000 characters")
	}
	if d.Type == MessageMention && d.MentionUserID == 0 {
		return E(KindValidation, "draft.validate", "mention_user_id is required for MENTION")
	}
	return nil
}
