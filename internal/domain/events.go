package domain

// WebSocket frame types from client.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameTyping      = "typing"
	FramePing        = "ping"
)

// WebSocket frame types to client.
const (
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameMessage      = "message"
	FrameTypingState  = "typing_state"
	FrameNotify       = "notify"
	FrameMention      = "mention"
	FrameUnread       = "unread"
	FrameError        = "error"
	FramePong         = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeCapacity      = "CAPACITY_EXCEEDED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseFrame is the base structure for all WebSocket frames.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Server frames

type SubscribeFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type TypingFrame struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserName string `json:"user_name,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// Server -> Client frames

type SubscribedFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type MessageFrame struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"room_id"`
	Message *Message `json:"message"`
}

type TypingStateFrame struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

type NotifyFrame struct {
	Type           string `json:"type"`
	RoomID         string `json:"room_id"`
	MessageID      string `json:"message_id"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
}

type MentionFrame struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"room_id"`
	Message *Message `json:"message"`
}

type UnreadFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    FrameError,
		Code:    code,
		Message: message,
	}
}
