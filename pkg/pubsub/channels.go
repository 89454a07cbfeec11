package pubsub

import (
	"fmt"
	"strconv"
)

// Channel naming conventions for the chat subsystem.
const (
	// Per-room channels
	ChannelRoomMessages = "chat:room:%s"
	ChannelRoomTyping   = "chat:room:%s:typing"
	ChannelRoomNotify   = "chat:room:%s:notify"

	// Private per-user channel (mentions, unread badge updates)
	ChannelUser = "chat:user:%s"
)

// Event types carried over the bus.
const (
	EventMessage        = "message"
	EventTyping         = "typing"
	EventUploadComplete = "upload_complete"
	EventMention        = "mention"
	EventUnreadChanged  = "unread_changed"
	EventRoomRead       = "room_read"
)

// RoomChannel returns the message channel name for a room.
func RoomChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomMessages, roomID)
}

// RoomTypingChannel returns the typing channel name for a room.
func RoomTypingChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomTyping, roomID)
}

// RoomNotifyChannel returns the notification channel name for a room.
func RoomNotifyChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomNotify, roomID)
}

// UserChannel returns the private channel name for a user.
func UserChannel(userID int64) string {
	return fmt.Sprintf(ChannelUser, strconv.FormatInt(userID, 10))
}
