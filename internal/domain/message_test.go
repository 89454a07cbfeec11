package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTypeValid(t *testing.T) {
	for _, mt := range AllMessageTypes {
		assert.True(t, mt.Valid(), "type %s should be valid", mt)
	}
	assert.False(t, MessageType("SHOUT").Valid())
	assert.False(t, MessageType("").Valid())
}

func TestMessageTypeEphemeral(t *testing.T) {
	assert.True(t, MessageTyping.Ephemeral())
	assert.True(t, MessageStopTyping.Ephemeral())
	assert.False(t, MessageChat.Ephemeral())
	assert.False(t, MessageFile.Ephemeral())
}

func TestDraftValidate(t *testing.T) {
	base := func() *MessageDraft {
		return &MessageDraft{
			RoomID:   "room-1",
			SenderID: 42,
			Type:     MessageChat,
			Content:  "hello",
		}
	}

	t.Run("valid chat", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing room", func(t *testing.T) {
		d := base()
		d.RoomID = ""
		err := d.Validate()
		assert.Error(t, err)
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("missing sender", func(t *testing.T) {
		d := base()
		d.SenderID = 0
		assert.Error(t, d.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		d := base()
		d.Type = "SHOUT"
		assert.Error(t, d.Validate())
	})

	t.Run("empty content rejected for durable types", func(t *testing.T) {
		d := base()
		d.Content = ""
		assert.Error(t, d.Validate())
	})

	t.Run("empty content allowed for typing", func(t *testing.T) {
		d := base()
		d.Type = MessageTyping
		d.Content = ""
		assert.NoError(t, d.Validate())
	})

	t.Run("attachment substitutes for content", func(t *testing.T) {
		d := base()
		d.Type = MessageImage
		d.Content = ""
		d.AttachmentURL = "https://cdn.example.com/photo.jpg"
		assert.NoError(t, d.Validate())
	})

	t.Run("content at limit", func(t *testing.T) {
		d := base()
		d.Content = strings.Repeat("가", MaxContentLength)
		assert.NoError(t, d.Validate())
	})

	t.Run("content over limit", func(t *testing.T) {
		d := base()
		d.Content = strings.Repeat("가", MaxContentLength+1)
		assert.Error(t, d.Validate())
	})

	t.Run("mention requires target", func(t *testing.T) {
		d := base()
		d.Type = MessageMention
		assert.Error(t, d.Validate())
		d.MentionUserID = 7
		assert.NoError(t, d.Validate())
	})
}
