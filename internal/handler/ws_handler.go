package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/gateway"
	"github.com/wououoo/weddingalba-chat/internal/hub"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub      *hub.Hub
	gateway  *gateway.Gateway
	presence store.PresenceStore
}

func NewWSHandler(h *hub.Hub, gw *gateway.Gateway, presence store.PresenceStore) *WSHandler {
	return &WSHandler{
		hub:      h,
		gateway:  gw,
		presence: presence,
	}
}

// HandleWebSocket upgrades the connection and binds the frame loop. Identity
// comes from the X-User-ID header, or the user_id query parameter for
// browser clients that cannot set headers on the upgrade request.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := userIDFromRequest(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), userID, conn, h.hub)
	session := &wsSession{
		handler: h,
		client:  client,
		rooms:   make(map[string]bool),
	}
	client.OnFrame = session.handleFrame
	client.OnClose = session.cleanup

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// wsSession tracks one connection's room subscriptions so presence can be
// torn down when the socket drops.
type wsSession struct {
	handler *WSHandler
	client  *hub.Client
	mu      sync.Mutex
	rooms   map[string]bool
}

func (s *wsSession) handleFrame(data []byte) {
	var base domain.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		s.client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid frame"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.FrameSubscribe:
		var frame domain.SubscribeFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.RoomID == "" {
			s.client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid subscribe frame"))
			return
		}
		s.subscribe(ctx, frame.RoomID)

	case domain.FrameUnsubscribe:
		var frame domain.SubscribeFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.RoomID == "" {
			s.client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid unsubscribe frame"))
			return
		}
		s.unsubscribe(ctx, frame.RoomID)

	case domain.FrameTyping:
		var frame domain.TypingFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.RoomID == "" {
			s.client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid typing frame"))
			return
		}
		s.typing(ctx, &frame)

	case domain.FramePing:
		s.client.SendJSON(map[string]string{"type": domain.FramePong})

	default:
		s.client.SendJSON(domain.NewErrorFrame(domain.ErrCodeBadRequest, "unknown frame type"))
	}
}

func (s *wsSession) subscribe(ctx context.Context, roomID string) {
	s.handler.hub.Subscribe(s.client, roomID)

	if err := s.handler.presence.SetOnline(ctx, roomID, s.client.UserID); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("presence set failed")
	}
	if err := s.handler.presence.RegisterSession(ctx, roomID, s.client.UserID, s.client.ID); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("session register failed")
	}

	s.mu.Lock()
	s.rooms[roomID] = true
	s.mu.Unlock()

	s.client.SendJSON(&domain.SubscribedFrame{Type: domain.FrameSubscribed, RoomID: roomID})
}

func (s *wsSession) unsubscribe(ctx context.Context, roomID string) {
	s.handler.hub.Unsubscribe(s.client, roomID)
	s.teardownPresence(ctx, roomID)

	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()

	s.client.SendJSON(&domain.SubscribedFrame{Type: domain.FrameUnsubscribed, RoomID: roomID})
}

// typing updates the ephemeral cache directly and routes the state change
// through the log so every instance's subscribers see it.
func (s *wsSession) typing(ctx context.Context, frame *domain.TypingFrame) {
	if err := s.handler.presence.SetTyping(ctx, frame.RoomID, s.client.UserID, frame.UserName, frame.IsTyping); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, frame.RoomID).Msg("typing cache write failed")
	}

	msgType := domain.MessageTyping
	if !frame.IsTyping {
		msgType = domain.MessageStopTyping
	}
	draft := &domain.MessageDraft{
		RoomID:     frame.RoomID,
		SenderID:   s.client.UserID,
		SenderName: frame.UserName,
		Type:       msgType,
	}
	if _, err := s.handler.gateway.Submit(ctx, draft); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, frame.RoomID).Msg("typing submit failed")
	}
}

func (s *wsSession) cleanup() {
	ctx := context.Background()
	s.mu.Lock()
	rooms := make([]string, 0, len(s.rooms))
	for roomID := range s.rooms {
		rooms = append(rooms, roomID)
	}
	s.mu.Unlock()

	for _, roomID := range rooms {
		s.teardownPresence(ctx, roomID)
	}
}

func (s *wsSession) teardownPresence(ctx context.Context, roomID string) {
	if err := s.handler.presence.SetOffline(ctx, roomID, s.client.UserID); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("presence clear failed")
	}
	if err := s.handler.presence.DeregisterSession(ctx, roomID, s.client.UserID); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("session deregister failed")
	}
}

func userIDFromRequest(c *gin.Context) int64 {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		raw = c.Query("user_id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
