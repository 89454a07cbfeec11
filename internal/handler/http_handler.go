package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/gateway"
	"github.com/wououoo/weddingalba-chat/internal/service"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/response"
)

const maxPageSize = 100

type HTTPHandler struct {
	gateway  *gateway.Gateway
	rooms    service.RoomService
	history  service.HistoryService
	presence store.PresenceStore
	unread   store.UnreadStore
	pageSize int
}

func NewHTTPHandler(
	gw *gateway.Gateway,
	rooms service.RoomService,
	history service.HistoryService,
	presence store.PresenceStore,
	unread store.UnreadStore,
	pageSize int,
) *HTTPHandler {
	if pageSize < 1 {
		pageSize = 50
	}
	return &HTTPHandler{
		gateway:  gw,
		rooms:    rooms,
		history:  history,
		presence: presence,
		unread:   unread,
		pageSize: pageSize,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine, ws *WSHandler) {
	r.GET("/health", h.Health)
	r.GET("/ws", ws.HandleWebSocket)

	v1 := r.Group("/api/v1")
	v1.Use(requireUser())
	{
		v1.POST("/messages", h.SubmitMessage)
		v1.DELETE("/messages/:id", h.DeleteMessage)

		v1.GET("/rooms", h.ListRooms)
		v1.POST("/rooms/personal", h.CreatePersonalRoom)
		v1.POST("/rooms/group", h.CreateGroupRoom)
		v1.POST("/rooms/:id/participants", h.AddParticipant)
		v1.DELETE("/rooms/:id/participants", h.LeaveRoom)
		v1.GET("/rooms/:id/messages", h.ListMessages)
		v1.GET("/rooms/:id/init", h.RoomInit)
		v1.POST("/rooms/:id/read", h.MarkRead)
		v1.GET("/rooms/:id/typing", h.TypingUsers)
		v1.GET("/rooms/:id/online", h.OnlineUsers)

		v1.GET("/unread", h.UnreadSummary)
	}
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireUser resolves identity from the X-User-ID header. Authn itself is
// owned by an upstream collaborator; this service trusts the header.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || id == 0 {
			response.Unauthorized(c, "X-User-ID header required")
			c.Abort()
			return
		}
		c.Set("user_id", id)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

func (h *HTTPHandler) SubmitMessage(c *gin.Context) {
	var draft domain.MessageDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	draft.SenderID = currentUser(c)

	ack, err := h.gateway.Submit(c.Request.Context(), &draft)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Accepted(c, ack)
}

func (h *HTTPHandler) DeleteMessage(c *gin.Context) {
	if err := h.history.DeleteMessage(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *HTTPHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListUserRooms(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"rooms": rooms})
}

type personalRoomRequest struct {
	HostID    int64 `json:"host_id" binding:"required"`
	GuestID   int64 `json:"guest_id" binding:"required"`
	PostingID int64 `json:"posting_id" binding:"required"`
}

func (h *HTTPHandler) CreatePersonalRoom(c *gin.Context) {
	var req personalRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	room, err := h.rooms.GetOrCreatePersonalRoom(c.Request.Context(), req.HostID, req.GuestID, req.PostingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, room)
}

type groupRoomRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	ParticipantIDs []int64 `json:"participant_ids"`
	IsPublic       bool    `json:"is_public"`
}

func (h *HTTPHandler) CreateGroupRoom(c *gin.Context) {
	var req groupRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	room, err := h.rooms.CreateGroupRoom(c.Request.Context(), currentUser(c), req.Name, req.Description, req.ParticipantIDs, req.IsPublic)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, room)
}

type addParticipantRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.rooms.AddParticipant(c.Request.Context(), c.Param("id"), req.UserID, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"added": true})
}

func (h *HTTPHandler) LeaveRoom(c *gin.Context) {
	if err := h.rooms.LeaveRoom(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"left": true})
}

// ListMessages pages a room's history newest-first. A since parameter
// switches to the incremental oldest-first variant; a q parameter switches
// to keyword search.
func (h *HTTPHandler) ListMessages(c *gin.Context) {
	roomID := c.Param("id")
	ctx := c.Request.Context()

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "since must be RFC3339")
			return
		}
		limit := intQuery(c, "limit", h.pageSize)
		msgs, err := h.history.ListSince(ctx, roomID, since, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, gin.H{"messages": msgs})
		return
	}

	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", h.pageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if keyword := c.Query("q"); keyword != "" {
		msgs, total, err := h.history.Search(ctx, roomID, keyword, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, gin.H{"messages": msgs, "total": total, "page": page})
		return
	}

	msgs, total, err := h.history.ListMessages(ctx, roomID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"messages": msgs, "total": total, "page": page})
}

func (h *HTTPHandler) RoomInit(c *gin.Context) {
	init, err := h.history.RoomFastInit(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, init)
}

type markReadRequest struct {
	LastMessageID string `json:"last_message_id"`
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	cleared, total, err := h.history.MarkRoomRead(c.Request.Context(), c.Param("id"), currentUser(c), req.LastMessageID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": cleared, "total": total})
}

func (h *HTTPHandler) TypingUsers(c *gin.Context) {
	users, err := h.presence.GetTypingUsers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"typing": users})
}

func (h *HTTPHandler) OnlineUsers(c *gin.Context) {
	users, err := h.presence.GetOnlineUsers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"online": users})
}

func (h *HTTPHandler) UnreadSummary(c *gin.Context) {
	summary, err := h.unread.Summary(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// respondError maps the error kind taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		response.BadRequest(c, err.Error())
	case domain.KindUnauthorized:
		response.Unauthorized(c, err.Error())
	case domain.KindForbidden:
		response.Forbidden(c, err.Error())
	case domain.KindNotFound:
		response.NotFound(c, err.Error())
	case domain.KindCapacity, domain.KindDuplicate:
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, "internal error")
	}
}
