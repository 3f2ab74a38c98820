package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/audit"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/service"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/response"
)

const apiActor = "api"

// Handler serves the chatroom and message REST API.
type Handler struct {
	rooms    *service.RoomService
	messages *service.MessageService
	gateway  *service.Gateway
}

func NewHandler(rooms *service.RoomService, messages *service.MessageService, gateway *service.Gateway) *Handler {
	return &Handler{
		rooms:    rooms,
		messages: messages,
		gateway:  gateway,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		chatrooms := api.Group("/chatrooms")
		{
			chatrooms.GET("", h.ListRooms)
			chatrooms.POST("", h.CreateRoom)
			chatrooms.GET("/:id", h.GetRoom)
			chatrooms.PUT("/:id", h.UpdateRoom)
			chatrooms.PATCH("/:id", h.UpdateRoom)
			chatrooms.DELETE("/:id", h.DeleteRoom)
			chatrooms.GET("/:id/occupancy", h.GetOccupancy)
		}

		messages := api.Group("/messages")
		{
			messages.GET("", h.ListMessages)
			messages.POST("", h.CreateMessage)
			messages.GET("/:id", h.GetMessage)
			messages.PUT("/:id", h.UpdateMessage)
			messages.PATCH("/:id", h.UpdateMessage)
			messages.DELETE("/:id", h.DeleteMessage)
		}
	}
}

// ListRooms lists every chatroom with its live occupancy.
func (h *Handler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()

	rooms, err := h.rooms.ListRooms(ctx)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	occupancy := h.gateway.OccupancySnapshot()
	result := make([]domain.RoomResponse, len(rooms))
	for i := range rooms {
		result[i] = rooms[i].ToResponse(occupancy[rooms[i].ID])
	}
	response.Success(c, result)
}

func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), id)
	if err != nil {
		h.roomError(c, err)
		return
	}
	response.Success(c, room.ToResponse(h.gateway.Occupancy(room.ID)))
}

// CreateRoom creates a chatroom and announces it to connected clients.
func (h *Handler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.rooms.CreateRoom(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRoomName) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}

	h.gateway.AnnounceRoom(ctx, room)
	audit.LogWithDetail(ctx, audit.ActionCreateRoom, apiActor, room.Name, "room created")
	response.Created(c, room.ToResponse(0))
}

func (h *Handler) UpdateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req domain.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.rooms.UpdateRoom(ctx, id, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRoomName) {
			response.BadRequest(c, err.Error())
			return
		}
		h.roomError(c, err)
		return
	}

	audit.LogRoom(ctx, audit.ActionUpdateRoom, apiActor, id, "room updated")
	response.Success(c, room.ToResponse(h.gateway.Occupancy(room.ID)))
}

// DeleteRoom removes a chatroom. Deleting a missing room is not an error.
func (h *Handler) DeleteRoom(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := h.rooms.DeleteRoom(ctx, id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if deleted {
		audit.LogRoom(ctx, audit.ActionDeleteRoom, apiActor, id, "room deleted")
	}
	response.Success(c, gin.H{"success": deleted})
}

// GetOccupancy returns the live member count of one room.
func (h *Handler) GetOccupancy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := h.rooms.GetRoom(c.Request.Context(), id); err != nil {
		h.roomError(c, err)
		return
	}
	response.Success(c, domain.RoomUpdateData{RoomID: id, Occupancy: h.gateway.Occupancy(id)})
}

// ListMessages lists all messages, or one room's when chatroomId is given.
func (h *Handler) ListMessages(c *gin.Context) {
	var req domain.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), req.ChatroomID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, msgs)
}

func (h *Handler) GetMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	msg, err := h.messages.GetMessage(c.Request.Context(), id)
	if err != nil {
		h.messageError(c, err)
		return
	}
	response.Success(c, msg)
}

// CreateMessage stores a message without broadcasting it.
func (h *Handler) CreateMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create message request")
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.messages.CreateMessage(ctx, &req)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, msg)
}

func (h *Handler) UpdateMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req domain.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.messages.UpdateMessage(c.Request.Context(), id, &req)
	if err != nil {
		h.messageError(c, err)
		return
	}
	response.Success(c, msg)
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := h.messages.DeleteMessage(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"success": deleted})
}

func (h *Handler) roomError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrRoomNotFound) {
		response.RoomNotFound(c)
		return
	}
	response.InternalError(c, err)
}

func (h *Handler) messageError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrMessageNotFound) {
		response.NotFound(c, "message not found")
		return
	}
	response.InternalError(c, err)
}

// pathID parses the :id parameter, answering 400 when it is not a positive integer.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}
