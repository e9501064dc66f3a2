package chathandler

import (
	"errors"
	"net/http"

	"chatfanoutgo/internal/fanout"
	"chatfanoutgo/internal/services/chat"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc   chat.IChatService
	coord fanout.ICoordinator
}

func New(svc chat.IChatService, coord fanout.ICoordinator) *Handler {
	return &Handler{svc: svc, coord: coord}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/conversations", h.create)
	r.GET("/conversations", h.list)
	r.GET("/conversations/:id/messages", h.messages)
	r.POST("/conversations/:id/messages", h.send)
	r.POST("/conversations/:id/messages/:messageId/read", h.read)
}

// @Summary		Create a conversation
// @Description	Creates a conversation between two or more companies and notifies every participant's live connections.
// @Tags			Conversations
// @Param			body	body		CreateConversationBody	true	"Participant payload"
// @Success		201		{object}	chat.ConversationDTO
// @Failure		400		{object}	ErrorResponse
// @Router			/conversations [post]
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateConversationBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	dto, err := h.svc.CreateConversation(ginCtx.Request.Context(), body.ParticipantCompanyIDs)
	if err != nil {
		// Write failed: nothing is broadcast.
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrTooFewParticipants) || errors.Is(err, chat.ErrCompanyNotFound) {
			status = http.StatusBadRequest
		}
		ginCtx.JSON(status, &ErrorResponse{Error: err.Error()})
		return
	}

	h.coord.NotifyConversationCreated(ginCtx.Request.Context(), dto.ID, body.ParticipantCompanyIDs)
	ginCtx.JSON(http.StatusCreated, dto)
}

// @Summary		List conversations
// @Description	Retrieves every conversation the company participates in, newest activity first.
// @Tags			Conversations
// @Param			company_id	query		string	true	"Company ID"	default(co1)
// @Success		200			{array}		chat.ConversationDTO
// @Failure		400			{object}	ErrorResponse
// @Failure		500			{object}	ErrorResponse
// @Router			/conversations [get]
func (h *Handler) list(ginCtx *gin.Context) {
	var q ListConversationsQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListConversations(ginCtx.Request.Context(), q.CompanyID)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

// @Summary		List messages
// @Description	Returns the conversation's messages in creation order with read-by sets.
// @Tags			Messages
// @Param			id	path		string	true	"Conversation ID"	default(c1)
// @Success		200	{array}		chat.MessageDTO
// @Failure		500	{object}	ErrorResponse
// @Router			/conversations/{id}/messages [get]
func (h *Handler) messages(ginCtx *gin.Context) {
	out, err := h.svc.ListMessages(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

// @Summary		Send a message
// @Description	Persists the message, updates the conversation preview, then fans out message:new and conversation:update.
// @Tags			Messages
// @Param			id		path	string			true	"Conversation ID"	default(c1)
// @Param			body	body	SendMessageBody	true	"Message payload"
// @Success		201	{object}	chat.MessageDTO
// @Failure		400	{object}	ErrorResponse
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/conversations/{id}/messages [post]
func (h *Handler) send(ginCtx *gin.Context) {
	var body SendMessageBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	conversationID := ginCtx.Param("id")

	msg, participants, err := h.svc.CreateMessage(ginCtx.Request.Context(),
		conversationID, body.SenderID, body.Content)
	if err != nil {
		// Write failed: nothing is broadcast.
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, chat.ErrConversationNotFound):
			status = http.StatusNotFound
		case errors.Is(err, chat.ErrNotParticipant):
			status = http.StatusForbidden
		}
		ginCtx.JSON(status, &ErrorResponse{Error: err.Error()})
		return
	}

	h.coord.NotifyMessageCreated(ginCtx.Request.Context(), conversationID, msg, participants)
	ginCtx.JSON(http.StatusCreated, msg)
}

// @Summary		Mark a message read
// @Description	Persists the read receipt, then fans out message:read to the conversation room.
// @Tags			Messages
// @Param			id			path	string			true	"Conversation ID"	default(c1)
// @Param			messageId	path	string			true	"Message ID"		default(m1)
// @Param			body		body	MarkReadBody	true	"Reader payload"
// @Success		200
// @Failure		400	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/conversations/{id}/messages/{messageId}/read [post]
func (h *Handler) read(ginCtx *gin.Context) {
	var body MarkReadBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	messageID := ginCtx.Param("messageId")

	conversationID, err := h.svc.MarkMessageRead(ginCtx.Request.Context(), messageID, body.CompanyID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		ginCtx.JSON(status, &ErrorResponse{Error: err.Error()})
		return
	}

	h.coord.NotifyMessageRead(ginCtx.Request.Context(), conversationID, messageID, body.CompanyID)
	ginCtx.JSON(http.StatusOK, gin.H{"ok": true})
}
