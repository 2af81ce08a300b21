package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-api/internal/app"
	"portfolio-api/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

// SendMessageRequest keeps Message as a pointer so a missing field and a
// non-string value are both rejected before the service runs.
type SendMessageRequest struct {
	Username string  `json:"username"`
	Message  *string `json:"message"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if req.Message == nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, app.ErrMessageEmpty.Error())
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		Username: req.Username,
		Message:  *req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrCompletionNotConfigured):
			response.Error(c, http.StatusInternalServerError, response.CodeMisconfigured, app.ErrCompletionNotConfigured.Error())
		case errors.Is(err, app.ErrUpstreamUnauthorized):
			response.Error(c, http.StatusUnauthorized, response.CodeUpstreamAuth, app.ErrUpstreamUnauthorized.Error())
		case errors.Is(err, app.ErrUpstream):
			response.Error(c, http.StatusBadGateway, response.CodeUpstream, app.ErrUpstream.Error())
		case errors.Is(err, app.ErrMessageEnqueue):
			response.Error(c, http.StatusInternalServerError, response.CodeStorage, app.ErrMessageEnqueue.Error())
		case errors.Is(err, app.ErrMessagePersist):
			response.Error(c, http.StatusInternalServerError, response.CodeStorage, app.ErrMessagePersist.Error())
		default:
			writeOperationalError(c, err, "send message failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.chatService.ListMessages(c.Request.Context())
	if err != nil {
		writeOperationalError(c, err, "list messages failed")
		return
	}
	response.OK(c, messages)
}

