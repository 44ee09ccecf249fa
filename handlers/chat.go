package handlers

import (
	"context"
	"errors"
	"net/http"

	"servicefinder/models"
	"servicefinder/services/dialogue"
	"servicefinder/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatEngine is the dialogue engine as seen by the HTTP layer.
type ChatEngine interface {
	Process(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	QuickReply(ctx context.Context, req models.QuickReplyRequest) (*models.ChatResponse, error)
	ShareLocation(ctx context.Context, req models.LocationShareRequest) (*models.ChatResponse, error)
	LoadMore(ctx context.Context, conversationID string) (*models.ChatResponse, error)
	Reset(ctx context.Context, conversationID string) (*models.ChatResponse, error)
	Transcript(ctx context.Context, conversationID string) ([]models.Turn, error)
}

type ChatHandler struct {
	Engine      ChatEngine
	Transcriber Transcriber
	Logger      *zap.Logger
}

func NewChatHandler(engine ChatEngine, transcriber Transcriber, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{Engine: engine, Transcriber: transcriber, Logger: logger}
}

type loadMoreRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

// Message handles a typed utterance, optionally carrying device coordinates.
func (h *ChatHandler) Message(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid chat request", err.Error())
		return
	}
	resp, err := h.Engine.Process(c.Request.Context(), req)
	h.respond(c, resp, err)
}

// QuickReply handles a pressed quick-reply button.
func (h *ChatHandler) QuickReply(c *gin.Context) {
	var req models.QuickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid quick reply", err.Error())
		return
	}
	resp, err := h.Engine.QuickReply(c.Request.Context(), req)
	h.respond(c, resp, err)
}

// Location handles a shared device position or a location error from the client.
func (h *ChatHandler) Location(c *gin.Context) {
	var req models.LocationShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid location request", err.Error())
		return
	}
	resp, err := h.Engine.ShareLocation(c.Request.Context(), req)
	h.respond(c, resp, err)
}

func (h *ChatHandler) LoadMore(c *gin.Context) {
	var req loadMoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid load more request", err.Error())
		return
	}
	resp, err := h.Engine.LoadMore(c.Request.Context(), req.ConversationID)
	h.respond(c, resp, err)
}

// Reset forgets the conversation context; the transcript is kept.
func (h *ChatHandler) Reset(c *gin.Context) {
	resp, err := h.Engine.Reset(c.Request.Context(), c.Param("conversationID"))
	h.respond(c, resp, err)
}

func (h *ChatHandler) Transcript(c *gin.Context) {
	id := c.Param("conversationID")
	turns, err := h.Engine.Transcript(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("Failed to load transcript", zap.String("conversation", id), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load transcript", err.Error())
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "turns": turns})
}

func (h *ChatHandler) respond(c *gin.Context, resp *models.ChatResponse, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, dialogue.ErrBusy):
		utils.JSONError(c, http.StatusConflict, "Conversation busy", "the previous message is still being processed")
	case errors.Is(err, dialogue.ErrEmptyUtterance), errors.Is(err, dialogue.ErrInvalidQuickReply):
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
	default:
		h.Logger.Error("Chat request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to process message", err.Error())
	}
}
