// File: servicefinder/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints
	ChatMessageHandler    gin.HandlerFunc
	ChatQuickReplyHandler gin.HandlerFunc
	ChatLocationHandler   gin.HandlerFunc
	ChatLoadMoreHandler   gin.HandlerFunc
	ChatVoiceHandler      gin.HandlerFunc
	ChatResetHandler      gin.HandlerFunc
	ChatTranscriptHandler gin.HandlerFunc

	// Operational endpoints
	HealthHandler  gin.HandlerFunc
	MetricsHandler gin.HandlerFunc
}

// NewChatBundle fills the chat endpoints from a ChatHandler.
func NewChatBundle(h *ChatHandler) *HandlerBundle {
	return &HandlerBundle{
		ChatMessageHandler:    h.Message,
		ChatQuickReplyHandler: h.QuickReply,
		ChatLocationHandler:   h.Location,
		ChatLoadMoreHandler:   h.LoadMore,
		ChatVoiceHandler:      h.Voice,
		ChatResetHandler:      h.Reset,
		ChatTranscriptHandler: h.Transcript,
	}
}
