package models

// ChatRequest is the payload coming from the frontend into /api/chat/message.
type ChatRequest struct {
	ConversationID string    `json:"conversation_id"`       // empty starts a new conversation
	Text           string    `json:"text"`                  // user's message (typed or voice→text)
	LocationGeo    *GeoPoint `json:"locationGeo,omitempty"` // device coordinates, if the client shared them
}

// QuickReplyKind enumerates the buttons the frontend can render.
type QuickReplyKind string

const (
	QuickReplyFindService   QuickReplyKind = "find_service"
	QuickReplyService       QuickReplyKind = "service"
	QuickReplyUseMyLocation QuickReplyKind = "use_my_location"
	QuickReplyLoadMore      QuickReplyKind = "load_more"
	QuickReplyStartOver     QuickReplyKind = "start_over"
)

// QuickReply is a single button offered with an assistant reply, or pressed by the user.
type QuickReply struct {
	Label string         `json:"label"`
	Kind  QuickReplyKind `json:"kind"`
	Value string         `json:"value,omitempty"` // service name for QuickReplyService
}

// QuickReplyRequest is the payload for /api/chat/quick-reply.
type QuickReplyRequest struct {
	ConversationID string     `json:"conversation_id" binding:"required"`
	Reply          QuickReply `json:"reply"`
}

// LocationShareRequest is the payload for /api/chat/location. Either coordinates or an
// error code reported by the device ("permission_denied", "position_unavailable") is set.
type LocationShareRequest struct {
	ConversationID string    `json:"conversation_id" binding:"required"`
	LocationGeo    *GeoPoint `json:"locationGeo,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// ChatResponse is what the handler returns to the frontend after each processed turn.
type ChatResponse struct {
	ConversationID string           `json:"conversation_id"`
	ReplyText      string           `json:"response"`
	State          DialogueState    `json:"state"`
	Providers      []ProviderRecord `json:"providers,omitempty"`
	QuickReplies   []QuickReply     `json:"quick_replies,omitempty"`
}
