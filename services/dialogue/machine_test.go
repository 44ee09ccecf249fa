package dialogue

import (
	"testing"

	"servicefinder/models"
	"servicefinder/services/intent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMemory(conv *Conversation) *Conversation {
	conv.Memory.Set(models.StructuredLocation{Area: "Clifton", City: "Karachi", Country: "Pakistan"})
	return conv
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name        string
		conv        *Conversation
		c           intent.Classification
		wantState   models.DialogueState
		wantReply   string
		wantQuery   *models.CanonicalQuery
		wantPending string
	}{
		{
			name:      "greeting",
			conv:      NewConversation("c"),
			c:         intent.Classification{Kind: intent.OffTopic, Query: "Hello!"},
			wantState: models.StateInitial,
			wantReply: replyGreeting,
		},
		{
			name:        "off topic keeps awaiting location",
			conv:        &Conversation{State: models.StateAwaitingLocation, PendingService: "plumber"},
			c:           intent.Classification{Kind: intent.OffTopic, Query: "what is the weather"},
			wantState:   models.StateAwaitingLocation,
			wantReply:   replyClarify,
			wantPending: "plumber",
		},
		{
			name:      "service only without service",
			conv:      NewConversation("c"),
			c:         intent.Classification{Kind: intent.ServiceOnly, Query: "I need help finding a service"},
			wantState: models.StateAwaitingService,
			wantReply: replyAskService,
		},
		{
			name:        "service only with empty memory",
			conv:        NewConversation("c"),
			c:           intent.Classification{Kind: intent.ServiceOnly, Query: "I need a plumber", Intent: intent.PendingIntent{Service: "plumber"}},
			wantState:   models.StateAwaitingLocation,
			wantReply:   "Got it, you need a plumber. Where are you located? Type your area or city, or share your location.",
			wantPending: "plumber",
		},
		{
			name:      "service only with memory",
			conv:      withMemory(NewConversation("c")),
			c:         intent.Classification{Kind: intent.ServiceOnly, Query: "I need a plumber", Intent: intent.PendingIntent{Service: "plumber"}},
			wantState: models.StateComplete,
			wantQuery: &models.CanonicalQuery{Service: "plumber", Location: "Clifton, Karachi, Pakistan", Text: "I need a plumber"},
		},
		{
			name: "location response prefers pending service",
			conv: &Conversation{State: models.StateAwaitingLocation, PendingService: "gardener"},
			c: intent.Classification{
				Kind:      intent.LocationResponse,
				Utterance: "Lahore",
				Query:     "I need a plumber in Lahore",
				Intent:    intent.PendingIntent{Service: "plumber", Location: "Lahore"},
			},
			wantState: models.StateComplete,
			wantQuery: &models.CanonicalQuery{Service: "gardener", Location: "Lahore", Text: "I need a gardener in Lahore"},
		},
		{
			name:      "complete query",
			conv:      NewConversation("c"),
			c:         intent.Classification{Kind: intent.CompleteQuery, Query: "I need a plumber in Chicago", Intent: intent.PendingIntent{Service: "plumber", Location: "Chicago"}},
			wantState: models.StateComplete,
			wantQuery: &models.CanonicalQuery{Service: "plumber", Location: "Chicago", Text: "I need a plumber in Chicago"},
		},
		{
			name:        "unresolved self reference asks for location",
			conv:        NewConversation("c"),
			c:           intent.Classification{Kind: intent.CompleteQuery, Query: "I need a plumber near me", Intent: intent.PendingIntent{Service: "plumber", Location: intent.SelfNearMe}},
			wantState:   models.StateAwaitingLocation,
			wantReply:   "Got it, you need a plumber. Where are you located? Type your area or city, or share your location.",
			wantPending: "plumber",
		},
		{
			name:      "free text",
			conv:      NewConversation("c"),
			c:         intent.Classification{Kind: intent.CompleteQuery, Query: "I need someone near Chicago", Intent: intent.PendingIntent{Location: "Chicago"}},
			wantState: models.StateComplete,
			wantQuery: &models.CanonicalQuery{Text: "I need someone near Chicago"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Transition(tt.conv, tt.c)
			assert.Equal(t, tt.wantState, tt.conv.State)
			assert.Equal(t, tt.wantReply, d.Reply)
			assert.Equal(t, tt.wantQuery, d.Query)
			assert.Equal(t, tt.wantPending, tt.conv.PendingService)
		})
	}
}

func TestSettle(t *testing.T) {
	q := models.CanonicalQuery{Service: "plumber", Location: "Chicago", Text: "I need a plumber in Chicago"}

	conv := &Conversation{State: models.StateComplete}
	d := Settle(conv, q, OutcomeResults, 1)
	assert.Equal(t, models.StateComplete, conv.State)
	assert.Equal(t, "Here is 1 plumber provider near Chicago.", d.Reply)
	require.NotNil(t, conv.LastQuery)
	assert.Equal(t, q, *conv.LastQuery)

	for outcome, reply := range map[Outcome]string{
		OutcomeNoResults:    replyNoResults,
		OutcomeRejected:     replyRejected,
		OutcomeBackendError: replyBackendError,
	} {
		conv := &Conversation{State: models.StateComplete}
		d := Settle(conv, q, outcome, 0)
		assert.Equal(t, models.StateInitial, conv.State, outcome.String())
		assert.Equal(t, reply, d.Reply)
		assert.Equal(t, retryQuickReplies, d.QuickReplies)
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "results", OutcomeResults.String())
	assert.Equal(t, "backend_error", OutcomeBackendError.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
