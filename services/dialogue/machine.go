package dialogue

import (
	"fmt"
	"strings"

	"servicefinder/models"
	"servicefinder/services/intent"
)

// Decision is the state machine's answer to one classification. Query is non-nil when a
// search must be dispatched; the conversation is then in the transient complete state.
type Decision struct {
	Reply        string
	QuickReplies []models.QuickReply
	Query        *models.CanonicalQuery
}

// Outcome is the result of a dispatched search.
type Outcome int

const (
	OutcomeResults Outcome = iota
	OutcomeNoResults
	OutcomeRejected
	OutcomeBackendError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResults:
		return "results"
	case OutcomeNoResults:
		return "no_results"
	case OutcomeRejected:
		return "rejected"
	case OutcomeBackendError:
		return "backend_error"
	default:
		return "unknown"
	}
}

const (
	replyGreeting       = "Hi! I can help you find local service providers like plumbers, electricians or mechanics. What do you need?"
	replyClarify        = "I can only help with finding service providers. Try something like \"I need a plumber in Chicago\"."
	replyAskService     = "Sure. What kind of service are you looking for?"
	replyAskLocationFmt = "Got it, you need a %s. Where are you located? Type your area or city, or share your location."
	replyRejected       = "That doesn't look like a service request I can search for. Try something like \"I need an electrician near me\"."
	replyNoResults      = "I couldn't find any providers for that. Try a broader area or a different service."
	replyBackendError   = "I'm having trouble connecting right now. Please try again in a moment."
	replyNoMoreResults  = "That's everyone I could find for this search. Try a nearby area for more options."
)

var (
	serviceQuickReplies = []models.QuickReply{
		{Label: "Plumber", Kind: models.QuickReplyService, Value: "plumber"},
		{Label: "Electrician", Kind: models.QuickReplyService, Value: "electrician"},
		{Label: "Mechanic", Kind: models.QuickReplyService, Value: "mechanic"},
		{Label: "Cleaner", Kind: models.QuickReplyService, Value: "cleaner"},
	}
	locationQuickReplies = []models.QuickReply{
		{Label: "Use my location", Kind: models.QuickReplyUseMyLocation},
	}
	resultQuickReplies = []models.QuickReply{
		{Label: "Show more", Kind: models.QuickReplyLoadMore},
		{Label: "New search", Kind: models.QuickReplyStartOver},
	}
	retryQuickReplies = []models.QuickReply{
		{Label: "Find a service", Kind: models.QuickReplyFindService},
	}
)

// Transition applies a classification to the conversation and returns what to say and,
// when applicable, what to search for. It is the only writer of State and PendingService.
func Transition(conv *Conversation, c intent.Classification) Decision {
	switch c.Kind {
	case intent.OffTopic:
		if isGreeting(c.Query) {
			return Decision{Reply: replyGreeting, QuickReplies: serviceQuickReplies}
		}
		return Decision{Reply: replyClarify, QuickReplies: serviceQuickReplies}

	case intent.ServiceOnly:
		svc := c.Intent.Service
		if svc == "" {
			conv.State = models.StateAwaitingService
			return Decision{Reply: replyAskService, QuickReplies: serviceQuickReplies}
		}
		if conv.Memory.Empty() {
			return askForLocation(conv, svc)
		}
		return dispatch(conv, models.CanonicalQuery{Service: svc, Location: conv.Memory.Format(), Text: c.Query})

	case intent.LocationResponse:
		pi, query := c.Intent, c.Query
		if conv.PendingService != "" && !strings.EqualFold(conv.PendingService, pi.Service) {
			query = intent.CombineLocationResponse(conv.PendingService, c.Utterance)
			pi.Service = conv.PendingService
		}
		return dispatchIntent(conv, pi, query)

	default:
		return dispatchIntent(conv, c.Intent, c.Query)
	}
}

// dispatchIntent dispatches when the location is usable. An unresolved self-reference
// with an empty memory cannot be searched, so the user is asked where they are instead.
func dispatchIntent(conv *Conversation, pi intent.PendingIntent, query string) Decision {
	if pi.Service != "" && intent.IsSelfReference(pi.Location) {
		return askForLocation(conv, pi.Service)
	}
	return dispatch(conv, intent.Synthesize(pi, query))
}

func askForLocation(conv *Conversation, service string) Decision {
	conv.State = models.StateAwaitingLocation
	conv.PendingService = service
	return Decision{
		Reply:        fmt.Sprintf(replyAskLocationFmt, service),
		QuickReplies: locationQuickReplies,
	}
}

func dispatch(conv *Conversation, q models.CanonicalQuery) Decision {
	conv.State = models.StateComplete
	conv.PendingService = ""
	return Decision{Query: &q}
}

// Settle moves the conversation out of the transient complete state once the search has
// resolved and returns the reply to show.
func Settle(conv *Conversation, q models.CanonicalQuery, outcome Outcome, count int) Decision {
	switch outcome {
	case OutcomeResults:
		conv.State = models.StateComplete
		conv.LastQuery = &q
		return Decision{Reply: resultsReply(q, count), QuickReplies: resultQuickReplies}
	case OutcomeRejected:
		conv.State = models.StateInitial
		return Decision{Reply: replyRejected, QuickReplies: retryQuickReplies}
	case OutcomeBackendError:
		conv.State = models.StateInitial
		return Decision{Reply: replyBackendError, QuickReplies: retryQuickReplies}
	default:
		conv.State = models.StateInitial
		return Decision{Reply: replyNoResults, QuickReplies: retryQuickReplies}
	}
}

func resultsReply(q models.CanonicalQuery, count int) string {
	verb, noun := "are", "providers"
	if count == 1 {
		verb, noun = "is", "provider"
	}
	if q.Structured() {
		return fmt.Sprintf("Here %s %d %s %s near %s.", verb, count, q.Service, noun, q.Location)
	}
	return fmt.Sprintf("Here %s %d %s matching \"%s\".", verb, count, noun, q.String())
}

func isGreeting(text string) bool {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(text), "!.?"))
	for _, g := range []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "how are you"} {
		if t == g || strings.HasPrefix(t, g+" ") {
			return true
		}
	}
	return false
}
