package intent

import (
	"fmt"
	"strings"

	"servicefinder/models"
)

// Kind is the validator's verdict on one utterance.
type Kind int

const (
	OffTopic Kind = iota
	ServiceOnly
	LocationResponse
	CompleteQuery
)

func (k Kind) String() string {
	switch k {
	case OffTopic:
		return "off_topic"
	case ServiceOnly:
		return "service_only"
	case LocationResponse:
		return "location_response"
	case CompleteQuery:
		return "complete_query"
	default:
		return "unknown"
	}
}

// Classification carries the verdict together with the query text to dispatch and the
// intent resolved from it. Utterance is the trimmed input; Query differs from it only for
// a combined location response.
type Classification struct {
	Kind      Kind
	Utterance string
	Query     string
	Intent    PendingIntent
}

// Validate classifies an utterance against the dialogue history and state.
//
// While the state is awaiting_service a short phrase is read as a service even when it
// could also be a place name; this is a heuristic, not a guaranteed disambiguation.
func (r *Resolver) Validate(utterance string, turns []models.Turn, state models.DialogueState, mem *LocationMemory) Classification {
	text := strings.TrimSpace(utterance)

	if state != models.StateAwaitingService && r.promptedForLocation(turns, state) && LooksLikeBareLocation(text) {
		if svc := r.FindService(turns); svc != "" {
			combined := CombineLocationResponse(svc, text)
			return Classification{Kind: LocationResponse, Utterance: text, Query: combined, Intent: r.Extract(combined, mem)}
		}
	}

	if !r.isServiceRelated(text, state) {
		return Classification{Kind: OffTopic, Utterance: text, Query: text}
	}

	pi := r.Extract(text, mem)
	if state == models.StateAwaitingService && pi.Service == "" {
		pi.Service = CleanService(strings.ToLower(stripLocationClause(text)))
	}

	if !r.hasLocation(text, state) {
		return Classification{Kind: ServiceOnly, Utterance: text, Query: text, Intent: pi}
	}
	return Classification{Kind: CompleteQuery, Utterance: text, Query: text, Intent: pi}
}

// CombineLocationResponse merges a recovered service with a bare location reply.
func CombineLocationResponse(service, text string) string {
	if strings.EqualFold(strings.TrimSpace(text), SelfNearMe) {
		return fmt.Sprintf("I need a %s near me", service)
	}
	loc := strings.TrimSpace(text)
	if !leadingInRE.MatchString(loc) && !barePrepositionRE.MatchString(loc) {
		loc = "in " + loc
	}
	return fmt.Sprintf("I need a %s %s", service, loc)
}

func (r *Resolver) promptedForLocation(turns []models.Turn, state models.DialogueState) bool {
	if state == models.StateAwaitingLocation {
		return true
	}
	prompt := strings.ToLower(lastAssistantText(turns))
	if prompt == "" {
		return false
	}
	for _, frag := range askLocationFragments {
		if strings.Contains(prompt, frag) {
			return true
		}
	}
	return false
}

// LooksLikeBareLocation accepts "in/near/at X", up to four words of letters, spaces and
// commas, or exactly "near me". Greetings, questions and need-verb phrases are rejected.
func LooksLikeBareLocation(text string) bool {
	if strings.EqualFold(text, SelfNearMe) {
		return true
	}
	if HasNeedVerb(text) || greetingRE.MatchString(text) {
		return false
	}
	if barePrepositionRE.MatchString(text) {
		return true
	}
	return bareWordsRE.MatchString(text) && len(strings.Fields(text)) <= 4
}

func (r *Resolver) isServiceRelated(text string, state models.DialogueState) bool {
	if HasNeedVerb(text) {
		return true
	}
	if state != models.StateAwaitingService {
		return false
	}
	n := len(strings.Fields(text))
	return n > 0 && n <= 3 && !greetingRE.MatchString(text)
}

func (r *Resolver) hasLocation(text string, state models.DialogueState) bool {
	if locationKeywordRE.MatchString(text) || selfReferenceRE.MatchString(text) || r.lib.MentionsCity(text) {
		return true
	}
	return state == models.StateAwaitingService
}

// stripLocationClause drops a trailing "in/near/at/around/close to ..." clause.
func stripLocationClause(text string) string {
	if m := locationClauseRE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// IsLoadMore reports whether the utterance asks for more results.
func IsLoadMore(utterance string) bool {
	return loadMoreRE.MatchString(strings.TrimSpace(utterance))
}
