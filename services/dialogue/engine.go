package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"servicefinder/models"
	"servicefinder/services/geocoding"
	"servicefinder/services/intent"
	"servicefinder/services/search"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when a conversation is still processing an earlier input. The
	// new input is dropped, not queued.
	ErrBusy = errors.New("conversation is busy")
	// ErrEmptyUtterance is returned for blank input.
	ErrEmptyUtterance = errors.New("empty utterance")
	// ErrInvalidQuickReply is returned for a button the engine does not know.
	ErrInvalidQuickReply = errors.New("invalid quick reply")
)

// Location error codes reported by client devices.
const (
	LocationErrorPermissionDenied    = "permission_denied"
	LocationErrorPositionUnavailable = "position_unavailable"
)

const (
	replyLocationDenied      = "No problem. Location access is turned off, so please type your area or city instead."
	replyLocationUnavailable = "I couldn't get your position right now. Please type your area or city."
	replyGeocodeFailed       = "I couldn't work out your address from your position. Please type your area or city."
	replyLocationNoServiceFm = "Thanks, I'll look around %s. What service do you need?"
	replyStartOver           = "Let's start over. What service do you need?"
	loadMoreUtterance        = "Show more results"
)

// Options wires an Engine.
type Options struct {
	Resolver      *intent.Resolver
	Store         ContextStore
	Turns         TurnLog
	Searcher      search.Searcher
	Geocoder      geocoding.Geocoder // optional
	Logger        *zap.Logger
	Metrics       *Metrics
	Observer      PhaseObserver // optional
	PhaseDelays   PhaseDelays
	ResultCount   int
	SearchTimeout time.Duration // bounds each backend call; zero leaves it to the caller's context
	Now           func() time.Time
}

// Engine runs utterances through validation, the state machine and search dispatch for
// one conversation at a time.
type Engine struct {
	resolver      *intent.Resolver
	store         ContextStore
	turns         TurnLog
	searcher      search.Searcher
	geocoder      geocoding.Geocoder
	logger        *zap.Logger
	metrics       *Metrics
	observer      PhaseObserver
	delays        PhaseDelays
	resultCount   int
	searchTimeout time.Duration
	now           func() time.Time
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		resolver:      opts.Resolver,
		store:         opts.Store,
		turns:         opts.Turns,
		searcher:      opts.Searcher,
		geocoder:      opts.Geocoder,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		observer:      opts.Observer,
		delays:        opts.PhaseDelays,
		resultCount:   opts.ResultCount,
		searchTimeout: opts.SearchTimeout,
		now:           opts.Now,
	}
	if e.resolver == nil {
		e.resolver = intent.NewResolver(nil)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.resultCount <= 0 {
		e.resultCount = 5
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// turnScope is the state loaded for one processed turn.
type turnScope struct {
	conv  *Conversation
	turns []models.Turn
}

// turnResult is what the assistant says back.
type turnResult struct {
	reply        string
	quickReplies []models.QuickReply
	providers    []models.ProviderRecord
}

func fromDecision(d Decision) turnResult {
	return turnResult{reply: d.Reply, quickReplies: d.QuickReplies}
}

// Process handles a typed or transcribed utterance.
func (e *Engine) Process(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyUtterance
	}
	return e.withConversation(ctx, req.ConversationID, func(s *turnScope) (turnResult, error) {
		if req.LocationGeo != nil && (s.conv.Memory.Empty() || intent.MentionsSelfReference(text)) {
			e.rememberPosition(ctx, s.conv, *req.LocationGeo)
		}
		return e.runUtterance(ctx, s, text)
	})
}

// QuickReply handles a pressed button. Buttons that stand for words are turned into the
// same utterance a user could have typed.
func (e *Engine) QuickReply(ctx context.Context, req models.QuickReplyRequest) (*models.ChatResponse, error) {
	switch req.Reply.Kind {
	case models.QuickReplyLoadMore:
		return e.LoadMore(ctx, req.ConversationID)
	case models.QuickReplyStartOver:
		return e.Reset(ctx, req.ConversationID)
	}
	text, err := QuickReplyUtterance(req.Reply)
	if err != nil {
		return nil, err
	}
	return e.Process(ctx, models.ChatRequest{ConversationID: req.ConversationID, Text: text})
}

// QuickReplyUtterance maps a button to the utterance it stands for.
func QuickReplyUtterance(r models.QuickReply) (string, error) {
	switch r.Kind {
	case models.QuickReplyFindService:
		return "I need help finding a service", nil
	case models.QuickReplyService:
		svc := strings.TrimSpace(r.Value)
		if svc == "" {
			return "", fmt.Errorf("%w: %q needs a service value", ErrInvalidQuickReply, r.Kind)
		}
		return fmt.Sprintf("I need %s %s", article(svc), svc), nil
	case models.QuickReplyUseMyLocation:
		return intent.SelfNearMe, nil
	default:
		return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidQuickReply, r.Kind)
	}
}

func article(noun string) string {
	if strings.ContainsRune("aeiouAEIOU", rune(noun[0])) {
		return "an"
	}
	return "a"
}

// ShareLocation handles a device position (or the device's refusal to give one). Failures
// degrade to asking the user to type a location; they never end the dialogue.
func (e *Engine) ShareLocation(ctx context.Context, req models.LocationShareRequest) (*models.ChatResponse, error) {
	return e.withConversation(ctx, req.ConversationID, func(s *turnScope) (turnResult, error) {
		switch {
		case req.Error == LocationErrorPermissionDenied:
			return turnResult{reply: replyLocationDenied}, nil
		case req.Error != "" || req.LocationGeo == nil:
			return turnResult{reply: replyLocationUnavailable, quickReplies: locationQuickReplies}, nil
		}

		if !e.rememberPosition(ctx, s.conv, *req.LocationGeo) {
			return turnResult{reply: replyGeocodeFailed}, nil
		}

		if s.conv.PendingService == "" && e.resolver.FindService(s.turns) == "" {
			s.conv.State = models.StateAwaitingService
			return turnResult{
				reply:        fmt.Sprintf(replyLocationNoServiceFm, s.conv.Memory.Format()),
				quickReplies: serviceQuickReplies,
			}, nil
		}
		// The shared position answers the outstanding location question.
		s.conv.State = models.StateAwaitingLocation
		return e.runUtterance(ctx, s, intent.SelfNearMe)
	})
}

// LoadMore asks the backend for further results for the current search.
func (e *Engine) LoadMore(ctx context.Context, conversationID string) (*models.ChatResponse, error) {
	return e.withConversation(ctx, conversationID, func(s *turnScope) (turnResult, error) {
		if err := e.appendTurn(ctx, s, models.SpeakerUser, loadMoreUtterance, nil); err != nil {
			return turnResult{}, err
		}
		return e.loadMore(ctx, s), nil
	})
}

// Reset forgets the dialogue context. The transcript is kept.
func (e *Engine) Reset(ctx context.Context, conversationID string) (*models.ChatResponse, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	token, err := e.acquire(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer e.release(ctx, conversationID, token)

	if err := e.store.Clear(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("clear conversation: %w", err)
	}
	conv := NewConversation(conversationID)
	s := &turnScope{conv: conv}
	if err := e.appendTurn(ctx, s, models.SpeakerAssistant, replyStartOver, nil); err != nil {
		return nil, err
	}
	return &models.ChatResponse{
		ConversationID: conversationID,
		ReplyText:      replyStartOver,
		State:          conv.State,
		QuickReplies:   serviceQuickReplies,
	}, nil
}

// Transcript returns the turns recorded for a conversation.
func (e *Engine) Transcript(ctx context.Context, conversationID string) ([]models.Turn, error) {
	turns, err := e.turns.List(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

// withConversation serialises work on one conversation: it takes the busy flag, loads the
// context and transcript, runs fn, records the assistant reply and saves the context.
func (e *Engine) withConversation(ctx context.Context, id string, fn func(*turnScope) (turnResult, error)) (*models.ChatResponse, error) {
	if id == "" {
		id = uuid.New().String()
	}
	token, err := e.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer e.release(ctx, id, token)

	conv, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	turns, err := e.turns.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	phases := StartPhases(id, e.observer, e.delays)
	defer phases.Finish()

	s := &turnScope{conv: conv, turns: turns}
	out, err := fn(s)
	if err != nil {
		return nil, err
	}

	if err := e.appendTurn(ctx, s, models.SpeakerAssistant, out.reply, out.providers); err != nil {
		return nil, err
	}
	conv.UpdatedAt = e.now()
	if err := e.store.Set(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	return &models.ChatResponse{
		ConversationID: id,
		ReplyText:      out.reply,
		State:          conv.State,
		Providers:      out.providers,
		QuickReplies:   out.quickReplies,
	}, nil
}

func (e *Engine) acquire(ctx context.Context, id string) (string, error) {
	token, ok, err := e.store.Acquire(ctx, id)
	if err != nil {
		return "", fmt.Errorf("acquire conversation: %w", err)
	}
	if !ok {
		e.metrics.busyRejections.Inc()
		e.logger.Info("Ignoring input for busy conversation", zap.String("conversation", id))
		return "", ErrBusy
	}
	return token, nil
}

func (e *Engine) release(ctx context.Context, id, token string) {
	if err := e.store.Release(context.WithoutCancel(ctx), id, token); err != nil {
		e.logger.Error("Failed to release conversation", zap.String("conversation", id), zap.Error(err))
	}
}

func (e *Engine) appendTurn(ctx context.Context, s *turnScope, speaker models.Speaker, text string, providers []models.ProviderRecord) error {
	turn := models.Turn{
		ID:        uuid.New().String(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: e.now(),
		Providers: providers,
	}
	if err := e.turns.Append(ctx, s.conv.ID, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	s.turns = append(s.turns, turn)
	return nil
}

// runUtterance records the user turn, classifies it against the prior history and acts on
// the state machine's decision.
func (e *Engine) runUtterance(ctx context.Context, s *turnScope, text string) (turnResult, error) {
	prior := s.turns
	if err := e.appendTurn(ctx, s, models.SpeakerUser, text, nil); err != nil {
		return turnResult{}, err
	}

	if s.conv.State == models.StateComplete && intent.IsLoadMore(text) {
		return e.loadMore(ctx, s), nil
	}

	c := e.resolver.Validate(text, prior, s.conv.State, &s.conv.Memory)
	if c.Kind == intent.OffTopic {
		c = e.recoverLocationResponse(s.conv, c)
	}
	e.metrics.classifications.WithLabelValues(c.Kind.String()).Inc()
	e.logger.Debug("Classified utterance",
		zap.String("conversation", s.conv.ID),
		zap.String("state", string(s.conv.State)),
		zap.String("kind", c.Kind.String()),
		zap.String("service", c.Intent.Service),
		zap.String("location", c.Intent.Location),
	)

	d := Transition(s.conv, c)
	if d.Query == nil {
		return fromDecision(d), nil
	}

	providers, outcome := e.dispatch(ctx, *d.Query, nil)
	settled := Settle(s.conv, *d.Query, outcome, len(providers))
	if outcome == OutcomeResults {
		s.conv.ShownProviders = providerNames(providers)
	}
	res := fromDecision(settled)
	res.providers = providers
	return res, nil
}

// recoverLocationResponse handles a bare location reply whose service the history scanner
// cannot recover (e.g. "hire a gardener") by combining it with the remembered service.
func (e *Engine) recoverLocationResponse(conv *Conversation, c intent.Classification) intent.Classification {
	if conv.State != models.StateAwaitingLocation || conv.PendingService == "" || !intent.LooksLikeBareLocation(c.Utterance) {
		return c
	}
	combined := intent.CombineLocationResponse(conv.PendingService, c.Utterance)
	return intent.Classification{
		Kind:      intent.LocationResponse,
		Utterance: c.Utterance,
		Query:     combined,
		Intent:    e.resolver.Extract(combined, &conv.Memory),
	}
}

// loadMore re-derives the search from the transcript and asks for results not shown yet.
func (e *Engine) loadMore(ctx context.Context, s *turnScope) turnResult {
	pi := e.resolver.Rederive(s.turns)
	if intent.IsSelfReference(pi.Location) {
		pi.Location = s.conv.Memory.Format()
	}
	if last := s.conv.LastQuery; last != nil {
		if pi.Service == "" {
			pi.Service = last.Service
		}
		if pi.Location == "" {
			pi.Location = last.Location
		}
	}

	q := intent.Synthesize(pi, "")
	switch {
	case q.Structured():
	case s.conv.LastQuery != nil:
		q = *s.conv.LastQuery
	case pi.Service != "":
		q.Text = fmt.Sprintf("I need %s %s", article(pi.Service), pi.Service)
	}
	if q.String() == "" {
		s.conv.State = models.StateAwaitingService
		return turnResult{reply: replyAskService, quickReplies: serviceQuickReplies}
	}

	providers, outcome := e.dispatch(ctx, q, s.conv.ShownProviders)
	switch {
	case outcome == OutcomeResults:
		s.conv.State = models.StateComplete
		s.conv.LastQuery = &q
		s.conv.ShownProviders = append(s.conv.ShownProviders, providerNames(providers)...)
		return turnResult{
			reply:        moreReply(len(providers)),
			quickReplies: resultQuickReplies,
			providers:    providers,
		}
	case outcome == OutcomeNoResults && len(s.conv.ShownProviders) > 0:
		s.conv.State = models.StateComplete
		return turnResult{reply: replyNoMoreResults, quickReplies: retryQuickReplies}
	default:
		return fromDecision(Settle(s.conv, q, outcome, 0))
	}
}

// dispatch sends the query down the structured path when both slots are resolved and the
// free-text path otherwise. Providers already shown are filtered out.
func (e *Engine) dispatch(ctx context.Context, q models.CanonicalQuery, existing []string) ([]models.ProviderRecord, Outcome) {
	var (
		providers []models.ProviderRecord
		outcome   Outcome
	)
	if e.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.searchTimeout)
		defer cancel()
	}
	if q.Structured() {
		e.metrics.dispatches.WithLabelValues("structured").Inc()
		resp, err := e.searcher.SearchStructured(ctx, search.StructuredRequest{
			Service:  q.Service,
			Location: q.Location,
			Count:    e.resultCount,
			Existing: existing,
		})
		if err != nil {
			e.logger.Error("Structured search failed", zap.String("service", q.Service), zap.String("location", q.Location), zap.Error(err))
			outcome = OutcomeBackendError
		} else {
			providers = withoutShown(resp.Providers, existing)
		}
	} else {
		e.metrics.dispatches.WithLabelValues("free_text").Inc()
		resp, err := e.searcher.SearchFreeText(ctx, search.FreeTextRequest{Query: q.String()})
		switch {
		case err != nil:
			e.logger.Error("Free-text search failed", zap.String("query", q.String()), zap.Error(err))
			outcome = OutcomeBackendError
		case !resp.Valid:
			outcome = OutcomeRejected
		default:
			providers = withoutShown(resp.Providers, existing)
		}
	}

	if outcome == OutcomeResults && len(providers) == 0 {
		outcome = OutcomeNoResults
	}
	e.metrics.outcomes.WithLabelValues(outcome.String()).Inc()
	return providers, outcome
}

// rememberPosition reverse-geocodes coordinates into location memory. It reports whether
// memory was updated; failures are logged and otherwise ignored.
func (e *Engine) rememberPosition(ctx context.Context, conv *Conversation, p models.GeoPoint) bool {
	if e.geocoder == nil {
		return false
	}
	loc, err := e.geocoder.Reverse(ctx, p.Latitude, p.Longitude)
	if err != nil || loc == nil {
		e.logger.Warn("Reverse geocoding failed; continuing without location",
			zap.String("conversation", conv.ID), zap.Error(err))
		return false
	}
	conv.Memory.Set(*loc)
	return true
}

func withoutShown(providers []models.ProviderRecord, shown []string) []models.ProviderRecord {
	if len(shown) == 0 {
		return providers
	}
	seen := make(map[string]bool, len(shown))
	for _, name := range shown {
		seen[strings.ToLower(name)] = true
	}
	out := make([]models.ProviderRecord, 0, len(providers))
	for _, p := range providers {
		if !seen[strings.ToLower(p.Name)] {
			out = append(out, p)
		}
	}
	return out
}

func moreReply(n int) string {
	if n == 1 {
		return "Here is 1 more."
	}
	return fmt.Sprintf("Here are %d more.", n)
}

func providerNames(providers []models.ProviderRecord) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	return names
}
