package models

import (
	"fmt"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// DialogueState is the conversation phase driving which prompts and transitions are valid.
type DialogueState string

const (
	StateInitial          DialogueState = "initial"
	StateAwaitingService  DialogueState = "awaiting_service"
	StateAwaitingLocation DialogueState = "awaiting_location"
	StateComplete         DialogueState = "complete"
)

// UnknownCountry is used when the geocoder cannot determine a country.
const UnknownCountry = "unknown"

// Turn is a single entry in the conversation log. Speaker and Text never change after creation.
type Turn struct {
	ID        string           `bson:"id" json:"id"`
	Speaker   Speaker          `bson:"speaker" json:"speaker"`
	Text      string           `bson:"text" json:"text"`
	Timestamp time.Time        `bson:"timestamp" json:"timestamp"`
	Providers []ProviderRecord `bson:"providers,omitempty" json:"providers,omitempty"` // results attached to an assistant turn
}

// StructuredLocation is a reverse-geocoded location made of display strings.
type StructuredLocation struct {
	Area        string `bson:"area" json:"area"`
	City        string `bson:"city" json:"city"`
	State       string `bson:"state,omitempty" json:"state,omitempty"`
	Country     string `bson:"country" json:"country"`
	FullAddress string `bson:"fullAddress" json:"fullAddress"`
}

// ProviderRecord is a single provider returned by the search backend.
type ProviderRecord struct {
	Name         string  `bson:"name" json:"name"`
	Phone        string  `bson:"phone" json:"phone"`
	Address      string  `bson:"address" json:"address"`
	Details      string  `bson:"details" json:"details"`
	LocationNote string  `bson:"location_note,omitempty" json:"location_note,omitempty"`
	Confidence   float64 `bson:"confidence,omitempty" json:"confidence,omitempty"`
}

// CanonicalQuery is the only value ever handed to the search backend.
// Service and Location are set when both were resolved; Text is the free-text fallback.
type CanonicalQuery struct {
	Service  string `json:"service,omitempty"`
	Location string `json:"location,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Structured reports whether the query can go through the structured search path.
func (q CanonicalQuery) Structured() bool {
	return q.Service != "" && q.Location != ""
}

// String renders the canonical query string.
func (q CanonicalQuery) String() string {
	if q.Structured() {
		return fmt.Sprintf("I need a %s in %s", q.Service, q.Location)
	}
	return q.Text
}

// GeoPoint carries raw device coordinates sent by a client.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
