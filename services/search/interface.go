package search

import (
	"context"
	"errors"

	"servicefinder/models"
)

// ErrBackendUnavailable is returned when the search backend cannot be reached or answers
// with a non-2xx status.
var ErrBackendUnavailable = errors.New("search backend unavailable")

// StructuredRequest asks for providers of a resolved service at a resolved location.
// Existing carries names already shown so the backend can skip them.
type StructuredRequest struct {
	Service  string   `json:"service"`
	Location string   `json:"location"`
	Count    int      `json:"count"`
	Existing []string `json:"existing,omitempty"`
}

type StructuredResponse struct {
	Providers []models.ProviderRecord `json:"providers"`
}

// FreeTextRequest carries an unparsed query string.
type FreeTextRequest struct {
	Query string `json:"query"`
}

// FreeTextResponse reports Valid=false when the backend itself rejected the query as not
// service related.
type FreeTextResponse struct {
	Valid     bool                    `json:"valid"`
	Providers []models.ProviderRecord `json:"providers,omitempty"`
}

// Searcher is the search backend seen by the dialogue engine.
type Searcher interface {
	SearchStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error)
	SearchFreeText(ctx context.Context, req FreeTextRequest) (*FreeTextResponse, error)
}
