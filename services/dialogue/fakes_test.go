package dialogue

import (
	"context"
	"sync"

	"servicefinder/models"
	"servicefinder/services/search"
)

type fakeSearcher struct {
	mu sync.Mutex

	structured    [][]models.ProviderRecord // responses, consumed in order; the last one repeats
	structuredErr error
	freeText      *search.FreeTextResponse
	freeTextErr   error

	structuredCalls []search.StructuredRequest
	freeTextCalls   []search.FreeTextRequest
}

func (f *fakeSearcher) SearchStructured(_ context.Context, req search.StructuredRequest) (*search.StructuredResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.Existing = append([]string(nil), req.Existing...)
	f.structuredCalls = append(f.structuredCalls, req)
	if f.structuredErr != nil {
		return nil, f.structuredErr
	}
	var providers []models.ProviderRecord
	if n := len(f.structured); n > 0 {
		i := len(f.structuredCalls) - 1
		if i >= n {
			i = n - 1
		}
		providers = f.structured[i]
	}
	return &search.StructuredResponse{Providers: providers}, nil
}

func (f *fakeSearcher) SearchFreeText(_ context.Context, req search.FreeTextRequest) (*search.FreeTextResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freeTextCalls = append(f.freeTextCalls, req)
	if f.freeTextErr != nil {
		return nil, f.freeTextErr
	}
	if f.freeText == nil {
		return &search.FreeTextResponse{Valid: true}, nil
	}
	return f.freeText, nil
}

func (f *fakeSearcher) lastStructured() search.StructuredRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.structuredCalls[len(f.structuredCalls)-1]
}

type fakeGeocoder struct {
	loc   *models.StructuredLocation
	err   error
	calls int
}

func (g *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (*models.StructuredLocation, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.loc, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	phases []Phase
}

func (o *recordingObserver) OnPhase(_ string, p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, p)
}

func (o *recordingObserver) seen() []Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Phase(nil), o.phases...)
}

func providers(names ...string) []models.ProviderRecord {
	out := make([]models.ProviderRecord, 0, len(names))
	for _, n := range names {
		out = append(out, models.ProviderRecord{Name: n, Phone: "555-0100", Address: "1 Main St"})
	}
	return out
}
