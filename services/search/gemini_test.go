package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

func TestGeminiSearcherStructured(t *testing.T) {
	gen := &fakeGenerator{out: "```json\n{\"providers\":[{\"name\":\"Sparky\",\"phone\":\"555-0199\",\"confidence\":0.7}]}\n```"}
	s := NewGeminiSearcher(gen, 5)

	resp, err := s.SearchStructured(context.Background(), StructuredRequest{
		Service: "electrician", Location: "SoHo, New York", Count: 3, Existing: []string{"Bright Sparks"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Providers, 1)
	assert.Equal(t, "Sparky", resp.Providers[0].Name)
	assert.InDelta(t, 0.7, resp.Providers[0].Confidence, 1e-9)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "List up to 3 real electrician providers serving SoHo, New York.")
	assert.Contains(t, gen.prompts[0], "Do not include any of: Bright Sparks.")
}

func TestGeminiSearcherFreeText(t *testing.T) {
	gen := &fakeGenerator{out: `{"valid":false}`}
	s := NewGeminiSearcher(gen, 0)

	resp, err := s.SearchFreeText(context.Background(), FreeTextRequest{Query: "tell me a joke"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Contains(t, gen.prompts[0], `Request: "tell me a joke"`)
	assert.Contains(t, gen.prompts[0], "list up to 5 matching providers")
}

func TestGeminiSearcherErrors(t *testing.T) {
	s := NewGeminiSearcher(&fakeGenerator{err: errors.New("quota")}, 5)
	_, err := s.SearchStructured(context.Background(), StructuredRequest{Service: "plumber", Location: "Chicago"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	s = NewGeminiSearcher(&fakeGenerator{out: "sorry, I can't help"}, 5)
	_, err = s.SearchFreeText(context.Background(), FreeTextRequest{Query: "I need a plumber"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
}
