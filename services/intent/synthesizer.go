package intent

import (
	"strings"

	"servicefinder/models"
)

// Rederive reconstructs (service, location) from the dialogue history for a follow-up
// search. It reads the last user turn with the extraction patterns, walks back through
// earlier user turns for a missing service (patterns only, no gazetteer) and accepts a bare
// location reply as the location. Requests for more results are skipped and location
// memory is never consulted.
func (r *Resolver) Rederive(turns []models.Turn) PendingIntent {
	last := lastUserIndex(turns)
	for last >= 0 && (turns[last].Speaker != models.SpeakerUser || IsLoadMore(turns[last].Text)) {
		last--
	}
	if last < 0 {
		return PendingIntent{}
	}
	text := strings.TrimSpace(turns[last].Text)
	pi := extractRaw(text)

	for i := last - 1; i >= 0 && pi.Service == ""; i-- {
		if turns[i].Speaker != models.SpeakerUser {
			continue
		}
		pi.Service = extractRaw(turns[i].Text).Service
	}

	if pi.Location == "" {
		if m := barePrepositionRE.FindStringSubmatch(text); m != nil {
			pi.Location = strings.TrimSpace(m[2])
		} else if LooksLikeBareLocation(text) {
			pi.Location = strings.Trim(text, " ,")
		}
	}
	if IsSelfReference(pi.Location) {
		pi.Location = selfSentinel(pi.Location)
	}
	return pi
}

// Synthesize builds the canonical query for an intent, falling back to the free text when
// either slot is missing.
func Synthesize(pi PendingIntent, fallback string) models.CanonicalQuery {
	q := models.CanonicalQuery{Text: strings.TrimSpace(fallback)}
	if pi.Service != "" && pi.Location != "" {
		q.Service = pi.Service
		q.Location = pi.Location
	}
	if q.Text == "" {
		q.Text = q.String()
	}
	return q
}
