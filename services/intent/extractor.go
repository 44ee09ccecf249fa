package intent

import (
	"strings"
)

// PendingIntent is the best-effort (service, location) pair extracted from one utterance.
type PendingIntent struct {
	Service  string `json:"service,omitempty"`
	Location string `json:"location,omitempty"`
}

// Resolver applies the pattern library to utterances and dialogue history.
type Resolver struct {
	lib *Library
}

// NewResolver creates a Resolver over the given library. A nil library uses the defaults.
func NewResolver(lib *Library) *Resolver {
	if lib == nil {
		lib = DefaultLibrary()
	}
	return &Resolver{lib: lib}
}

// Extract pulls a service and location out of a single utterance. A self-reference
// location, or no location at all, is replaced by the remembered location when memory
// holds one.
func (r *Resolver) Extract(utterance string, mem *LocationMemory) PendingIntent {
	pi := extractRaw(utterance)

	switch {
	case IsSelfReference(pi.Location) && !mem.Empty():
		pi.Location = mem.Format()
	case pi.Location == "" && !mem.Empty():
		pi.Location = mem.Format()
	}
	return pi
}

// extractRaw runs the service and location chains without consulting memory.
func extractRaw(utterance string) PendingIntent {
	text := strings.TrimSpace(utterance)
	var pi PendingIntent

	// Once the service+location pattern matches, the service-only pattern is not tried,
	// even when the service capture cleans down to nothing.
	if m := serviceWithLocationRE.FindStringSubmatch(text); m != nil {
		pi.Service = CleanService(m[1])
		pi.Location = normalizeLocation(m[3])
	} else if m := serviceOnlyRE.FindStringSubmatch(text); m != nil {
		pi.Service = CleanService(m[1])
	}
	if pi.Location == "" {
		pi.Location = extractLocation(text)
	}
	return pi
}

// extractLocation tries the location chain in order; the first match wins.
func extractLocation(text string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return normalizeLocation(m[1])
		}
	}
	if m := selfReferenceRE.FindStringSubmatch(text); m != nil {
		return selfSentinel(m[1])
	}
	return ""
}

// normalizeLocation trims a captured location and maps "me", "my area" and "here" to the
// self-reference sentinels.
func normalizeLocation(captured string) string {
	loc := strings.Trim(strings.TrimSpace(captured), ",")
	switch strings.ToLower(loc) {
	case "me", "here", "my location":
		return SelfNearMe
	case "my area":
		return SelfMyArea
	}
	return loc
}

func selfSentinel(phrase string) string {
	if strings.EqualFold(strings.Join(strings.Fields(phrase), " "), SelfMyArea) {
		return SelfMyArea
	}
	return SelfNearMe
}

// IsSelfReference reports whether a location phrase refers to the user's own position.
func IsSelfReference(location string) bool {
	switch strings.ToLower(strings.Join(strings.Fields(location), " ")) {
	case SelfNearMe, SelfMyArea, "close to me", "around me", "here", "me":
		return true
	}
	return false
}

// CleanService strips stand-alone noise words and collapses whitespace. It is idempotent.
func CleanService(service string) string {
	cleaned := noiseWordRE.ReplaceAllString(service, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// HasNeedVerb reports whether the utterance contains a recognised need-verb.
func HasNeedVerb(utterance string) bool {
	return needVerbRE.MatchString(utterance)
}

// MentionsSelfReference reports whether the utterance refers to the user's own position.
func MentionsSelfReference(utterance string) bool {
	return selfReferenceRE.MatchString(utterance)
}
