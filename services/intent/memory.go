package intent

import (
	"strings"

	"servicefinder/models"
)

// LocationMemory holds the last resolved location for a conversation. It has exactly one
// slot and Set always overwrites it.
type LocationMemory struct {
	Location *models.StructuredLocation `json:"location,omitempty"`
}

// Get returns the remembered location, if any.
func (m *LocationMemory) Get() (models.StructuredLocation, bool) {
	if m == nil || m.Location == nil {
		return models.StructuredLocation{}, false
	}
	return *m.Location, true
}

// Set replaces the remembered location.
func (m *LocationMemory) Set(loc models.StructuredLocation) {
	if loc.Country == "" {
		loc.Country = models.UnknownCountry
	}
	m.Location = &loc
}

// Clear forgets the remembered location.
func (m *LocationMemory) Clear() {
	m.Location = nil
}

// Empty reports whether nothing is remembered.
func (m *LocationMemory) Empty() bool {
	_, ok := m.Get()
	return !ok
}

// Format joins area, city (when it differs from area), state and country (when known).
// It returns "" when nothing is remembered.
func (m *LocationMemory) Format() string {
	loc, ok := m.Get()
	if !ok {
		return ""
	}
	return FormatLocation(loc)
}

// FormatLocation renders a structured location as a comma-separated display string.
func FormatLocation(loc models.StructuredLocation) string {
	parts := make([]string, 0, 4)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	add(loc.Area)
	if !strings.EqualFold(strings.TrimSpace(loc.City), strings.TrimSpace(loc.Area)) {
		add(loc.City)
	}
	add(loc.State)
	if !strings.EqualFold(strings.TrimSpace(loc.Country), models.UnknownCountry) {
		add(loc.Country)
	}
	return strings.Join(parts, ", ")
}
