package intent

import (
	"testing"

	"servicefinder/models"

	"github.com/stretchr/testify/assert"
)

func cliftonMemory() *LocationMemory {
	m := &LocationMemory{}
	m.Set(models.StructuredLocation{Area: "Clifton", City: "Karachi", Country: "Pakistan"})
	return m
}

func TestExtract(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name      string
		utterance string
		want      PendingIntent
	}{
		{"service and city", "I need a plumber in Chicago", PendingIntent{"plumber", "Chicago"}},
		{"noise words and punctuation", "I need a good reliable electrician in New York.", PendingIntent{"electrician", "New York"}},
		{"looking for near", "Looking for a local mechanic near Clifton", PendingIntent{"mechanic", "Clifton"}},
		{"hire at", "hire a painter at Gulberg, Lahore", PendingIntent{"painter", "Gulberg, Lahore"}},
		{"service only", "I want a carpenter", PendingIntent{Service: "carpenter"}},
		{"near me sentinel", "Find an electrician near me", PendingIntent{"electrician", SelfNearMe}},
		{"my area sentinel", "I need a plumber in my area", PendingIntent{"plumber", SelfMyArea}},
		{"here without service", "plumber around here", PendingIntent{Location: SelfNearMe}},
		{"noise-only service keeps its location", "I need a professional in Lahore", PendingIntent{Location: "Lahore"}},
		{"nothing", "what time is it", PendingIntent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Extract(tt.utterance, &LocationMemory{}))
		})
	}
}

func TestExtractServiceAndLocationProperty(t *testing.T) {
	r := NewResolver(nil)
	for _, svc := range []string{"plumber", "electrician", "house cleaner", "ac technician"} {
		for _, loc := range []string{"Chicago", "Clifton, Karachi", "San Francisco", "Gulshan"} {
			got := r.Extract("I need a "+svc+" in "+loc, &LocationMemory{})
			assert.Equal(t, PendingIntent{Service: svc, Location: loc}, got)
		}
	}
	got := r.Extract("I need a best local plumber in Lahore", &LocationMemory{})
	assert.Equal(t, PendingIntent{Service: "plumber", Location: "Lahore"}, got)
}

func TestExtractUsesMemory(t *testing.T) {
	r := NewResolver(nil)
	mem := cliftonMemory()

	assert.Equal(t, "Clifton, Karachi, Pakistan", r.Extract("I need a plumber near me", mem).Location)
	assert.Equal(t, "Clifton, Karachi, Pakistan", r.Extract("I need a plumber", mem).Location)
	assert.Equal(t, "Chicago", r.Extract("I need a plumber in Chicago", mem).Location)
}

func TestCleanServiceIsIdempotent(t *testing.T) {
	inputs := []string{
		"best  local   plumber",
		"professional good",
		"Localized cleaning",
		"  Reliable AC repair ",
		"",
	}
	for _, in := range inputs {
		once := CleanService(in)
		assert.Equal(t, once, CleanService(once), in)
	}
	assert.Equal(t, "plumber", CleanService("best  local   plumber"))
	assert.Equal(t, "Localized cleaning", CleanService("Localized cleaning"))
	assert.Equal(t, "", CleanService("professional good"))
}

func TestIsSelfReference(t *testing.T) {
	for _, loc := range []string{"near me", "Near  Me", "my area", "here", "around me"} {
		assert.True(t, IsSelfReference(loc), loc)
	}
	for _, loc := range []string{"", "Chicago", "near Chicago"} {
		assert.False(t, IsSelfReference(loc), loc)
	}
}

func TestNeedVerbsAndSelfMentions(t *testing.T) {
	assert.True(t, HasNeedVerb("can you get me a cleaner"))
	assert.True(t, HasNeedVerb("I'm LOOKING FOR a locksmith"))
	assert.False(t, HasNeedVerb("hello there"))

	assert.True(t, MentionsSelfReference("anyone close to me?"))
	assert.False(t, MentionsSelfReference("I need a plumber in Chicago"))
}
