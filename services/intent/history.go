package intent

import (
	"strings"

	"servicefinder/models"
)

// FindService scans user turns from newest to oldest and returns the first service it can
// recover. Each turn is checked against the service gazetteer first and the need-verb
// pattern second; the closest turn wins. It returns "" when the history is exhausted.
func (r *Resolver) FindService(turns []models.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Speaker != models.SpeakerUser {
			continue
		}
		if svc := r.lib.ServiceNoun(t.Text); svc != "" {
			return svc
		}
		if m := historyServiceRE.FindStringSubmatch(t.Text); m != nil {
			if svc := CleanService(strings.ToLower(m[1])); svc != "" {
				return svc
			}
		}
	}
	return ""
}

// lastAssistantText returns the text of the most recent assistant turn.
func lastAssistantText(turns []models.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Speaker == models.SpeakerAssistant {
			return turns[i].Text
		}
	}
	return ""
}

// lastUserIndex returns the index of the most recent user turn, or -1.
func lastUserIndex(turns []models.Turn) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Speaker == models.SpeakerUser {
			return i
		}
	}
	return -1
}
