// internal/events/filter.go
package events

import (
	"strings"

	"github.com/rusenback/dockstream/internal/model"
)

// Filter is a pure predicate over event records. The zero value matches
// everything. Filtering happens at read time, so changing a filter never
// discards data already on the timeline.
type Filter struct {
	// Type, when set, requires an exact match on the record type
	// (container, image, network, volume, ...).
	Type string

	// Search, when set, is matched case-insensitively as a substring
	// against the actor name, actor id, image attribute, type and
	// action. A hit on any one field qualifies the record.
	Search string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Type == "" && f.Search == ""
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(r model.EventRecord) bool {
	if f.Type != "" && string(r.Type) != f.Type {
		return false
	}
	if f.Search == "" {
		return true
	}

	term := strings.ToLower(f.Search)
	for _, field := range []string{
		r.ActorName(),
		r.Actor.ID,
		r.Image(),
		string(r.Type),
		string(r.Action),
	} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
