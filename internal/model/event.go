// internal/model/event.go
package model

import "github.com/docker/docker/api/types/events"

// shortIDLen on montako merkkiä actor ID:stä näytetään nimen puuttuessa
const shortIDLen = 12

// EventRecord is one daemon event on the aggregated timeline. It embeds
// the Docker API event envelope, so the wire shape
// {Type, Action, Actor: {ID, Attributes}, time} decodes directly, plus
// the id of the host the event was observed on. Immutable once appended.
type EventRecord struct {
	events.Message
	HostID string `json:"host_id,omitempty"`
}

// ActorName returns the event actor's display name, falling back to a
// shortened actor id when the name attribute is absent.
func (r EventRecord) ActorName() string {
	if name := r.Actor.Attributes["name"]; name != "" {
		return name
	}
	id := r.Actor.ID
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return id
}

// Image returns the image attribute, if the event carries one.
func (r EventRecord) Image() string {
	return r.Actor.Attributes["image"]
}
