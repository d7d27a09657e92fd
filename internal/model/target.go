// internal/model/target.go
package model

import "errors"

// EventsResource is the ResourceID used when subscribing to a host's
// daemon event feed instead of a container's log stream.
const EventsResource = "events"

// HostScopeAll is the sentinel host id meaning "every configured host".
const HostScopeAll = "all"

// ErrTargetInvalid is returned when a subscription target is missing a
// host id, resource id, or credential. No transport attempt is made.
var ErrTargetInvalid = errors.New("invalid subscription target")

// StreamOptions are the query options for a log subscription.
type StreamOptions struct {
	Tail       int // number of historical lines to request
	Follow     bool
	Timestamps bool
}

// DefaultStreamOptions matches the defaults the upstream API assumes.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		Tail:   100,
		Follow: true,
	}
}

// Target identifies one subscription: a resource on a host plus its
// stream options. Identity is (HostID, ResourceID); changing any field
// requires tearing down and re-establishing the connection.
type Target struct {
	HostID     string
	ResourceID string
	Options    StreamOptions
}

// Validate checks that the target names a host and a resource.
func (t Target) Validate() error {
	if t.HostID == "" || t.ResourceID == "" {
		return ErrTargetInvalid
	}
	if t.Options.Tail < 0 {
		return ErrTargetInvalid
	}
	return nil
}
