// internal/model/host.go
package model

import "fmt"

// Host is one configured Docker host.
type Host struct {
	ID       string
	Name     string
	Endpoint string // ws(s):// for the console gateway, unix:///tcp:// for a daemon
}

// HostDirectory resolves configured hosts. StreamSession and
// EventAggregator take one as an explicit dependency; nothing reads
// ambient global state.
type HostDirectory interface {
	// Hosts lists every configured host.
	Hosts() ([]Host, error)
	// Endpoint resolves a host id to its endpoint URL.
	Endpoint(hostID string) (string, error)
}

// StaticDirectory is an in-memory HostDirectory, handy for tests and for
// configs that list hosts inline.
type StaticDirectory []Host

func (d StaticDirectory) Hosts() ([]Host, error) {
	out := make([]Host, len(d))
	copy(out, d)
	return out, nil
}

func (d StaticDirectory) Endpoint(hostID string) (string, error) {
	for _, h := range d {
		if h.ID == hostID {
			return h.Endpoint, nil
		}
	}
	return "", fmt.Errorf("unknown host %q", hostID)
}
