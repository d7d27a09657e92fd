package model

import (
	"encoding/json"
	"testing"

	"github.com/docker/docker/api/types/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetValidate(t *testing.T) {
	valid := Target{HostID: "prod-1", ResourceID: "abc", Options: DefaultStreamOptions()}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, Target{ResourceID: "abc"}.Validate(), ErrTargetInvalid)
	assert.ErrorIs(t, Target{HostID: "prod-1"}.Validate(), ErrTargetInvalid)
	assert.ErrorIs(t, Target{HostID: "prod-1", ResourceID: "abc", Options: StreamOptions{Tail: -1}}.Validate(), ErrTargetInvalid)
}

func TestEventRecordActorName(t *testing.T) {
	named := EventRecord{Message: events.Message{Actor: events.Actor{
		ID:         "0123456789abcdef0123",
		Attributes: map[string]string{"name": "web"},
	}}}
	assert.Equal(t, "web", named.ActorName())

	unnamed := EventRecord{Message: events.Message{Actor: events.Actor{
		ID: "0123456789abcdef0123",
	}}}
	assert.Equal(t, "0123456789ab", unnamed.ActorName())

	short := EventRecord{Message: events.Message{Actor: events.Actor{ID: "abc"}}}
	assert.Equal(t, "abc", short.ActorName())
}

func TestEventRecordDecodesWireEnvelope(t *testing.T) {
	var rec EventRecord
	err := json.Unmarshal([]byte(
		`{"Type":"container","Action":"start","Actor":{"ID":"abc","Attributes":{"image":"nginx:latest"}},"time":1756500000,"host_id":"prod-1"}`),
		&rec)
	require.NoError(t, err)

	assert.Equal(t, events.Type("container"), rec.Type)
	assert.Equal(t, events.Action("start"), rec.Action)
	assert.Equal(t, "nginx:latest", rec.Image())
	assert.Equal(t, int64(1756500000), rec.Time)
	assert.Equal(t, "prod-1", rec.HostID)
}

func TestStaticDirectory(t *testing.T) {
	dir := StaticDirectory{
		{ID: "a", Endpoint: "ws://a.example.com"},
		{ID: "b", Endpoint: "unix:///var/run/docker.sock"},
	}

	hosts, err := dir.Hosts()
	require.NoError(t, err)
	assert.Len(t, hosts, 2)

	endpoint, err := dir.Endpoint("b")
	require.NoError(t, err)
	assert.Equal(t, "unix:///var/run/docker.sock", endpoint)

	_, err = dir.Endpoint("missing")
	assert.Error(t, err)
}
