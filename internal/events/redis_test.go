package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/gamebot-go/internal/actions"
)

type fakePublisher struct {
	channel  string
	messages [][]byte
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}
	p.channel = channel
	p.messages = append(p.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedisForwarderPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	fwd := NewRedisForwarder(pub, "gamebot.events", nil)

	ev := NewJobTransitionEvent("bot", actions.Event{
		Seq:        2,
		Kind:       actions.EventFail,
		InstanceID: "job-1",
		ActionName: "KillMob",
		State:      actions.StateFailed,
		Message:    "mob with id 3 not found",
		Timestamp:  time.Now(),
	})
	require.NoError(t, fwd.Forward(context.Background(), ev))

	assert.Equal(t, "gamebot.events", pub.channel)
	require.Len(t, pub.messages, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.messages[0], &decoded))
	assert.Equal(t, "job.failed", decoded["type"])
	data := decoded["data"].(map[string]any)
	assert.Equal(t, "job-1", data["job_id"])
	assert.Equal(t, "mob with id 3 not found", data["message"])
}

func TestRedisForwarderReportsErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	bus := NewEventBus(4)

	var reported []error
	fwd := NewRedisForwarder(pub, "events", func(err error) { reported = append(reported, err) })
	fwd.Attach(bus)

	bus.Publish(Event{Type: EventTypeJobCreated})
	bus.Stop()

	require.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "connection refused")
}
