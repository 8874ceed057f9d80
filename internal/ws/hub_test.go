package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_BroadcastScopedToUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	alice := NewClient(hub, nil, "user-alice")
	bob := NewClient(hub, nil, "user-bob")
	hub.Register(alice)
	hub.Register(bob)

	hub.Broadcast("user-alice", []byte("hello"))

	select {
	case msg := <-alice.Send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected alice to receive the broadcast")
	}

	select {
	case msg := <-bob.Send:
		t.Fatalf("bob should not receive alice's broadcast, got %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishWrapsEventEnvelope(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	client := NewClient(hub, nil, "user-1")
	hub.Register(client)

	hub.Publish("user-1", MessageTaskCompleted, map[string]any{"task_id": "t-1"})

	select {
	case msg := <-client.Send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, MessageTaskCompleted, event.Type)
		assert.JSONEq(t, `{"task_id":"t-1"}`, string(event.Payload))
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected published event")
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	client := NewClient(hub, nil, "user-1")
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("expected send channel to close")
	}
}
