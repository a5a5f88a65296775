// internal/handlers/hub_test.go
package handlers

import (
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tombola/internal/room"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubClosesOnFirstDrop(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hub := NewHub(logger)

	closed := make(chan websocket.StatusCode, 2)
	conn := hub.Register("c1", 1, nil, func(code websocket.StatusCode, reason string) { closed <- code })

	hub.Notify("c1", room.Event{Type: room.EventNumberDrawn, Number: 7})
	hub.Notify("c1", room.Event{Type: room.EventNumberDrawn, Number: 8})
	hub.Notify("nobody", room.Event{Type: room.EventNumberDrawn, Number: 9})

	select {
	case code := <-closed:
		assert.Equal(t, SlowConsumerError, code)
	case <-time.After(2 * time.Second):
		t.Fatal("slow consumer was not closed")
	}
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "numberDrawn")

	require.Len(t, conn.OutChan, 1)
	first := (<-conn.OutChan).(room.Event)
	assert.Equal(t, 7, first.Number)

	// once a message is lost nothing later may slip through out of order
	hub.Notify("c1", room.Event{Type: room.EventNumberDrawn, Number: 10})
	conn.WriteError("late")
	assert.Empty(t, conn.OutChan)
	select {
	case <-closed:
		t.Fatal("socket closed twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)

	cancelled := false
	hub.Register("a", 4, func() { cancelled = true }, nil)
	hub.Register("b", 4, nil, nil)
	assert.Equal(t, 2, hub.Len())

	hub.Unregister("b")
	_, ok := hub.Get("b")
	assert.False(t, ok)

	hub.CloseAll()
	assert.True(t, cancelled)
}
