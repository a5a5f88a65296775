// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	batches   [][]models.RoomAction
	abandoned []string
	err       error
}

func (m *memoryStore) SaveBatch(ctx context.Context, records []models.RoomAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *memoryStore) MarkAbandoned(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, roomID)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

// queuePopper serves queued payloads, then blocks until ctx ends.
type queuePopper struct {
	mu       sync.Mutex
	payloads []string
}

func (q *queuePopper) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	q.mu.Lock()
	if len(q.payloads) > 0 {
		p := q.payloads[0]
		q.payloads = q.payloads[1:]
		q.mu.Unlock()
		cmd.SetVal([]string{keys[0], p})
		return cmd
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		cmd.SetErr(ctx.Err())
	case <-time.After(timeout):
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func encode(t *testing.T, rec models.RoomAction) string {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(data)
}

func newTestService(store Store, rdb Popper, batch int) *Service {
	logger, _ := test.NewNullLogger()
	return NewService(rdb, store, Options{BatchSize: batch, FlushDelay: time.Hour, Inactivity: time.Minute}, logger)
}

func TestHandlePayloadFlushesFullBatch(t *testing.T) {
	store := &memoryStore{}
	s := newTestService(store, nil, 2)
	ctx := context.Background()

	s.HandlePayload(ctx, encode(t, models.RoomAction{RoomID: "r1", RoomCode: "ABCD", ActionIndex: 1, ActionType: "room_created"}))
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 0, store.count())

	s.HandlePayload(ctx, encode(t, models.RoomAction{RoomID: "r1", RoomCode: "ABCD", ActionIndex: 2, ActionType: "player_join"}))
	assert.Equal(t, 0, s.Pending())
	require.Len(t, store.batches, 1)
	assert.Equal(t, 2, store.batches[0][1].ActionIndex)
}

func TestHandlePayloadRejectsGarbage(t *testing.T) {
	store := &memoryStore{}
	s := newTestService(store, nil, 1)
	s.HandlePayload(context.Background(), "{nope")
	s.HandlePayload(context.Background(), encode(t, models.RoomAction{RoomCode: "ABCD"}))
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, store.count())
}

func TestFlushFailureDropsBatch(t *testing.T) {
	store := &memoryStore{err: errors.New("db down")}
	s := newTestService(store, nil, 10)
	s.HandlePayload(context.Background(), encode(t, models.RoomAction{RoomID: "r1", ActionType: "number_drawn"}))
	s.Flush(context.Background())
	assert.Equal(t, 0, s.Pending())
}

func TestSweepInactive(t *testing.T) {
	store := &memoryStore{}
	s := newTestService(store, nil, 10)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	ctx := context.Background()
	s.HandlePayload(ctx, encode(t, models.RoomAction{RoomID: "quiet", ActionType: "room_created"}))
	s.HandlePayload(ctx, encode(t, models.RoomAction{RoomID: "closed", ActionType: "room_created"}))
	s.HandlePayload(ctx, encode(t, models.RoomAction{RoomID: "closed", ActionType: "room_closed"}))

	s.now = func() time.Time { return base.Add(30 * time.Second) }
	s.SweepInactive(ctx)
	assert.Empty(t, store.abandoned)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	s.SweepInactive(ctx)
	assert.Equal(t, []string{"quiet"}, store.abandoned)

	s.SweepInactive(ctx)
	assert.Len(t, store.abandoned, 1, "each room is marked once")
}

func TestRunDrainsQueueAndFlushesOnShutdown(t *testing.T) {
	store := &memoryStore{}
	q := &queuePopper{}
	for i := 1; i <= 3; i++ {
		q.payloads = append(q.payloads, encode(t, models.RoomAction{RoomID: "r1", ActionIndex: i, ActionType: "number_drawn"}))
	}
	s := newTestService(store, q, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Pending() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Equal(t, 3, store.count(), "remaining batch flushed on shutdown")
}
