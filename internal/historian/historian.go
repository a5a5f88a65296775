// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store is where flushed batches go.
type Store interface {
	SaveBatch(ctx context.Context, records []models.RoomAction) error
	MarkAbandoned(ctx context.Context, roomID string) error
}

// Popper is the Redis call the read loop needs; *redis.Client satisfies it.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // rooms silent this long are marked abandoned
}

// Service pops room actions from Redis, batches them, and persists them.
type Service struct {
	rdb    Popper
	store  Store
	opts   Options
	logger logrus.FieldLogger
	now    func() time.Time

	lastActivity sync.Map // room id -> time.Time

	batchMu sync.Mutex
	batch   []models.RoomAction
	flushMu sync.Mutex // serialises SaveBatch calls so batches land in order
}

func NewService(rdb Popper, store Store, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Queue == "" {
		opts.Queue = "tombola_actions"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	return &Service{
		rdb:    rdb,
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		batch:  make([]models.RoomAction, 0, opts.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is left.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Infof("historian started on queue %s", s.opts.Queue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.tickLoop(gctx, s.opts.FlushDelay, s.Flush) })
	g.Go(func() error { return s.tickLoop(gctx, time.Minute, s.SweepInactive) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.logger.Info("historian shutting down")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLoop uses BLPop with a short timeout so cancellation is noticed.
func (s *Service) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.rdb.BLPop(ctx, time.Second, s.opts.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Errorf("BLPop: %v", err)
			time.Sleep(time.Second)
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.HandlePayload(ctx, res[1])
	}
}

func (s *Service) tickLoop(ctx context.Context, every time.Duration, f func(context.Context)) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f(ctx)
		}
	}
}

// HandlePayload decodes one queued record and adds it to the batch.
func (s *Service) HandlePayload(ctx context.Context, payload string) {
	var record models.RoomAction
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		s.logger.Warnf("invalid action record: %v", err)
		return
	}
	if record.RoomID == "" {
		s.logger.Warnf("action record without room id dropped (room %s)", record.RoomCode)
		return
	}

	if record.ActionType == "room_closed" {
		s.lastActivity.Delete(record.RoomID)
	} else {
		s.lastActivity.Store(record.RoomID, s.now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the current batch in a single transaction. A failed batch is
// logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := make([]models.RoomAction, len(s.batch))
	copy(batch, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.store.SaveBatch(ctx, batch); err != nil {
		s.logger.Errorf("flush of %d actions failed: %v", len(batch), err)
		return
	}
	s.logger.Debugf("flushed %d actions", len(batch))
}

// SweepInactive marks rooms abandoned once they have been silent for the
// configured inactivity window.
func (s *Service) SweepInactive(ctx context.Context) {
	now := s.now()
	s.lastActivity.Range(func(key, val interface{}) bool {
		roomID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > s.opts.Inactivity {
			if err := s.store.MarkAbandoned(ctx, roomID); err != nil {
				s.logger.Errorf("failed to mark room %s abandoned: %v", roomID, err)
				return true
			}
			s.lastActivity.Delete(roomID)
			s.logger.Infof("marked room %s abandoned after inactivity", roomID)
		}
		return true
	})
}

// Pending returns the number of records waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
