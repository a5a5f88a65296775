// internal/room/room_store.go
package room

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	CodeLength   = 4
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Store manages live rooms in memory, keyed by room code.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
	rng   *rand.Rand // codes and per-room seeds; guarded by mu
	opts  Options
	log   logrus.FieldLogger
}

// NewStore returns an empty store. opts is the template for every room it
// creates; opts.Rand seeds the store itself and AutoStart is set per room.
func NewStore(opts Options) *Store {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Store{
		rooms: make(map[string]*Room),
		rng:   opts.Rand,
		opts:  opts,
		log:   opts.Logger,
	}
}

// Create builds a room with host as its first player under a fresh code.
func (s *Store) Create(host models.Player, autoStart bool) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.newCodeLocked()
	opts := s.opts
	opts.AutoStart = autoStart
	opts.Rand = rand.New(rand.NewSource(s.rng.Int63()))

	rm := New(code, host, opts)
	rm.OnEmpty = func(string) { s.remove(rm) }
	s.rooms[code] = rm
	s.log.Debugf("RoomStore: added room %s, %d live", code, len(s.rooms))
	return rm
}

func (s *Store) newCodeLocked() string {
	buf := make([]byte, CodeLength)
	for {
		for i := range buf {
			buf[i] = CodeAlphabet[s.rng.Intn(len(CodeAlphabet))]
		}
		if _, taken := s.rooms[string(buf)]; !taken {
			return string(buf)
		}
	}
}

// Lookup returns the live room for code.
func (s *Store) Lookup(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[code]
	return rm, ok
}

// Destroy removes the room and cancels its timers. Unknown codes are ignored.
func (s *Store) Destroy(code string) bool {
	s.mu.Lock()
	rm, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()

	if !ok {
		return false
	}
	rm.Close()
	s.log.Debugf("RoomStore: destroyed room %s", code)
	return true
}

// remove drops rm only if it is still the room registered under its code.
func (s *Store) remove(rm *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[rm.Code] == rm {
		delete(s.rooms, rm.Code)
		s.log.Debugf("RoomStore: removed empty room %s", rm.Code)
	}
}

// Rooms returns the live rooms ordered by code.
func (s *Store) Rooms() []*Room {
	s.mu.Lock()
	out := make([]*Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, rm)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Close destroys every room. Used on shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	all := s.rooms
	s.rooms = make(map[string]*Room)
	s.mu.Unlock()

	for _, rm := range all {
		rm.Close()
	}
	s.log.Infof("RoomStore: closed %d rooms", len(all))
}
