// internal/room/room.go
package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tombola/internal/clock"
	"github.com/jason-s-yu/tombola/internal/game"
	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	MinDrawIntervalMs      = 3000
	MaxDrawIntervalMs      = 15000
	DefaultDrawIntervalMs  = 3000
	DefaultAutoResumeDelay = 5 * time.Second
)

// Historian action types.
const (
	ActionRoomCreated         = "room_created"
	ActionPlayerJoin          = "player_join"
	ActionPlayerLeave         = "player_leave"
	ActionHostChanged         = "host_changed"
	ActionGameStart           = "game_start"
	ActionNumberDrawn         = "number_drawn"
	ActionGameEnd             = "game_end"
	ActionDrawIntervalChanged = "draw_interval_changed"
	ActionDrawPaused          = "draw_paused"
	ActionDrawResumed         = "draw_resumed"
	ActionWinDeclared         = "win_declared"
	ActionRoomClosed          = "room_closed"
)

// ActionRecorder ships room actions to the historian. Implementations must
// return quickly; rooms call RecordAction while holding their lock.
type ActionRecorder interface {
	RecordAction(action models.RoomAction)
}

// Options configures a room. Zero values fall back to defaults.
type Options struct {
	AutoStart       bool
	VerifyClaims    bool
	AutoResumeDelay time.Duration
	Clock           clock.Clock
	Rand            *rand.Rand
	Notifier        Notifier
	Recorder        ActionRecorder
	Logger          logrus.FieldLogger
}

// Room is one live tombola session. Mu guards every field, including the
// scheduler, whose timer callbacks take Mu before touching the room.
type Room struct {
	ID   string
	Code string

	players          []models.Player
	hostID           string
	drawn            []int
	isDrawn          [models.MaxNumber + 1]bool
	gameStarted      bool
	paused           bool
	gameEnded        bool
	drawIntervalMs   int
	nextAction       *models.Pattern
	completedActions []models.Pattern
	completedWinners map[models.Pattern]string
	autoStart        bool

	verifyClaims bool
	cards        map[string]models.Card

	closed          bool
	scheduler       *DrawScheduler
	autoResumeDelay time.Duration
	rng             *rand.Rand
	notifier        Notifier
	recorder        ActionRecorder
	actionIndex     int
	log             logrus.FieldLogger

	// OnEmpty is called, without Mu held, once the last player has left.
	OnEmpty func(code string)

	Mu sync.Mutex
}

// ClampDrawInterval forces ms into [MinDrawIntervalMs, MaxDrawIntervalMs].
func ClampDrawInterval(ms int) int {
	if ms < MinDrawIntervalMs {
		return MinDrawIntervalMs
	}
	if ms > MaxDrawIntervalMs {
		return MaxDrawIntervalMs
	}
	return ms
}

// New builds a room with host as its only player.
func New(code string, host models.Player, opts Options) *Room {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.AutoResumeDelay <= 0 {
		opts.AutoResumeDelay = DefaultAutoResumeDelay
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string, Event) {})
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	first := models.PatternAmbo
	r := &Room{
		ID:               uuid.NewString(),
		Code:             code,
		players:          []models.Player{host},
		hostID:           host.ID,
		drawIntervalMs:   DefaultDrawIntervalMs,
		nextAction:       &first,
		completedWinners: make(map[models.Pattern]string),
		autoStart:        opts.AutoStart,
		verifyClaims:     opts.VerifyClaims,
		cards:            make(map[string]models.Card),
		autoResumeDelay:  opts.AutoResumeDelay,
		rng:              opts.Rand,
		notifier:         opts.Notifier,
		recorder:         opts.Recorder,
		log:              opts.Logger.WithField("room", code),
	}
	r.scheduler = newDrawScheduler(opts.Clock, &r.Mu, time.Duration(r.drawIntervalMs)*time.Millisecond, r.drawNextUnsafe)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.logAction(host.ID, ActionRoomCreated, map[string]interface{}{
		"hostName":  host.Name,
		"autoStart": opts.AutoStart,
	})
	r.dealCardUnsafe(host.ID)
	r.log.Infof("room created by %s (%s)", host.Name, host.ID)
	return r
}

// Join adds p to the room and broadcasts the new player list.
func (r *Room) Join(p models.Player) (State, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return State{}, ErrRoomNotFound
	}
	for _, existing := range r.players {
		if existing.Name == p.Name {
			return State{}, ErrNameTaken
		}
	}

	r.players = append(r.players, p)
	r.log.Infof("%s (%s) joined, %d players", p.Name, p.ID, len(r.players))
	r.broadcastUnsafe(Event{Type: EventPlayersUpdate, Players: r.playersCopyUnsafe()})
	r.logAction(p.ID, ActionPlayerJoin, map[string]interface{}{"name": p.Name})
	r.dealCardUnsafe(p.ID)
	return r.stateUnsafe(), nil
}

// Start begins the game. It reports false without error when the game was
// already started.
func (r *Room) Start(requester string) (bool, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return false, ErrRoomClosed
	}
	if requester != r.hostID {
		return false, authorityError("start the game")
	}
	if !r.autoStart && len(r.players) < 2 {
		return false, ErrNotEnoughPlayers
	}
	if r.gameStarted {
		return false, nil
	}

	r.gameStarted = true
	r.paused = false
	r.scheduler.CancelAutoResume()
	r.broadcastUnsafe(Event{Type: EventDrawResumed})
	r.broadcastUnsafe(Event{Type: EventGameStarted})
	r.scheduler.Start()
	r.logAction(requester, ActionGameStart, map[string]interface{}{"players": len(r.players)})
	r.log.Info("game started")
	return true, nil
}

// SetDrawInterval clamps and stores the draw cadence, returning the applied value.
func (r *Room) SetDrawInterval(requester string, ms int) (int, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return 0, ErrRoomClosed
	}
	if requester != r.hostID {
		return 0, authorityError("change the draw interval")
	}

	r.drawIntervalMs = ClampDrawInterval(ms)
	r.broadcastUnsafe(Event{Type: EventDrawIntervalChanged, DrawIntervalMs: r.drawIntervalMs})
	r.scheduler.SetInterval(time.Duration(r.drawIntervalMs) * time.Millisecond)
	r.logAction(requester, ActionDrawIntervalChanged, map[string]interface{}{
		"requested": ms,
		"applied":   r.drawIntervalMs,
	})
	return r.drawIntervalMs, nil
}

// Pause stops automatic drawing until Resume.
func (r *Room) Pause(requester string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if requester != r.hostID {
		return authorityError("pause drawing")
	}
	r.pauseUnsafe(requester)
	return nil
}

// Resume restarts automatic drawing and cancels any pending auto-resume.
func (r *Room) Resume(requester string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if requester != r.hostID {
		return authorityError("resume drawing")
	}
	r.resumeUnsafe(requester)
	return nil
}

// DeclareWin accepts a declaration of the next pattern in order from a member
// of the room. The winner is named after the stored player. On success the
// room pauses and arms an auto-resume timer.
func (r *Room) DeclareWin(requester string, pattern models.Pattern) (WinResult, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return WinResult{}, ErrRoomClosed
	}
	player, ok := r.playerUnsafe(requester)
	if !ok {
		return WinResult{}, ErrNotMember
	}
	playerName := player.Name
	if r.nextAction == nil {
		return WinResult{}, ErrAllPatternsTaken
	}
	if pattern != *r.nextAction {
		return WinResult{}, outOfOrderError(string(pattern), string(*r.nextAction))
	}
	if r.verifyClaims {
		card, ok := r.cards[requester]
		if !ok {
			return WinResult{}, ErrNotMember
		}
		check := game.CheckPattern(pattern, game.MarkDrawn(card, r.drawn), r.drawn)
		if !check.Valid {
			return WinResult{}, &Error{Kind: KindPrecondition, Msg: check.Message}
		}
	}

	r.completedActions = append(r.completedActions, pattern)
	r.completedWinners[pattern] = requester
	r.nextAction = pattern.Next()

	result := r.winResultUnsafe(pattern, requester, playerName)
	r.broadcastUnsafe(Event{Type: EventWinDeclared, Win: &result})
	r.logAction(requester, ActionWinDeclared, map[string]interface{}{
		"pattern": string(pattern),
		"player":  playerName,
		"drawn":   len(r.drawn),
	})
	r.log.Infof("%s declared %s", playerName, pattern)

	r.pauseUnsafe(requester)
	r.scheduler.ArmAutoResume(r.autoResumeDelay, func() {
		if r.closed || !r.paused {
			return
		}
		r.log.Debug("auto-resuming after win")
		r.resumeUnsafe("")
	})
	return result, nil
}

// CheckCard validates a client card's marks against the numbers drawn so far.
func (r *Room) CheckCard(card models.Card) game.MarkValidation {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return game.ValidateMarks(card, r.drawn)
}

// Leave removes connID from the room. It migrates the host when needed and
// calls OnEmpty after releasing the lock once the room has no players left.
// It reports whether connID was a member.
func (r *Room) Leave(connID string) bool {
	r.Mu.Lock()
	left, empty := r.leaveUnsafe(connID)
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(r.Code)
	}
	return left
}

func (r *Room) leaveUnsafe(connID string) (left bool, empty bool) {
	idx := -1
	for i, p := range r.players {
		if p.ID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, false
	}

	gone := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.cards, connID)
	if r.closed {
		// room_closed is already recorded and nobody is listening.
		return true, false
	}
	r.logAction(connID, ActionPlayerLeave, map[string]interface{}{"name": gone.Name})
	r.log.Infof("%s (%s) left, %d players", gone.Name, gone.ID, len(r.players))

	if len(r.players) == 0 {
		r.closeUnsafe()
		return true, true
	}

	r.broadcastUnsafe(Event{Type: EventPlayersUpdate, Players: r.playersCopyUnsafe()})
	if connID == r.hostID {
		r.hostID = r.players[0].ID
		r.broadcastUnsafe(Event{Type: EventHostChanged, HostID: r.hostID})
		r.logAction(r.hostID, ActionHostChanged, map[string]interface{}{"previous": connID})
		r.log.Infof("host migrated to %s", r.hostID)
		r.scheduler.Restart()
	}
	return true, false
}

// Close stops every timer and marks the room closed. Safe to call repeatedly.
func (r *Room) Close() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.closeUnsafe()
}

func (r *Room) closeUnsafe() {
	if r.closed {
		return
	}
	r.closed = true
	r.scheduler.Stop()
	r.logAction("", ActionRoomClosed, map[string]interface{}{"drawn": len(r.drawn)})
	r.log.Info("room closed")
}

// Closed reports whether the room has been closed.
func (r *Room) Closed() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.closed
}

// State returns a snapshot of the room.
func (r *Room) State() State {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.stateUnsafe()
}

// HasPlayer reports whether connID is a member.
func (r *Room) HasPlayer(connID string) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	_, ok := r.playerUnsafe(connID)
	return ok
}

func (r *Room) playerUnsafe(connID string) (models.Player, bool) {
	for _, p := range r.players {
		if p.ID == connID {
			return p, true
		}
	}
	return models.Player{}, false
}

// SchedulerState exposes the draw scheduler's state.
func (r *Room) SchedulerState() SchedulerState {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.scheduler.State()
}

// Card returns the server-held card for connID, if one was dealt.
func (r *Room) Card(connID string) (models.Card, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	c, ok := r.cards[connID]
	return c, ok
}

func (r *Room) pauseUnsafe(actor string) {
	r.scheduler.Pause()
	r.paused = true
	r.broadcastUnsafe(Event{Type: EventDrawPaused})
	r.logAction(actor, ActionDrawPaused, nil)
}

func (r *Room) resumeUnsafe(actor string) {
	r.scheduler.CancelAutoResume()
	r.paused = false
	r.broadcastUnsafe(Event{Type: EventDrawResumed})
	if r.gameStarted {
		r.scheduler.Resume()
	}
	r.logAction(actor, ActionDrawResumed, nil)
}

// drawNextUnsafe is the scheduler tick. It returns false once nothing more
// can be drawn.
func (r *Room) drawNextUnsafe() bool {
	if r.closed {
		return false
	}
	if len(r.drawn) >= models.MaxNumber {
		r.gameEnded = true
		r.broadcastUnsafe(Event{Type: EventGameEnded})
		r.logAction("", ActionGameEnd, map[string]interface{}{"drawn": len(r.drawn)})
		r.log.Info("all numbers drawn, game ended")
		return false
	}

	n := r.rng.Intn(models.MaxNumber) + 1
	for r.isDrawn[n] {
		n = r.rng.Intn(models.MaxNumber) + 1
	}
	r.isDrawn[n] = true
	r.drawn = append(r.drawn, n)

	r.broadcastUnsafe(Event{Type: EventNumberDrawn, Number: n})
	r.logAction("", ActionNumberDrawn, map[string]interface{}{"number": n, "count": len(r.drawn)})
	return true
}

func (r *Room) dealCardUnsafe(connID string) {
	if !r.verifyClaims {
		return
	}
	card := game.NewCard(r.rng)
	r.cards[connID] = card
	r.notifier.Notify(connID, Event{Type: EventCardDealt, RoomCode: r.Code, Card: &card})
}

func (r *Room) broadcastUnsafe(ev Event) {
	ev.RoomCode = r.Code
	for _, p := range r.players {
		r.notifier.Notify(p.ID, ev)
	}
}

func (r *Room) logAction(actor, actionType string, payload map[string]interface{}) {
	if r.recorder == nil {
		return
	}
	r.actionIndex++
	if payload == nil {
		payload = map[string]interface{}{}
	}
	r.recorder.RecordAction(models.RoomAction{
		RoomID:        r.ID,
		RoomCode:      r.Code,
		ActionIndex:   r.actionIndex,
		ActorID:       actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	})
}

func (r *Room) playersCopyUnsafe() []models.Player {
	out := make([]models.Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r *Room) winResultUnsafe(pattern models.Pattern, winnerID, playerName string) WinResult {
	return WinResult{
		Pattern:          pattern,
		Player:           playerName,
		WinnerID:         winnerID,
		CompletedActions: append([]models.Pattern(nil), r.completedActions...),
		CompletedWinners: r.winnersCopyUnsafe(),
		NextAction:       copyPattern(r.nextAction),
	}
}

func (r *Room) winnersCopyUnsafe() map[models.Pattern]string {
	out := make(map[models.Pattern]string, len(r.completedWinners))
	for k, v := range r.completedWinners {
		out[k] = v
	}
	return out
}

func (r *Room) stateUnsafe() State {
	completed := make([]models.Pattern, len(r.completedActions))
	copy(completed, r.completedActions)
	return State{
		RoomCode:         r.Code,
		HostID:           r.hostID,
		Players:          r.playersCopyUnsafe(),
		Drawn:            append([]int{}, r.drawn...),
		GameStarted:      r.gameStarted,
		DrawIntervalMs:   r.drawIntervalMs,
		Paused:           r.paused,
		CompletedActions: completed,
		CompletedWinners: r.winnersCopyUnsafe(),
		NextAction:       copyPattern(r.nextAction),
		AutoStart:        r.autoStart,
		GameEnded:        r.gameEnded,
	}
}

func copyPattern(p *models.Pattern) *models.Pattern {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
