// Package narration turns player actions into narrator responses. Triggers
// for one room are narrated one at a time in the order they were accepted;
// rooms are narrated in parallel.
package narration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/gm-table/internal/history"
	"github.com/thereayou/gm-table/internal/narrator"
	"github.com/thereayou/gm-table/internal/room"
)

const (
	DefaultTimeout = 60 * time.Second

	UnavailableText = "The narrator is temporarily unavailable, please try again later..."
)

var (
	ErrNarrationUnavailable = errors.New("narration unavailable")
	ErrRoomNotPlaying       = errors.New("room is not playing")
)

// History hands out per-room conversation logs.
type History interface {
	Open(roomID uuid.UUID) *history.Log
	Clear(roomID uuid.UUID)
}

// RoomStatus reports the lifecycle state of live rooms.
type RoomStatus interface {
	Status(roomID uuid.UUID) (room.Status, bool)
}

// Announcer records a room message and publishes it on the room's message
// channel.
type Announcer interface {
	Announce(ctx context.Context, t room.EventType, m room.Message) error
}

// Key identifies one triggering message.
type Key struct {
	RoomID    uuid.UUID
	MessageID uuid.UUID
}

// Trigger asks for one narration.
type Trigger struct {
	RoomID    uuid.UUID
	MessageID uuid.UUID
	UserID    uuid.UUID
	// Context is the rendered block appended after the room history.
	Context string
	// Fallback replaces UnavailableText when narration fails.
	Fallback string
}

func (t Trigger) Key() Key {
	return Key{RoomID: t.RoomID, MessageID: t.MessageID}
}

type Options struct {
	Persona string
	Timeout time.Duration
	Logger  zerolog.Logger
}

type Dispatcher struct {
	gen     narrator.Generator
	hist    History
	rooms   RoomStatus
	out     Announcer
	persona string
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time

	leases leaseSet

	mu      sync.Mutex
	idle    *sync.Cond
	queues  map[uuid.UUID][]Trigger
	pending int
	closed  bool
}

func New(gen narrator.Generator, hist History, rooms RoomStatus, out Announcer, opts Options) *Dispatcher {
	if opts.Persona == "" {
		opts.Persona = Persona
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	d := &Dispatcher{
		gen:     gen,
		hist:    hist,
		rooms:   rooms,
		out:     out,
		persona: opts.Persona,
		timeout: opts.Timeout,
		log:     opts.Logger.With().Str("component", "narration").Logger(),
		now:     time.Now,
		leases:  leaseSet{held: make(map[Key]struct{})},
		queues:  make(map[uuid.UUID][]Trigger),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Dispatch queues t behind earlier triggers of the same room. It reports
// false, and drops t, when a narration for the same key is already pending
// or in flight.
func (d *Dispatcher) Dispatch(t Trigger) bool {
	key := t.Key()
	if !d.leases.acquire(key) {
		d.log.Debug().
			Str("room_id", t.RoomID.String()).
			Str("message_id", t.MessageID.String()).
			Msg("duplicate narration trigger dropped")
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.leases.release(key)
		return false
	}
	q, running := d.queues[t.RoomID]
	d.queues[t.RoomID] = append(q, t)
	d.pending++
	d.mu.Unlock()

	if !running {
		go d.drain(t.RoomID)
	}
	return true
}

func (d *Dispatcher) drain(roomID uuid.UUID) {
	for {
		d.mu.Lock()
		q := d.queues[roomID]
		if len(q) == 0 {
			delete(d.queues, roomID)
			d.mu.Unlock()
			return
		}
		t := q[0]
		q[0] = Trigger{}
		d.queues[roomID] = q[1:]
		d.mu.Unlock()

		d.run(t)

		d.mu.Lock()
		d.pending--
		if d.pending == 0 {
			d.idle.Broadcast()
		}
		d.mu.Unlock()
	}
}

func (d *Dispatcher) run(t Trigger) {
	defer d.leases.release(t.Key())

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.narrate(ctx, t); err != nil {
		d.log.Debug().Err(err).Str("room_id", t.RoomID.String()).Msg("narration finished without output")
	}
}

func (d *Dispatcher) narrate(ctx context.Context, t Trigger) error {
	log := d.hist.Open(t.RoomID)
	if status, ok := d.rooms.Status(t.RoomID); !ok || status != room.StatusPlaying {
		d.hist.Clear(t.RoomID)
		return ErrRoomNotPlaying
	}

	prompt := BuildPrompt(d.persona, log.Turns(), t.Context)

	text, err := d.gen.Generate(ctx, t.RoomID, prompt)
	if err != nil {
		d.log.Warn().Err(err).Str("room_id", t.RoomID.String()).Msg("narrator call failed")
		if !log.Closed() {
			d.announceFallback(ctx, t)
		}
		return fmt.Errorf("%w: %v", ErrNarrationUnavailable, err)
	}

	if log.Closed() {
		return history.ErrClosed
	}

	msg := room.Message{
		ID:         uuid.New(),
		RoomID:     t.RoomID,
		SenderName: NarratorName,
		Kind:       room.MessageNarration,
		Content:    text,
		CreatedAt:  d.now(),
	}
	if err := d.out.Announce(context.WithoutCancel(ctx), room.EventNarrationProduced, msg); err != nil {
		if errors.Is(err, room.ErrInvalidState) || errors.Is(err, room.ErrRoomNotFound) {
			return err
		}
		d.log.Warn().Err(err).Str("room_id", t.RoomID.String()).Msg("announce narration")
		if !log.Closed() {
			d.announceFallback(ctx, t)
		}
		return fmt.Errorf("%w: %v", ErrNarrationUnavailable, err)
	}

	// The turn pair enters history only once the table has seen it.
	return log.Append(
		history.Turn{Role: history.RolePlayer, Content: t.Context},
		history.Turn{Role: history.RoleNarrator, Content: text},
	)
}

func (d *Dispatcher) announceFallback(ctx context.Context, t Trigger) {
	text := t.Fallback
	if text == "" {
		text = UnavailableText
	}

	msg := room.Message{
		ID:        uuid.New(),
		RoomID:    t.RoomID,
		Kind:      room.MessageSystem,
		Content:   text,
		CreatedAt: d.now(),
	}
	if err := d.out.Announce(context.WithoutCancel(ctx), room.EventMessageReceived, msg); err != nil {
		d.log.Error().Err(err).Str("room_id", t.RoomID.String()).Msg("announce fallback")
	}
}

// Wait blocks until no trigger is pending or in flight.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	for d.pending > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

// Close stops accepting triggers and waits for the accepted ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.Wait()
}

type leaseSet struct {
	mu   sync.Mutex
	held map[Key]struct{}
}

func (l *leaseSet) acquire(k Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[k]; ok {
		return false
	}
	l.held[k] = struct{}{}
	return true
}

func (l *leaseSet) release(k Key) {
	l.mu.Lock()
	delete(l.held, k)
	l.mu.Unlock()
}
