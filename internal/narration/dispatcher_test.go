package narration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/gm-table/internal/history"
	"github.com/thereayou/gm-table/internal/narrator"
	"github.com/thereayou/gm-table/internal/room"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts [][]narrator.Message
	err     error
	gate    chan struct{}
	started chan uuid.UUID
}

func (g *fakeGenerator) Generate(ctx context.Context, roomID uuid.UUID, msgs []narrator.Message) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, msgs)
	n := len(g.prompts)
	g.mu.Unlock()

	if g.started != nil {
		g.started <- roomID
	}
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return "reply to " + msgs[len(msgs)-1].Content + " #" + string(rune('0'+n)), nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type fakeRooms struct {
	mu     sync.Mutex
	status map[uuid.UUID]room.Status
}

func (f *fakeRooms) set(id uuid.UUID, s room.Status) {
	f.mu.Lock()
	f.status[id] = s
	f.mu.Unlock()
}

func (f *fakeRooms) Status(id uuid.UUID) (room.Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.status[id]
	return s, ok
}

type announced struct {
	Type    room.EventType
	Message room.Message
}

type fakeAnnouncer struct {
	mu  sync.Mutex
	got []announced
	// failNarration rejects narrator lines while system lines still pass.
	failNarration error
}

func (a *fakeAnnouncer) Announce(_ context.Context, t room.EventType, m room.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failNarration != nil && m.Kind == room.MessageNarration {
		return a.failNarration
	}
	a.got = append(a.got, announced{Type: t, Message: m})
	return nil
}

func (a *fakeAnnouncer) events() []announced {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]announced(nil), a.got...)
}

type fixture struct {
	gen   *fakeGenerator
	hist  *history.Cache
	rooms *fakeRooms
	out   *fakeAnnouncer
	d     *Dispatcher
}

func newFixture(t *testing.T, gen *fakeGenerator) *fixture {
	t.Helper()
	f := &fixture{
		gen:   gen,
		hist:  history.New(history.DefaultLimit),
		rooms: &fakeRooms{status: make(map[uuid.UUID]room.Status)},
		out:   &fakeAnnouncer{},
	}
	f.d = New(gen, f.hist, f.rooms, f.out, Options{Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	t.Cleanup(f.d.Close)
	return f
}

func (f *fixture) playingRoom() uuid.UUID {
	id := uuid.New()
	f.rooms.set(id, room.StatusPlaying)
	return id
}

func trigger(roomID uuid.UUID, text string) Trigger {
	return Trigger{RoomID: roomID, MessageID: uuid.New(), UserID: uuid.New(), Context: text}
}

func TestDispatchNarratesAndRecordsHistory(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	roomID := f.playingRoom()

	require.True(t, f.d.Dispatch(trigger(roomID, "I open the door")))
	f.d.Wait()

	got := f.out.events()
	require.Len(t, got, 1)
	assert.Equal(t, room.EventNarrationProduced, got[0].Type)
	assert.Equal(t, room.MessageNarration, got[0].Message.Kind)
	assert.Equal(t, NarratorName, got[0].Message.SenderName)
	assert.Equal(t, roomID, got[0].Message.RoomID)

	turns := f.hist.Open(roomID).Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, history.RolePlayer, turns[0].Role)
	assert.Equal(t, "I open the door", turns[0].Content)
	assert.Equal(t, history.RoleNarrator, turns[1].Role)
	assert.Equal(t, got[0].Message.Content, turns[1].Content)
}

func TestPromptContainsPersonaHistoryAndContext(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	roomID := f.playingRoom()

	f.d.Dispatch(trigger(roomID, "first"))
	f.d.Wait()
	f.d.Dispatch(trigger(roomID, "second"))
	f.d.Wait()

	require.Equal(t, 2, f.gen.calls())
	prompt := f.gen.prompts[1]
	require.Len(t, prompt, 4)
	assert.Equal(t, narrator.RoleSystem, prompt[0].Role)
	assert.Equal(t, Persona, prompt[0].Content)
	assert.Equal(t, narrator.RoleUser, prompt[1].Role)
	assert.Equal(t, "first", prompt[1].Content)
	assert.Equal(t, narrator.RoleAssistant, prompt[2].Role)
	assert.Equal(t, narrator.Message{Role: narrator.RoleUser, Content: "second"}, prompt[3])
}

func TestDuplicateTriggerIsDropped(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan uuid.UUID, 1)}
	f := newFixture(t, gen)
	roomID := f.playingRoom()
	tr := trigger(roomID, "look around")

	require.True(t, f.d.Dispatch(tr))
	<-gen.started

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.d.Dispatch(tr) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(gen.gate)
	f.d.Wait()

	assert.Zero(t, accepted)
	assert.Equal(t, 1, gen.calls())
	assert.Len(t, f.out.events(), 1)

	narratorTurns := 0
	for _, turn := range f.hist.Open(roomID).Turns() {
		if turn.Role == history.RoleNarrator {
			narratorTurns++
		}
	}
	assert.Equal(t, 1, narratorTurns)
}

func TestLeaseIsReleasedAfterCompletion(t *testing.T) {
	f := newFixture(t, &fakeGenerator{err: errors.New("boom")})
	roomID := f.playingRoom()
	tr := trigger(roomID, "again")

	require.True(t, f.d.Dispatch(tr))
	f.d.Wait()
	assert.True(t, f.d.Dispatch(tr))
	f.d.Wait()
	assert.Equal(t, 2, f.gen.calls())
}

func TestFailureEmitsFallbackAndKeepsHistory(t *testing.T) {
	f := newFixture(t, &fakeGenerator{err: errors.New("upstream down")})
	roomID := f.playingRoom()

	f.d.Dispatch(trigger(roomID, "hello"))
	opening := trigger(roomID, "open")
	opening.Fallback = "Let us begin today's adventure..."
	f.d.Dispatch(opening)
	f.d.Wait()

	got := f.out.events()
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.Equal(t, room.EventMessageReceived, ev.Type)
		assert.Equal(t, room.MessageSystem, ev.Message.Kind)
	}
	assert.Equal(t, UnavailableText, got[0].Message.Content)
	assert.Equal(t, "Let us begin today's adventure...", got[1].Message.Content)
	assert.Zero(t, f.hist.Open(roomID).Len())
}

func TestFailedAnnounceLeavesHistoryEmpty(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	f.out.failNarration = errors.New("save message: db down")
	roomID := f.playingRoom()

	require.True(t, f.d.Dispatch(trigger(roomID, "I open the door")))
	f.d.Wait()

	assert.Equal(t, 0, f.hist.Open(roomID).Len())

	got := f.out.events()
	require.Len(t, got, 1)
	assert.Equal(t, room.EventMessageReceived, got[0].Type)
	assert.Equal(t, room.MessageSystem, got[0].Message.Kind)
	assert.Equal(t, UnavailableText, got[0].Message.Content)
}

func TestAnnounceRejectedByEndedRoomIsSilent(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	f.out.failNarration = room.ErrInvalidState
	roomID := f.playingRoom()

	require.True(t, f.d.Dispatch(trigger(roomID, "I open the door")))
	f.d.Wait()

	assert.Empty(t, f.out.events())
	assert.Equal(t, 0, f.hist.Open(roomID).Len())
}

func TestTriggersOfOneRoomRunInOrder(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	roomID := f.playingRoom()

	contexts := []string{"a", "b", "c", "d", "e"}
	for _, c := range contexts {
		require.True(t, f.d.Dispatch(trigger(roomID, c)))
	}
	f.d.Wait()

	require.Equal(t, len(contexts), f.gen.calls())
	for i, c := range contexts {
		prompt := f.gen.prompts[i]
		assert.Equal(t, c, prompt[len(prompt)-1].Content)
	}

	var players []string
	for _, turn := range f.hist.Open(roomID).Turns() {
		if turn.Role == history.RolePlayer {
			players = append(players, turn.Content)
		}
	}
	assert.Equal(t, contexts, players)
}

func TestRoomsNarrateInParallel(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan uuid.UUID, 2)}
	f := newFixture(t, gen)
	a, b := f.playingRoom(), f.playingRoom()

	f.d.Dispatch(trigger(a, "in a"))
	f.d.Dispatch(trigger(b, "in b"))

	seen := map[uuid.UUID]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-gen.started:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("rooms did not narrate in parallel")
		}
	}
	close(gen.gate)
	f.d.Wait()
	assert.True(t, seen[a])
	assert.True(t, seen[b])
}

func TestLateResponseAfterEndIsDiscarded(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{}), started: make(chan uuid.UUID, 1)}
	f := newFixture(t, gen)
	roomID := f.playingRoom()

	f.d.Dispatch(trigger(roomID, "too late"))
	<-gen.started

	f.rooms.set(roomID, room.StatusEnded)
	f.hist.Clear(roomID)
	close(gen.gate)
	f.d.Wait()

	assert.Empty(t, f.out.events())
	_, ok := f.hist.Lookup(roomID)
	assert.False(t, ok)
}

func TestEndedRoomIsNotNarrated(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	roomID := uuid.New()
	f.rooms.set(roomID, room.StatusEnded)

	f.d.Dispatch(trigger(roomID, "anyone?"))
	f.d.Wait()

	assert.Zero(t, f.gen.calls())
	assert.Empty(t, f.out.events())
	_, ok := f.hist.Lookup(roomID)
	assert.False(t, ok)
}

func TestClosedDispatcherRejects(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	f.d.Close()
	assert.False(t, f.d.Dispatch(trigger(f.playingRoom(), "x")))
}
