package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/gm-table/internal/history"
	"github.com/thereayou/gm-table/internal/room"
	"github.com/thereayou/gm-table/internal/roster"
)

type roomFixture struct {
	store  *memStore
	hub    *recHub
	narr   *recNarrator
	hist   *history.Cache
	roster *roster.Store
	svc    *RoomService
}

func newRoomFixture() *roomFixture {
	f := &roomFixture{
		store:  newMemStore(),
		hub:    newRecHub(),
		narr:   &recNarrator{},
		hist:   history.New(history.DefaultLimit),
		roster: roster.New(),
	}
	f.svc = NewRoomService(f.roster, f.store, f.hub, f.narr, f.hist, zerolog.Nop())
	return f
}

func (f *roomFixture) create(t *testing.T, host uuid.UUID, maxPlayers int) room.Room {
	t.Helper()
	r, err := f.svc.Create(context.Background(), host, "host", room.Config{
		Name:       "The Haunting",
		Script:     "An old house in Boston.",
		MaxPlayers: maxPlayers,
	})
	require.NoError(t, err)
	return r
}

func TestCreatePersistsAndPublishes(t *testing.T) {
	f := newRoomFixture()
	host := uuid.New()
	r := f.create(t, host, 0)

	assert.Equal(t, room.DefaultMaxPlayers, r.MaxPlayers)
	_, ok := f.store.saved(r.ID)
	assert.True(t, ok)

	updates := f.hub.on(room.UpdatesChannel(r.ID))
	require.Len(t, updates, 1)
	assert.Equal(t, room.EventRoomStateChanged, updates[0].Type)
	assert.Equal(t, r.ID, updates[0].Room.ID)
}

func TestJoinPublishesOneSnapshotAndNote(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	r := f.create(t, uuid.New(), 3)
	guest := uuid.New()

	got, err := f.svc.Join(ctx, r.ID, guest, "bob", nil)
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)

	_, err = f.svc.Join(ctx, r.ID, guest, "bob", nil)
	require.NoError(t, err)

	updates := f.hub.on(room.UpdatesChannel(r.ID))
	require.Len(t, updates, 2)
	assert.Equal(t, room.EventJoined, updates[1].Type)
	assert.Equal(t, &guest, updates[1].ActorID)
	assert.Equal(t, []string{"bob joined the room"}, f.hub.texts(r.ID))

	saved, _ := f.store.saved(r.ID)
	assert.Len(t, saved.Players, 2)
}

func TestJoinAttachRunsBeforeAnnouncement(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	r := f.create(t, uuid.New(), 3)
	guest := uuid.New()

	var seen []int
	attach := func(cur room.Room) {
		assert.True(t, cur.IsMember(guest))
		seen = append(seen, len(f.hub.texts(r.ID)))
	}

	_, err := f.svc.Join(ctx, r.ID, guest, "bob", attach)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, r.ID, guest, "bob", attach)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, seen)

	_, err = f.svc.Join(ctx, uuid.New(), uuid.New(), "ghost", func(room.Room) {
		t.Error("attach ran for a failed join")
	})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestJoinFullRoom(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	r := f.create(t, uuid.New(), 2)

	_, err := f.svc.Join(ctx, r.ID, uuid.New(), "second", nil)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, r.ID, uuid.New(), "third", nil)
	assert.ErrorIs(t, err, room.ErrRoomFull)

	cur, err := f.svc.Get(r.ID)
	require.NoError(t, err)
	assert.Len(t, cur.Players, 2)
	assert.Len(t, f.hub.on(room.UpdatesChannel(r.ID)), 2)
}

func TestStoreFailureLeavesRoomUntouched(t *testing.T) {
	f := newRoomFixture()
	r := f.create(t, uuid.New(), 3)
	f.store.saveErr = errStoreDown

	_, err := f.svc.Join(context.Background(), r.ID, uuid.New(), "bob", nil)
	assert.ErrorIs(t, err, errStoreDown)

	cur, _ := f.svc.Get(r.ID)
	assert.Len(t, cur.Players, 1)
	assert.Len(t, f.hub.on(room.UpdatesChannel(r.ID)), 1)
	assert.Empty(t, f.hub.texts(r.ID))
}

func TestSelectCharacter(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	host, guest := uuid.New(), uuid.New()
	r := f.create(t, host, 3)
	_, err := f.svc.Join(ctx, r.ID, guest, "bob", nil)
	require.NoError(t, err)

	mine := f.store.addCharacter(host, "Harvey")
	theirs := f.store.addCharacter(guest, "Carol")

	_, err = f.svc.SelectCharacter(ctx, r.ID, host, uuid.New())
	assert.ErrorIs(t, err, room.ErrCharacterNotFound)
	_, err = f.svc.SelectCharacter(ctx, r.ID, host, theirs)
	assert.ErrorIs(t, err, room.ErrCharacterNotFound)

	got, err := f.svc.SelectCharacter(ctx, r.ID, host, mine)
	require.NoError(t, err)
	p, _ := got.Member(host)
	assert.True(t, p.IsReady)

	before := len(f.hub.on(room.UpdatesChannel(r.ID)))
	_, err = f.svc.SelectCharacter(ctx, r.ID, host, mine)
	require.NoError(t, err)
	updates := f.hub.on(room.UpdatesChannel(r.ID))
	assert.Len(t, updates, before)
	assert.Equal(t, room.EventCharacterSelected, updates[len(updates)-1].Type)
}

func TestStartDispatchesOpening(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	host, guest := uuid.New(), uuid.New()
	r := f.create(t, host, 2)
	_, err := f.svc.Join(ctx, r.ID, guest, "bob", nil)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, r.ID, guest)
	assert.ErrorIs(t, err, room.ErrNotHost)
	_, err = f.svc.Start(ctx, r.ID, host)
	assert.ErrorIs(t, err, room.ErrPlayersNotReady)

	_, err = f.svc.SelectCharacter(ctx, r.ID, host, f.store.addCharacter(host, "Harvey"))
	require.NoError(t, err)
	_, err = f.svc.SelectCharacter(ctx, r.ID, guest, f.store.addCharacter(guest, "Carol"))
	require.NoError(t, err)

	got, err := f.svc.Start(ctx, r.ID, host)
	require.NoError(t, err)
	assert.Equal(t, room.StatusPlaying, got.Status)

	msgs := f.hub.on(room.MessageChannel(r.ID))
	last := msgs[len(msgs)-1].Message
	assert.Equal(t, textGameStarted, last.Content)

	triggers := f.narr.all()
	require.Len(t, triggers, 1)
	assert.Equal(t, last.ID, triggers[0].MessageID)
	assert.Equal(t, textOpening, triggers[0].Fallback)
	assert.Contains(t, triggers[0].Context, "An old house in Boston.")
	assert.Contains(t, triggers[0].Context, "host plays Harvey")
	assert.Contains(t, triggers[0].Context, "bob plays Carol")
}

func TestLeaveTransfersHostThenEnds(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	host, guest := uuid.New(), uuid.New()
	r := f.create(t, host, 3)
	_, err := f.svc.Join(ctx, r.ID, guest, "bob", nil)
	require.NoError(t, err)
	f.hist.Open(r.ID)

	got, err := f.svc.Leave(ctx, r.ID, host)
	require.NoError(t, err)
	assert.Equal(t, guest, got.HostID)

	_, err = f.svc.Leave(ctx, r.ID, uuid.New())
	require.NoError(t, err)

	got, err = f.svc.Leave(ctx, r.ID, guest)
	require.NoError(t, err)
	assert.Equal(t, room.StatusEnded, got.Status)

	assert.Equal(t, []string{
		"bob joined the room",
		"host left the room",
		"bob is now the host",
		"bob left the room",
		textEveryoneLeft,
	}, f.hub.texts(r.ID))

	_, err = f.svc.Get(r.ID)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	_, ok := f.hist.Lookup(r.ID)
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{room.MessageChannel(r.ID), room.UpdatesChannel(r.ID)}, f.hub.dropped)

	saved, _ := f.store.saved(r.ID)
	assert.Equal(t, room.StatusEnded, saved.Status)
}

func TestRemove(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	host, guest := uuid.New(), uuid.New()
	r := f.create(t, host, 3)
	_, err := f.svc.Join(ctx, r.ID, guest, "bob", nil)
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, r.ID, guest)
	assert.ErrorIs(t, err, room.ErrNotHost)

	got, err := f.svc.Remove(ctx, r.ID, host)
	require.NoError(t, err)
	assert.Equal(t, room.StatusEnded, got.Status)
	assert.Contains(t, f.hub.texts(r.ID), textHostClosed)

	_, err = f.svc.Remove(ctx, r.ID, host)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.Empty(t, f.svc.List())
}

func TestEnd(t *testing.T) {
	f := newRoomFixture()
	r := f.create(t, uuid.New(), 2)

	got, err := f.svc.End(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusEnded, got.Status)

	updates := f.hub.on(room.UpdatesChannel(r.ID))
	assert.Nil(t, updates[len(updates)-1].ActorID)
}

func TestRestore(t *testing.T) {
	f := newRoomFixture()
	ctx := context.Background()
	host := uuid.New()

	live, err := room.New(uuid.New(), host, "host", room.Config{Name: "live"}, f.svc.rec.now())
	require.NoError(t, err)
	require.NoError(t, f.store.SaveRoom(ctx, *live))

	empty := room.Room{ID: uuid.New(), Name: "empty", Status: room.StatusPlaying, MaxPlayers: 2}
	require.NoError(t, f.store.SaveRoom(ctx, empty))

	n, err := f.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.Get(live.ID)
	assert.NoError(t, err)
	saved, _ := f.store.saved(empty.ID)
	assert.Equal(t, room.StatusEnded, saved.Status)
}
