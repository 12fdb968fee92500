package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/domain/track"
)

func receive(t *testing.T, sub *Subscription) Update {
	t.Helper()
	select {
	case u, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return u
	case <-time.After(time.Second):
		require.FailNow(t, "no update received")
		return Update{}
	}
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a := m.Subscribe()
	b := m.Subscribe()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, m.SubscriberCount())

	seq := m.Broadcast(playback.FieldVolume, playback.Snapshot{Volume: 0.5})
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, uint64(1), m.SequenceNo())

	for _, sub := range []*Subscription{a, b} {
		u := receive(t, sub)
		assert.Equal(t, uint64(1), u.SequenceNo)
		assert.Equal(t, playback.FieldVolume, u.Fields)
		assert.Equal(t, 0.5, u.State.Volume)
	}
}

func TestManager_LatestWins(t *testing.T) {
	m := NewManager()
	sub := m.Subscribe()

	m.Broadcast(playback.FieldVolume, playback.Snapshot{Volume: 0.1})
	m.Broadcast(playback.FieldCurrentTime, playback.Snapshot{Volume: 0.1, CurrentTime: 4})
	m.Broadcast(playback.FieldCurrentTime, playback.Snapshot{Volume: 0.1, CurrentTime: 5})

	u := receive(t, sub)
	assert.Equal(t, uint64(3), u.SequenceNo)
	assert.Equal(t, 5.0, u.State.CurrentTime)
	assert.Equal(t, playback.FieldVolume|playback.FieldCurrentTime, u.Fields,
		"skipped updates are folded into the delivered one")

	select {
	case extra := <-sub.Updates():
		t.Fatalf("unexpected update: %+v", extra)
	default:
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	sub := m.Subscribe()

	m.Unsubscribe(sub.ID())
	m.Unsubscribe(sub.ID())
	assert.Zero(t, m.SubscriberCount())

	_, ok := <-sub.Updates()
	assert.False(t, ok)

	assert.NotPanics(t, func() { m.Broadcast(playback.FieldVolume, playback.Snapshot{}) })
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	sub := m.Subscribe()

	m.Close()
	m.Close()

	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.Zero(t, m.SubscriberCount())

	late := m.Subscribe()
	_, ok = <-late.Updates()
	assert.False(t, ok, "subscriptions after close are closed immediately")
}

func TestManager_Attach(t *testing.T) {
	resolver := playback.ResolverFunc(func(_ context.Context, id string) (string, error) {
		return "/media/" + id, nil
	})
	store, err := playback.NewStore(context.Background(), playback.Config{DefaultVolume: 1}, resolver, nil)
	require.NoError(t, err)
	defer store.Close()

	m := NewManager()
	detach := m.Attach(store)
	sub := m.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, store.QueueSet([]track.Track{{ID: "a", Name: "A"}}, 0).Wait(ctx))

	u := receive(t, sub)
	assert.Equal(t, "/media/a", u.State.Src)
	assert.True(t, u.Fields.Has(playback.FieldQueue|playback.FieldSrc))

	detach()
	before := m.SequenceNo()
	store.SetVolume(0.2)
	assert.Equal(t, before, m.SequenceNo())
}
