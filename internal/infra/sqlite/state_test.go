package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/domain/track"
)

func newTestStateStore(t *testing.T) (*StateStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "tapedeck.db")
	database, err := Bootstrap(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStateStore(database), path
}

func TestStateStore_LoadEmpty(t *testing.T) {
	s, _ := newTestStateStore(t)

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStateStore_SaveLoad(t *testing.T) {
	s, _ := newTestStateStore(t)
	ctx := context.Background()

	want := playback.PersistedState{
		Volume: 0.35,
		Queue: []track.Track{
			{
				ID:       "t1",
				Name:     "First",
				Duration: 3*time.Minute + 5*time.Second,
				ArtURL:   "https://art.example/t1.jpg",
				Album:    &track.AlbumRef{ID: "al1", Name: "Album", Artist: "Artist"},
			},
			{ID: "t2", Name: "Second"},
			{ID: "t1", Name: "First again", Album: &track.AlbumRef{Name: "Album"}},
		},
		QueueIndex: 2,
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestStateStore_SaveReplaces(t *testing.T) {
	s, _ := newTestStateStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, playback.PersistedState{
		Volume:     1,
		Queue:      []track.Track{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		QueueIndex: 1,
	}))
	require.NoError(t, s.Save(ctx, playback.PersistedState{Volume: 0.5}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.5, got.Volume)
	assert.Empty(t, got.Queue)
	assert.Zero(t, got.QueueIndex)
}

func TestBootstrap_Reopen(t *testing.T) {
	s, path := newTestStateStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, playback.PersistedState{Volume: 0.7, Queue: []track.Track{{ID: "a", Name: "A"}}}))

	database, err := Bootstrap(path)
	require.NoError(t, err)
	defer database.Close()

	var migrations int
	require.NoError(t, database.QueryRow("SELECT COUNT(1) FROM schema_migrations").Scan(&migrations))
	assert.Equal(t, 1, migrations)

	got, err := NewStateStore(database).Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.7, got.Volume)
	assert.Len(t, got.Queue, 1)
}

func TestStateStore_RestoresIntoStore(t *testing.T) {
	s, _ := newTestStateStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, playback.PersistedState{
		Volume:     0.25,
		Queue:      []track.Track{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		QueueIndex: 1,
	}))

	resolver := playback.ResolverFunc(func(_ context.Context, id string) (string, error) {
		return "/media/" + id, nil
	})
	store, err := playback.NewStore(ctx, playback.Config{DefaultVolume: 1}, resolver, s)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, 0.25, store.Volume())
	assert.Equal(t, 1, store.CurrentIndex())
	assert.Equal(t, playback.StatePaused, store.RequestedState())

	store.SetVolume(0.6)
	require.Eventually(t, func() bool {
		got, err := s.Load(ctx)
		return err == nil && got != nil && got.Volume == 0.6 && got.QueueIndex == 1
	}, time.Second, 5*time.Millisecond)
}
