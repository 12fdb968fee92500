package playback

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tapedeck/internal/domain/track"
)

func TestNewStore_RequiresResolver(t *testing.T) {
	_, err := NewStore(context.Background(), Config{}, nil, nil)
	assert.Error(t, err)
}

func TestStore_InitialState(t *testing.T) {
	s := newTestStore(t, newFakeResolver())

	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Equal(t, 0.5, s.Volume())
	assert.Equal(t, StatePaused, s.RequestedState())
	assert.Equal(t, StatePaused, s.ReportedState())
	assert.Empty(t, s.Queue())
	_, ok := s.CurrentEntry()
	assert.False(t, ok)
}

func TestStore_QueuePushOnEmptyQueue(t *testing.T) {
	s := newTestStore(t, newFakeResolver())

	load := s.QueuePush(tracks("x")[0])

	assert.Equal(t, PhaseLoading, s.Phase())
	assert.Equal(t, 0, s.CurrentIndex())
	require.Len(t, s.Queue(), 1)
	assert.Equal(t, "x", s.Queue()[0].Track.ID)
	assert.Equal(t, StatePlaying, s.RequestedState())

	require.NoError(t, wait(t, load))
	assert.Equal(t, "/media/x", s.Src())
	assert.True(t, s.IsLoading(), "loading lasts until the native handle can play")
}

func TestStore_QueuePushOnNonEmptyQueue(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a"), 0)))

	load := s.QueuePush(tracks("b")[0])

	assert.Nil(t, load)
	assert.Equal(t, []string{"a", "b"}, queueIDs(s))
	assert.Equal(t, "a", currentID(s))
	assert.Equal(t, "/media/a", s.Src())
}

func TestStore_QueuePushSameTrackTwice(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	x := tracks("x")[0]

	s.QueuePush(x)
	s.QueuePush(x)

	q := s.Queue()
	require.Len(t, q, 2)
	assert.Equal(t, q[0].Track, q[1].Track)
	assert.NotEqual(t, q[0].QueueID, q[1].QueueID)
}

func TestStore_QueueSet(t *testing.T) {
	tests := []struct {
		name      string
		startAt   int
		wantIndex int
	}{
		{name: "start at zero", startAt: 0, wantIndex: 0},
		{name: "start in range", startAt: 2, wantIndex: 2},
		{name: "start beyond end", startAt: 9, wantIndex: 2},
		{name: "negative start", startAt: -4, wantIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, newFakeResolver())

			load := s.QueueSet(tracks("a", "b", "c"), tt.startAt)
			require.NoError(t, wait(t, load))

			assert.Equal(t, tt.wantIndex, s.CurrentIndex())
			assert.Equal(t, StatePlaying, s.RequestedState())
			assert.Equal(t, "/media/"+currentID(s), s.Src())
		})
	}
}

func TestStore_QueueSetEmptyStops(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a", "b"), 1)))

	load := s.QueueSet(nil, 0)

	assert.Nil(t, load)
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Equal(t, StatePaused, s.RequestedState())
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestStore_QueueSetDurationFromCatalog(t *testing.T) {
	s := newTestStore(t, newFakeResolver())

	s.QueueSet([]track.Track{{ID: "a", Duration: 90 * time.Second}}, 0)

	assert.Equal(t, 90.0, s.Duration())
	assert.Equal(t, 0.0, s.CurrentTime())
}

func TestStore_QueueRemove(t *testing.T) {
	tests := []struct {
		name          string
		start         int
		remove        int
		wantQueue     []string
		wantIndex     int
		wantCurrent   string
		wantRequested State
		wantLoad      bool
	}{
		{
			name:          "before current keeps pointing at same entry",
			start:         1,
			remove:        0,
			wantQueue:     []string{"b", "c"},
			wantIndex:     0,
			wantCurrent:   "b",
			wantRequested: StatePlaying,
		},
		{
			name:          "after current leaves index alone",
			start:         1,
			remove:        2,
			wantQueue:     []string{"a", "b"},
			wantIndex:     1,
			wantCurrent:   "b",
			wantRequested: StatePlaying,
		},
		{
			name:          "current advances to next",
			start:         1,
			remove:        1,
			wantQueue:     []string{"a", "c"},
			wantIndex:     1,
			wantCurrent:   "c",
			wantRequested: StatePlaying,
			wantLoad:      true,
		},
		{
			name:          "current at end falls back to new last entry paused",
			start:         2,
			remove:        2,
			wantQueue:     []string{"a", "b"},
			wantIndex:     1,
			wantCurrent:   "b",
			wantRequested: StatePaused,
			wantLoad:      true,
		},
		{
			name:          "out of range is ignored",
			start:         1,
			remove:        3,
			wantQueue:     []string{"a", "b", "c"},
			wantIndex:     1,
			wantCurrent:   "b",
			wantRequested: StatePlaying,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, newFakeResolver())
			require.NoError(t, wait(t, s.QueueSet(tracks("a", "b", "c"), tt.start)))
			before := s.Queue()[tt.start].QueueID

			load := s.QueueRemove(tt.remove)

			assert.Equal(t, tt.wantQueue, queueIDs(s))
			assert.Equal(t, tt.wantIndex, s.CurrentIndex())
			assert.Equal(t, tt.wantCurrent, currentID(s))
			assert.Equal(t, tt.wantRequested, s.RequestedState())
			if tt.wantLoad {
				require.NoError(t, wait(t, load))
				assert.Equal(t, "/media/"+tt.wantCurrent, s.Src())
			} else {
				assert.Nil(t, load)
				entry, _ := s.CurrentEntry()
				assert.Equal(t, before, entry.QueueID)
			}
		})
	}
}

func TestStore_QueueRemoveOnlyEntryGoesIdle(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a"), 0)))

	load := s.QueueRemove(0)

	assert.Nil(t, load)
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.Queue())
	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, StatePaused, s.RequestedState())
	assert.Empty(t, s.Src())
}

func TestStore_QueueSkipAndPrev(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a", "b"), 0)))

	assert.Nil(t, s.QueuePrev(), "prev at start is a no-op")
	assert.Equal(t, 0, s.CurrentIndex())

	require.NoError(t, wait(t, s.QueueSkip()))
	assert.Equal(t, 1, s.CurrentIndex())
	assert.Equal(t, "/media/b", s.Src())

	assert.Nil(t, s.QueueSkip(), "skip at end is a no-op")
	assert.Equal(t, 1, s.CurrentIndex())
	assert.Equal(t, StatePlaying, s.RequestedState())

	require.NoError(t, wait(t, s.QueuePrev()))
	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, "/media/a", s.Src())
}

func TestStore_QueueSkipPreservesPause(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a", "b"), 0)))
	s.Pause()

	require.NoError(t, wait(t, s.QueueSkip()))

	assert.Equal(t, StatePaused, s.RequestedState())
}

func TestStore_QueueJump(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a", "b", "c"), 0)))
	s.Pause()

	assert.Nil(t, s.QueueJump(5))
	assert.Nil(t, s.QueueJump(-1))
	assert.Equal(t, 0, s.CurrentIndex())

	require.NoError(t, wait(t, s.QueueJump(2)))
	assert.Equal(t, 2, s.CurrentIndex())
	assert.Equal(t, StatePlaying, s.RequestedState())
	assert.Equal(t, "/media/c", s.Src())
}

func TestStore_PlayPause(t *testing.T) {
	s := newTestStore(t, newFakeResolver())

	s.Play()
	assert.Equal(t, StatePaused, s.RequestedState(), "play without a current track is a no-op")

	require.NoError(t, wait(t, s.QueueSet(tracks("a"), 0)))
	s.Pause()
	assert.Equal(t, StatePaused, s.RequestedState())
	s.Play()
	assert.Equal(t, StatePlaying, s.RequestedState())

	s.TogglePlay()
	assert.Equal(t, StatePaused, s.RequestedState())
	s.TogglePlay()
	assert.Equal(t, StatePlaying, s.RequestedState())
}

func TestStore_PauseIsIdempotent(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a"), 0)))

	var changes []Change
	unsubscribe := s.Subscribe(FieldAll, func(c Change) {
		changes = append(changes, c)
	})
	defer unsubscribe()

	s.Pause()
	first := s.Snapshot()
	s.Pause()

	assert.Equal(t, first, s.Snapshot())
	require.Len(t, changes, 1)
	assert.Equal(t, FieldRequestedState, changes[0].Fields)
}

func TestStore_Stop(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	require.NoError(t, wait(t, s.QueueSet(tracks("a", "b"), 1)))
	s.OnDurationChange(200)
	s.OnTimeUpdate(12)

	s.Stop()

	snap := s.Snapshot()
	assert.Empty(t, snap.Queue)
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Equal(t, 0.0, snap.Duration)
	assert.Equal(t, 0.0, snap.CurrentTime)
	assert.Equal(t, StatePaused, snap.RequestedState)
	assert.Empty(t, snap.Src)
	assert.Equal(t, PhaseIdle, snap.Phase())
}

func TestStore_Seek(t *testing.T) {
	s := newTestStore(t, newFakeResolver())

	s.Seek(10)
	_, pending := s.RequestedSeek()
	assert.False(t, pending, "seek on an empty queue is ignored")

	require.NoError(t, wait(t, s.QueueSet(tracks("a"), 0)))
	s.OnDurationChange(120)

	s.Seek(45)
	pos, pending := s.RequestedSeek()
	require.True(t, pending)
	assert.Equal(t, 45.0, pos)

	s.Seek(500)
	pos, _ = s.RequestedSeek()
	assert.Equal(t, 120.0, pos)

	s.Seek(-3)
	pos, _ = s.RequestedSeek()
	assert.Equal(t, 0.0, pos)

	s.EndSeek(30)
	_, pending = s.RequestedSeek()
	assert.True(t, pending, "a different position must not clear the pending seek")

	s.EndSeek(0)
	_, pending = s.RequestedSeek()
	assert.False(t, pending)
}

func TestStore_SetVolume(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{name: "above one", input: 1.4, expected: 1.0},
		{name: "below zero", input: -0.5, expected: 0.0},
		{name: "in range", input: 0.3, expected: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, newFakeResolver())
			s.SetVolume(tt.input)
			assert.Equal(t, tt.expected, s.Volume())
		})
	}
}

func TestStore_StaleResolutionIsDropped(t *testing.T) {
	r := newFakeResolver()
	r.gate("a")
	s := newTestStore(t, r)

	var srcs []string
	s.Subscribe(FieldSrc, func(c Change) {
		srcs = append(srcs, c.State.Src)
	})

	loadA := s.QueueSet(tracks("a"), 0)
	loadB := s.QueueSet(tracks("b"), 0)

	require.NoError(t, wait(t, loadB))
	r.release("a")
	assert.ErrorIs(t, wait(t, loadA), ErrSuperseded)

	assert.Equal(t, "/media/b", s.Src())
	assert.Equal(t, []string{"/media/b"}, srcs)
	assert.False(t, s.IsError())
}

func TestStore_CommandsHonouredWhileResolving(t *testing.T) {
	r := newFakeResolver()
	r.gate("a")
	s := newTestStore(t, r)

	load := s.QueueSet(tracks("a", "b"), 0)
	s.Pause()
	assert.Equal(t, PhaseLoading, s.Phase())
	assert.Empty(t, s.Src())

	r.release("a")
	require.NoError(t, wait(t, load))

	assert.Equal(t, "/media/a", s.Src())
	assert.Equal(t, StatePaused, s.RequestedState())
}

func TestStore_ResolutionFailure(t *testing.T) {
	r := newFakeResolver()
	r.fail("a", errors.New("track not found"))
	s := newTestStore(t, r)

	load := s.QueueSet(tracks("a", "b"), 0)
	err := wait(t, load)

	require.Error(t, err)
	assert.True(t, s.IsError())
	assert.Equal(t, ErrorResolution, s.ErrorKind())
	assert.Contains(t, s.ErrorMessage(), "track not found")
	assert.Equal(t, StatePlaying, s.RequestedState(), "requested state is untouched")
	assert.Equal(t, StatePaused, s.ReportedState())
	assert.False(t, s.IsLoading())
	assert.Equal(t, PhaseError, s.Phase())

	require.NoError(t, wait(t, s.QueueSkip()))
	assert.False(t, s.IsError(), "a new load clears the error")
	assert.Equal(t, "/media/b", s.Src())
}

func TestStore_ResolutionRetryOfSameTrack(t *testing.T) {
	r := newFakeResolver()
	r.fail("a", errors.New("flaky"))
	s := newTestStore(t, r)

	require.Error(t, wait(t, s.QueueSet(tracks("a"), 0)))

	r.fail("a", nil)
	require.NoError(t, wait(t, s.QueueJump(0)))

	assert.False(t, s.IsError())
	assert.Equal(t, "/media/a", s.Src())
	assert.Equal(t, []string{"a", "a"}, r.Calls())
}

func TestStore_CloseCancelsResolution(t *testing.T) {
	r := newFakeResolver()
	r.gate("a")
	s, err := NewStore(context.Background(), Config{}, r, nil)
	require.NoError(t, err)

	load := s.QueueSet(tracks("a"), 0)
	s.Close()

	assert.ErrorIs(t, wait(t, load), ErrSuperseded)
	assert.Empty(t, s.Src())
}

func TestStore_Invariants(t *testing.T) {
	s := newTestStore(t, newFakeResolver())
	rng := rand.New(rand.NewSource(42))
	pool := tracks("a", "b", "c", "d", "e")

	commands := []func(){
		func() { s.QueueSet(pool[:rng.Intn(len(pool)+1)], rng.Intn(6)-1) },
		func() { s.QueuePush(pool[rng.Intn(len(pool))]) },
		func() { s.QueueRemove(rng.Intn(6) - 1) },
		func() { s.QueueSkip() },
		func() { s.QueuePrev() },
		func() { s.QueueJump(rng.Intn(6) - 1) },
		func() { s.Play() },
		func() { s.Pause() },
		func() { s.Stop() },
		func() { s.Seek(rng.Float64()*300 - 50) },
		func() { s.SetVolume(rng.Float64()*2 - 0.5) },
		func() { s.OnEnded() },
		func() { s.OnLoadStart() },
		func() { s.OnCanPlay() },
		func() { s.OnPlaying() },
		func() { s.OnPaused() },
		func() { s.OnError("boom") },
	}

	for i := 0; i < 2000; i++ {
		commands[rng.Intn(len(commands))]()

		snap := s.Snapshot()
		if len(snap.Queue) > 0 {
			require.GreaterOrEqual(t, snap.CurrentIndex, 0, "step %d", i)
			require.Less(t, snap.CurrentIndex, len(snap.Queue), "step %d", i)
		} else {
			require.NotEqual(t, StatePlaying, snap.RequestedState, "step %d", i)
		}
		require.GreaterOrEqual(t, snap.Volume, 0.0)
		require.LessOrEqual(t, snap.Volume, 1.0)
		if snap.RequestedSeek != nil && snap.Duration > 0 {
			require.LessOrEqual(t, *snap.RequestedSeek, snap.Duration)
		}
	}
}
