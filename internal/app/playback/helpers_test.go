package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// fakeResolver resolves "x" to "/media/x". Gated tracks block until released.
type fakeResolver struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
	gates map[string]chan struct{}
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

func (r *fakeResolver) gate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates[id] = make(chan struct{})
}

func (r *fakeResolver) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gates[id]; ok {
		close(g)
		delete(r.gates, id)
	}
}

func (r *fakeResolver) fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[id] = err
}

func (r *fakeResolver) Resolve(ctx context.Context, trackID string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, trackID)
	gate := r.gates[trackID]
	err := r.errs[trackID]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "/media/" + trackID, nil
}

func (r *fakeResolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// memoryPersister keeps the last saved state in memory.
type memoryPersister struct {
	mu    sync.Mutex
	state *PersistedState
	saves int
}

func (p *memoryPersister) Load(ctx context.Context) (*PersistedState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil, nil
	}
	s := *p.state
	return &s, nil
}

func (p *memoryPersister) Save(ctx context.Context, state PersistedState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = &state
	p.saves++
	return nil
}

func (p *memoryPersister) Last() *PersistedState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func newTestStore(t *testing.T, r *fakeResolver) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), Config{DefaultVolume: 0.5, ResolveTimeout: time.Second}, r, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func wait(t *testing.T, load *Load) error {
	t.Helper()
	require.NotNil(t, load)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return load.Wait(ctx)
}

func tracks(ids ...string) []track.Track {
	out := make([]track.Track, len(ids))
	for i, id := range ids {
		out[i] = track.Track{ID: id, Name: "Track " + id, Duration: 2 * time.Minute}
	}
	return out
}

func currentID(s *Store) string {
	e, ok := s.CurrentEntry()
	if !ok {
		return ""
	}
	return e.Track.ID
}

func queueIDs(s *Store) []string {
	var ids []string
	for _, e := range s.Queue() {
		ids = append(ids, e.Track.ID)
	}
	return ids
}
