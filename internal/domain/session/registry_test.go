package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	p, err := cache.NewProvider(func() (any, error) { return map[string]int{}, nil })
	require.NoError(t, err)
	return NewRegistry(p, nil)
}

func TestGetOrCreateIsLazyAndStable(t *testing.T) {
	r := newRegistry(t)
	id := uuid.New()

	_, ok := r.Lookup(id)
	assert.False(t, ok)

	s1, created := r.LoadOrCreate(id)
	assert.True(t, created)
	s2, created := r.LoadOrCreate(id)
	assert.False(t, created)
	assert.Same(t, s1, s2)
	assert.Same(t, s1, r.GetOrCreate(id))
	assert.NotNil(t, s1.Cache().Value())
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentGetOrCreateYieldsOneSession(t *testing.T) {
	r := newRegistry(t)
	id := uuid.New()

	var wg sync.WaitGroup
	got := make([]*Session, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.GetOrCreate(id)
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRemoveClosesSession(t *testing.T) {
	r := newRegistry(t)
	id := uuid.New()
	s := r.GetOrCreate(id)

	removed, ok := r.Remove(id)
	require.True(t, ok)
	assert.Same(t, s, removed)
	assert.True(t, s.Closed())

	_, ok = r.Remove(id)
	assert.False(t, ok)

	fresh := r.GetOrCreate(id)
	assert.NotSame(t, s, fresh)
	assert.False(t, fresh.Closed())
}

func TestIfAbsent(t *testing.T) {
	r := newRegistry(t)
	id := uuid.New()
	r.GetOrCreate(id)

	ran := false
	assert.False(t, r.IfAbsent(id, func() { ran = true }))
	assert.False(t, ran)

	r.Remove(id)
	assert.True(t, r.IfAbsent(id, func() { ran = true }))
	assert.True(t, ran)
}

func TestIfAbsentHoldsOffRecreation(t *testing.T) {
	r := newRegistry(t)
	id := uuid.New()

	created := make(chan struct{})
	r.IfAbsent(id, func() {
		go func() {
			r.GetOrCreate(id)
			close(created)
		}()
		select {
		case <-created:
			t.Error("session recreated while the shard was held")
		case <-time.After(20 * time.Millisecond):
		}
	})
	<-created
	_, ok := r.Lookup(id)
	assert.True(t, ok)
}

func TestRemoveWaitsForInFlightInteraction(t *testing.T) {
	r := newRegistry(t)
	id := uuid.New()
	s := r.GetOrCreate(id)

	s.Lock()
	done := make(chan struct{})
	go func() {
		r.Remove(id)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("remove must wait for the interaction lock")
	default:
	}
	assert.False(t, s.Closed())
	s.Unlock()
	<-done
	assert.True(t, s.Closed())
}

func TestClear(t *testing.T) {
	r := newRegistry(t)
	ids := []types.Identity{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		r.GetOrCreate(id)
	}
	require.Len(t, r.List(), 3)

	removed := r.Clear()
	assert.Len(t, removed, 3)
	assert.Equal(t, 0, r.Len())
	for _, s := range removed {
		assert.True(t, s.Closed())
	}
}

type failingCaches struct{}

func (failingCaches) New() (*cache.Instance, error) {
	p, _ := cache.NewProvider(nil)
	in, _ := p.New()
	return in, errors.New("factory broke")
}

func TestCacheFailureReportedButSessionCreated(t *testing.T) {
	var reported []types.Identity
	r := NewRegistry(failingCaches{}, func(id types.Identity, err error) {
		reported = append(reported, id)
	})
	id := uuid.New()

	s := r.GetOrCreate(id)
	require.NotNil(t, s)
	require.NotNil(t, s.Cache())
	assert.Equal(t, []types.Identity{id}, reported)
}
