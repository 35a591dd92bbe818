package detail

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLoader(f Fetcher, clock *fakeClock) *Loader {
	return NewLoader(f, WithLogger(logger.Nop()), WithClock(clock.Now))
}

func TestResolve_Priority(t *testing.T) {
	ev := &domain.Event{ID: "e1"}
	boom := errors.New("boom")

	assert.Equal(t, Loading, Resolve("e1", true, boom, ev).State)
	assert.Equal(t, Error, Resolve("e1", false, boom, ev).State)
	assert.Equal(t, NotFound, Resolve("e1", false, nil, nil).State)
	assert.Equal(t, Ready, Resolve("e1", false, nil, ev).State)
}

func TestLoader_Ready(t *testing.T) {
	f := new(MockFetcher)
	ev := &domain.Event{ID: "e1"}
	f.On("GetEvent", mock.Anything, "e1").Return(ev, nil).Once()

	l := newLoader(f, &fakeClock{now: time.Now()})
	v := l.Load(context.Background(), "e1")

	assert.Equal(t, Ready, v.State)
	assert.Same(t, ev, v.Event)
	got, err := v.EventOrError()
	require.NoError(t, err)
	assert.Same(t, ev, got)
	f.AssertExpectations(t)
}

func TestLoader_EmptyBodyIsNotFound(t *testing.T) {
	f := new(MockFetcher)
	f.On("GetEvent", mock.Anything, "missing").Return(nil, nil).Once()

	l := newLoader(f, &fakeClock{now: time.Now()})
	v := l.Load(context.Background(), "missing")

	assert.Equal(t, NotFound, v.State)
	assert.NoError(t, v.Err)
	_, err := v.EventOrError()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoader_ErrorIsNotCached(t *testing.T) {
	f := new(MockFetcher)
	boom := errors.New("boom")
	f.On("GetEvent", mock.Anything, "e1").Return(nil, boom).Once()
	f.On("GetEvent", mock.Anything, "e1").Return(&domain.Event{ID: "e1"}, nil).Once()

	l := newLoader(f, &fakeClock{now: time.Now()})

	v := l.Load(context.Background(), "e1")
	assert.Equal(t, Error, v.State)
	assert.ErrorIs(t, v.Err, boom)
	assert.Equal(t, Error, l.View("e1").State)

	v = l.Load(context.Background(), "e1")
	assert.Equal(t, Ready, v.State)
	f.AssertExpectations(t)
}

func TestLoader_StaleTime(t *testing.T) {
	f := new(MockFetcher)
	f.On("GetEvent", mock.Anything, "e1").Return(&domain.Event{ID: "e1"}, nil).Twice()

	clock := &fakeClock{now: time.Now()}
	l := newLoader(f, clock)

	l.Load(context.Background(), "e1")
	clock.Advance(4 * time.Minute)
	l.Load(context.Background(), "e1")
	f.AssertNumberOfCalls(t, "GetEvent", 1)

	clock.Advance(2 * time.Minute)
	l.Load(context.Background(), "e1")
	f.AssertNumberOfCalls(t, "GetEvent", 2)
}

func TestLoader_Invalidate(t *testing.T) {
	f := new(MockFetcher)
	f.On("GetEvent", mock.Anything, "e1").Return(&domain.Event{ID: "e1"}, nil)

	l := newLoader(f, &fakeClock{now: time.Now()})
	l.Load(context.Background(), "e1")
	l.Invalidate("e1")
	assert.Equal(t, Loading, l.View("e1").State)

	l.Load(context.Background(), "e1")
	l.InvalidateAll()
	l.Load(context.Background(), "e1")
	f.AssertNumberOfCalls(t, "GetEvent", 3)
}

type blockingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingFetcher) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	b.calls.Add(1)
	<-b.release
	return &domain.Event{ID: id}, nil
}

func TestLoader_SharesConcurrentFetches(t *testing.T) {
	f := &blockingFetcher{release: make(chan struct{})}
	l := newLoader(f, &fakeClock{now: time.Now()})

	var wg sync.WaitGroup
	views := make([]View, 4)
	for i := range views {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			views[i] = l.Load(context.Background(), "e1")
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Loading, l.View("e1").State)
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, v := range views {
		assert.Equal(t, Ready, v.State)
	}
}

func TestLoader_CallerCancel(t *testing.T) {
	f := &blockingFetcher{release: make(chan struct{})}
	l := newLoader(f, &fakeClock{now: time.Now()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan View, 1)
	go func() { done <- l.Load(ctx, "e1") }()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	v := <-done
	assert.Equal(t, Error, v.State)
	assert.ErrorIs(t, v.Err, context.Canceled)

	close(f.release)
	require.Eventually(t, func() bool { return l.View("e1").State == Ready }, time.Second, time.Millisecond)
}
