package grammar

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingLoader is a GrammarLoader that blocks until released.
type blockingLoader struct {
	release chan struct{}
	started chan string // receives the name of each load
	err     error

	mu    sync.Mutex
	calls map[string]int
}

func newBlockingLoader() *blockingLoader {
	return &blockingLoader{
		release: make(chan struct{}),
		started: make(chan string, 100),
		calls:   make(map[string]int),
	}
}

func (l *blockingLoader) Load(_ context.Context, name string) error {
	l.mu.Lock()
	l.calls[name]++
	l.mu.Unlock()

	l.started <- name
	<-l.release
	return l.err
}

func (l *blockingLoader) Calls(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[name]
}

// funcLoader adapts a function into a GrammarLoader.
type funcLoader func(ctx context.Context, name string) error

func (f funcLoader) Load(ctx context.Context, name string) error {
	return f(ctx, name)
}

func TestCache_coalesces(t *testing.T) {
	t.Parallel()

	loader := newBlockingLoader()
	cache := &Cache{Loader: loader}
	ctx := context.Background()

	const N = 20
	errs := make(chan error, N)
	for range N {
		go func() {
			errs <- cache.EnsureLoaded(ctx, "python")
		}()
	}

	assert.Equal(t, "python", <-loader.started)
	assert.Equal(t, Loading, cache.State("python"))

	// Give the other requests time to join the load.
	time.Sleep(50 * time.Millisecond)
	close(loader.release)

	for range N {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, 1, loader.Calls("python"))
	assert.Equal(t, Loaded, cache.State("python"))
}

func TestCache_loadedIsFinal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	cache := &Cache{
		Loader: funcLoader(func(context.Context, string) error {
			calls.Add(1)
			return nil
		}),
	}
	ctx := context.Background()

	assert.Equal(t, Unloaded, cache.State("rust"))
	require.NoError(t, cache.EnsureLoaded(ctx, "rust"))
	for range 5 {
		require.NoError(t, cache.EnsureLoaded(ctx, "rust"))
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Loaded, cache.State("rust"))
}

func TestCache_distinctNames(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := make(map[string]int)
	cache := &Cache{
		Loader: funcLoader(func(_ context.Context, name string) error {
			mu.Lock()
			defer mu.Unlock()
			calls[name]++
			return nil
		}),
	}

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.EnsureLoaded(context.Background(), name))
		}()
	}
	wg.Wait()

	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, 1, calls[name], name)
	}
}

func TestCache_preloaded(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(prometheus.NewRegistry())
	cache := &Cache{
		Loader: funcLoader(func(context.Context, string) error {
			t.Error("loader must not be called")
			return nil
		}),
		Preloaded: func(name string) bool { return name == "go" },
		Metrics:   metrics,
	}

	require.NoError(t, cache.EnsureLoaded(context.Background(), "go"))
	assert.Equal(t, Loaded, cache.State("go"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("builtin")))

	require.NoError(t, cache.EnsureLoaded(context.Background(), "go"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("loaded")))
}

func TestCache_failure(t *testing.T) {
	t.Parallel()

	giveErr := &RemoteLoadError{Name: "queryql", Err: ErrNotFound}

	t.Run("shared by coalesced requests", func(t *testing.T) {
		t.Parallel()

		loader := newBlockingLoader()
		loader.err = giveErr
		cache := &Cache{Loader: loader}

		const N = 5
		errs := make(chan error, N)
		for range N {
			go func() {
				errs <- cache.EnsureLoaded(context.Background(), "queryql")
			}()
		}
		<-loader.started
		time.Sleep(50 * time.Millisecond)
		close(loader.release)

		for range N {
			err := <-errs
			var rerr *RemoteLoadError
			require.ErrorAs(t, err, &rerr)
			assert.Same(t, giveErr, rerr)
		}
		assert.Equal(t, 1, loader.Calls("queryql"))
		assert.Equal(t, Failed, cache.State("queryql"))
	})

	t.Run("permanent by default", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		cache := &Cache{
			Loader: funcLoader(func(context.Context, string) error {
				calls.Add(1)
				return giveErr
			}),
		}

		for range 3 {
			err := cache.EnsureLoaded(context.Background(), "queryql")
			assert.ErrorIs(t, err, ErrNotFound)
		}
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, Failed, cache.State("queryql"))
	})

	t.Run("retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		cache := &Cache{
			Loader: funcLoader(func(context.Context, string) error {
				if calls.Add(1) == 1 {
					return giveErr
				}
				return nil
			}),
			RetryFailed: true,
		}

		ctx := context.Background()
		assert.Error(t, cache.EnsureLoaded(ctx, "queryql"))
		assert.Equal(t, Failed, cache.State("queryql"))

		assert.NoError(t, cache.EnsureLoaded(ctx, "queryql"))
		assert.Equal(t, Loaded, cache.State("queryql"))

		assert.NoError(t, cache.EnsureLoaded(ctx, "queryql"))
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestCache_callerCanceled(t *testing.T) {
	t.Parallel()

	loader := newBlockingLoader()
	cache := &Cache{Loader: loader}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- cache.EnsureLoaded(ctx, "python")
	}()
	<-loader.started

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	// The load carries on and others can still wait for it.
	other := make(chan error, 1)
	go func() {
		other <- cache.EnsureLoaded(context.Background(), "python")
	}()
	time.Sleep(20 * time.Millisecond)
	close(loader.release)

	assert.NoError(t, <-other)
	assert.Equal(t, 1, loader.Calls("python"))
	assert.Equal(t, Loaded, cache.State("python"))
}

func TestCache_loadContextNotCanceled(t *testing.T) {
	t.Parallel()

	var loadCtxErr error
	cache := &Cache{
		Loader: funcLoader(func(ctx context.Context, _ string) error {
			loadCtxErr = ctx.Err()
			return nil
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Already-canceled callers may or may not see the result,
	// but the load itself never sees the cancellation.
	_ = cache.EnsureLoaded(ctx, "python")
	assert.Eventually(t, func() bool {
		return cache.State("python") == Loaded
	}, time.Second, time.Millisecond)
	assert.NoError(t, loadCtxErr)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unloaded", Unloaded.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "Tier(0)", Tier(0).String())
}
