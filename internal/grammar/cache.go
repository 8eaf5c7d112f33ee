package grammar

import (
	"context"
	"fmt"
	"sync"

	"braces.dev/errtrace"
	"golang.org/x/sync/singleflight"
)

// State is the load state of a grammar.
type State int

const (
	// Unloaded grammars have not been requested yet.
	Unloaded State = iota

	// Loading grammars have a load in flight.
	Loading

	// Loaded grammars are available to the engine.
	Loaded

	// Failed grammars could not be loaded.
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// GrammarLoader loads a single grammar by canonical name.
type GrammarLoader interface {
	Load(ctx context.Context, name string) error
}

var _ GrammarLoader = (*Loader)(nil)

// Cache records the load state of every requested grammar
// and makes sure that a grammar is loaded at most once at a time.
type Cache struct {
	// Loader loads grammars on a cache miss.
	Loader GrammarLoader // required

	// Preloaded reports whether the engine already has a grammar.
	// Such grammars are marked as loaded without calling Loader.
	Preloaded func(name string) bool

	// RetryFailed allows a grammar that failed to load
	// to be loaded again by a later request.
	// By default, the failure is permanent.
	RetryFailed bool

	Metrics *Metrics

	flight singleflight.Group

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	state State
	err   error // set if state == Failed
}

// entry returns the entry for a name, creating it if necessary.
// mu must be held.
func (c *Cache) entry(name string) *cacheEntry {
	if c.entries == nil {
		c.entries = make(map[string]*cacheEntry)
	}
	e, ok := c.entries[name]
	if !ok {
		e = &cacheEntry{state: Unloaded}
		c.entries[name] = e
	}
	return e
}

// State reports the load state of a grammar.
func (c *Cache) State(name string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[name]; ok {
		return e.state
	}
	return Unloaded
}

// settled checks whether a request for name can be answered
// without loading anything.
func (c *Cache) settled(name string) (done bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(name)
	switch e.state {
	case Loaded:
		c.Metrics.request(requestLoaded)
		return true, nil
	case Failed:
		if !c.RetryFailed {
			c.Metrics.request(requestFailed)
			return true, e.err
		}
	case Unloaded:
		if c.Preloaded != nil && c.Preloaded(name) {
			e.state = Loaded
			c.Metrics.request(requestBuiltin)
			return true, nil
		}
	}
	return false, nil
}

// EnsureLoaded makes sure that the named grammar is loaded.
//
// Requests for a grammar that is already loading
// wait for that load instead of starting another.
// All requests that share a load receive the same error.
//
// Loads are not canceled.
// If ctx ends first, EnsureLoaded stops waiting and returns its error,
// but the load carries on for the benefit of other requests.
func (c *Cache) EnsureLoaded(ctx context.Context, name string) error {
	if done, err := c.settled(name); done {
		return errtrace.Wrap(err)
	}

	c.Metrics.request(requestLoad)
	ch := c.flight.DoChan(name, func() (any, error) {
		return nil, c.load(context.WithoutCancel(ctx), name)
	})

	select {
	case res := <-ch:
		return errtrace.Wrap(res.Err)
	case <-ctx.Done():
		return errtrace.Wrap(ctx.Err())
	}
}

// load runs inside the single flight for name.
func (c *Cache) load(ctx context.Context, name string) error {
	c.mu.Lock()
	e := c.entry(name)
	switch e.state {
	case Loaded:
		// A load finished between settled and DoChan.
		c.mu.Unlock()
		return nil
	case Failed:
		if !c.RetryFailed {
			err := e.err
			c.mu.Unlock()
			return err
		}
	}
	e.state = Loading
	e.err = nil
	c.mu.Unlock()

	err := c.Loader.Load(ctx, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		e.state = Failed
		e.err = err
	} else {
		e.state = Loaded
	}
	return err
}
