package client

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
)

// Reset signal levels. A higher level always wins.
const (
	signalClean int32 = iota
	signalHeaders
	signalRebuild
)

// HandlerFactory returns a fresh low-level [http.RoundTripper] each time
// the client rebuilds its transport.
type HandlerFactory func() (http.RoundTripper, error)

// Transport is the pooled network handle a [Client] sends requests through.
// It is rebuilt lazily when the client's handler factory changes; its
// default headers are re-applied when the client's headers change.
type Transport struct {
	client     *http.Client
	header     http.Header
	generation uint64
}

// HTTPClient returns the underlying [http.Client].
func (t *Transport) HTTPClient() *http.Client { return t.client }

// Header returns the default headers applied to every request sent
// through t. It may only be modified from [Hooks.OnTransportReady].
func (t *Transport) Header() http.Header { return t.header }

// Generation counts how many transports the owning client has built;
// the first transport is generation 1.
func (t *Transport) Generation() uint64 { return t.generation }

// do sends req after filling in the default headers it does not carry.
// Headers named in fallbacks were synthesized at compile time and give way
// to a default of the same name.
func (t *Transport) do(req *http.Request, fallbacks []string) (*http.Response, error) {
	for k, vs := range t.header {
		if _, ok := req.Header[k]; !ok || slices.Contains(fallbacks, k) {
			req.Header[k] = slices.Clone(vs)
		}
	}

	return t.client.Do(req)
}

func (t *Transport) close() {
	t.client.CloseIdleConnections()
}

// Acquire returns the current transport, first rebuilding it or
// re-applying headers if the configuration changed since the last call.
// The returned release func must be called once the response headers have
// been received; until then the transport cannot be reconfigured.
// Calling release more than once is safe.
func (c *Client) Acquire() (*Transport, func(), error) {
	for {
		if c.signal.Load() != signalClean {
			if err := c.rebuild(); err != nil {
				return nil, nil, err
			}
		}

		c.mu.RLock()

		// Close may have dropped the transport between rebuild and RLock.
		if t := c.transport; t != nil {
			return t, sync.OnceFunc(c.mu.RUnlock), nil
		}

		c.mu.RUnlock()
		c.raise(signalRebuild)
	}
}

// rebuild applies pending configuration under exclusive access. The signal
// is read and cleared while the write lock is held, so readers admitted
// after the swap wait for the rebuild to finish. A mutation racing with the
// rebuild raises the signal again and is picked up by the next Acquire.
func (c *Client) rebuild() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := c.signal.Swap(signalClean)
	if sig == signalClean && c.transport != nil {
		return nil
	}

	rebuilt := false
	if sig == signalRebuild || c.transport == nil {
		t, err := c.newTransport()
		if err != nil {
			c.raise(signalRebuild)
			return fmt.Errorf("building transport: %w", err)
		}

		if c.transport != nil {
			c.transport.close()
		}
		c.transport = t
		rebuilt = true
	}

	c.headers.ApplyTo(c.transport.header)

	if c.hooks.OnTransportReady != nil {
		c.hooks.OnTransportReady(c.transport, rebuilt)
	}

	c.metrics.Rebuilt(rebuilt)
	c.logger.Debug("transport configured", "rebuilt", rebuilt, "generation", c.transport.generation, "headers", c.headers.Len())

	return nil
}

// newTransport builds a transport from the handler factory, or from a clone
// of [http.DefaultTransport] when no factory is set.
func (c *Client) newTransport() (*Transport, error) {
	c.factoryMu.Lock()
	factory := c.factory
	c.factoryMu.Unlock()

	var rt http.RoundTripper
	switch {
	case factory != nil:
		var err error
		if rt, err = factory(); err != nil {
			return nil, fmt.Errorf("handler factory: %w", err)
		}
		if rt == nil {
			return nil, errors.New("handler factory returned nil")
		}
	case c.base.Transport != nil:
		rt = c.base.Transport
	default:
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	if l := c.limiter.Load(); l != nil {
		rt = l.Wrap(rt)
	}

	hc := &http.Client{
		Transport:     rt,
		Timeout:       c.base.Timeout,
		CheckRedirect: c.base.CheckRedirect,
		Jar:           c.base.Jar,
	}

	c.generation++

	return &Transport{
		client:     hc,
		header:     make(http.Header),
		generation: c.generation,
	}, nil
}

// raise lifts the signal to at least level.
func (c *Client) raise(level int32) {
	for {
		cur := c.signal.Load()
		if cur >= level || c.signal.CompareAndSwap(cur, level) {
			return
		}
	}
}

// SetHandlerFactory replaces the handler factory. The next [Client.Acquire]
// discards the current transport and builds a new one. A nil factory
// restores the default transport.
func (c *Client) SetHandlerFactory(f HandlerFactory) {
	c.factoryMu.Lock()
	c.factory = f
	c.factoryMu.Unlock()

	c.signal.Store(signalRebuild)
}

// Reset makes the next [Client.Acquire] re-apply the client headers
// without rebuilding the transport.
func (c *Client) Reset() {
	c.raise(signalHeaders)
}

// ResetTransport makes the next [Client.Acquire] discard the transport and
// build a new one.
func (c *Client) ResetTransport() {
	c.signal.Store(signalRebuild)
}

// Close waits for in-flight sends to finish and releases the transport's
// idle connections. The client stays usable; the next request builds a new
// transport.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil {
		c.transport.close()
		c.transport = nil
	}
	c.signal.Store(signalRebuild)
}
