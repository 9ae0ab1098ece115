package client

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cachedOnce struct {
	group singleflight.Group
	mu    sync.RWMutex
	body  []byte
	ok    bool
}

// CacheOnce wraps c, memoizing the named method. The payload is ignored for
// cache purposes, so the method must be idempotent and payload-free in
// effect (a "who am I" style call).
func CacheOnce(c Caller, method string) *OnceCaller {
	return &OnceCaller{inner: c, method: method}
}

// OnceCaller memoizes the first successful response of one idempotent
// method and serves every later call for it from memory. Other methods pass
// through untouched. Concurrent first calls are collapsed to a single
// upstream request.
type OnceCaller struct {
	inner  Caller
	method string
	state  cachedOnce
}

// Call serves the memoized method from cache after its first success.
func (o *OnceCaller) Call(ctx context.Context, method string, payload any) ([]byte, error) {
	if method != o.method {
		return o.inner.Call(ctx, method, payload)
	}

	o.state.mu.RLock()
	if o.state.ok {
		body := cloneBody(o.state.body)
		o.state.mu.RUnlock()
		return body, nil
	}
	o.state.mu.RUnlock()

	v, err, _ := o.state.group.Do(method, func() (any, error) {
		body, err := o.inner.Call(ctx, method, payload)
		if err != nil {
			return nil, err
		}
		o.state.mu.Lock()
		o.state.body = cloneBody(body)
		o.state.ok = true
		o.state.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneBody(v.([]byte)), nil
}

func cloneBody(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
