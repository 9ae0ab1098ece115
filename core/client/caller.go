// Package client provides composable adaptors around an outbound Caller:
// rate limiting, one-call memoization, tracing and fire-and-forget sending.
// Adaptors wrap any Caller and implement Caller themselves, so they stack in
// any order.
package client

import "context"

// Caller executes a single named remote call and returns the raw response
// body. Implementations must be safe for concurrent use.
type Caller interface {
	Call(ctx context.Context, method string, payload any) ([]byte, error)
}

// CallerFunc adapts a plain function to the Caller interface.
type CallerFunc func(ctx context.Context, method string, payload any) ([]byte, error)

// Call invokes fn.
func (fn CallerFunc) Call(ctx context.Context, method string, payload any) ([]byte, error) {
	return fn(ctx, method, payload)
}
