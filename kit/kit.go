// Package kit provides the transport-neutral endpoint abstraction shared by
// the scribe HTTP and MCP surfaces. An Endpoint is a plain function; audit
// and auth concerns are layered on as Middleware so every transport goes
// through the same pipeline.
package kit

import "context"

// Endpoint is a transport-agnostic request handler.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with additional behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so that the first argument is the outermost.
//
//	Chain(a, b, c)(e)  ==  a(b(c(e)))
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}
