package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hazyhaar/scribe/kit"
)

// Identified lets request types expose the file identity they touch so the
// middleware can record it without knowing concrete types.
type Identified interface {
	FileIdentity() (root, path string)
}

// Middleware returns a kit.Middleware that emits one audit entry per call,
// success or failure. The entry is queued asynchronously so a slow audit
// database never blocks the pipeline; failures are still recorded because
// the endpoint's error is captured before it propagates.
func Middleware(logger *SQLiteLogger, action string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			e := &Entry{
				AgentID:    kit.GetAgentID(ctx),
				RequestID:  kit.GetRequestID(ctx),
				Transport:  kit.GetTransport(ctx),
				Action:     action,
				DurationMs: time.Since(start).Milliseconds(),
			}
			if id, ok := req.(Identified); ok {
				e.Root, e.Path = id.FileIdentity()
			}
			if b, jerr := json.Marshal(req); jerr == nil {
				e.Parameters = string(b)
			}
			if err != nil {
				e.Error = err.Error()
			} else if b, jerr := json.Marshal(resp); jerr == nil {
				e.Result = string(b)
			}
			logger.LogAsync(e)

			return resp, err
		}
	}
}
