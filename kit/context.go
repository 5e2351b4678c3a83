package kit

import "context"

type contextKey string

const (
	// AgentIDKey identifies the authenticated agent (bearer subject).
	AgentIDKey contextKey = "kit_agent_id"
	// TransportKey records which surface the request arrived on: "http", "mcp".
	TransportKey contextKey = "kit_transport"
	// RequestIDKey carries the per-request ID minted at the edge.
	RequestIDKey contextKey = "kit_request_id"
	// TraceIDKey carries the shield trace ID for log correlation.
	TraceIDKey contextKey = "kit_trace_id"
	// RemoteAddrKey carries the caller's network address, when known.
	RemoteAddrKey contextKey = "kit_remote_addr"
)

func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, AgentIDKey, id)
}
func GetAgentID(ctx context.Context) string {
	v, _ := ctx.Value(AgentIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}
