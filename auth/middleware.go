package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hazyhaar/scribe/kit"
)

type claimsKey struct{}

// Verifier checks bearer credentials. Static secret equality is tried
// first, then session-token validation.
type Verifier struct {
	staticSecret string // raw shared secret presented by agents
	signingKey   []byte // HS256 key for session tokens
	// StaticAgentID is the agent identity attributed to static-secret
	// callers. Defaults to "agent".
	StaticAgentID string
}

// NewVerifier builds a Verifier from the operator secret. The same secret
// authenticates static bearers and signs session tokens.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		staticSecret:  secret,
		signingKey:    DeriveSecret(secret),
		StaticAgentID: "agent",
	}
}

// SigningKey exposes the derived HS256 key for session minting.
func (v *Verifier) SigningKey() []byte { return v.signingKey }

// Verify resolves a bearer value to an agent ID, or ErrBadCredential.
func (v *Verifier) Verify(bearer string) (string, error) {
	if bearer == "" {
		return "", ErrBadCredential
	}
	if EqualStatic(v.staticSecret, bearer) {
		return v.StaticAgentID, nil
	}
	claims, err := ValidateSession(v.signingKey, bearer)
	if err != nil {
		return "", ErrBadCredential
	}
	return claims.AgentID, nil
}

// Middleware extracts the Authorization Bearer header and, if it verifies,
// injects the agent identity into the request context. Missing or invalid
// credentials are silently ignored; use Require to enforce.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := bearerToken(r)
			if bearer == "" {
				next.ServeHTTP(w, r)
				return
			}
			agentID, err := v.Verify(bearer)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			ctx = context.WithValue(ctx, claimsKey{}, agentID)
			ctx = kit.WithAgentID(ctx, agentID)
			ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects unauthenticated requests with a 401 JSON envelope.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AgentID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AgentID returns the authenticated agent identity, or "" if absent.
func AgentID(ctx context.Context) string {
	v, _ := ctx.Value(claimsKey{}).(string)
	return v
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
