// CLAUDE:SUMMARY Entry point for the scribe HTTP/MCP service — chi router, bearer auth, audit DB, staged patch pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/scribe/audit"
	"github.com/hazyhaar/scribe/auth"
	"github.com/hazyhaar/scribe/dbopen"
	"github.com/hazyhaar/scribe/editkeeper"
	"github.com/hazyhaar/scribe/shield"
)

const version = "1.0.0"

func main() {
	port := env("PORT", "8090")
	secret := os.Getenv("SCRIBE_SECRET")
	if secret == "" {
		slog.Error("SCRIBE_SECRET is required")
		os.Exit(1)
	}
	auditPath := env("AUDIT_DB", "db/audit.db")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Keeper config: YAML file if given, environment roots otherwise.
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Audit DB.
	auditDB, err := dbopen.Open(auditPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("audit db", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	auditLogger := audit.NewSQLiteLogger(auditDB, audit.WithLogger(logger))
	if err := auditLogger.Init(); err != nil {
		slog.Error("audit init", "error", err)
		os.Exit(1)
	}
	defer auditLogger.Close()

	// Keeper.
	keeper, err := editkeeper.New(cfg, logger, editkeeper.WithAuditLogger(auditLogger))
	if err != nil {
		slog.Error("editkeeper", "error", err)
		os.Exit(1)
	}
	slog.Info("editkeeper ready", "roots", keeper.Roots())

	verifier := auth.NewVerifier(secret)

	// Optional MCP over stdio: the process serves tool calls on
	// stdin/stdout and exits when the transport closes.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "scribe",
			Version: version,
		}, nil)
		keeper.RegisterMCP(mcpSrv)
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("mcp stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.APIStack(2 * int64(cfg.MaxPatchBytes)) {
		r.Use(mw)
	}
	r.Use(auth.Middleware(verifier)) // soft: resolves identity, never rejects

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	// Session minting: trade the static secret for an expiring token.
	r.Post("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Secret     string `json:"secret"`
			AgentID    string `json:"agent_id"`
			TTLSeconds int    `json:"ttl_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid_json"})
			return
		}
		if !auth.EqualStatic(secret, req.Secret) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
			return
		}
		agentID := req.AgentID
		if agentID == "" {
			agentID = "agent"
		}
		ttl := time.Duration(req.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = time.Hour
		}
		token, err := auth.MintSession(verifier.SigningKey(), agentID, ttl)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal_error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true, "token": token, "agent_id": agentID, "expires_in": int(ttl.Seconds()),
		})
	})

	// The edit pipeline requires an authenticated agent.
	r.Group(func(r chi.Router) {
		r.Use(auth.Require)
		r.Mount("/api", keeper.Routes())
	})

	// Audit review is operator-only: basic auth against a bcrypt hash.
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		adminUser := env("ADMIN_USER", "admin")
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(adminUser, hash))
			r.Get("/api/audit", auditHandler(auditLogger))
		})
	} else {
		slog.Warn("ADMIN_PASSWORD_HASH not set; /api/audit disabled")
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("scribe listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
}

// loadConfig builds the keeper config from CONFIG (YAML) or SCRIBE_ROOTS
// ("key=dir,key2=dir2").
func loadConfig() (*editkeeper.Config, error) {
	if path := os.Getenv("CONFIG"); path != "" {
		return editkeeper.LoadConfigFile(path)
	}
	roots := map[string]string{}
	for _, pair := range strings.Split(env("SCRIBE_ROOTS", "ws=data"), ",") {
		key, dir, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" || dir == "" {
			return nil, errors.New("SCRIBE_ROOTS entries must be key=dir")
		}
		roots[key] = dir
	}
	return &editkeeper.Config{Roots: roots}, nil
}

func requireAdmin(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="scribe"`)
				writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func auditHandler(logger *audit.SQLiteLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		entries, err := logger.Recent(r.Context(), audit.Filter{
			Action: q.Get("action"),
			Status: q.Get("status"),
			Limit:  limit,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal_error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": entries})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
