package editkeeper

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the keeper's HTTP surface. All handlers speak the JSON
// envelope: successes carry ok=true payloads, failures
// {ok:false, error, hint?, matches?, eol?} with the Kind's status code.
func (k *Keeper) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/propose", k.handlePropose)
	r.Post("/apply", k.handleApply)
	r.Post("/apply/batch", k.handleApplyBatch)
	r.Get("/file", k.handleFile)
	r.Get("/roots", k.handleRoots)
	return r
}

type errorEnvelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	Matches int    `json:"matches,omitempty"`
	EOL     string `json:"eol,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	e := AsError(err)
	writeJSON(w, e.HTTPStatus(), errorEnvelope{
		Error:   string(e.Kind),
		Hint:    e.Hint,
		Matches: e.Matches,
		EOL:     e.EOL,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, Ef(KindPayloadTooLarge, "request body exceeds %d bytes", maxErr.Limit))
		} else {
			writeError(w, E(KindInvalidJSON, "request body is not valid JSON"))
		}
		return false
	}
	return true
}

func (k *Keeper) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req ProposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := k.ProposeEndpoint()(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (k *Keeper) handleApply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := k.ApplyEndpoint()(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (k *Keeper) handleApplyBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchApplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := k.BatchApplyEndpoint()(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (k *Keeper) handleFile(w http.ResponseWriter, r *http.Request) {
	req := &ReadRequest{
		Root: r.URL.Query().Get("root"),
		Path: r.URL.Query().Get("path"),
	}
	res, err := k.ReadEndpoint()(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (k *Keeper) handleRoots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"roots": k.Roots(),
	})
}
