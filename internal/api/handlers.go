package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/settings"
)

// ─── Rename ─────────────────────────────────────────────────────────────────

type renameRequest struct {
	Paths []string `json:"paths"`
}

// handleRename runs one batch. With ?stream=true the results are sent as
// Server-Sent Events as each file finishes, followed by a summary event.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths must not be empty")
		return
	}

	if stream, _ := strconv.ParseBool(r.URL.Query().Get("stream")); stream {
		s.streamRename(w, r, paths)
		return
	}

	sum, err := s.renamer.ProcessBatch(r.Context(), paths, nil)
	if errors.Is(err, domain.ErrBatchInProgress) {
		writeError(w, http.StatusConflict, "Files are being processed. Please wait until done.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) streamRename(w http.ResponseWriter, r *http.Request, paths []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	started := false
	start := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		started = true
	}
	send := func(event string, v any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	// onResult calls are serialized by the renamer.
	sum, err := s.renamer.ProcessBatch(r.Context(), paths, func(res domain.RenameResult) {
		if !started {
			start()
		}
		send("result", res)
	})
	if err != nil {
		if started {
			send("error", map[string]string{"message": err.Error()})
			return
		}
		if errors.Is(err, domain.ErrBatchInProgress) {
			writeError(w, http.StatusConflict, "Files are being processed. Please wait until done.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !started {
		start()
	}
	send("summary", sum)
}

// ─── Verify ─────────────────────────────────────────────────────────────────

type verifyRequest struct {
	Provider string `json:"provider"`
}

type verifyResponse struct {
	OK       bool              `json:"ok"`
	Provider domain.ProviderID `json:"provider"`
	Model    string            `json:"model"`
	Kind     string            `json:"kind,omitempty"`
	Message  string            `json:"message"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	}

	var (
		cfg domain.ProviderConfig
		err error
	)
	if req.Provider == "" {
		cfg, err = settings.ActiveProvider(s.settings)
	} else {
		var id domain.ProviderID
		if id, err = domain.ParseProviderID(req.Provider); err == nil {
			cfg = settings.ProviderConfigFor(s.settings, id)
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := verifyResponse{Provider: cfg.ID, Model: cfg.Model}
	if err := s.verifier.VerifyCredentials(r.Context(), cfg); err != nil {
		resp.Kind = domain.KindOf(err).String()
		resp.Message = domain.UserMessage(err)
	} else {
		resp.OK = true
		resp.Message = "API key verified"
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Settings ───────────────────────────────────────────────────────────────

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	snap, err := s.settings.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, maskSecrets(snap))
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	known := make(map[string]bool)
	for _, k := range settings.Keys() {
		known[k] = true
	}
	for k, v := range values {
		if !known[k] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown setting %q", k))
			return
		}
		if k == settings.KeyLLMProvider {
			if _, err := domain.ParseProviderID(v); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
	}

	if err := s.settings.Update(values); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[api] settings updated: %d key(s)", len(values))

	snap, err := s.settings.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, maskSecrets(snap))
}

func maskSecrets(snap map[string]string) map[string]string {
	out := make(map[string]string, len(snap))
	for k, v := range snap {
		if settings.IsSecretKey(k) {
			v = domain.MaskSecret(v)
		}
		out[k] = v
	}
	return out
}

// ─── Providers ──────────────────────────────────────────────────────────────

type providerInfo struct {
	ID             domain.ProviderID `json:"id"`
	Name           string            `json:"name"`
	DefaultBaseURL string            `json:"default_base_url"`
	DefaultModel   string            `json:"default_model"`
	Local          bool              `json:"local"`
	Configured     bool              `json:"configured"`
	Active         bool              `json:"active"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	active, _ := settings.ActiveProviderID(s.settings)
	out := make([]providerInfo, 0, len(domain.AllProviders))
	for _, id := range domain.AllProviders {
		cfg := settings.ProviderConfigFor(s.settings, id)
		out = append(out, providerInfo{
			ID:             id,
			Name:           id.DisplayName(),
			DefaultBaseURL: id.DefaultBaseURL(),
			DefaultModel:   id.DefaultModel(),
			Local:          id.IsLocal(),
			Configured:     cfg.HasCredentials(),
			Active:         id == active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

// ─── History ────────────────────────────────────────────────────────────────

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "rename history is disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	var (
		entries []domain.HistoryEntry
		err     error
	)
	if batch := strings.TrimSpace(r.URL.Query().Get("batch")); batch != "" {
		entries, err = s.history.ListBatch(r.Context(), batch)
	} else {
		entries, err = s.history.ListRenames(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "rename history is disabled")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid history id")
		return
	}

	entry, err := s.renamer.Undo(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrHistoryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotUndoable):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, entry)
	}
}
