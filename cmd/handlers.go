package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/assist"
	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/store"
)

const (
	// maxBodyBytes bounds request bodies.
	maxBodyBytes = 1 << 20
	// maxBatchClients caps a single task batch.
	maxBatchClients = 500
)

var errTooManyClients = fmt.Errorf("at most %d client_ids per batch", maxBatchClients)

type handlers struct {
	env *appEnv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a store error to a response. Details are logged, not
// returned.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("store request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "storage error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.env.Store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check: store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	resp := map[string]any{"status": "ok"}
	if h.env.Registry != nil {
		resp["providers_enabled"] = h.env.Registry.EnabledCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

type providerStatus struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Model    string `json:"model,omitempty"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
	Circuit  string `json:"circuit,omitempty"`
}

func (h *handlers) listProviders(w http.ResponseWriter, _ *http.Request) {
	out := []providerStatus{}
	if h.env.Registry == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}
	var states map[string]string
	if h.env.Invoker != nil {
		states = make(map[string]string)
		for name, st := range h.env.Invoker.BreakerStates() {
			states[name] = st.String()
		}
	}
	for _, info := range h.env.Registry.Describe() {
		out = append(out, providerStatus{
			Name:     info.Name,
			Kind:     string(info.Kind),
			Model:    info.Model,
			Priority: info.Priority,
			Enabled:  info.Enabled,
			Circuit:  states[info.Name],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) upsertClient(w http.ResponseWriter, r *http.Request) {
	var c model.Client
	if !decodeBody(w, r, &c) {
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if c.Type != "" {
		t, ok := model.ParseClientType(string(c.Type))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid client type")
			return
		}
		c.Type = t
	}
	if c.LeadScore < 0 || c.LeadScore > 100 {
		writeError(w, http.StatusBadRequest, "lead_score must be between 0 and 100")
		return
	}
	c.Analysis = nil

	if err := h.env.Store.UpsertClient(r.Context(), &c); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) listClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ClientFilter{
		Status: q.Get("status"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if raw := q.Get("type"); raw != "" {
		t, ok := model.ParseClientType(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid client type")
			return
		}
		filter.Type = t
	}

	clients, err := h.env.Store.ListClients(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *handlers) getClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.env.Store.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) addInteraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.env.Store.GetClient(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	var in model.Interaction
	if !decodeBody(w, r, &in) {
		return
	}
	in.ClientID = id
	in.Kind = model.InteractionKind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	if strings.TrimSpace(in.Summary) == "" {
		writeError(w, http.StatusBadRequest, "summary is required")
		return
	}

	if err := h.env.Store.AddInteraction(r.Context(), &in); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

// analyzeClient scores the client from its recent interactions and stores
// the analysis. AI failures still yield 200 with the fallback analysis.
func (h *handlers) analyzeClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.env.Store.GetClient(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	history, err := h.env.Store.ListInteractions(ctx, c.ID, h.env.Lead.HistoryLimit())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	analysis := h.env.Lead.Analyze(ctx, *c, history)
	if err := h.env.Store.UpdateLeadAnalysis(ctx, c.ID, analysis); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *handlers) listClientTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.env.Store.ListTasks(r.Context(), store.TaskFilter{
		ClientID: chi.URLParam(r, "id"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if list == nil {
		list = []model.SuggestedTask{}
	}
	writeJSON(w, http.StatusOK, list)
}

type messageRequest struct {
	ClientID string `json:"client_id"`
	Channel  string `json:"channel"`
	Tone     string `json:"tone"`
	Purpose  string `json:"purpose"`
}

func (h *handlers) generateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	c, err := h.env.Store.GetClient(r.Context(), req.ClientID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	msg := h.env.Messages.Write(r.Context(), assist.MessageRequest{
		Client:  *c,
		Channel: model.Channel(req.Channel),
		Tone:    req.Tone,
		Purpose: req.Purpose,
	})
	writeJSON(w, http.StatusOK, msg)
}

type searchRequest struct {
	Query     string           `json:"query"`
	ClientIDs []string         `json:"client_ids,omitempty"`
	Type      model.ClientType `json:"type,omitempty"`
	Limit     int              `json:"limit,omitempty"`
}

type searchResponse struct {
	model.SearchRelevance
	Clients []model.Client `json:"clients"`
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidates, err := h.env.Store.ListClients(r.Context(), store.ClientFilter{
		IDs:   req.ClientIDs,
		Type:  req.Type,
		Limit: req.Limit,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	rel := h.env.Search.Search(r.Context(), req.Query, candidates)

	byID := make(map[string]model.Client, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	resp := searchResponse{SearchRelevance: rel, Clients: make([]model.Client, 0, len(rel.IDs))}
	for _, id := range rel.IDs {
		resp.Clients = append(resp.Clients, byID[id])
	}
	writeJSON(w, http.StatusOK, resp)
}

type generateTasksRequest struct {
	ClientIDs []string `json:"client_ids"`
}

// generateTasks runs a task batch synchronously. Storage failures are
// reported per client in the body; the request itself still succeeds.
func (h *handlers) generateTasks(w http.ResponseWriter, r *http.Request) {
	var req generateTasksRequest
	if !decodeBody(w, r, &req) {
		return
	}

	clients, err := batchClients(r.Context(), h.env.Store, req.ClientIDs)
	if errors.Is(err, errTooManyClients) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	report := h.env.Batch.Run(r.Context(), clients)
	writeJSON(w, http.StatusOK, report)
}

// batchClients resolves the clients for a task batch: the named ones, or every
// active client when ids is empty.
func batchClients(ctx context.Context, st store.Store, ids []string) ([]model.Client, error) {
	if len(ids) == 0 {
		return st.ListClients(ctx, store.ClientFilter{Status: model.ClientStatusActive, Limit: maxBatchClients})
	}
	ids = slices.Compact(slices.Sorted(slices.Values(ids)))
	if len(ids) > maxBatchClients {
		return nil, errTooManyClients
	}
	clients, err := st.ListClients(ctx, store.ClientFilter{IDs: ids, Limit: maxBatchClients})
	if err != nil {
		return nil, err
	}
	if len(clients) != len(ids) {
		return nil, &store.StorageError{Op: "list clients", Err: store.ErrNotFound}
	}
	return clients, nil
}
