package offline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"

	"github.com/gorilla/mux"
	"go.alis.build/alog"
)

// StatusResponse - состояние воркера для /__worker/status.
type StatusResponse struct {
	Version    string   `json:"version"`
	State      State    `json:"state"`
	Registered bool     `json:"registered"`
	Caches     []string `json:"caches"`
	Entries    int      `json:"entries"`
	Limit      int      `json:"limit"`
	Clients    int      `json:"clients"`
	Controlled int      `json:"controlled"`
}

// NewShellHandler отдает оболочку приложения через воркер и добавляет
// служебные маршруты /__worker/*.
func NewShellHandler(w *Worker) http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(w.origin)
			pr.Out.Host = w.origin.Host
		},
		Transport: w,
		ErrorHandler: func(rw http.ResponseWriter, r *http.Request, err error) {
			alog.Warnf(r.Context(), "Shell proxy: %s %s: %v", r.Method, r.URL.Path, err)
			respondJSON(rw, http.StatusBadGateway, map[string]string{"error": "origin unavailable"})
		},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/__worker").Subrouter()
	api.Use(noCacheMiddleware)
	api.HandleFunc("/message", messageHandler(w)).Methods(http.MethodPost)
	api.HandleFunc("/events", w.clients.ServeSSE).Methods(http.MethodGet)
	api.HandleFunc("/status", statusHandler(w)).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(proxy)
	return r
}

func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(rw, r)
	})
}

func messageHandler(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			respondJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid message"})
			return
		}
		if err := w.HandleMessage(r.Context(), msg); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrUnknownMessage) {
				status = http.StatusBadRequest
			}
			alog.Warnf(r.Context(), "Worker message %q: %v", msg.Type, err)
			respondJSON(rw, status, map[string]string{"error": err.Error()})
			return
		}
		respondJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statusHandler(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		names, err := w.storage.Names(ctx)
		if err != nil {
			respondJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		entries := 0
		if has, _ := w.storage.Has(ctx, w.version); has {
			cache, err := w.storage.Open(ctx, w.version)
			if err == nil {
				entries, _ = cache.Count(ctx)
			}
		}
		total, controlled := w.clients.Count()
		if names == nil {
			names = []string{}
		}
		respondJSON(rw, http.StatusOK, StatusResponse{
			Version:    w.version,
			State:      w.State(),
			Registered: w.registration.Active(),
			Caches:     names,
			Entries:    entries,
			Limit:      w.limit,
			Clients:    total,
			Controlled: controlled,
		})
	}
}

func respondJSON(rw http.ResponseWriter, status int, payload any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(payload); err != nil {
		alog.Errorf(context.Background(), "respondJSON: %v", err)
	}
}
