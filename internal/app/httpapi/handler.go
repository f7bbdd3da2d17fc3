// Package httpapi exposes the gateway over HTTP: the mediated proxy
// surface, lifecycle controls, the broadcast websocket and the profiling
// endpoints.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/offline_gateway/internal/app"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/profile"
	"github.com/R3E-Network/offline_gateway/internal/app/metrics"
	"github.com/R3E-Network/offline_gateway/internal/app/services/gesture"
	"github.com/R3E-Network/offline_gateway/internal/app/services/mediator"
	"github.com/R3E-Network/offline_gateway/internal/httputil"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// maxRequestBody bounds proxied request bodies.
const maxRequestBody = 8 << 20

// handler bundles HTTP endpoints for the gateway services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the router exposing the gateway API.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	r.HandleFunc("/control/skip-waiting", h.skipWaiting).Methods(http.MethodPost)
	r.HandleFunc("/control/cache-refresh", h.cacheRefresh).Methods(http.MethodPost)
	r.HandleFunc("/push", h.push).Methods(http.MethodPost)
	r.HandleFunc("/ws", application.Messenger.Attach)

	r.HandleFunc("/profile/observe", h.observeProfile).Methods(http.MethodPost)
	r.HandleFunc("/profile", h.currentProfile).Methods(http.MethodGet)
	r.HandleFunc("/policy", h.policy).Methods(http.MethodGet)
	r.HandleFunc("/gesture/events", h.gestureEvents).Methods(http.MethodPost)

	r.PathPrefix("/proxy/").HandlerFunc(h.proxy)
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(h.app.Mediator.State()),
	})
}

// proxy mediates one intercepted request. The path below /proxy is
// forwarded to the origin verbatim, query included.
func (h *handler) proxy(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimPrefix(r.URL.Path, "/proxy")
	if target == "" {
		target = "/"
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	body, err := httputil.ReadAllStrict(r.Body, maxRequestBody)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	evt := &mediator.Event{
		Kind: mediator.EventFetch,
		Request: &mediator.Request{
			Method: r.Method,
			URL:    target,
			Header: r.Header,
			Body:   body,
		},
	}
	if err := h.app.Mediator.Dispatch(r.Context(), evt); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	for key, values := range evt.Response.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(evt.Response.Status)
	_, _ = w.Write(evt.Response.Body)
}

func (h *handler) skipWaiting(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Mediator.SkipWaiting(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"state": string(h.app.Mediator.State()),
	})
}

func (h *handler) cacheRefresh(w http.ResponseWriter, r *http.Request) {
	evt := &mediator.Event{Kind: mediator.EventSync, Tag: "cache-refresh"}
	if err := h.app.Mediator.Dispatch(r.Context(), evt); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (h *handler) push(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	evt := &mediator.Event{Kind: mediator.EventPush, Payload: string(body)}
	if err := h.app.Mediator.Dispatch(r.Context(), evt); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "broadcast"})
}

func (h *handler) observeProfile(w http.ResponseWriter, r *http.Request) {
	var sig profile.Signals
	if err := decodeJSON(r.Body, &sig); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if sig.Width <= 0 || sig.Height < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("viewport dimensions must be positive"))
		return
	}
	writeJSON(w, http.StatusOK, h.app.Profiler.Observe(sig))
}

func (h *handler) currentProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Profiler.Current())
}

func (h *handler) policy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Delivery.Select(h.app.Profiler.Current()))
}

// gestureEvents recognizes a complete touch sequence in one shot and
// returns the resulting gestures.
func (h *handler) gestureEvents(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Events []gesture.TouchEvent `json:"events"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(payload.Events) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no events supplied"))
		return
	}

	gestures := gesture.RecognizeSequence(payload.Events, gesture.Options{})
	writeJSON(w, http.StatusOK, map[string]any{"gestures": gestures})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
