package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cardapioweb/cardapio/internal/hub"
	"github.com/cardapioweb/cardapio/internal/middleware"
	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/go-chi/chi/v5"
)

// StreamHandler serves long-lived SSE connections fed by the notification hub
type StreamHandler struct {
	hub *hub.Hub
}

// NewStreamHandler creates new StreamHandler instance
func NewStreamHandler(h *hub.Hub) *StreamHandler {
	return &StreamHandler{hub: h}
}

// OrderStream pushes state changes of one order to its tracking page
func (sh *StreamHandler) OrderStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sh.serve(w, r, chi.URLParam(r, "publicId"))
	}
}

// StoreStream pushes the store's order events to the kitchen display.
// Callers fetch the open-orders snapshot first and attach second.
func (sh *StreamHandler) StoreStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := middleware.PayloadFromContext(r.Context())
		if !ok {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		sh.serve(w, r, hub.StoreKey(payload.StoreID))
	}
}

// serve attaches the connection to the channel key and writes one SSE frame
// per event until the peer disconnects or the hub drops the sink.
func (sh *StreamHandler) serve(w http.ResponseWriter, r *http.Request, key string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// ask the client to reconnect after 2s if the connection drops
	fmt.Fprint(w, "retry: 2000\n\n")
	flusher.Flush()

	sub := sh.hub.Subscribe(key)
	defer sh.hub.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
