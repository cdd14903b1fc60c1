package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/events"
)

// minHeartbeat/maxHeartbeat/defaultHeartbeat bound the ?heartbeat=
// query param on GET /api/v1/events.
const (
	minHeartbeat     = 5 * time.Second
	maxHeartbeat     = 60 * time.Second
	defaultHeartbeat = 30 * time.Second
	maxConnDuration  = time.Hour
)

// EventsHandler serves GET /api/v1/events, the gateway-wide SSE event
// bus.
type EventsHandler struct {
	Bus *events.Bus
}

func sendSSE(w http.ResponseWriter, f http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	f.Flush()
}

func clampHeartbeat(raw string) time.Duration {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHeartbeat
	}
	d := time.Duration(n) * time.Second
	if d < minHeartbeat {
		return minHeartbeat
	}
	if d > maxHeartbeat {
		return maxHeartbeat
	}
	return d
}

// Stream serves GET /api/v1/events. Query params: types (csv event
// type filter), agents (csv agent id filter), heartbeat (seconds,
// clamped to [5,60], default 30). The connection is force-closed after
// an hour so a forgotten client can't pin a subscriber slot forever.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierror.WriteError(w, apierror.Internal(fmt.Errorf("events: response writer does not support flushing")))
		return
	}

	q := r.URL.Query()
	var types, agentIDs []string
	if raw := q.Get("types"); raw != "" {
		types = parseCSV(raw)
	}
	if raw := q.Get("agents"); raw != "" {
		agentIDs = parseCSV(raw)
	}
	heartbeat := clampHeartbeat(q.Get("heartbeat"))

	ch, unsubscribe := h.Bus.Subscribe(types, agentIDs)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sendSSE(w, flusher, "connected", map[string]any{"heartbeatSeconds": int(heartbeat.Seconds())})

	ctx, cancel := context.WithTimeout(r.Context(), maxConnDuration)
	defer cancel()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			sendSSE(w, flusher, e.Type, e)
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
