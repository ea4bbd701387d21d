package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/aristath/sentinel-overrides/internal/utils"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	wsWriteTimeout    = 5 * time.Second
)

// streamMessage is the JSON frame written to SSE and WebSocket clients
type streamMessage struct {
	Type      string      `json:"type"`
	Module    string      `json:"module,omitempty"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// EventsStreamHandler fans bus events out to SSE and WebSocket clients.
type EventsStreamHandler struct {
	eventBus  *events.Bus
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		heartbeat: heartbeatInterval,
		log:       log.With().Str("component", "events_stream").Logger(),
	}
}

// subscribe registers a non-blocking forwarder for the requested types.
// An empty filter subscribes to every type. The returned func unsubscribes.
func (h *EventsStreamHandler) subscribe(typesFilter string) (<-chan *events.Event, func()) {
	eventChan := make(chan *events.Event, streamBuffer)

	types := events.AllTypes
	if filter := utils.ParseCSV(typesFilter); filter != nil {
		types = make([]events.EventType, 0, len(filter))
		for _, t := range filter {
			types = append(types, events.EventType(t))
		}
	}

	forward := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	subs := make([]events.Subscription, 0, len(types))
	for _, eventType := range types {
		subs = append(subs, h.eventBus.Subscribe(eventType, forward))
	}

	return eventChan, func() {
		for _, sub := range subs {
			h.eventBus.Unsubscribe(sub)
		}
	}
}

func toMessage(event *events.Event) streamMessage {
	return streamMessage{
		Type:      string(event.Type),
		Module:    event.Module,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Data:      event.Data,
	}
}

func controlMessage(kind string) streamMessage {
	return streamMessage{Type: kind, Timestamp: time.Now().Format(time.RFC3339)}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// The optional types query parameter is a comma-separated event type filter.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := h.subscribe(typesFilter)
	defer unsubscribe()

	h.log.Info().Str("types_filter", typesFilter).Msg("Client connected to event stream")

	h.writeSSE(w, controlMessage("connected"))
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case event := <-eventChan:
			h.writeSSE(w, toMessage(event))
			flusher.Flush()
		case <-heartbeat.C:
			h.writeSSE(w, controlMessage("heartbeat"))
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) writeSSE(w http.ResponseWriter, msg streamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"type":"error","data":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// ServeWebSocket handles GET /api/events/ws requests.
// Frames carry the same JSON messages as the SSE stream.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := h.subscribe(typesFilter)
	defer unsubscribe()

	h.log.Info().Str("types_filter", typesFilter).Msg("WebSocket client connected")

	// CloseRead discards client frames and cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())

	if err := h.writeWS(ctx, conn, controlMessage("connected")); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		var msg streamMessage
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			h.log.Info().Msg("WebSocket client disconnected")
			return
		case event := <-eventChan:
			msg = toMessage(event)
		case <-heartbeat.C:
			msg = controlMessage("heartbeat")
		}

		if err := h.writeWS(ctx, conn, msg); err != nil {
			h.log.Debug().Err(err).Msg("WebSocket write failed")
			_ = conn.Close(websocket.StatusInternalError, "write failed")
			return
		}
	}
}

func (h *EventsStreamHandler) writeWS(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
