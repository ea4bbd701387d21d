package queue

import (
	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/rs/zerolog"
)

// RegisterListeners enqueues every newly created handler
func RegisterListeners(bus *events.Bus, q *Queue, log zerolog.Logger) {
	log = log.With().Str("component", "event_listeners").Logger()

	// OverrideCreated -> processing queue
	bus.Subscribe(events.OverrideCreated, func(event *events.Event) {
		data, ok := event.Data.(*events.OverrideCreatedData)
		if !ok || data.Handler == nil {
			log.Error().
				Str("event_type", string(event.Type)).
				Msg("Unexpected payload for event")
			return
		}
		if !q.Enqueue(data.Handler.ID) {
			log.Debug().Str("handler_id", data.Handler.ID).Msg("Handler already queued")
		}
	})
}
