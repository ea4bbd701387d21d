package queue

import (
	"context"
	"errors"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/modules/overrides"
	"github.com/rs/zerolog"
)

// Advancer moves a handler at most one stage per call
type Advancer interface {
	AdvanceStage(ctx context.Context, id string) (overrides.TickResult, error)
}

// Processor advances exactly one queued handler per tick. Handlers whose
// preconditions are unmet rotate to the tail and are retried on a later
// tick with no backoff.
type Processor struct {
	queue    *Queue
	advancer Advancer
	log      zerolog.Logger
}

// NewProcessor creates a tick processor over queue
func NewProcessor(queue *Queue, advancer Advancer, log zerolog.Logger) *Processor {
	return &Processor{
		queue:    queue,
		advancer: advancer,
		log:      log.With().Str("component", "processing_queue").Logger(),
	}
}

// Tick pops the head of the queue and advances it one step
func (p *Processor) Tick(ctx context.Context) error {
	id, ok := p.queue.Pop()
	if !ok {
		return nil
	}

	result, err := p.advancer.AdvanceStage(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrHandlerNotFound) {
			p.log.Warn().Str("handler_id", id).Msg("Dropping unknown handler from queue")
			return nil
		}
		p.queue.Enqueue(id)
		return err
	}

	if result.Busy {
		p.log.Debug().Str("handler_id", id).Msg("Handler busy, re-queued")
	}
	if result.Retain {
		p.queue.Enqueue(id)
	} else {
		p.log.Debug().
			Str("handler_id", id).
			Str("stage", string(result.Stage)).
			Msg("Handler left processing queue")
	}
	return nil
}

// Run is the scheduler entry point for the processing tick
func (p *Processor) Run() error {
	return p.Tick(context.Background())
}

// Name identifies the job in scheduler logs
func (p *Processor) Name() string {
	return "override_processing_tick"
}

// Depth returns the current queue size
func (p *Processor) Depth() int {
	return p.queue.Size()
}
