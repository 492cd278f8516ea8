package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// insertTimeout bounds each background insert so a slow database cannot back
// the worker up indefinitely.
const insertTimeout = 5 * time.Second

// AsyncSink is a combat.Observer that persists dispatched actions through a
// background worker. Observation is fire-and-forget: a full queue drops the
// action with a warning rather than stalling the tick loop.
//
// AsyncSink implements server.Service; register it before the engine service
// so the engine stops first and no actions are observed after Stop.
type AsyncSink struct {
	store     *ActionStore
	sessionID string
	profile   string
	logger    *zap.Logger
	queue     chan combat.Action
	quit      chan struct{}
	done      chan struct{}
}

// NewAsyncSink creates an AsyncSink persisting to store under sessionID.
//
// Precondition: store and logger must be non-nil; buffer >= 1.
func NewAsyncSink(store *ActionStore, sessionID, profileName string, buffer int, logger *zap.Logger) *AsyncSink {
	if buffer < 1 {
		buffer = 1
	}
	return &AsyncSink{
		store:     store,
		sessionID: sessionID,
		profile:   profileName,
		logger:    logger,
		queue:     make(chan combat.Action, buffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ObserveAction enqueues a dispatched action for persistence. No-op markers
// are skipped. Never blocks.
func (s *AsyncSink) ObserveAction(a combat.Action) {
	if a.NoOp {
		return
	}
	select {
	case s.queue <- a:
	default:
		s.logger.Warn("action sink queue full, dropping action",
			zap.String("action_id", a.ID),
			zap.String("skill", a.Skill),
		)
	}
}

// ObserveSummary is a no-op: summaries are derivable from the persisted
// actions via ActionStore.Summary.
func (s *AsyncSink) ObserveSummary(combat.Summary) {}

// Start runs the persistence worker until Stop is called, then drains the
// remaining queue.
//
// Postcondition: Returns nil after the queue is drained.
func (s *AsyncSink) Start() error {
	defer close(s.done)
	for {
		select {
		case a := <-s.queue:
			s.persist(a)
		case <-s.quit:
			for {
				select {
				case a := <-s.queue:
					s.persist(a)
				default:
					return nil
				}
			}
		}
	}
}

// Stop asks the worker to drain and exit, and waits for it.
func (s *AsyncSink) Stop() {
	close(s.quit)
	<-s.done
}

func (s *AsyncSink) persist(a combat.Action) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := s.store.RecordAction(ctx, s.sessionID, s.profile, a); err != nil {
		s.logger.Warn("persisting combat action failed",
			zap.String("action_id", a.ID),
			zap.Error(err),
		)
	}
}
