package observability

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// LogSink is a combat.Observer that writes action events and summaries to a
// structured log. Dispatched actions log at info, no-ops at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
//
// Precondition: logger must be non-nil.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// ObserveAction logs one tick's action event.
func (s *LogSink) ObserveAction(a combat.Action) {
	if a.NoOp {
		s.logger.Debug("combat tick",
			zap.String("action_id", a.ID),
			zap.String("state", a.State.String()),
			zap.String("reason", string(a.Reason)),
		)
		return
	}
	s.logger.Info("combat action",
		zap.String("action_id", a.ID),
		zap.String("skill", a.Skill),
		zap.String("target", a.TargetID),
		zap.Bool("success", a.Success),
		zap.Int("damage", a.Damage),
		zap.Duration("latency", a.Latency),
		zap.String("state", a.State.String()),
	)
}

// ObserveSummary logs a periodic session summary.
func (s *LogSink) ObserveSummary(sum combat.Summary) {
	s.logger.Info("combat summary",
		zap.String("session", sum.SessionID),
		zap.String("profile", sum.Profile),
		zap.String("state", sum.State),
		zap.Int("ticks", sum.Ticks),
		zap.Int("no_ops", sum.NoOps),
		zap.Int("dispatched", sum.Dispatched),
		zap.Float64("success_rate", sum.SuccessRate),
		zap.String("dominant_skill", sum.DominantSkill),
	)
}
