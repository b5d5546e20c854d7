package healing

import (
	"time"

	"go.uber.org/zap"
)

// EventKind discriminates tracker events.
type EventKind string

const (
	// EventAttempt is published once per Resolve call, before any waiting.
	EventAttempt EventKind = "attempt"
	// EventHeal is published when a fallback candidate matched.
	EventHeal EventKind = "heal"
	// EventFailure is published when a candidate list was exhausted.
	EventFailure EventKind = "failure"
)

// Event is one entry of the structured observation stream. Subscribers see
// attempts, heals, and failures without being wired into the control flow.
type Event struct {
	Kind           EventKind
	Session        string
	Primary        string
	MatchedLocator string
	CandidateIndex int
	Error          string
	Timestamp      time.Time
}

// EventSink receives tracker events. Publish is called synchronously from
// the recording goroutine and must not block.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a plain function to the EventSink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// NewZapSink returns a sink that mirrors events onto a zap logger: attempts
// at debug, heals at info, failures at warn.
func NewZapSink(log *zap.Logger) EventSink {
	return SinkFunc(func(e Event) {
		fields := []zap.Field{
			zap.String("session", e.Session),
			zap.String("primary", e.Primary),
		}
		switch e.Kind {
		case EventHeal:
			log.Info("selector healed",
				append(fields,
					zap.String("matched", e.MatchedLocator),
					zap.Int("candidate_index", e.CandidateIndex))...)
		case EventFailure:
			log.Warn("selector resolution failed", append(fields, zap.String("error", e.Error))...)
		default:
			log.Debug("resolution attempt", fields...)
		}
	})
}
