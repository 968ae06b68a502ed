// Package logging implements the C6 Logging Sink: a railsim.Sink built on
// github.com/sirupsen/logrus, the structured logging library the teacher's
// sql submodule depends on directly. logrus.Logger already serializes
// concurrent writes internally (its Entry.log takes the logger's mutex),
// so - per the teacher's habit of leaning on a library's own guarantees
// instead of re-deriving them (see catrate, which only adds its own
// sync.Mutex where the stdlib offers none) - this package adds no
// additional locking of its own.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/railsim/railsim/internal/railsim"
)

// Sink adapts railsim.Event to logrus, rendering the append-only text
// contract `[HH:MM:SS] <principal>: <event>`, where the simulated-clock
// tick is formatted as a wall-clock-shaped timestamp by treating one tick
// as one simulated second - a display convention only, with no bearing on
// scheduling.
type Sink struct {
	log *logrus.Logger
}

// New builds a Sink writing to w at the given level. A nil w leaves
// logrus's own default output (os.Stderr) in place, matching the teacher's
// NewBatcher-style "documented zero value" posture.
func New(w io.Writer, level logrus.Level) *Sink {
	log := logrus.New()
	if w != nil {
		log.SetOutput(w)
	}
	log.SetLevel(level)
	log.SetFormatter(&railLineFormatter{})
	return &Sink{log: log}
}

// Warnf implements ingest.Warner, routing input-parsing warnings through
// the same sink as every other structured event.
func (s *Sink) Warnf(format string, args ...any) {
	s.log.Warnf(format, args...)
}

// Emit implements railsim.Sink.
func (s *Sink) Emit(e railsim.Event) {
	entry := s.log.WithFields(logrus.Fields{
		"tick":         e.Tick,
		"train":        e.Train,
		"intersection": e.Intersection,
	})
	level, principal, message := render(e)
	entry.Data["principal"] = principal
	entry.Log(level, message)
}

// render maps an Event to a (level, principal, message) triple for the
// text contract's `<principal>: <event>` shape.
func render(e railsim.Event) (logrus.Level, string, string) {
	switch e.Kind {
	case railsim.EventSentAcquire:
		return logrus.InfoLevel, e.Train, "SENT ACQUIRE " + e.Intersection
	case railsim.EventSentRelease:
		return logrus.InfoLevel, e.Train, "SENT RELEASE " + e.Intersection
	case railsim.EventRecvGrant:
		return logrus.InfoLevel, e.Train, "RECV GRANT " + e.Intersection
	case railsim.EventRecvWait:
		return logrus.InfoLevel, e.Train, "RECV WAIT " + e.Intersection
	case railsim.EventRecvDeny:
		return logrus.WarnLevel, e.Train, "RECV DENY " + e.Intersection
	case railsim.EventGranted:
		return logrus.InfoLevel, "SERVER", fmt.Sprintf("GRANTED %s to %s", e.Intersection, e.Train)
	case railsim.EventBusyEnqueued:
		return logrus.InfoLevel, "SERVER", fmt.Sprintf("%s BUSY, %s ADDED TO WAIT QUEUE", e.Intersection, e.Train)
	case railsim.EventReleased:
		return logrus.InfoLevel, "SERVER", fmt.Sprintf("%s RELEASED %s", e.Train, e.Intersection)
	case railsim.EventReleaseIgnored:
		return logrus.WarnLevel, "SERVER", fmt.Sprintf("%s attempted to release %s it did not hold", e.Train, e.Intersection)
	case railsim.EventDeadlock:
		return logrus.ErrorLevel, "SERVER", fmt.Sprintf("DEADLOCK: %s — preempting %s from %s", strings.Join(e.Cycle, " -> "), e.Intersection, e.Train)
	case railsim.EventCompletedRoute:
		return logrus.InfoLevel, e.Train, "COMPLETED ROUTE"
	case railsim.EventAborted:
		return logrus.WarnLevel, e.Train, "ABORTED ROUTE"
	case railsim.EventAllFinished:
		return logrus.InfoLevel, "SERVER", "ALL TRAINS FINISHED"
	case railsim.EventMalformedRequest:
		return logrus.WarnLevel, "SERVER", fmt.Sprintf("malformed request from %s: %s", e.Train, e.Message)
	default:
		return logrus.InfoLevel, e.Train, "UNKNOWN EVENT"
	}
}

// railLineFormatter renders `[HH:MM:SS] <principal>: <event>`, deriving
// the clock face from the simulated tick field (one tick == one simulated
// second) rather than wall time, so log output is reproducible across runs
// regardless of real elapsed time.
type railLineFormatter struct{}

func (railLineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tick, _ := entry.Data["tick"].(uint64)
	principal, _ := entry.Data["principal"].(string)

	clock := time.Unix(int64(tick), 0).UTC()
	line := fmt.Sprintf("[%s] %s: %s\n", clock.Format("15:04:05"), principal, entry.Message)
	return []byte(line), nil
}
