package provisioning

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	// Printf logs a free-form progress line.
	Printf(format string, v ...any)

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "create-user", "generate-units")
	Message   string            // Human-readable message
	Resource  string            // Resource name if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPhaseStarted indicates a provisioning phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a provisioning phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a provisioning phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreated indicates a resource was created successfully.
	EventResourceCreated EventType = "resource.created"
	// EventResourceExists indicates a resource already exists.
	EventResourceExists EventType = "resource.exists"
	// EventResourceDeleted indicates a resource was deleted successfully.
	EventResourceDeleted EventType = "resource.deleted"
	// EventResourceSkipped indicates nothing had to be done for a resource.
	EventResourceSkipped EventType = "resource.skipped"

	// EventGuardFailed indicates a precondition was not met.
	EventGuardFailed EventType = "guard.failed"
	// EventWarning indicates a soft failure the run continues past.
	EventWarning EventType = "warning"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// LogObserver implements Observer on top of a logr.Logger.
type LogObserver struct {
	log    logr.Logger
	fields map[string]string
}

// NewLogObserver creates an observer writing to log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log, fields: map[string]string{}}
}

// Printf implements Observer.
func (o *LogObserver) Printf(format string, v ...any) {
	o.log.Info(fmt.Sprintf(format, v...))
}

// Event implements Observer. Failures and warnings go to the error level;
// phase boundaries only show with debug verbosity.
func (o *LogObserver) Event(event Event) {
	kv := []any{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	fields := mergeFields(o.fields, event.Fields)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		kv = append(kv, k, fields[k])
	}

	switch event.Type {
	case EventPhaseFailed, EventGuardFailed:
		o.log.Error(nil, event.Message, kv...)
	case EventPhaseStarted, EventProgress:
		o.log.V(1).Info(event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

// Progress implements Observer.
func (o *LogObserver) Progress(phase string, current, total int) {
	o.Event(Event{
		Type:    EventProgress,
		Phase:   phase,
		Message: fmt.Sprintf("%d/%d", current, total),
	})
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	return &LogObserver{log: o.log, fields: mergeFields(o.fields, fields)}
}

// RecordingObserver keeps every event and line in memory. It is used by
// tests and by callers that print their own summary.
type RecordingObserver struct {
	fields map[string]string
	shared *recording
}

type recording struct {
	mu     sync.Mutex
	events []Event
	lines  []string
}

// NewRecordingObserver creates an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{fields: map[string]string{}, shared: &recording{}}
}

// Printf implements Observer.
func (r *RecordingObserver) Printf(format string, v ...any) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	r.shared.lines = append(r.shared.lines, fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (r *RecordingObserver) Event(event Event) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	event.Fields = mergeFields(r.fields, event.Fields)
	r.shared.events = append(r.shared.events, event)
}

// Progress implements Observer.
func (r *RecordingObserver) Progress(phase string, current, total int) {
	r.Event(Event{Type: EventProgress, Phase: phase, Message: fmt.Sprintf("%d/%d", current, total)})
}

// WithFields implements Observer. The child records into the same log.
func (r *RecordingObserver) WithFields(fields map[string]string) Observer {
	return &RecordingObserver{fields: mergeFields(r.fields, fields), shared: r.shared}
}

// Events returns the recorded events.
func (r *RecordingObserver) Events() []Event {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return slices.Clone(r.shared.events)
}

// Lines returns the recorded Printf lines.
func (r *RecordingObserver) Lines() []string {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return slices.Clone(r.shared.lines)
}

// OfType returns the recorded events of type t.
func (r *RecordingObserver) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func mergeFields(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return out
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:      EventPhaseStarted,
		Phase:     phase,
		Message:   "starting",
		Timestamp: time.Now(),
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:      EventPhaseCompleted,
		Phase:     phase,
		Message:   fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
		Timestamp: time.Now(),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:      EventPhaseFailed,
		Phase:     phase,
		Message:   fmt.Sprintf("failed: %v", err),
		Timestamp: time.Now(),
	})
}

// LogResourceCreated logs a successful resource creation event.
func LogResourceCreated(observer Observer, phase, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceCreated,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s created", resourceType),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogResourceExists logs when a resource already exists.
func LogResourceExists(observer Observer, phase, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceExists,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s already exists", resourceType),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogResourceDeleted logs a successful resource deletion event.
func LogResourceDeleted(observer Observer, phase, resourceType, resourceName string) {
	observer.Event(Event{
		Type:     EventResourceDeleted,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("%s deleted", resourceType),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogResourceSkipped logs a step that had nothing to do.
func LogResourceSkipped(observer Observer, phase, resourceType, resourceName, reason string) {
	observer.Event(Event{
		Type:     EventResourceSkipped,
		Phase:    phase,
		Resource: resourceName,
		Message:  fmt.Sprintf("skipping %s: %s", resourceType, reason),
		Fields:   map[string]string{"type": resourceType},
	})
}

// LogWarning logs a soft failure.
func LogWarning(observer Observer, phase, message string) {
	observer.Event(Event{
		Type:    EventWarning,
		Phase:   phase,
		Message: message,
	})
}
