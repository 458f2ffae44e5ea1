package pipeline

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives structured events during a pipeline run.
type Observer interface {
	// Printf logs a free-form message.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)
}

// Event represents a structured pipeline event.
type Event struct {
	Type      EventType
	Stage     string
	Resource  string
	Message   string
	Timestamp time.Time
}

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventStageStarted indicates a stage has started.
	EventStageStarted EventType = "stage.started"
	// EventStageCompleted indicates a stage completed successfully.
	EventStageCompleted EventType = "stage.completed"
	// EventStageSatisfied indicates the idempotency predicate held and the
	// action was not invoked.
	EventStageSatisfied EventType = "stage.satisfied"
	// EventStageFailed indicates a stage failed.
	EventStageFailed EventType = "stage.failed"
	// EventStageSkipped indicates a stage was skipped after an earlier
	// fail-fast failure.
	EventStageSkipped EventType = "stage.skipped"

	// EventResourceCreated indicates an external resource was created.
	EventResourceCreated EventType = "resource.created"
	// EventResourceExists indicates an external resource already existed.
	EventResourceExists EventType = "resource.exists"
	// EventResourceDeleted indicates an external resource was deleted.
	EventResourceDeleted EventType = "resource.deleted"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var parts []string
	parts = append(parts, string(event.Type))
	if event.Stage != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Stage))
	}
	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}

	log.Print(strings.Join(parts, " "))
}
