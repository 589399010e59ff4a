// Package notify delivers workflow events to an external notification
// service. Delivery is fire-and-forget: a failed send never rolls back the
// core operation that produced the event.
package notify

import "time"

// EventType identifies the workflow event being announced.
type EventType string

const (
	EventReviewerAssigned   EventType = "reviewer_assigned"
	EventAssignmentDeclined EventType = "assignment_declined"
	EventReviewCompleted    EventType = "review_completed"
	EventPaperDecision      EventType = "paper_decision"
)

// Event is one notification payload.
type Event struct {
	Type       EventType `json:"type"`
	PaperID    string    `json:"paper_id"`
	ReviewerID string    `json:"reviewer_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier delivers events. Implementations must be safe for concurrent use
// and must not block the caller on delivery failures.
type Notifier interface {
	Notify(event Event)
}

// Null is a Notifier that drops every event. Used in tests and when no
// webhook is configured.
type Null struct{}

// Notify implements Notifier.
func (Null) Notify(Event) {}
