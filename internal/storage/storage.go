package storage

import "time"

// Outcome says how a turn was answered.
type Outcome string

const (
	OutcomeGreeting Outcome = "greeting"
	OutcomePurpose  Outcome = "purpose"
	OutcomeRejected Outcome = "rejected"
	OutcomeAnswered Outcome = "answered"
	OutcomeFailed   Outcome = "failed"
)

// Event represents a single interaction of a user and assistant.
// A record combines the user's message and the assistant's response.
// Events are expected to be appended in chronological order.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	UserID            string    `json:"user_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Outcome           Outcome   `json:"outcome"`
	// Confidence is set when the topic check returned a parseable score.
	Confidence *int `json:"confidence,omitempty"`
}

// Recorder abstracts persistence of interaction events.
// LoadInteractions should return events in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
	// LoadRange returns the events with from <= Timestamp < to.
	LoadRange(from, to time.Time) ([]Event, error)
}
