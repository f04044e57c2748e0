package status

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is a line shown to the operator, e.g. "Table creation complete.".
type Message struct {
	Text  string    `json:"text"`
	Level Level     `json:"level"`
	Time  time.Time `json:"time"`
}

// TransportState is the transient indicator of a failing connection to the results service.
type TransportState struct {
	Failing     bool      `json:"failing"`
	LastFailure time.Time `json:"lastFailure,omitempty"`
	Message     string    `json:"message,omitempty"`
}

type Status struct {
	Message   *Message       `json:"message,omitempty"`
	Transport TransportState `json:"transport"`
}

// Board keeps the latest operator message and the transport indicator. It is safe for concurrent use.
type Board struct {
	clock clock.PassiveClock

	mu        sync.Mutex
	message   *Message
	transport TransportState
}

func NewBoard(clock clock.PassiveClock) *Board {
	return &Board{clock: clock}
}

func (b *Board) Info(text string) {
	b.post(text, LevelInfo)
}

func (b *Board) Error(text string) {
	b.post(text, LevelError)
}

// TransportFailed raises the transport indicator. It stays up until TransportRecovered is called.
func (b *Board) TransportFailed(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transport = TransportState{
		Failing:     true,
		LastFailure: b.clock.Now(),
		Message:     err.Error(),
	}
}

// TransportRecovered clears the indicator after a request got an answer.
func (b *Board) TransportRecovered() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transport.Failing = false
}

func (b *Board) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	status := Status{Transport: b.transport}
	if b.message != nil {
		message := *b.message
		status.Message = &message
	}
	return status
}

func (b *Board) post(text string, level Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = &Message{Text: text, Level: level, Time: b.clock.Now()}
}
