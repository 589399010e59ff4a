// Package engine implements the peer-review workflow operations: the paper
// lifecycle, reviewer matching and assignment, the review lifecycle, and
// citation linking. It enforces authorization and delegates invariants to
// the domain packages and the storage layer.
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/peerflow/peerflow/internal/blind"
	"github.com/peerflow/peerflow/internal/notify"
	"github.com/peerflow/peerflow/internal/storage"
)

// conflictRetries bounds internal retries of bookkeeping writes that lost
// an optimistic-concurrency race. Caller-visible mutations never retry;
// retry policy for those belongs to the caller.
const conflictRetries = 3

// Engine owns the workflow operations over one storage database.
type Engine struct {
	db       *storage.DB
	notifier notify.Notifier
	pseudo   *blind.Pseudonymizer
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the notification sink for workflow events.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithPseudonymizer enables blind-review handles in author-facing views.
func WithPseudonymizer(p *blind.Pseudonymizer) Option {
	return func(e *Engine) {
		e.pseudo = p
	}
}

// WithClock overrides the time source. Useful for testing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides entity id generation. Useful for testing.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// New creates an Engine over the given database.
func New(db *storage.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		notifier: notify.Null{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB exposes the underlying database for read-only query surfaces.
func (e *Engine) DB() *storage.DB {
	return e.db
}
