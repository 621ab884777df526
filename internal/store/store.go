// Package store holds the single in-memory AppData document and serializes
// every mutation of it through Dispatch.
package store

import (
	"sync"
	"time"

	"khata/internal/core"
	"khata/internal/log"
	"khata/internal/monthly"
)

// Change describes a committed mutation.
type Change struct {
	Action Action
	State  core.AppData
	// Months lists the ledger months whose totals changed.
	Months []monthly.Key
}

// Listener runs synchronously after every successful dispatch.
type Listener func(Change)

type Store struct {
	// dispatchMu orders whole dispatches, listeners included. mu guards
	// state and listeners.
	dispatchMu sync.Mutex
	mu         sync.Mutex
	state      core.AppData
	listeners  map[int]Listener
	nextID     int
	now        func() time.Time
	logger     *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) { s.logger = logger.WithComponent(log.ComponentStore) }
}

// New creates a store holding initial, normalized.
func New(initial core.AppData, opts ...Option) *Store {
	s := &Store{
		listeners: make(map[int]Listener),
		now:       time.Now,
		logger:    log.DefaultLogger().WithComponent(log.ComponentStore),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = initial.Clone().Normalize(s.now())
	return s
}

// GetState returns a copy of the current document.
func (s *Store) GetState() core.AppData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies action and notifies listeners with the new state. On
// error the state is left unchanged and no listener runs. Listeners must not
// call Dispatch.
func (s *Store) Dispatch(action Action) (core.AppData, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next, months, err := reduce(s.state, action, s.now())
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("Action rejected",
			log.FieldOperation, action.Kind(),
			log.FieldError, err.Error(),
		)
		return s.GetState(), err
	}
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("Action applied",
		log.FieldOperation, action.Kind(),
		log.FieldAccountID, next.CurrentAccountID,
		log.FieldCount, len(next.LedgerEntries),
	)

	change := Change{Action: action, State: next.Clone(), Months: months}
	for _, l := range listeners {
		l(change)
	}
	return next.Clone(), nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
