// Package state holds the current diagram source and its editing flags.
package state

import "sync"

// Snapshot is a copy of the store contents at one point in time.
type Snapshot struct {
	Source   string
	Draft    string // uncommitted text from the source panel
	Loading  bool
	Saving   bool
	Err      error
	Revision uint64 // bumped on every source change
}

// Dirty reports whether the draft differs from the committed source.
func (s Snapshot) Dirty() bool {
	return s.Draft != s.Source
}

// Listener receives the new snapshot after every change.
type Listener func(Snapshot)

type subscription struct {
	id int
	fn Listener
}

// Store is the single owner of the current source text. Every change is
// delivered to subscribers synchronously, in subscription order, after the
// store lock has been released.
type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	listeners []subscription
	nextID    int
}

// NewStore creates a store holding source.
func NewStore(source string) *Store {
	return &Store{snap: Snapshot{Source: source, Draft: source}}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// SetSource commits new source text. The draft follows it.
func (s *Store) SetSource(source string) {
	s.update(func(snap *Snapshot) bool {
		if snap.Source == source && snap.Draft == source {
			return false
		}
		if snap.Source != source {
			snap.Revision++
		}
		snap.Source = source
		snap.Draft = source
		return true
	})
}

// SetDraft records uncommitted text.
func (s *Store) SetDraft(draft string) {
	s.update(func(snap *Snapshot) bool {
		if snap.Draft == draft {
			return false
		}
		snap.Draft = draft
		return true
	})
}

// SetLoading sets the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.update(func(snap *Snapshot) bool {
		if snap.Loading == loading {
			return false
		}
		snap.Loading = loading
		return true
	})
}

// SetSaving sets the saving flag.
func (s *Store) SetSaving(saving bool) {
	s.update(func(snap *Snapshot) bool {
		if snap.Saving == saving {
			return false
		}
		snap.Saving = saving
		return true
	})
}

// SetError records the error to show the user. nil clears it.
func (s *Store) SetError(err error) {
	s.update(func(snap *Snapshot) bool {
		if snap.Err == err {
			return false
		}
		snap.Err = err
		return true
	})
}

func (s *Store) update(change func(*Snapshot) bool) {
	s.mu.Lock()
	if !change(&s.snap) {
		s.mu.Unlock()
		return
	}
	snap := s.snap
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(snap)
	}
}
