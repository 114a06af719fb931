package appstate

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/spyglasshq/spyglass/pkg/api"
)

// User is the signed-in account as far as the client cares.
type User struct {
	ID    string
	Email string
	Name  string
}

// State is the cross-cutting application state the browser front-end kept
// in a global store: workspace, user, service list and UI preferences. It
// is an explicit struct with a reducer contract instead of ambient
// global mutable state; one Store is created per process and hydrated
// from config at startup.
type State struct {
	WorkspaceID      string
	User             User
	Services         []api.Service
	SidebarCollapsed bool
}

// Action is a state transition request; reduce is the single place state
// changes.
type Action interface {
	isAction()
}

type SetWorkspace struct{ WorkspaceID string }

type SetUser struct{ User User }

type SetServices struct{ Services []api.Service }

type ToggleSidebar struct{}

type Reset struct{}

func (SetWorkspace) isAction()  {}
func (SetUser) isAction()       {}
func (SetServices) isAction()   {}
func (ToggleSidebar) isAction() {}
func (Reset) isAction()         {}

func reduce(st State, a Action) State {
	switch act := a.(type) {
	case SetWorkspace:
		st.WorkspaceID = act.WorkspaceID
	case SetUser:
		st.User = act.User
	case SetServices:
		st.Services = append([]api.Service(nil), act.Services...)
	case ToggleSidebar:
		st.SidebarCollapsed = !st.SidebarCollapsed
	case Reset:
		st = State{}
	}
	return st
}

// Persister saves the slice of state that survives restarts (the sidebar
// preference). It is called after every dispatch that changed it.
type Persister func(State) error

// Store holds application state behind an explicit dispatch/subscribe
// contract.
type Store struct {
	mu      sync.Mutex
	state   State
	subs    []func(State)
	persist Persister
}

type StoreOption func(*Store)

func WithInitialState(st State) StoreOption {
	return func(s *Store) { s.state = st }
}

func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persist = p }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Services = append([]api.Service(nil), st.Services...)
	return st
}

// Subscribe registers a listener invoked after every dispatch. Listeners
// must not dispatch synchronously.
func (s *Store) Subscribe(f func(State)) {
	if f == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, f)
	s.mu.Unlock()
}

// Dispatch applies an action through the reducer and notifies
// subscribers in registration order.
func (s *Store) Dispatch(a Action) {
	if a == nil {
		return
	}
	s.mu.Lock()
	before := s.state
	s.state = reduce(s.state, a)
	after := s.state
	subs := append(([]func(State))(nil), s.subs...)
	persist := s.persist
	s.mu.Unlock()

	if persist != nil && before.SidebarCollapsed != after.SidebarCollapsed {
		if err := persist(after); err != nil {
			log.Warn().Str("component", "appstate").Err(err).Msg("failed to persist state")
		}
	}
	for _, f := range subs {
		f(after)
	}
}
