package appstate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/spyglasshq/spyglass/pkg/api"
)

func TestDispatch_ReducesActions(t *testing.T) {
	store := NewStore()

	store.Dispatch(SetWorkspace{WorkspaceID: "ws-1"})
	store.Dispatch(SetUser{User: User{ID: "u1", Email: "dev@example.com"}})
	store.Dispatch(SetServices{Services: []api.Service{{ID: "svc1", Name: "checkout"}}})

	st := store.State()
	require.Equal(t, "ws-1", st.WorkspaceID)
	require.Equal(t, "dev@example.com", st.User.Email)
	require.Len(t, st.Services, 1)
	require.False(t, st.SidebarCollapsed)
}

func TestDispatch_ToggleSidebarFlips(t *testing.T) {
	store := NewStore()

	store.Dispatch(ToggleSidebar{})
	require.True(t, store.State().SidebarCollapsed)
	store.Dispatch(ToggleSidebar{})
	require.False(t, store.State().SidebarCollapsed)
}

func TestDispatch_ResetClearsEverything(t *testing.T) {
	store := NewStore(WithInitialState(State{WorkspaceID: "ws-1", SidebarCollapsed: true}))

	store.Dispatch(Reset{})
	require.Equal(t, State{}, store.State())
}

func TestSubscribe_NotifiedInRegistrationOrder(t *testing.T) {
	store := NewStore()

	var order []int
	store.Subscribe(func(State) { order = append(order, 1) })
	store.Subscribe(func(State) { order = append(order, 2) })

	store.Dispatch(SetWorkspace{WorkspaceID: "ws-1"})
	require.Equal(t, []int{1, 2}, order)
}

func TestPersister_OnlyCalledWhenSidebarChanges(t *testing.T) {
	var calls int
	store := NewStore(WithPersister(func(State) error {
		calls++
		return nil
	}))

	store.Dispatch(SetWorkspace{WorkspaceID: "ws-1"})
	require.Equal(t, 0, calls)

	store.Dispatch(ToggleSidebar{})
	require.Equal(t, 1, calls)

	// persist failures are logged, not propagated
	failing := NewStore(WithPersister(func(State) error {
		return errors.New("disk full")
	}))
	failing.Dispatch(ToggleSidebar{})
	require.True(t, failing.State().SidebarCollapsed)
}

func TestState_ReturnsACopy(t *testing.T) {
	store := NewStore()
	store.Dispatch(SetServices{Services: []api.Service{{ID: "svc1"}}})

	st := store.State()
	st.Services[0].ID = "mutated"
	require.Equal(t, "svc1", store.State().Services[0].ID)
}
