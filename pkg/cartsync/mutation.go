package cartsync

import (
	"fmt"

	"github.com/google/uuid"
)

// Op names a list mutation.
type Op string

const (
	OpAdd            Op = "add"
	OpRemove         Op = "remove"
	OpUpdateQuantity Op = "update-quantity"
	OpClear          Op = "clear"
	OpWishlistAdd    Op = "wishlist-add"
	OpWishlistRemove Op = "wishlist-remove"
)

// State is the lifecycle of one mutation.
type State string

const (
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled-back"
)

// Mutation records one change to the cart or wishlist. It starts pending and ends
// committed once the authoritative store accepted it, or rolled-back once the
// compensating refetch has restored authoritative state.
type Mutation struct {
	ID     string
	Op     Op
	Target string
	State  State
	// Err is the failure that caused a rollback.
	Err error
	// RefetchErr is set when the compensating refetch also failed and the list was
	// restored from the snapshot taken before the mutation.
	RefetchErr error
}

func newMutation(op Op, target string) *Mutation {
	return &Mutation{ID: uuid.NewString(), Op: op, Target: target, State: StatePending}
}

func (m *Mutation) commit() {
	m.transition(StateCommitted)
}

func (m *Mutation) rollback(err, refetchErr error) {
	m.Err = err
	m.RefetchErr = refetchErr
	m.transition(StateRolledBack)
}

// Only pending mutations move; a settled mutation is final.
func (m *Mutation) transition(to State) {
	if m.State != StatePending {
		panic(fmt.Sprintf("cartsync: mutation %s already %s", m.ID, m.State))
	}
	m.State = to
}
