package engine

import "context"

// Stall actions evaluated by the policy.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionUpdateMenu = "update_menu"
)

// Request is the input to a stall authorization decision. OwnerID is empty for create.
type Request struct {
	Action    string
	ActorID   string
	ActorRole string
	OwnerID   string
}

// Evaluator decides whether an actor may perform an action on a stall.
type Evaluator interface {
	Allow(ctx context.Context, req Request) (bool, error)
}
