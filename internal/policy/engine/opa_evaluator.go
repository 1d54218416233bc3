package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.streetbites.stalls.allow"

// Default stall policy. Vendors may create stalls; only the owning vendor may change one.
const defaultRegoPolicy = `package streetbites.stalls

default allow := false

allow if {
	input.action == "create"
	input.actor.role == "vendor"
}

allow if {
	input.action in {"update", "delete", "update_menu"}
	input.actor.role == "vendor"
	input.actor.id != ""
	input.actor.id == input.resource.owner_id
}
`

// OPAEvaluator evaluates stall authorization with OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the default policy. Extra modules may override or extend
// data.streetbites.stalls; they are compiled together with the default.
func NewOPAEvaluator(extra ...string) (*OPAEvaluator, error) {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	for i, m := range extra {
		modules[fmt.Sprintf("policy_%d.rego", i+1)] = m
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// HealthCheck verifies that the compiled policy evaluates and denies an anonymous create.
// Does not touch the database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	ok, err := e.Allow(ctx, Request{Action: ActionCreate})
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("policy allowed anonymous create")
	}
	return nil
}

// Allow evaluates the policy for req. Undefined results deny.
func (e *OPAEvaluator) Allow(ctx context.Context, req Request) (bool, error) {
	q := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(e.compiler),
		rego.Input(buildInput(req)),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	v, _ := rs[0].Expressions[0].Value.(bool)
	return v, nil
}

func buildInput(req Request) map[string]interface{} {
	return map[string]interface{}{
		"action": req.Action,
		"actor": map[string]interface{}{
			"id":   req.ActorID,
			"role": req.ActorRole,
		},
		"resource": map[string]interface{}{
			"owner_id": req.OwnerID,
		},
	}
}
