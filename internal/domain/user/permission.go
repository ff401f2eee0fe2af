package user

import (
	"context"
	"fmt"
)

type Resource string

const (
	ResourceLedger  Resource = "ledger"
	ResourceAdvance Resource = "advance"
	ResourceExpense Resource = "expense"
	ResourcePayroll Resource = "payroll"
)

type Action string

const (
	ActionRead     Action = "read"
	ActionCreate   Action = "create"
	ActionApprove  Action = "approve"
	ActionPay      Action = "pay"
	ActionCancel   Action = "cancel"
	ActionReverse  Action = "reverse"
	ActionClose    Action = "close"
	ActionDeduct   Action = "deduct"
	ActionGenerate Action = "generate"
	ActionManage   Action = "manage"
)

// Capability is a (resource, action) pair granted to a role.
type Capability struct {
	Resource Resource
	Action   Action
}

func (c Capability) String() string {
	return string(c.Resource) + "." + string(c.Action)
}

func Can(resource Resource, action Action) Capability {
	return Capability{Resource: resource, Action: action}
}

type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func allOf(resource Resource, actions ...Action) []Capability {
	caps := make([]Capability, 0, len(actions))
	for _, a := range actions {
		caps = append(caps, Can(resource, a))
	}
	return caps
}

func join(groups ...[]Capability) []Capability {
	var out []Capability
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// RoleCapabilities maps roles to their capability sets
var RoleCapabilities = map[Role]CapabilitySet{
	RoleOwner: NewCapabilitySet(join(
		allOf(ResourceLedger, ActionRead, ActionCreate, ActionApprove, ActionCancel, ActionReverse, ActionClose),
		allOf(ResourceAdvance, ActionRead, ActionCreate, ActionApprove, ActionPay, ActionCancel, ActionDeduct),
		allOf(ResourceExpense, ActionRead, ActionCreate, ActionApprove, ActionPay, ActionCancel, ActionDeduct),
		allOf(ResourcePayroll, ActionRead, ActionCreate, ActionGenerate, ActionApprove, ActionPay, ActionCancel, ActionManage),
	)...),
	RoleManager: NewCapabilitySet(join(
		allOf(ResourceLedger, ActionRead, ActionCreate, ActionApprove, ActionCancel, ActionClose),
		allOf(ResourceAdvance, ActionRead, ActionCreate, ActionApprove, ActionPay, ActionCancel, ActionDeduct),
		allOf(ResourceExpense, ActionRead, ActionCreate, ActionApprove, ActionPay, ActionCancel, ActionDeduct),
		allOf(ResourcePayroll, ActionRead, ActionCreate, ActionGenerate, ActionApprove, ActionCancel),
	)...),
	RoleCashier: NewCapabilitySet(join(
		allOf(ResourceLedger, ActionRead, ActionCreate),
		allOf(ResourceAdvance, ActionRead, ActionCreate),
		allOf(ResourceExpense, ActionRead, ActionCreate),
	)...),
	RoleEmployee: NewCapabilitySet(
		Can(ResourceAdvance, ActionCreate),
		Can(ResourceExpense, ActionCreate),
	),
}

// HasCapability checks if a role holds a capability
func HasCapability(role Role, c Capability) bool {
	set, ok := RoleCapabilities[role]
	if !ok {
		return false
	}
	return set.Has(c)
}

// Authorizer decides whether an actor may perform an operation.
type Authorizer interface {
	Authorize(ctx context.Context, actor Actor, c Capability) error
}

// RoleAuthorizer authorizes by the static role capability table.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{}
}

func (RoleAuthorizer) Authorize(_ context.Context, actor Actor, c Capability) error {
	if actor.BusinessID == "" {
		return ErrBusinessIDRequired
	}
	if !HasCapability(actor.Role, c) {
		return fmt.Errorf("%w: required %q, role %q", ErrInsufficientPermissions, c, actor.Role)
	}
	return nil
}
