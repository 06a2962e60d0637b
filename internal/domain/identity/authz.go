package identity

import (
	"fmt"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

// Action is the tagged set of operations gated by the resolver. Every
// handler routes its authorization decision through Resolver.CanAct with
// one of these values; there are no per-route role conditionals.
type Action string

const (
	// Employee record actions
	ActionEmployeeCreate     Action = "employee.create"
	ActionEmployeeView       Action = "employee.view"
	ActionEmployeeUpdate     Action = "employee.update"
	ActionEmployeeDeactivate Action = "employee.deactivate"

	// Customer record actions
	ActionCustomerCreate  Action = "customer.create"
	ActionCustomerView    Action = "customer.view"
	ActionCustomerUpdate  Action = "customer.update"
	ActionCustomerSuspend Action = "customer.suspend"

	// Approval workflow actions
	ActionFinanceReview Action = "customer.finance_review"
	ActionSalesReview   Action = "customer.sales_review"

	// Reference data actions
	ActionCatalogManage Action = "catalog.manage"

	// Audit trail actions
	ActionAuditView Action = "audit.view"
)

// customerAction reports whether a targets customer records.
func (a Action) customerAction() bool {
	switch a {
	case ActionCustomerCreate, ActionCustomerView, ActionCustomerUpdate,
		ActionCustomerSuspend, ActionFinanceReview, ActionSalesReview:
		return true
	}
	return false
}

// mutating reports whether a changes state (views are exempt from some
// scope rules).
func (a Action) mutating() bool {
	return a != ActionEmployeeView && a != ActionCustomerView
}

// Subject is the authorization view of a principal: just enough to decide
// tier dominance and organizational scope. Both employees and token claims
// project into it.
type Subject struct {
	ID         id.ID
	Tier       RoleTier
	Department Department
	Region     Region
	Kind       AccountKind
}

// sameScope reports whether two subjects share department and region.
func (s Subject) sameScope(o Subject) bool {
	return s.Department == o.Department && s.Region == o.Region
}

// Resolver is the single authorization decision point. Rules are evaluated
// in tier order; the first matching rule wins.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// CanAct decides whether actor may perform action on target. A nil target
// means the action is not record-directed (e.g. creating a new record or
// listing). Returns nil when allowed, a FORBIDDEN AppError otherwise.
func (r *Resolver) CanAct(actor Subject, action Action, target *Subject) error {
	if actor.Kind == AccountCustomer {
		return r.canCustomerAct(actor, action, target)
	}

	// No principal may act on a SUPERADMIN target unless it is itself
	// SUPERADMIN, and a SUPERADMIN is never deactivated by anyone else.
	if target != nil && target.Tier == TierSuperAdmin {
		if actor.Tier != TierSuperAdmin {
			return forbidden(action, "only a superadmin may act on a superadmin")
		}
		if action == ActionEmployeeDeactivate && actor.ID != target.ID {
			return forbidden(action, "a superadmin cannot be deactivated by another principal")
		}
	}

	// The audit trail is readable by the admin tiers only.
	if action == ActionAuditView {
		if actor.Tier == TierSuperAdmin || actor.Tier == TierSubAdmin {
			return nil
		}
		return forbidden(action, "audit history requires admin privileges")
	}

	// Customer-management actions require a customer-facing department
	// below the admin tiers.
	if action.customerAction() {
		return r.canManageCustomers(actor, action, target)
	}

	switch actor.Tier {
	case TierSuperAdmin:
		return nil

	case TierSubAdmin:
		// Admin tier acts on any non-superadmin target (checked above).
		return nil

	case TierSupervisor:
		return r.canSupervisorAct(actor, action, target)

	case TierEmployee:
		return r.canEmployeeAct(actor, action, target)
	}

	return forbidden(action, "unknown role tier")
}

// canSupervisorAct scopes a supervisor to its own department and region.
func (r *Resolver) canSupervisorAct(actor Subject, action Action, target *Subject) error {
	if action == ActionCatalogManage {
		return forbidden(action, "catalog management requires admin privileges")
	}
	if target == nil {
		// Creation and listing are scoped by the service to the
		// supervisor's department/region.
		return nil
	}
	if !actor.sameScope(*target) {
		return forbidden(action, "target is outside your department and region")
	}
	switch target.Tier {
	case TierEmployee:
		return nil
	case TierSupervisor:
		// Own record, or read-only visibility of peer supervisors.
		if target.ID == actor.ID || action == ActionEmployeeView {
			return nil
		}
	}
	return forbidden(action, "supervisors may only manage employees in their scope")
}

// canEmployeeAct limits the lowest tier to its own record plus read-only
// visibility of co-located employees.
func (r *Resolver) canEmployeeAct(actor Subject, action Action, target *Subject) error {
	if target != nil && target.ID == actor.ID {
		if action == ActionEmployeeDeactivate {
			return forbidden(action, "insufficient privileges to deactivate accounts")
		}
		return nil
	}
	if !action.mutating() && target != nil &&
		actor.sameScope(*target) && target.Tier == TierEmployee {
		return nil
	}
	return forbidden(action, "insufficient privileges")
}

// canManageCustomers enforces the customer-management department allow-list
// and, below the admin tiers, the actor's region boundary.
func (r *Resolver) canManageCustomers(actor Subject, action Action, target *Subject) error {
	if actor.Tier == TierSuperAdmin || actor.Tier == TierSubAdmin {
		return nil
	}
	if !actor.Department.CustomerFacing() {
		return forbidden(action, "customer management requires a customer-facing department")
	}
	if target != nil && target.Kind == AccountCustomer && target.Region != actor.Region {
		return forbidden(action, "customer is outside your region")
	}
	switch action {
	case ActionFinanceReview:
		if actor.Department != DeptFinance {
			return forbidden(action, "finance review requires the finance department")
		}
	case ActionSalesReview:
		if actor.Department != DeptSales {
			return forbidden(action, "sales review requires the sales department")
		}
	case ActionCustomerSuspend:
		return forbidden(action, "suspension requires admin privileges")
	}
	return nil
}

// canCustomerAct limits customer principals to their own record.
func (r *Resolver) canCustomerAct(actor Subject, action Action, target *Subject) error {
	switch action {
	case ActionCustomerView, ActionCustomerUpdate:
		if target != nil && target.Kind == AccountCustomer && target.ID == actor.ID {
			return nil
		}
	}
	return forbidden(action, "customers may only act on their own record")
}

// ValidateSupervisorAssignment enforces the self-assignment rule: a
// supervisor creating an EMPLOYEE must become that employee's supervisor.
func (r *Resolver) ValidateSupervisorAssignment(actor Subject, supervisorID id.ID) error {
	if actor.Tier == TierSupervisor && supervisorID != actor.ID {
		return apperror.NewForbidden("supervisors can only assign themselves as supervisor")
	}
	return nil
}

func forbidden(action Action, reason string) *apperror.AppError {
	return apperror.NewForbidden(fmt.Sprintf("not allowed to perform %s: %s", action, reason)).
		WithDetail("action", string(action))
}
