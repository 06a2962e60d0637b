package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

func subject(tier RoleTier, dept Department, region Region) Subject {
	return Subject{
		ID:         id.New(),
		Tier:       tier,
		Department: dept,
		Region:     region,
		Kind:       AccountEmployee,
	}
}

func TestCanAct_TierDominance(t *testing.T) {
	r := NewResolver()

	superAdmin := subject(TierSuperAdmin, "", "")
	subAdmin := subject(TierSubAdmin, DeptSales, RegionNorth)
	supervisor := subject(TierSupervisor, DeptLab, RegionNorth)
	employee := subject(TierEmployee, DeptLab, RegionNorth)

	tests := []struct {
		name    string
		actor   Subject
		action  Action
		target  *Subject
		allowed bool
	}{
		{"superadmin manages anyone", superAdmin, ActionEmployeeUpdate, &employee, true},
		{"superadmin deactivates subordinates", superAdmin, ActionEmployeeDeactivate, &supervisor, true},
		{"subadmin manages supervisor", subAdmin, ActionEmployeeUpdate, &supervisor, true},
		{"subadmin cannot touch superadmin", subAdmin, ActionEmployeeUpdate, &superAdmin, false},
		{"supervisor cannot touch superadmin", supervisor, ActionEmployeeView, &superAdmin, false},
		{"supervisor manages own employee", supervisor, ActionEmployeeUpdate, &employee, true},
		{"employee cannot update peer", employee, ActionEmployeeUpdate, &supervisor, false},
		{"subadmin manages catalog", subAdmin, ActionCatalogManage, nil, true},
		{"supervisor cannot manage catalog", supervisor, ActionCatalogManage, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.CanAct(tt.actor, tt.action, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
			}
		})
	}
}

func TestCanAct_SuperAdminDeactivationIsSelfOnly(t *testing.T) {
	r := NewResolver()
	root := subject(TierSuperAdmin, "", "")
	other := subject(TierSuperAdmin, "", "")

	assert.Error(t, r.CanAct(other, ActionEmployeeDeactivate, &root))
	assert.NoError(t, r.CanAct(root, ActionEmployeeDeactivate, &root))
}

func TestCanAct_SupervisorScope(t *testing.T) {
	r := NewResolver()
	supervisor := subject(TierSupervisor, DeptLab, RegionNorth)

	sameScope := subject(TierEmployee, DeptLab, RegionNorth)
	otherDept := subject(TierEmployee, DeptStore, RegionNorth)
	otherRegion := subject(TierEmployee, DeptLab, RegionSouth)
	peer := subject(TierSupervisor, DeptLab, RegionNorth)

	assert.NoError(t, r.CanAct(supervisor, ActionEmployeeUpdate, &sameScope))
	assert.NoError(t, r.CanAct(supervisor, ActionEmployeeDeactivate, &sameScope))
	assert.Error(t, r.CanAct(supervisor, ActionEmployeeUpdate, &otherDept))
	assert.Error(t, r.CanAct(supervisor, ActionEmployeeUpdate, &otherRegion))

	// Peer supervisors are visible but not manageable.
	assert.NoError(t, r.CanAct(supervisor, ActionEmployeeView, &peer))
	assert.Error(t, r.CanAct(supervisor, ActionEmployeeUpdate, &peer))

	// Own record is manageable.
	assert.NoError(t, r.CanAct(supervisor, ActionEmployeeUpdate, &supervisor))
}

func TestCanAct_EmployeeScope(t *testing.T) {
	r := NewResolver()
	employee := subject(TierEmployee, DeptLab, RegionNorth)
	colleague := subject(TierEmployee, DeptLab, RegionNorth)
	remote := subject(TierEmployee, DeptLab, RegionSouth)

	assert.NoError(t, r.CanAct(employee, ActionEmployeeView, &employee))
	assert.NoError(t, r.CanAct(employee, ActionEmployeeUpdate, &employee))
	assert.Error(t, r.CanAct(employee, ActionEmployeeDeactivate, &employee))

	// Co-located employees are read-only.
	assert.NoError(t, r.CanAct(employee, ActionEmployeeView, &colleague))
	assert.Error(t, r.CanAct(employee, ActionEmployeeUpdate, &colleague))
	assert.Error(t, r.CanAct(employee, ActionEmployeeView, &remote))
}

func TestCanAct_CustomerManagement(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name    string
		actor   Subject
		action  Action
		allowed bool
	}{
		{"finance employee reviews finance stage", subject(TierEmployee, DeptFinance, RegionNorth), ActionFinanceReview, true},
		{"sales employee cannot review finance stage", subject(TierEmployee, DeptSales, RegionNorth), ActionFinanceReview, false},
		{"sales supervisor reviews sales stage", subject(TierSupervisor, DeptSales, RegionNorth), ActionSalesReview, true},
		{"finance employee cannot review sales stage", subject(TierEmployee, DeptFinance, RegionNorth), ActionSalesReview, false},
		{"lab employee cannot view customers", subject(TierEmployee, DeptLab, RegionNorth), ActionCustomerView, false},
		{"support employee views customers", subject(TierEmployee, DeptCustomerSupport, RegionNorth), ActionCustomerView, true},
		{"support employee cannot suspend", subject(TierEmployee, DeptCustomerSupport, RegionNorth), ActionCustomerSuspend, false},
		{"subadmin reviews either stage", subject(TierSubAdmin, DeptLab, RegionNorth), ActionFinanceReview, true},
		{"superadmin suspends", subject(TierSuperAdmin, "", ""), ActionCustomerSuspend, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.CanAct(tt.actor, tt.action, nil)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCanAct_CustomerRegionBoundary(t *testing.T) {
	r := NewResolver()
	northCustomer := Subject{ID: id.New(), Tier: TierCustomer, Region: RegionNorth, Kind: AccountCustomer}

	salesSouth := subject(TierSupervisor, DeptSales, RegionSouth)
	salesNorth := subject(TierSupervisor, DeptSales, RegionNorth)
	financeSouth := subject(TierEmployee, DeptFinance, RegionSouth)
	subAdmin := subject(TierSubAdmin, DeptSales, RegionSouth)

	// Below the admin tiers, single-customer actions stop at the region.
	assert.Error(t, r.CanAct(salesSouth, ActionSalesReview, &northCustomer))
	assert.Error(t, r.CanAct(salesSouth, ActionCustomerView, &northCustomer))
	assert.Error(t, r.CanAct(financeSouth, ActionFinanceReview, &northCustomer))
	assert.NoError(t, r.CanAct(salesNorth, ActionSalesReview, &northCustomer))

	// Admin tiers cross regions freely.
	assert.NoError(t, r.CanAct(subAdmin, ActionSalesReview, &northCustomer))
}

func TestCanAct_AuditView(t *testing.T) {
	r := NewResolver()

	assert.NoError(t, r.CanAct(subject(TierSuperAdmin, "", ""), ActionAuditView, nil))
	assert.NoError(t, r.CanAct(subject(TierSubAdmin, DeptSales, RegionNorth), ActionAuditView, nil))
	assert.Error(t, r.CanAct(subject(TierSupervisor, DeptSales, RegionNorth), ActionAuditView, nil))
	assert.Error(t, r.CanAct(subject(TierEmployee, DeptFinance, RegionNorth), ActionAuditView, nil))
}

func TestCanAct_CustomerPrincipal(t *testing.T) {
	r := NewResolver()
	customer := Subject{ID: id.New(), Tier: TierCustomer, Kind: AccountCustomer}
	self := customer
	otherCustomer := Subject{ID: id.New(), Tier: TierCustomer, Kind: AccountCustomer}
	employee := subject(TierEmployee, DeptLab, RegionNorth)

	assert.NoError(t, r.CanAct(customer, ActionCustomerView, &self))
	assert.NoError(t, r.CanAct(customer, ActionCustomerUpdate, &self))
	assert.Error(t, r.CanAct(customer, ActionCustomerView, &otherCustomer))
	assert.Error(t, r.CanAct(customer, ActionEmployeeView, &employee))
	assert.Error(t, r.CanAct(customer, ActionFinanceReview, nil))
}

func TestValidateSupervisorAssignment(t *testing.T) {
	r := NewResolver()
	supervisor := subject(TierSupervisor, DeptLab, RegionNorth)
	admin := subject(TierSubAdmin, DeptLab, RegionNorth)
	someoneElse := id.New()

	assert.NoError(t, r.ValidateSupervisorAssignment(supervisor, supervisor.ID))
	assert.Error(t, r.ValidateSupervisorAssignment(supervisor, someoneElse))
	assert.NoError(t, r.ValidateSupervisorAssignment(admin, someoneElse))
}
