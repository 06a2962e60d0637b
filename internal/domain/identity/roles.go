// Package identity provides employee principals, authentication and the
// hierarchical role/scope authorization model.
package identity

// RoleTier is the position of a principal in the management hierarchy.
type RoleTier string

const (
	TierSuperAdmin RoleTier = "SUPERADMIN"
	TierSubAdmin   RoleTier = "SUBADMIN"
	TierSupervisor RoleTier = "SUPERVISOR"
	TierEmployee   RoleTier = "EMPLOYEE"

	// TierCustomer is the fixed tier carried by customer principals.
	TierCustomer RoleTier = "CUSTOMER"
)

// Valid reports whether t is an assignable employee tier.
func (t RoleTier) Valid() bool {
	switch t {
	case TierSuperAdmin, TierSubAdmin, TierSupervisor, TierEmployee:
		return true
	}
	return false
}

// Department is an organizational scope dimension.
type Department string

const (
	DeptLab             Department = "LAB"
	DeptStore           Department = "STORE"
	DeptDispatch        Department = "DISPATCH"
	DeptSales           Department = "SALES"
	DeptFinance         Department = "FINANCE"
	DeptCustomerSupport Department = "CUSTOMER_SUPPORT"
)

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	switch d {
	case DeptLab, DeptStore, DeptDispatch, DeptSales, DeptFinance, DeptCustomerSupport:
		return true
	}
	return false
}

// customerFacing departments may manage customer records (below admin tiers).
var customerFacing = map[Department]bool{
	DeptSales:           true,
	DeptFinance:         true,
	DeptCustomerSupport: true,
}

// CustomerFacing reports whether d is on the customer-management allow-list.
func (d Department) CustomerFacing() bool {
	return customerFacing[d]
}

// Region is the second organizational scope dimension.
type Region string

const (
	RegionNorth Region = "NORTH"
	RegionSouth Region = "SOUTH"
	RegionEast  Region = "EAST"
	RegionWest  Region = "WEST"
)

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	switch r {
	case RegionNorth, RegionSouth, RegionEast, RegionWest:
		return true
	}
	return false
}

// AccountKind distinguishes the two principal kinds carried in token claims.
type AccountKind string

const (
	AccountEmployee AccountKind = "EMPLOYEE"
	AccountCustomer AccountKind = "CUSTOMER"
)

// Permissions is the capability set derived from a principal's tier and
// department. It is computed on demand, never persisted, so it cannot go
// stale when the tier changes.
type Permissions struct {
	CanCreateEmployees  bool `json:"canCreateEmployees"`
	CanManageEmployees  bool `json:"canManageEmployees"`
	CanManageCustomers  bool `json:"canManageCustomers"`
	CanApproveFinance   bool `json:"canApproveFinance"`
	CanApproveSales     bool `json:"canApproveSales"`
	CanManageCatalog    bool `json:"canManageCatalog"`
	CanViewReports      bool `json:"canViewReports"`
	CanManageSettings   bool `json:"canManageSettings"`
}

// DerivePermissions computes the capability set for a tier/department pair.
func DerivePermissions(tier RoleTier, dept Department) Permissions {
	admin := tier == TierSuperAdmin || tier == TierSubAdmin
	return Permissions{
		CanCreateEmployees: admin || tier == TierSupervisor,
		CanManageEmployees: admin || tier == TierSupervisor,
		CanManageCustomers: admin || dept.CustomerFacing(),
		CanApproveFinance:  admin || dept == DeptFinance,
		CanApproveSales:    admin || dept == DeptSales,
		CanManageCatalog:   admin,
		CanViewReports:     tier != TierEmployee,
		CanManageSettings:  admin,
	}
}
