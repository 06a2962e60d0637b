package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePermissions(t *testing.T) {
	admin := DerivePermissions(TierSubAdmin, DeptLab)
	assert.True(t, admin.CanCreateEmployees)
	assert.True(t, admin.CanManageCustomers)
	assert.True(t, admin.CanApproveFinance)
	assert.True(t, admin.CanApproveSales)
	assert.True(t, admin.CanManageCatalog)
	assert.True(t, admin.CanManageSettings)

	supervisor := DerivePermissions(TierSupervisor, DeptSales)
	assert.True(t, supervisor.CanCreateEmployees)
	assert.True(t, supervisor.CanApproveSales)
	assert.False(t, supervisor.CanApproveFinance)
	assert.False(t, supervisor.CanManageCatalog)
	assert.True(t, supervisor.CanViewReports)

	financeClerk := DerivePermissions(TierEmployee, DeptFinance)
	assert.True(t, financeClerk.CanApproveFinance)
	assert.True(t, financeClerk.CanManageCustomers)
	assert.False(t, financeClerk.CanApproveSales)
	assert.False(t, financeClerk.CanCreateEmployees)
	assert.False(t, financeClerk.CanViewReports)

	labWorker := DerivePermissions(TierEmployee, DeptLab)
	assert.False(t, labWorker.CanManageCustomers)
}
