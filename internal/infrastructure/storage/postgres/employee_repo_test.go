package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

func TestEmployeeFilterConds(t *testing.T) {
	repo := NewEmployeeRepo(nil)
	supervisorID := id.MustParse("018f3b1c-0000-7000-8000-000000000001")
	active := true

	tests := []struct {
		name     string
		filter   identity.EmployeeFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "tier only",
			filter:   identity.EmployeeFilter{RoleTier: identity.TierSupervisor},
			wantSQL:  "SELECT id FROM employees WHERE role_tier = $1",
			wantArgs: []any{identity.TierSupervisor},
		},
		{
			name: "scope pair",
			filter: identity.EmployeeFilter{
				Department: identity.DeptSales,
				Region:     identity.RegionWest,
			},
			wantSQL:  "SELECT id FROM employees WHERE department = $1 AND region = $2",
			wantArgs: []any{identity.DeptSales, identity.RegionWest},
		},
		{
			name:     "supervisor and active",
			filter:   identity.EmployeeFilter{SupervisorID: &supervisorID, IsActive: &active},
			wantSQL:  "SELECT id FROM employees WHERE supervisor_id = $1 AND is_active = $2",
			wantArgs: []any{supervisorID, true},
		},
		{
			name:   "search spans identity columns",
			filter: identity.EmployeeFilter{Search: "rao"},
			wantSQL: "SELECT id FROM employees WHERE (username ILIKE $1 OR email ILIKE $2 " +
				"OR first_name ILIKE $3 OR last_name ILIKE $4 OR employee_code ILIKE $5)",
			wantArgs: []any{"%rao%", "%rao%", "%rao%", "%rao%", "%rao%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := repo.builder().Select("id").From(employeeTable)
			for _, cond := range repo.filterConds(tt.filter) {
				q = q.Where(cond)
			}

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
