package customer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

func TestApproval_HappyPath(t *testing.T) {
	a := NewApproval()
	finance := id.New()
	sales := id.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, a.ApplyFinance(Decision{Approve: true, Remarks: "credit check ok"}, finance, now))
	assert.Equal(t, StatusFinanceApproved, a.Status)
	assert.Equal(t, StageApproved, a.Finance.Status)
	assert.Equal(t, finance, *a.Finance.ReviewedByID)
	assert.Equal(t, "credit check ok", a.Finance.Remarks)
	assert.False(t, a.Terminal())

	require.NoError(t, a.ApplySales(Decision{Approve: true}, sales, now.Add(time.Hour)))
	assert.Equal(t, StatusSalesApproved, a.Status)
	assert.Equal(t, StageApproved, a.Sales.Status)
	assert.True(t, a.Terminal())
}

func TestApproval_SalesBeforeFinance(t *testing.T) {
	a := NewApproval()
	now := time.Now()

	err := a.ApplySales(Decision{Approve: true}, id.New(), now)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidStatus))

	// Nothing may change on a precondition failure.
	assert.Equal(t, NewApproval(), a)
}

func TestApproval_FinanceRejectionIsTerminal(t *testing.T) {
	a := NewApproval()
	now := time.Now()

	require.NoError(t, a.ApplyFinance(Decision{Approve: false, Remarks: "no credit history"}, id.New(), now))
	assert.Equal(t, StatusRejected, a.Status)
	assert.Equal(t, StageRejected, a.Finance.Status)
	assert.True(t, a.Terminal())

	// No stage accepts further decisions.
	err := a.ApplySales(Decision{Approve: true}, id.New(), now)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidStatus))
	err = a.ApplyFinance(Decision{Approve: true}, id.New(), now)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidStatus))
}

func TestApproval_SalesRejection(t *testing.T) {
	a := NewApproval()
	now := time.Now()

	require.NoError(t, a.ApplyFinance(Decision{Approve: true}, id.New(), now))
	require.NoError(t, a.ApplySales(Decision{Approve: false, Remarks: "territory covered"}, id.New(), now))

	assert.Equal(t, StatusRejected, a.Status)
	assert.Equal(t, StageApproved, a.Finance.Status)
	assert.Equal(t, StageRejected, a.Sales.Status)
	assert.True(t, a.Terminal())
}

func TestApproval_DoubleFinanceRejected(t *testing.T) {
	a := NewApproval()
	now := time.Now()

	require.NoError(t, a.ApplyFinance(Decision{Approve: true}, id.New(), now))
	before := a

	err := a.ApplyFinance(Decision{Approve: false}, id.New(), now)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidStatus))
	assert.Equal(t, before, a)
}
