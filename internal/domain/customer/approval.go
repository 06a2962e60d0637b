package customer

import (
	"time"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

// ApprovalStatus is the overall position of a customer in the two-stage
// onboarding workflow.
type ApprovalStatus string

const (
	StatusPending         ApprovalStatus = "PENDING"
	StatusFinanceApproved ApprovalStatus = "FINANCE_APPROVED"
	StatusSalesApproved   ApprovalStatus = "SALES_APPROVED"
	StatusRejected        ApprovalStatus = "REJECTED"
)

// StageStatus is the state of a single review stage.
type StageStatus string

const (
	StagePending  StageStatus = "PENDING"
	StageApproved StageStatus = "APPROVED"
	StageRejected StageStatus = "REJECTED"
)

// Stage records one review decision.
type Stage struct {
	Status       StageStatus `db:"status" json:"status"`
	ReviewedByID *id.ID      `db:"reviewed_by_id" json:"reviewedById,omitempty"`
	ReviewedAt   *time.Time  `db:"reviewed_at" json:"reviewedAt,omitempty"`
	Remarks      string      `db:"remarks" json:"remarks,omitempty"`
}

// Approval is the embedded approval record. Finance reviews first; the
// sales stage opens only after finance approves. A rejection at either
// stage is terminal.
type Approval struct {
	Status  ApprovalStatus `db:"status" json:"status"`
	Finance Stage          `db:"finance" json:"financeApproval"`
	Sales   Stage          `db:"sales" json:"salesApproval"`
}

// NewApproval returns the initial pending record.
func NewApproval() Approval {
	return Approval{
		Status:  StatusPending,
		Finance: Stage{Status: StagePending},
		Sales:   Stage{Status: StagePending},
	}
}

// Decision is a single reviewer verdict.
type Decision struct {
	Approve bool
	Remarks string
}

// ApplyFinance applies the finance-stage decision. It fails with
// InvalidStatus, mutating nothing, unless the workflow is still PENDING.
func (a *Approval) ApplyFinance(d Decision, reviewer id.ID, now time.Time) error {
	if a.Status != StatusPending {
		return apperror.NewInvalidStatus(
			"finance review requires a pending application, current status is " + string(a.Status))
	}

	a.Finance = Stage{
		Status:       StageApproved,
		ReviewedByID: &reviewer,
		ReviewedAt:   &now,
		Remarks:      d.Remarks,
	}
	if d.Approve {
		a.Status = StatusFinanceApproved
	} else {
		a.Finance.Status = StageRejected
		a.Status = StatusRejected
	}
	return nil
}

// ApplySales applies the sales-stage decision. It fails with
// InvalidStatus, mutating nothing, unless finance has already approved.
func (a *Approval) ApplySales(d Decision, reviewer id.ID, now time.Time) error {
	if a.Status != StatusFinanceApproved {
		return apperror.NewInvalidStatus(
			"sales review requires finance approval first, current status is " + string(a.Status))
	}

	a.Sales = Stage{
		Status:       StageApproved,
		ReviewedByID: &reviewer,
		ReviewedAt:   &now,
		Remarks:      d.Remarks,
	}
	if d.Approve {
		a.Status = StatusSalesApproved
	} else {
		a.Sales.Status = StageRejected
		a.Status = StatusRejected
	}
	return nil
}

// Terminal reports whether no further review is possible.
func (a *Approval) Terminal() bool {
	return a.Status == StatusSalesApproved || a.Status == StatusRejected
}
