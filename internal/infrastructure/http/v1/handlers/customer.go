package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/core/ratelimit"
	"visualeyes/internal/domain/customer"
	"visualeyes/internal/domain/identity"
	"visualeyes/internal/infrastructure/http/v1/dto"
	"visualeyes/pkg/logger"
)

// CustomerHandler serves customer account and approval endpoints.
type CustomerHandler struct {
	BaseHandler
	svc     *customer.Service
	limiter ratelimit.Limiter
}

// NewCustomerHandler creates a customer handler.
func NewCustomerHandler(svc *customer.Service, limiter ratelimit.Limiter) *CustomerHandler {
	return &CustomerHandler{svc: svc, limiter: limiter}
}

// customerListQuery binds customer listing filters.
type customerListQuery struct {
	dto.PaginationRequest
	Search         string `form:"search"`
	Region         string `form:"region"`
	ApprovalStatus string `form:"approvalStatus"`
	IsActive       *bool  `form:"isActive"`
	IsSuspended    *bool  `form:"isSuspended"`
}

func (q customerListQuery) filter() customer.Filter {
	return customer.Filter{
		Search:         q.Search,
		Region:         identity.Region(q.Region),
		ApprovalStatus: customer.ApprovalStatus(q.ApprovalStatus),
		IsActive:       q.IsActive,
		IsSuspended:    q.IsSuspended,
		Limit:          q.PageSize,
		Offset:         q.Offset(),
	}
}

// Login handles customer authentication.
// POST /customers/login
func (h *CustomerHandler) Login(c *gin.Context) {
	var creds identity.Credentials
	if !h.BindJSON(c, &creds) {
		return
	}

	if !h.allowAttempt(c, creds.Identifier) {
		return
	}

	pair, cust, err := h.svc.Login(c.Request.Context(), creds)
	if err != nil {
		h.Error(c, err)
		return
	}

	setAuthCookies(c, pair)
	h.OK(c, gin.H{"tokens": pair, "customer": cust})
}

// Register creates a customer account pending dual approval. The actor
// must be an employee authorized for customer management.
// POST /customers/register
func (h *CustomerHandler) Register(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var req customer.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if !h.allowAttempt(c, req.Email) {
		return
	}

	cust, err := h.svc.Register(c.Request.Context(), actor, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cust)
}

// VerifyEmail submits the registration OTP.
// POST /customers/verify-email
func (h *CustomerHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.svc.VerifyEmail(c.Request.Context(), req.Identifier, req.OTP); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "email verified")
}

// Profile returns the authenticated customer's own record.
// GET /customers/profile
func (h *CustomerHandler) Profile(c *gin.Context) {
	sub, ok := h.Subject(c)
	if !ok {
		return
	}

	cust, err := h.svc.GetProfile(c.Request.Context(), sub, sub.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Get retrieves one customer record.
// GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	cust, err := h.svc.GetProfile(c.Request.Context(), actor, customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// List handles region-scoped customer listing.
// GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var q customerListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	customers, total, err := h.svc.List(c.Request.Context(), actor, q.filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListData(customers, total, q.PaginationRequest))
}

// PendingFinanceApprovals lists applications awaiting finance review.
// GET /customers/pending-finance-approvals
func (h *CustomerHandler) PendingFinanceApprovals(c *gin.Context) {
	h.pendingList(c, h.svc.PendingFinanceApprovals)
}

// PendingSalesApprovals lists applications awaiting sales review.
// GET /customers/pending-sales-approvals
func (h *CustomerHandler) PendingSalesApprovals(c *gin.Context) {
	h.pendingList(c, h.svc.PendingSalesApprovals)
}

func (h *CustomerHandler) pendingList(
	c *gin.Context,
	list func(context.Context, identity.Subject, customer.Filter) ([]customer.Customer, int, error),
) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var q customerListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	customers, total, err := list(c.Request.Context(), actor, q.filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListData(customers, total, q.PaginationRequest))
}

// FinanceReview records the finance-stage decision.
// PUT /customers/:id/finance-review
func (h *CustomerHandler) FinanceReview(c *gin.Context) {
	h.review(c, h.svc.FinanceReview)
}

// SalesReview records the sales-stage decision.
// PUT /customers/:id/sales-review
func (h *CustomerHandler) SalesReview(c *gin.Context) {
	h.review(c, h.svc.SalesReview)
}

func (h *CustomerHandler) review(
	c *gin.Context,
	apply func(context.Context, identity.Subject, id.ID, customer.Decision) (*customer.Customer, error),
) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := apply(c.Request.Context(), actor, customerID, customer.Decision{
		Approve: *req.Approve,
		Remarks: req.Remarks,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Suspend suspends an approved customer account.
// PUT /customers/:id/suspend
func (h *CustomerHandler) Suspend(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SuspendRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.svc.Suspend(c.Request.Context(), actor, customerID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Update applies profile changes to a customer.
// PUT /customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req customer.UpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.svc.Update(c.Request.Context(), actor, customerID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// ForgotPassword starts the customer password-reset flow.
// POST /customers/forgot-password
func (h *CustomerHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if !h.allowAttempt(c, req.Identifier) {
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), req.Identifier); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "If the account exists, a reset link has been sent")
}

// ResetPassword completes the customer password-reset flow.
// PUT /customers/reset-password/:token
func (h *CustomerHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "password has been reset")
}

// UpdatePassword rotates the authenticated customer's password.
// PUT /customers/update-password
func (h *CustomerHandler) UpdatePassword(c *gin.Context) {
	sub, ok := h.Subject(c)
	if !ok {
		return
	}
	if sub.Kind != identity.AccountCustomer {
		h.Error(c, apperror.NewForbidden("customer account required"))
		return
	}

	var req dto.UpdatePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.svc.UpdatePassword(c.Request.Context(), sub.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "password updated")
}

func (h *CustomerHandler) allowAttempt(c *gin.Context, identifier string) bool {
	allowed, err := h.limiter.Allow(c.Request.Context(), ratelimit.Key(c.ClientIP(), identifier))
	if err != nil {
		logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
		return true
	}
	if !allowed {
		h.Error(c, apperror.NewRateLimited())
		return false
	}
	return true
}
