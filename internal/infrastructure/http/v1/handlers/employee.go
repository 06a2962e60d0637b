package handlers

import (
	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
	"visualeyes/internal/infrastructure/http/v1/dto"
)

// EmployeeHandler serves employee management endpoints.
type EmployeeHandler struct {
	BaseHandler
	svc *identity.Service
}

// NewEmployeeHandler creates an employee handler.
func NewEmployeeHandler(svc *identity.Service) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

// employeeListQuery binds employee listing filters.
type employeeListQuery struct {
	dto.PaginationRequest
	Search       string `form:"search"`
	RoleTier     string `form:"roleTier"`
	Department   string `form:"department"`
	Region       string `form:"region"`
	SupervisorID string `form:"supervisorId"`
	IsActive     *bool  `form:"isActive"`
}

// Create handles employee creation under the tiered creation rules.
// POST /employees
func (h *EmployeeHandler) Create(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var req identity.CreateEmployeeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	employee, err := h.svc.CreateEmployee(c.Request.Context(), actor, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, employee)
}

// List handles hierarchy-scoped employee listing.
// GET /employees
func (h *EmployeeHandler) List(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var q employeeListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	filter := identity.EmployeeFilter{
		Search:     q.Search,
		RoleTier:   identity.RoleTier(q.RoleTier),
		Department: identity.Department(q.Department),
		Region:     identity.Region(q.Region),
		IsActive:   q.IsActive,
		Limit:      q.PageSize,
		Offset:     q.Offset(),
	}
	if q.SupervisorID != "" {
		supervisorID, err := id.Parse(q.SupervisorID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid supervisorId"))
			return
		}
		filter.SupervisorID = &supervisorID
	}

	employees, total, err := h.svc.ListEmployees(c.Request.Context(), actor, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListData(employees, total, q.PaginationRequest))
}

// Supervisors lists active supervisors visible to the actor, for
// assignment dropdowns.
// GET /employees/supervisors
func (h *EmployeeHandler) Supervisors(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var q employeeListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	active := true
	filter := identity.EmployeeFilter{
		Search:     q.Search,
		RoleTier:   identity.TierSupervisor,
		Department: identity.Department(q.Department),
		Region:     identity.Region(q.Region),
		IsActive:   &active,
		Limit:      q.PageSize,
		Offset:     q.Offset(),
	}

	supervisors, total, err := h.svc.ListEmployees(c.Request.Context(), actor, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListData(supervisors, total, q.PaginationRequest))
}

// Get retrieves a single employee.
// GET /employees/:id
func (h *EmployeeHandler) Get(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	employeeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	employee, err := h.svc.GetEmployee(c.Request.Context(), actor, employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, employee)
}

// Update applies profile changes to an employee.
// PUT /employees/:id
func (h *EmployeeHandler) Update(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	employeeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req identity.UpdateEmployeeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	employee, err := h.svc.UpdateEmployee(c.Request.Context(), actor, employeeID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, employee)
}

// Deactivate marks an employee account inactive. Accounts are never
// hard-deleted.
// DELETE /employees/:id
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	employeeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeactivateEmployee(c.Request.Context(), actor, employeeID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "employee deactivated")
}
