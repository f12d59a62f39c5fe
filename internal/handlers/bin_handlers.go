package handlers

import (
	"net/http"

	"binledger/internal/common"
	"binledger/internal/models"
	"binledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// BinHandlers serves bins, stock movements, the ledger and integrity checks
type BinHandlers struct {
	binService       services.BinService
	movementService  services.MovementService
	integrityService services.IntegrityService
	ledgerService    services.LedgerService
}

func NewBinHandlers(
	binService services.BinService,
	movementService services.MovementService,
	integrityService services.IntegrityService,
	ledgerService services.LedgerService,
) *BinHandlers {
	return &BinHandlers{
		binService:       binService,
		movementService:  movementService,
		integrityService: integrityService,
		ledgerService:    ledgerService,
	}
}

// Register mounts the bin routes on g
func (h *BinHandlers) Register(g *echo.Group) {
	g.GET("/bins", h.ListBins)
	g.POST("/bins", h.CreateBin)
	g.GET("/bins/:id", h.GetBin)
	g.POST("/bins/:id/assign-agent", h.AssignAgent)
	g.POST("/bins/:id/deduct", h.DeductInventory)
	g.POST("/bins/:id/add", h.AddInventory)
	g.GET("/bins/:id/audit-logs", h.ListAuditLogs)
	g.GET("/bins/:id/integrity", h.ValidateIntegrity)
	g.GET("/integrity/sweep", h.LastSweep)
}

// ListBinsRequest represents query parameters for listing bins
type ListBinsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=active inactive"`
	Type   string `query:"type" validate:"omitempty,oneof=generic delivery_agent"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

// ListAuditLogsRequest represents query parameters for a bin's ledger
type ListAuditLogsRequest struct {
	Action string `query:"action" validate:"omitempty,oneof=addition deduction agent_assignment"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func binIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := common.ValidateUUID(c.Param("id"), "bin id")
	if err != nil {
		return uuid.Nil, common.NewValidationError("id", err.Error())
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return common.NewValidationError("body", "invalid request format")
	}
	return c.Validate(req)
}

// resolveActor prefers the authenticated caller over the user_id in the body.
// Neither present means the write is recorded as unattributed.
func resolveActor(c echo.Context, bodyUserID *uuid.UUID) models.Actor {
	if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
		return models.AttributedTo(userID)
	}
	if bodyUserID != nil && *bodyUserID != uuid.Nil {
		return models.AttributedTo(*bodyUserID)
	}
	return models.UnattributedActor()
}

// ListBins godoc
// @Summary      List bins
// @Tags         bins
// @Produce      json
// @Param        status  query  string  false  "active or inactive"
// @Param        type    query  string  false  "generic or delivery_agent"
// @Param        limit   query  int     false  "page size"
// @Param        offset  query  int     false  "page offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /bins [get]
func (h *BinHandlers) ListBins(c echo.Context) error {
	var req ListBinsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	limit, offset, err := common.ValidatePaginationParams(req.Limit, req.Offset)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	filter := &models.BinFilter{Limit: limit, Offset: offset}
	if req.Status != "" {
		status := models.BinStatus(req.Status)
		filter.Status = &status
	}
	if req.Type != "" {
		binType := models.BinType(req.Type)
		filter.Type = &binType
	}

	bins, total, err := h.binService.List(c.Request().Context(), filter)
	if err != nil {
		return common.SendAppError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"bins":   bins,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// CreateBin godoc
// @Summary      Create a bin
// @Tags         bins
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateBinRequest  true  "bin"
// @Success      201   {object}  models.BinView
// @Failure      409   {object}  common.ErrorResponse
// @Router       /bins [post]
func (h *BinHandlers) CreateBin(c echo.Context) error {
	var req models.CreateBinRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	view, err := h.binService.Create(c.Request().Context(), &req)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// GetBin godoc
// @Summary      Get a bin with its items and capacity
// @Tags         bins
// @Produce      json
// @Param        id   path      string  true  "bin id"
// @Success      200  {object}  models.BinView
// @Failure      404  {object}  common.ErrorResponse
// @Router       /bins/{id} [get]
func (h *BinHandlers) GetBin(c echo.Context) error {
	binID, err := binIDParam(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	view, err := h.binService.GetByID(c.Request().Context(), binID)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// AssignAgent godoc
// @Summary      Assign a delivery agent
// @Description  Refused when the bin has no logged stock or holds stock the ledger does not explain
// @Tags         bins
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "bin id"
// @Param        body  body      models.AssignAgentRequest  true  "agent"
// @Success      200   {object}  models.BinView
// @Failure      400   {object}  common.ErrorResponse
// @Failure      404   {object}  common.ErrorResponse
// @Router       /bins/{id}/assign-agent [post]
func (h *BinHandlers) AssignAgent(c echo.Context) error {
	binID, err := binIDParam(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	var req models.AssignAgentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	view, err := h.integrityService.AssignDeliveryAgent(c.Request().Context(), binID, &req, resolveActor(c, nil))
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// DeductInventory godoc
// @Summary      Deduct stock from a bin
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        id    path      string                         true  "bin id"
// @Param        body  body      models.DeductInventoryRequest  true  "deduction"
// @Success      200   {object}  models.MovementResult
// @Failure      400   {object}  common.ErrorResponse
// @Failure      404   {object}  common.ErrorResponse
// @Failure      500   {object}  common.ErrorResponse
// @Router       /bins/{id}/deduct [post]
func (h *BinHandlers) DeductInventory(c echo.Context) error {
	binID, err := binIDParam(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	var req models.DeductInventoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	result, err := h.movementService.DeductInventory(c.Request().Context(), binID, &req, resolveActor(c, req.UserID))
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// AddInventory godoc
// @Summary      Add stock to a bin
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        id    path      string                      true  "bin id"
// @Param        body  body      models.AddInventoryRequest  true  "addition"
// @Success      200   {object}  models.MovementResult
// @Failure      400   {object}  common.ErrorResponse
// @Failure      404   {object}  common.ErrorResponse
// @Failure      500   {object}  common.ErrorResponse
// @Router       /bins/{id}/add [post]
func (h *BinHandlers) AddInventory(c echo.Context) error {
	binID, err := binIDParam(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	var req models.AddInventoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	result, err := h.movementService.AddInventory(c.Request().Context(), binID, &req, resolveActor(c, req.UserID))
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListAuditLogs godoc
// @Summary      Page through a bin's ledger, newest first
// @Tags         ledger
// @Produce      json
// @Param        id      path   string  true   "bin id"
// @Param        action  query  string  false  "addition, deduction or agent_assignment"
// @Param        limit   query  int     false  "page size"
// @Param        offset  query  int     false  "page offset"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  common.ErrorResponse
// @Router       /bins/{id}/audit-logs [get]
func (h *BinHandlers) ListAuditLogs(c echo.Context) error {
	binID, err := binIDParam(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	var req ListAuditLogsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return common.SendAppError(c, err)
	}

	limit, offset, err := common.ValidatePaginationParams(req.Limit, req.Offset)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	filter := &models.InventoryLogFilter{Limit: limit, Offset: offset}
	if req.Action != "" {
		action := models.LedgerAction(req.Action)
		filter.Action = &action
	}

	logs, total, err := h.ledgerService.ListBinLogs(c.Request().Context(), binID, filter)
	if err != nil {
		return common.SendAppError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"bin_id": binID,
		"logs":   logs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ValidateIntegrity godoc
// @Summary      Reconcile a bin against its ledger
// @Tags         integrity
// @Produce      json
// @Param        id   path      string  true  "bin id"
// @Success      200  {object}  models.IntegrityReport
// @Failure      404  {object}  common.ErrorResponse
// @Router       /bins/{id}/integrity [get]
func (h *BinHandlers) ValidateIntegrity(c echo.Context) error {
	binID, err := binIDParam(c)
	if err != nil {
		return common.SendAppError(c, err)
	}

	report, err := h.integrityService.Check(c.Request().Context(), binID)
	if err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// LastSweep godoc
// @Summary      Summary of the most recent integrity sweep
// @Tags         integrity
// @Produce      json
// @Success      200  {object}  models.SweepSummary
// @Failure      404  {object}  common.ErrorResponse
// @Router       /integrity/sweep [get]
func (h *BinHandlers) LastSweep(c echo.Context) error {
	summary, err := h.integrityService.LastSweep(c.Request().Context())
	if err != nil {
		return common.SendAppError(c, err)
	}
	if summary == nil {
		return common.SendNotFoundError(c, "integrity sweep")
	}
	return c.JSON(http.StatusOK, summary)
}
