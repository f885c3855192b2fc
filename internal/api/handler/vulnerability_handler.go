package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

const (
	defaultCatalogPage  = 1
	defaultCatalogLimit = 10
)

type VulnerabilityHandler struct {
	vulnService ports.VulnerabilityService
}

func NewVulnerabilityHandler(vulnService ports.VulnerabilityService) *VulnerabilityHandler {
	return &VulnerabilityHandler{vulnService: vulnService}
}

// List returns a page of active catalog entries.
//
// @Summary      List vulnerabilities
// @Tags         vulnerabilities
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number"      default(1)
// @Param        limit     query     int     false  "Page size 1..100" default(10)
// @Param        severity  query     string  false  "low, medium, high or critical"
// @Success      200       {object}  listVulnerabilitiesResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Router       /stats/vulnerabilidades/ [get]
func (h *VulnerabilityHandler) List(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	page, err := queryInt(c, "page", defaultCatalogPage)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultCatalogLimit)
	if err != nil {
		return err
	}

	res, err := h.vulnService.List(c.Request().Context(), caller, ports.ListVulnerabilitiesInput{
		Page:     page,
		Limit:    limit,
		Severity: c.QueryParam("severity"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listVulnerabilitiesResponse{
		Vulnerabilities: toVulnerabilityResponses(res.Items),
		Total:           res.Total,
		Page:            res.Page,
		Limit:           res.Limit,
		TotalPages:      res.TotalPages,
	})
}

// Get returns one active catalog entry.
//
// @Summary      Get vulnerability
// @Tags         vulnerabilities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Vulnerability ID"
// @Success      200  {object}  vulnerabilityResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /stats/vulnerabilidades/{id} [get]
func (h *VulnerabilityHandler) Get(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	v, err := h.vulnService.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toVulnerabilityResponse(v))
}

// Create adds a catalog entry owned by the caller.
//
// @Summary      Create vulnerability
// @Tags         vulnerabilities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      createVulnerabilityRequest  true  "Catalog entry"
// @Success      201   {object}  vulnerabilityResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /stats/vulnerabilidades/ [post]
func (h *VulnerabilityHandler) Create(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createVulnerabilityRequest
	if err := c.Bind(&req); err != nil {
		return domain.InvalidInput("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	v, err := h.vulnService.Create(c.Request().Context(), caller, ports.CreateVulnerabilityInput{
		Name:        req.Name,
		Description: req.Description,
		Severity:    req.Severity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toVulnerabilityResponse(v))
}

// Delete soft-deletes a catalog entry.
//
// @Summary      Delete vulnerability
// @Tags         vulnerabilities
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      int     true   "Vulnerability ID"
// @Param        reason  query     string  false  "Why the entry is removed"
// @Success      200     {object}  deleteVulnerabilityResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /stats/vulnerabilidades/{id} [delete]
func (h *VulnerabilityHandler) Delete(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	v, err := h.vulnService.Delete(c.Request().Context(), caller, id, c.QueryParam("reason"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteVulnerabilityResponse{
		Message: "Vulnerability deleted",
		ID:      v.ID,
		Status:  string(v.Status),
	})
}
