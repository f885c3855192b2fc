package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

const (
	defaultUsersLimit = 100
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List returns a page of accounts.
//
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        skip   query     int  false  "Offset"           default(0)
// @Param        limit  query     int  false  "Page size 1..100" default(100)
// @Success      200    {object}  listUsersResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /users/ [get]
func (h *UserHandler) List(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultUsersLimit)
	if err != nil {
		return err
	}

	res, err := h.userService.List(c.Request().Context(), caller, skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listUsersResponse{
		Users: toUserResponses(res.Users),
		Total: res.Total,
		Skip:  res.Skip,
		Limit: res.Limit,
	})
}

// Get returns one account. Callers may read their own; admins may read any.
//
// @Summary      Get user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userService.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateRole changes an account's role. The role comes from the new_role
// query parameter or, failing that, a {"role": ...} body.
//
// @Summary      Change user role
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id        path      int                false  "User ID"
// @Param        new_role  query     string             false  "user or admin"
// @Param        body      body      changeRoleRequest  false  "Role"
// @Success      200       {object}  userResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateRole(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	role := c.QueryParam("new_role")
	if role == "" {
		var req changeRoleRequest
		if c.Request().ContentLength != 0 {
			if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
				return domain.InvalidInput("invalid payload")
			}
		}
		role = req.Role
	}

	user, err := h.userService.ChangeRole(c.Request().Context(), caller, id, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes an account permanently.
//
// @Summary      Delete user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "User ID"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.userService.Delete(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
