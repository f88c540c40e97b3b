// Package api provides the HTTP handlers for the profile store.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/provenix-dev/provenix-store/internal/apperr"
	"github.com/provenix-dev/provenix-store/pkg/schema"
	"github.com/provenix-dev/provenix-store/pkg/sdk"
)

// Handler serves the profile and audit endpoints.
type Handler struct {
	Store  sdk.ProfileStore
	Logger *slog.Logger
}

// NewHandler builds an API handler over the store.
func NewHandler(store sdk.ProfileStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Logger: logger}
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// Login handles POST /token. It accepts the form fields username/password
// and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.error(c, apperr.Validation(err.Error()))
		return
	}

	token, err := h.Store.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// CreateUser handles POST /users. Signup requires no token.
func (h *Handler) CreateUser(c *gin.Context) {
	var req schema.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, apperr.Validation(err.Error()))
		return
	}

	user, err := h.Store.Create(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUser handles GET /users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.error(c, err)
		return
	}

	user, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.error(c, err)
		return
	}

	var req schema.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, apperr.Validation(err.Error()))
		return
	}

	user, err := h.Store.Update(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.error(c, err)
		return
	}

	if err := h.Store.Delete(c.Request.Context(), id); err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.MessageResponse{Message: "User deleted successfully"})
}

// GetAudit handles GET /audit/users/:id, returning the full history newest
// version first.
func (h *Handler) GetAudit(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.error(c, err)
		return
	}

	entries, err := h.Store.History(c.Request.Context(), id)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RestoreUser handles POST /audit/users/:id/restore/:version.
func (h *Handler) RestoreUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.error(c, err)
		return
	}
	version, convErr := strconv.Atoi(c.Param("version"))
	if convErr != nil || version < 1 {
		h.error(c, apperr.Validation("Invalid version"))
		return
	}

	if err := h.Store.Restore(c.Request.Context(), id, version); err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.MessageResponse{
		Message: "User restored to version " + strconv.Itoa(version),
	})
}

func (h *Handler) error(c *gin.Context, err error) {
	writeError(c, h.Logger, err)
}

func userID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("Invalid user id")
	}
	return id, nil
}
