package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/service"
)

type createAccountBody struct {
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	Name       string  `json:"name" binding:"required"`
	Role       string  `json:"role" binding:"required"`
	EmployeeID *string `json:"employeeId"`
}

func (h HandlerSet) CreateAccount(c *gin.Context) {
	admin, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createAccountBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.accountService.Create(c.Request.Context(), service.CreateAccountInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Role:       models.Role(req.Role),
		EmployeeID: req.EmployeeID,
		CreatedBy:  admin.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "account_exists"})
		case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidAccountInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": toAccountResponse(account)})
}

func (h HandlerSet) UnlockAccount(c *gin.Context) {
	admin, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.accountService.Unlock(c.Request.Context(), c.Param("id"), admin.ID); err != nil {
		h.notFoundOrServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setActiveBody struct {
	Active *bool `json:"active" binding:"required"`
}

func (h HandlerSet) SetAccountActive(c *gin.Context) {
	var req setActiveBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.accountService.SetActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		h.notFoundOrServerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type activityResponse struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	Detail    map[string]string `json:"detail,omitempty"`
	Origin    string            `json:"origin"`
	UserAgent string            `json:"userAgent"`
	CreatedAt string            `json:"createdAt"`
}

func (h HandlerSet) AccountActivity(c *gin.Context) {
	limit := 50
	offset := 0
	if v, err := strconv.Atoi(c.Query("perPage")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 1 {
		offset = (v - 1) * limit
	}

	records, err := h.accountService.Activity(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		h.serverError(c, err)
		return
	}

	items := make([]activityResponse, 0, len(records))
	for _, record := range records {
		items = append(items, activityResponse{
			ID:        record.ID,
			Action:    record.Action,
			Detail:    record.Detail,
			Origin:    record.Origin,
			UserAgent: record.UserAgent,
			CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) notFoundOrServerError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	h.serverError(c, err)
}
