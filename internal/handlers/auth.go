package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/middleware"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/service"
)

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceInfo: req.DeviceInfo,
		Origin:     c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		// Bad secret, unknown email, inactive and locked all look the
		// same from outside.
		switch {
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrAccountInactive),
			errors.Is(err, service.ErrAccountLocked):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:   result.Token,
		Account: toAccountResponse(result.Account),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")

	if tokenStr != "" && tokenStr != header {
		if err := h.authService.Logout(c.Request.Context(), tokenStr, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
			h.serverError(c, err)
			return
		}
	}

	// Always 200: revocation is idempotent and the endpoint does not
	// reveal whether the token ever existed.
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type otpRequestBody struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

func (h HandlerSet) RequestOTP(c *gin.Context) {
	var req otpRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.otpService.Request(c.Request.Context(), req.Email, models.OTPPurpose(req.Purpose))
	if err != nil {
		if errors.Is(err, service.ErrInvalidPurpose) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_purpose"})
			return
		}
		h.serverError(c, err)
		return
	}

	// 200 whether or not the address held an account and whether or
	// not delivery could be enqueued synchronously.
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type otpVerifyBody struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

func (h HandlerSet) VerifyOTP(c *gin.Context) {
	var req otpVerifyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	status, err := h.otpService.VerifyByEmail(c.Request.Context(), req.Email, models.OTPPurpose(req.Purpose), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOTPRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too_many_attempts"})
		case errors.Is(err, service.ErrInvalidPurpose):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_purpose"})
		default:
			h.serverError(c, err)
		}
		return
	}

	switch status {
	case service.OTPConsumed:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case service.OTPExpired:
		c.JSON(http.StatusBadRequest, gin.H{"error": "code_expired"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "code_invalid"})
	}
}

type forgotPasswordBody struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.accountService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type resetPasswordBody struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.accountService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrLinkTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_token"})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type verifyEmailBody struct {
	Token string `json:"token" binding:"required"`
}

func (h HandlerSet) VerifyEmail(c *gin.Context) {
	var req verifyEmailBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.accountService.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrLinkTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_token"})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h HandlerSet) Me(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": toAccountResponse(account)})
}

type changePasswordBody struct {
	Current string `json:"current" binding:"required"`
	New     string `json:"new" binding:"required,min=8"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req changePasswordBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.accountService.ChangePassword(c.Request.Context(), account.ID, req.Current, req.New); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h HandlerSet) RequestEmailVerification(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.accountService.RequestEmailVerification(c.Request.Context(), account.ID); err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func currentAccount(c *gin.Context) (models.Account, bool) {
	accountVal, exists := c.Get(middleware.ContextAccount)
	if !exists {
		return models.Account{}, false
	}
	account, ok := accountVal.(models.Account)
	return account, ok
}

func toAccountResponse(account models.Account) accountResponse {
	return accountResponse{
		ID:       account.ID,
		Email:    account.Email,
		Name:     account.Name,
		Role:     string(account.Role),
		Verified: account.Verified,
	}
}

// serverError hides internal detail from the client; the request id in
// the log line ties the 500 back to the cause.
func (h HandlerSet) serverError(c *gin.Context, err error) {
	h.log.Error().Err(err).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.Writer.Header().Get("X-Request-Id")).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
}
