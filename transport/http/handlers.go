package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/qrlink/core"
	"github.com/layer-3/qrlink/service"
)

// PairingHandlers contains HTTP handlers for the pairing endpoints
type PairingHandlers struct {
	pairingService *service.PairingService
}

// NewPairingHandlers creates new pairing handlers
func NewPairingHandlers(pairingService *service.PairingService) *PairingHandlers {
	return &PairingHandlers{
		pairingService: pairingService,
	}
}

// Initiate handles the browser's request to start a handoff
func (h *PairingHandlers) Initiate(c *gin.Context) {
	result, err := h.pairingService.Initiate(c.Request.Context())
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, core.ErrStoreUnavailable) {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, gin.H{"error": "Failed to generate pairing token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    result.Token,
		"qr_image": result.QRImage,
	})
}

// Poll handles the browser's status check for a pairing token
func (h *PairingHandlers) Poll(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.pairingService.Poll(c.Request.Context(), req.Token)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to check pairing status"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid token"
		case errors.Is(err, core.ErrStoreUnavailable):
			statusCode = http.StatusServiceUnavailable
			errorMsg = "Service temporarily unavailable"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	if result.Status == core.StatusConfirmed {
		c.JSON(http.StatusOK, gin.H{
			"status":     result.Status,
			"login_code": result.LoginCode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": result.Status})
}

// Confirm handles the phone's confirmation of a scanned pairing token.
// The identity is taken from the authenticated session, never the body.
func (h *PairingHandlers) Confirm(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, exists := c.Get("identity")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	err := h.pairingService.Confirm(c.Request.Context(), req.Token, identity.(string))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to confirm pairing"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid token"
		case errors.Is(err, core.ErrPairingExpired):
			statusCode = http.StatusNotFound
			errorMsg = "QR code has expired. Please scan a new one."
		case errors.Is(err, core.ErrAlreadyUsed):
			statusCode = http.StatusConflict
			errorMsg = "This QR code has already been used."
		case errors.Is(err, core.ErrStoreUnavailable):
			statusCode = http.StatusServiceUnavailable
			errorMsg = "Service temporarily unavailable"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   core.StatusConfirmed,
		"identity": identity,
	})
}

// Redeem handles the browser's exchange of a login code for a session
func (h *PairingHandlers) Redeem(c *gin.Context) {
	var req struct {
		LoginCode string `json:"login_code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.pairingService.Redeem(c.Request.Context(), req.LoginCode)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to redeem login code"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid login code"
		case errors.Is(err, core.ErrLoginCodeExpired), errors.Is(err, core.ErrSessionNotFound):
			statusCode = http.StatusNotFound
			errorMsg = "Login code has expired"
		case errors.Is(err, core.ErrStoreUnavailable):
			statusCode = http.StatusServiceUnavailable
			errorMsg = "Service temporarily unavailable"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": result.AccessToken,
		"token_type":   "Bearer",
		"identity":     result.Identity,
	})
}

// Me returns information about the authenticated user
func (h *PairingHandlers) Me(c *gin.Context) {
	identity, exists := c.Get("identity")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"identity": identity})
}
