package handlers

import (
	"errors"
	"math/big"
	"net/http"

	"airdrop-backend/internal/services"
	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler exposes the administrator-only distribution controls. All
// routes are behind the admin auth middleware.
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// RotateEpoch handles POST /api/admin/epoch/rotate
func (h *AdminHandler) RotateEpoch(c *gin.Context) {
	var req types.RotateEpochRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	newRoot, err := decodeHex(req.NewRoot)
	if err != nil || len(newRoot) != common.HashLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Root must be 32 bytes of hex",
			"code":    "INVALID_ROOT",
		})
		return
	}

	snapshot, err := h.adminService.RotateEpoch(c.Request.Context(), common.BytesToHash(newRoot))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRoot) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
				"code":    "INVALID_ROOT",
			})
			return
		}
		logrus.WithError(err).Error("Epoch rotation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to rotate epoch",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"epoch":   snapshot.EpochID,
		"root":    snapshot.Root.Hex(),
	})
}

// SetReward handles POST /api/admin/reward. A zero amount is accepted:
// claims keep consuming nullifiers while paying out nothing.
func (h *AdminHandler) SetReward(c *gin.Context) {
	var req types.SetRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Amount must be a non-negative decimal string",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	if err := h.adminService.SetRewardAmount(c.Request.Context(), amount); err != nil {
		logrus.WithError(err).Error("Failed to set reward amount")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to set reward amount",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"amount":  amount.String(),
	})
}

// SetPaused handles POST /api/admin/pause
func (h *AdminHandler) SetPaused(c *gin.Context) {
	var req types.SetPausedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Paused == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Body must contain a boolean 'paused' field",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	snapshot, err := h.adminService.SetPaused(c.Request.Context(), *req.Paused)
	if err != nil {
		logrus.WithError(err).Error("Failed to set pause state")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to set pause state",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"paused":  snapshot.Paused,
	})
}

// TogglePause handles POST /api/admin/pause/toggle
func (h *AdminHandler) TogglePause(c *gin.Context) {
	snapshot, err := h.adminService.TogglePause(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to toggle pause state")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to toggle pause state",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"paused":  snapshot.Paused,
	})
}

// WithdrawResidual handles POST /api/admin/withdraw-residual
func (h *AdminHandler) WithdrawResidual(c *gin.Context) {
	var req types.WithdrawResidualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}
	if !common.IsHexAddress(req.Recipient) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid recipient address",
			"code":    "INVALID_RECIPIENT",
		})
		return
	}

	moved, err := h.adminService.WithdrawResidual(c.Request.Context(), common.HexToAddress(req.Recipient).Hex())
	if err != nil {
		logrus.WithError(err).Error("Residual withdrawal failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to withdraw residual funds",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"amount":  moved.String(),
	})
}
