package handlers

import (
	"errors"
	"net/http"
	"strings"

	"airdrop-backend/internal/services"
	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ClaimHandler exposes the claim submission and public read interface
type ClaimHandler struct {
	claimService *services.ClaimService
}

// NewClaimHandler creates a new ClaimHandler
func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// decodeHex decodes a hex string with optional 0x prefix
func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// SubmitClaim handles POST /api/claim
func (h *ClaimHandler) SubmitClaim(c *gin.Context) {
	var req types.ClaimRequest
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
	recipient := common.HexToAddress(req.Recipient).Hex()

	proof, err := decodeHex(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid proof encoding",
			"code":    "INVALID_REQUEST",
		})
		return
	}
	output, err := decodeHex(req.Output)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid output encoding",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	result, err := h.claimService.SubmitClaim(c.Request.Context(), recipient, proof, output)
	if err != nil {
		status, code := claimErrorResponse(err)
		if status == http.StatusInternalServerError {
			logrus.WithError(err).Error("Claim attempt failed with internal error")
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    code,
		})
		return
	}

	c.JSON(http.StatusOK, types.ClaimResponse{
		Success:   true,
		ClaimID:   result.ClaimID,
		Nullifier: result.Nullifier.Hex(),
		Recipient: result.Recipient,
		Amount:    result.Amount.String(),
		EpochID:   result.EpochID,
	})
}

// claimErrorResponse maps the claim failure taxonomy to HTTP status codes
// and stable error codes
func claimErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrPaused):
		return http.StatusServiceUnavailable, "PAUSED"
	case errors.Is(err, types.ErrMalformedOutput):
		return http.StatusBadRequest, "MALFORMED_OUTPUT"
	case errors.Is(err, services.ErrEpochMismatch):
		return http.StatusConflict, "EPOCH_MISMATCH"
	case errors.Is(err, services.ErrRootMismatch):
		return http.StatusConflict, "ROOT_MISMATCH"
	case errors.Is(err, services.ErrAlreadyClaimed):
		return http.StatusConflict, "ALREADY_CLAIMED"
	case errors.Is(err, services.ErrInvalidProof):
		return http.StatusUnprocessableEntity, "INVALID_PROOF"
	case errors.Is(err, services.ErrTransferFailed):
		return http.StatusBadGateway, "TRANSFER_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// GetNullifierStatus handles GET /api/nullifier/:nullifier - a free
// pre-flight check before spending a proof on a real attempt
func (h *ClaimHandler) GetNullifierStatus(c *gin.Context) {
	raw := c.Param("nullifier")
	value, err := decodeHex(raw)
	if err != nil || len(value) != common.HashLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Nullifier must be 32 bytes of hex",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	used, err := h.claimService.NullifierUsed(c.Request.Context(), common.BytesToHash(value))
	if err != nil {
		logrus.WithError(err).Error("Failed to query nullifier status")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to query nullifier",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"nullifier": common.BytesToHash(value).Hex(),
		"used":      used,
	})
}

// GetEpochStatus handles GET /api/epoch
func (h *ClaimHandler) GetEpochStatus(c *gin.Context) {
	snapshot, err := h.claimService.Status(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to read epoch status")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read distribution state",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, types.EpochStatusResponse{
		EpochID:      snapshot.EpochID,
		Root:         snapshot.Root.Hex(),
		RewardAmount: snapshot.RewardAmount.String(),
		Paused:       snapshot.Paused,
	})
}

// GetBalance handles GET /api/balance/:address
func (h *ClaimHandler) GetBalance(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid address",
			"code":    "INVALID_REQUEST",
		})
		return
	}

	balance, err := h.claimService.Balance(c.Request.Context(), common.HexToAddress(address).Hex())
	if err != nil {
		logrus.WithError(err).Error("Failed to read balance")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read balance",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": common.HexToAddress(address).Hex(),
		"balance": balance.String(),
	})
}
