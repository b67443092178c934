package types

// ClaimRequest is the body of POST /api/claim. Proof and output are hex
// encoded (0x prefix optional); output must decode to exactly 72 bytes.
type ClaimRequest struct {
	Recipient string `json:"recipient" binding:"required"` // payout address (0x + 40 hex chars)
	Proof     string `json:"proof" binding:"required"`     // opaque proof bytes, hex
	Output    string `json:"output" binding:"required"`    // claim output bytes, hex
}

// ClaimResponse is returned on a successful claim
type ClaimResponse struct {
	Success   bool   `json:"success"`
	ClaimID   string `json:"claim_id"`
	Nullifier string `json:"nullifier"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	EpochID   uint64 `json:"epoch_id"`
}

// EpochStatusResponse is returned by GET /api/epoch
type EpochStatusResponse struct {
	EpochID      uint64 `json:"epoch_id"`
	Root         string `json:"root"`
	RewardAmount string `json:"reward_amount"`
	Paused       bool   `json:"paused"`
}

// RotateEpochRequest is the body of POST /api/admin/epoch/rotate
type RotateEpochRequest struct {
	NewRoot string `json:"new_root" binding:"required"` // bytes32 hex, must be non-zero
}

// SetRewardRequest is the body of POST /api/admin/reward
type SetRewardRequest struct {
	Amount string `json:"amount" binding:"required"` // decimal string in wei, zero allowed
}

// SetPausedRequest is the body of POST /api/admin/pause
type SetPausedRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// WithdrawResidualRequest is the body of POST /api/admin/withdraw-residual
type WithdrawResidualRequest struct {
	Recipient string `json:"recipient" binding:"required"`
}
