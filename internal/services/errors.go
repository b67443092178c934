package services

import "errors"

// Claim attempt failure taxonomy. Every failed attempt maps to exactly one
// of these and leaves state untouched.
var (
	// ErrPaused - the distribution gate is closed; no partial effect
	ErrPaused = errors.New("claims are paused")

	// ErrEpochMismatch - the proof targets a stale epoch; the claimant
	// needs a fresh proof for the current epoch
	ErrEpochMismatch = errors.New("claim output epoch does not match current epoch")

	// ErrRootMismatch - the proof was generated against a root that is no
	// longer active
	ErrRootMismatch = errors.New("claim output root does not match active root")

	// ErrAlreadyClaimed - the nullifier was consumed by an earlier claim
	ErrAlreadyClaimed = errors.New("nullifier already claimed")

	// ErrInvalidProof - the verifier rejected the proof or errored.
	// Verifier-side failure detail is deliberately collapsed into this
	// single error to avoid acting as an oracle.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrTransferFailed - the payout could not be made; the nullifier
	// commit was rolled back and the proof remains resubmittable
	ErrTransferFailed = errors.New("payout transfer failed")

	// ErrInvalidRoot - administrative rotation attempted with the zero
	// root (zero is reserved as unset)
	ErrInvalidRoot = errors.New("root must be non-zero")
)
