package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

// VerifierClient talks to the external proof verification service. The
// service is trusted as ground truth: any rejection or transport failure is
// reported to the caller as a plain error and the claim engine collapses it
// to InvalidProof without leaking detail.
type VerifierClient struct {
	BaseURL string
	Client  *http.Client
}

// NewVerifierClient creates a new verifier client
func NewVerifierClient(baseURL string, timeoutSeconds int) *VerifierClient {
	timeout := 60 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &VerifierClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// verifyRequest is the wire request of POST /api/v1/verify
type verifyRequest struct {
	Proof     string `json:"proof"`      // proof bytes, hex
	ProgramID string `json:"program_id"` // bytes32 - guest program identity
	Digest    string `json:"digest"`     // bytes32 - SHA-256 of the claim output bytes
}

// verifyResponse is the wire response of POST /api/v1/verify
type verifyResponse struct {
	Valid        bool    `json:"valid"`
	ErrorMessage *string `json:"error_message"`
}

// Verify asks the verification service whether proof attests to digest under
// the given program identity. A nil return means the proof is valid.
func (c *VerifierClient) Verify(ctx context.Context, proof []byte, programID common.Hash, digest common.Hash) error {
	reqBody, err := json.Marshal(&verifyRequest{
		Proof:     hexutil.Encode(proof),
		ProgramID: programID.Hex(),
		Digest:    digest.Hex(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/verify", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("verifier request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read verifier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Warn("Verifier returned non-OK status")
		return fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to unmarshal verifier response: %w", err)
	}
	if !result.Valid {
		if result.ErrorMessage != nil {
			logrus.WithField("reason", *result.ErrorMessage).Debug("Verifier rejected proof")
		}
		return fmt.Errorf("verifier rejected proof")
	}
	return nil
}
