package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prospector/domain"
	"prospector/domain/interfaces"
)

// Client implements interfaces.SettlementGateway over the settlement
// service's HTTP API. The service performs the actual on-chain
// transfer; it is at-most-once on success and fails closed on error or
// timeout, and the bridge relies on exactly that contract.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new settlement service client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type transferRequest struct {
	RequestID   string `json:"request_id"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Memo        string `json:"memo"`
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

// Transfer asks the settlement service to move the amount to the
// account's external destination. Returns the external transaction id
// on success. Timeouts and transport errors surface as
// ErrSettlementUnavailable; explicit rejections as ErrSettlementFailed.
func (c *Client) Transfer(ctx context.Context, requestID uuid.UUID, accountKey string, amount int64) (string, error) {
	body, err := json.Marshal(transferRequest{
		RequestID:   requestID.String(),
		Destination: accountKey,
		Amount:      amount,
		Memo:        fmt.Sprintf("prospector cash-out %s", requestID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/transfers", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("settlement request timed out: %w", domain.ErrSettlementUnavailable)
		}
		return "", fmt.Errorf("settlement request failed: %v: %w", err, domain.ErrSettlementUnavailable)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("failed to decode transfer response: %v: %w", err, domain.ErrSettlementUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusOK && result.TransactionID != "":
		log.WithFields(log.Fields{
			"requestID":     requestID.String(),
			"transactionID": result.TransactionID,
		}).Info("Settlement transfer accepted")
		return result.TransactionID, nil
	case resp.StatusCode == http.StatusOK:
		// 200 without a transaction id violates the contract; treat it
		// as a failure so the debit is compensated
		return "", fmt.Errorf("settlement response missing transaction id: %w", domain.ErrSettlementFailed)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("settlement service returned status %d: %w", resp.StatusCode, domain.ErrSettlementUnavailable)
	default:
		reason := result.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("settlement rejected: %s: %w", reason, domain.ErrSettlementFailed)
	}
}

var _ interfaces.SettlementGateway = (*Client)(nil)
