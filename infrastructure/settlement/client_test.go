package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/domain"
)

func TestTransfer_Success(t *testing.T) {
	requestID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			RequestID   string `json:"request_id"`
			Destination string `json:"destination"`
			Amount      int64  `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, requestID.String(), req.RequestID)
		assert.Equal(t, "alice", req.Destination)
		assert.Equal(t, int64(100), req.Amount)

		_ = json.NewEncoder(w).Encode(map[string]string{"transaction_id": "tx-777"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)

	txID, err := client.Transfer(context.Background(), requestID, "alice", 100)

	require.NoError(t, err)
	assert.Equal(t, "tx-777", txID)
}

func TestTransfer_Rejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "destination unknown"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)

	_, err := client.Transfer(context.Background(), uuid.New(), "alice", 100)

	assert.ErrorIs(t, err, domain.ErrSettlementFailed)
	assert.Contains(t, err.Error(), "destination unknown")
}

func TestTransfer_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)

	_, err := client.Transfer(context.Background(), uuid.New(), "alice", 100)

	assert.ErrorIs(t, err, domain.ErrSettlementUnavailable)
}

func TestTransfer_MissingTransactionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)

	_, err := client.Transfer(context.Background(), uuid.New(), "alice", 100)

	// A 200 without a transaction id must fail so the debit is refunded
	assert.ErrorIs(t, err, domain.ErrSettlementFailed)
}

func TestTransfer_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"transaction_id": "tx-late"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 50*time.Millisecond)

	_, err := client.Transfer(context.Background(), uuid.New(), "alice", 100)

	assert.ErrorIs(t, err, domain.ErrSettlementUnavailable)
}

func TestTransfer_ConnectionRefused(t *testing.T) {
	// Grab an address with nothing listening on it
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "", time.Second)

	_, err := client.Transfer(context.Background(), uuid.New(), "alice", 100)

	assert.ErrorIs(t, err, domain.ErrSettlementUnavailable)
}
