package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuniorRivera/remesas-haiti-backend/internal/payouts"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
)

const testSigningSecret = "whsec_test_secret"

type fakePayoutService struct {
	calls  int
	lastN  payouts.Notification
	result *payouts.Result
	err    error
}

func (f *fakePayoutService) HandleNotification(_ context.Context, n payouts.Notification) (*payouts.Result, error) {
	f.calls++
	f.lastN = n
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &payouts.Result{
		TransactionID: uuid.New(),
		ReferenceCode: n.ReferenceCode,
		Status:        enums.PayoutStatus(n.Status),
		ProcessedAt:   time.Now().UTC(),
	}, nil
}

type memoryGuard struct {
	claimed map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{claimed: map[string]bool{}}
}

func (g *memoryGuard) CheckAndMark(_ context.Context, referenceCode, status string) (bool, error) {
	key := referenceCode + ":" + status
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, referenceCode, status string) {
	delete(g.claimed, referenceCode+":"+status)
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func postPayout(t *testing.T, handler http.HandlerFunc, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-webhook-signature", signature)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func notificationPayload(t *testing.T, status string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"reference_code": "REM-2024-001",
		"status":         status,
	})
	require.NoError(t, err)
	return body
}

func TestPayoutWebhook_ValidSignatureProcesses(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	payload := notificationPayload(t, "PAID")
	rec := postPayout(t, handler, payload, sign(payload, testSigningSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "REM-2024-001", svc.lastN.ReferenceCode)
	assert.Equal(t, "PAID", svc.lastN.Status)
}

func TestPayoutWebhook_MissingSignatureRejected(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	rec := postPayout(t, handler, notificationPayload(t, "PAID"), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, svc.calls, "unauthenticated deliveries must not reach the service")
}

func TestPayoutWebhook_InvalidSignatureRejected(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	payload := notificationPayload(t, "PAID")
	rec := postPayout(t, handler, payload, sign(payload, "wrong-secret"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestPayoutWebhook_TamperedBodyRejected(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	payload := notificationPayload(t, "PAID")
	signature := sign(payload, testSigningSecret)
	tampered := notificationPayload(t, "FAILED")
	rec := postPayout(t, handler, tampered, signature)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestPayoutWebhook_DuplicateDeliveryShortCircuits(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	payload := notificationPayload(t, "PAID")
	signature := sign(payload, testSigningSecret)

	first := postPayout(t, handler, payload, signature)
	second := postPayout(t, handler, payload, signature)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, svc.calls, "duplicate delivery must not re-run the service")

	var resp struct {
		Data struct {
			Replayed bool `json:"replayed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Replayed)
}

func TestPayoutWebhook_DistinctStatusesAreDistinctDeliveries(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	paid := notificationPayload(t, "PAID")
	settled := notificationPayload(t, "SETTLED")

	postPayout(t, handler, paid, sign(paid, testSigningSecret))
	postPayout(t, handler, settled, sign(settled, testSigningSecret))

	assert.Equal(t, 2, svc.calls, "same reference with a new status is a new lifecycle step")
}

func TestPayoutWebhook_ServiceErrorReleasesClaim(t *testing.T) {
	svc := &fakePayoutService{err: assert.AnError}
	guard := newMemoryGuard()
	handler := Payout(svc, guard, testSigningSecret, webhookLogger())

	payload := notificationPayload(t, "PAID")
	signature := sign(payload, testSigningSecret)

	first := postPayout(t, handler, payload, signature)
	require.Equal(t, http.StatusInternalServerError, first.Code)

	svc.err = nil
	second := postPayout(t, handler, payload, signature)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, svc.calls, "the partner's retry after a failure must be let through")
}

func TestPayoutWebhook_InvalidBodyRejected(t *testing.T) {
	svc := &fakePayoutService{}
	handler := Payout(svc, newMemoryGuard(), testSigningSecret, webhookLogger())

	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "missing reference code", body: map[string]any{"status": "PAID"}},
		{name: "unknown status", body: map[string]any{"reference_code": "REM-1", "status": "REFUNDED"}},
		{name: "latitude out of range", body: map[string]any{"reference_code": "REM-1", "status": "PAID", "payout_lat": 120.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := json.Marshal(tc.body)
			require.NoError(t, err)
			rec := postPayout(t, handler, payload, sign(payload, testSigningSecret))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, svc.calls)
}
