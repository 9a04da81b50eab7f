package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/YuniorRivera/remesas-haiti-backend/api/responses"
	"github.com/YuniorRivera/remesas-haiti-backend/api/validators"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/payouts"
	pkgerrors "github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
)

const signatureHeader = "x-webhook-signature"

type PayoutService interface {
	HandleNotification(ctx context.Context, n payouts.Notification) (*payouts.Result, error)
}

type payoutGuard interface {
	CheckAndMark(ctx context.Context, referenceCode, status string) (bool, error)
	Release(ctx context.Context, referenceCode, status string)
}

// Payout handles the payout partner's lifecycle notifications. The partner
// retries on any non-2xx response, so the idempotency claim is released on
// failure to let the retry through.
func Payout(svc PayoutService, guard payoutGuard, signingSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !validateSignature(payload, signingSecret, sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var notification payouts.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode notification"))
			return
		}
		if err := validators.ValidateStruct(&notification); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		fresh, err := guard.CheckAndMark(ctx, notification.ReferenceCode, notification.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !fresh {
			responses.WriteSuccess(w, map[string]any{
				"reference_code": notification.ReferenceCode,
				"status":         notification.Status,
				"replayed":       true,
			})
			return
		}

		result, err := svc.HandleNotification(ctx, notification)
		if err != nil {
			guard.Release(ctx, notification.ReferenceCode, notification.Status)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func validateSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
