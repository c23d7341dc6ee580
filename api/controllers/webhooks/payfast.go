package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/gemvault/gemvault-backend/api/responses"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
)

// maxITNBody caps how much of a notification body we will read.
const maxITNBody = 64 << 10

type PayFastWebhookService interface {
	HandleITN(ctx context.Context, rawBody []byte) error
}

// PayFastITN handles the gateway's server-to-server payment notification.
func PayFastITN(svc PayFastWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxITNBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := svc.HandleITN(ctx, payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
