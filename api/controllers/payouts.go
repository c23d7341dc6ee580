package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gemvault/gemvault-backend/api/middleware"
	"github.com/gemvault/gemvault-backend/api/responses"
	"github.com/gemvault/gemvault-backend/api/validators"
	"github.com/gemvault/gemvault-backend/internal/payouts"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

type payoutRequestBody struct {
	Method            string  `json:"method" validate:"required"`
	AccountHolderName string  `json:"account_holder_name" validate:"required"`
	IBAN              *string `json:"iban,omitempty"`
	PhoneNumber       *string `json:"phone_number,omitempty"`
}

// RequestPayout opens a withdrawal request for the signed-in investor.
func RequestPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		var body payoutRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePayoutMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout method"))
			return
		}

		payout, err := svc.Request(r.Context(), payouts.RequestInput{
			InvestorID:        middleware.UserIDFromContext(r.Context()),
			Method:            method,
			AccountHolderName: body.AccountHolderName,
			IBAN:              body.IBAN,
			PhoneNumber:       body.PhoneNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// MyPayouts lists the signed-in investor's withdrawal requests.
func MyPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByInvestor(r.Context(), middleware.UserIDFromContext(r.Context()), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, list, pagination.MetaFor(page, len(list)))
	}
}

// AdminListPayouts lists withdrawal requests, optionally filtered by status.
func AdminListPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.PayoutStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout status"))
				return
			}
			status = &parsed
		}

		list, err := svc.List(r.Context(), status, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, list, pagination.MetaFor(page, len(list)))
	}
}

type payoutStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdatePayoutStatus moves a withdrawal request forward.
func AdminUpdatePayoutStatus(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		payoutID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "payoutId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		var body payoutStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParsePayoutStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout status"))
			return
		}

		payout, err := svc.UpdateStatus(r.Context(), payoutID, next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}
