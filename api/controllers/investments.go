package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gemvault/gemvault-backend/api/middleware"
	"github.com/gemvault/gemvault-backend/api/responses"
	"github.com/gemvault/gemvault-backend/api/validators"
	"github.com/gemvault/gemvault-backend/internal/investments"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

// OpenInvestment buys the signed-in investor into a gemstone.
func OpenInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investments service unavailable"))
			return
		}

		productID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "productId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		investment, err := svc.Open(r.Context(), investments.OpenInput{
			InvestorID: middleware.UserIDFromContext(r.Context()),
			ProductID:  productID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, investment)
	}
}

// RefundInvestment unwinds one of the signed-in investor's positions.
func RefundInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investments service unavailable"))
			return
		}

		investmentID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "investmentId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid investment id"))
			return
		}

		err = svc.Refund(r.Context(), investments.RefundInput{
			InvestorID:   middleware.UserIDFromContext(r.Context()),
			InvestmentID: investmentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "refunded"})
	}
}

// MyInvestments lists the signed-in investor's positions.
func MyInvestments(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investments service unavailable"))
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
