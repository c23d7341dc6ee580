package controllers

import (
	"net/http"

	"github.com/gemvault/gemvault-backend/api/middleware"
	"github.com/gemvault/gemvault-backend/api/responses"
	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
)

type profileResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name,omitempty"`
	Role           string `json:"role"`
	IsInvestor     bool   `json:"is_investor"`
	InvestorStatus string `json:"investor_status"`

	Balance         string `json:"balance"`
	TotalInvestment string `json:"total_investment"`
	TotalEarnings   string `json:"total_earnings"`
	PureProfit      string `json:"pure_profit"`
}

// MyProfile returns the signed-in account with its wallet totals.
func MyProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		user, err := svc.Find(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProfile(user))
	}
}

func toProfile(user *models.User) profileResponse {
	return profileResponse{
		ID:              user.ID.String(),
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Role:            user.Role,
		IsInvestor:      user.IsInvestor,
		InvestorStatus:  string(user.InvestorStatus),
		Balance:         user.Balance.StringFixed(2),
		TotalInvestment: user.TotalInvestment.StringFixed(2),
		TotalEarnings:   user.TotalEarnings.StringFixed(2),
		PureProfit:      user.PureProfit.StringFixed(2),
	}
}
