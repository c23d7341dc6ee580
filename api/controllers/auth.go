package controllers

import (
	"net/http"
	"time"

	"github.com/gemvault/gemvault-backend/api/responses"
	"github.com/gemvault/gemvault-backend/api/validators"
	"github.com/gemvault/gemvault-backend/internal/accounts"
	pkgAuth "github.com/gemvault/gemvault-backend/pkg/auth"
	"github.com/gemvault/gemvault-backend/pkg/config"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        loginAccount `json:"user"`
}

type loginAccount struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	Role       string `json:"role"`
	IsInvestor bool   `json:"is_investor"`
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc accounts.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Authenticate(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := pkgAuth.MintAccessToken(jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID:     user.ID,
			Role:       user.Role,
			IsInvestor: user.IsInvestor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token"))
			return
		}

		responses.WriteSuccess(w, loginResponse{
			AccessToken: token,
			User: loginAccount{
				ID:         user.ID.String(),
				Email:      user.Email,
				FirstName:  user.FirstName,
				Role:       user.Role,
				IsInvestor: user.IsInvestor,
			},
		})
	}
}
