package controllers

import (
	"net/http"

	"github.com/gemvault/gemvault-backend/api/responses"
	"github.com/gemvault/gemvault-backend/api/validators"
	"github.com/gemvault/gemvault-backend/internal/announcements"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
)

// CurrentAnnouncement returns the active storefront banner.
func CurrentAnnouncement(svc announcements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "announcements service unavailable"))
			return
		}

		row, err := svc.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

type announcementRequest struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
}

// AdminPublishAnnouncement replaces the storefront banner.
func AdminPublishAnnouncement(svc announcements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "announcements service unavailable"))
			return
		}

		var body announcementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Publish(r.Context(), announcements.PublishInput{Title: body.Title, Body: body.Body})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// AdminDeactivateAnnouncement hides the storefront banner.
func AdminDeactivateAnnouncement(svc announcements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "announcements service unavailable"))
			return
		}

		if err := svc.Deactivate(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
