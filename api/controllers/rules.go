package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomhive/allotment-backend/api/responses"
	"github.com/roomhive/allotment-backend/api/validators"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/rules"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type ruleApplyRequest struct {
	Start types.Date `json:"start" validate:"required"`
	End   types.Date `json:"end" validate:"required"`
}

// RuleApply runs one allocation rule over a date range.
func RuleApply(svc rules.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		configID, err := validators.PathUUID(chi.URLParam(r, "configId"), "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := validators.PathUUID(chi.URLParam(r, "ruleId"), "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		existing, err := configs.GetByID(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), existing.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleApplyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcomes, err := svc.Apply(r.Context(), configID, ruleID, payload.Start, payload.End, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcomes)
	}
}

// RuleOptimize runs every enabled rule over the config's optimization horizon.
func RuleOptimize(svc rules.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		configID, err := validators.PathUUID(chi.URLParam(r, "configId"), "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		existing, err := configs.GetByID(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), existing.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Optimize(r.Context(), configID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
