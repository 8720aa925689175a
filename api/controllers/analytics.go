package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomhive/allotment-backend/api/responses"
	"github.com/roomhive/allotment-backend/api/validators"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/analytics"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type recalculateRequest struct {
	Start types.Date `json:"start" validate:"required"`
	End   types.Date `json:"end" validate:"required"`
}

// AnalyticsRecalculate rolls metrics up over a window and stores the result.
func AnalyticsRecalculate(svc analytics.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
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

		var payload recalculateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		window, err := svc.Recalculate(r.Context(), configID, payload.Start, payload.End, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, window)
	}
}

// AnalyticsFetch returns the stored analytics block for a config.
func AnalyticsFetch(svc analytics.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
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

		block, err := svc.Analytics(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, block)
	}
}

// RecommendationList returns the advisory recommendations from the last
// recalculation.
func RecommendationList(svc analytics.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
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

		recs, err := svc.Recommendations(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, recs)
	}
}
