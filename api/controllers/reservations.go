package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roomhive/allotment-backend/api/responses"
	"github.com/roomhive/allotment-backend/api/validators"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/reservation"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type reservationRequest struct {
	ChannelID enums.ChannelID `json:"channel_id" validate:"required"`
	CheckIn   types.Date      `json:"check_in" validate:"required"`
	CheckOut  types.Date      `json:"check_out" validate:"required"`
	Rooms     int             `json:"rooms" validate:"required,min=1"`
}

// Reserve books rooms across the stay's nights, all-or-nothing.
func Reserve(svc reservation.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationMovement(svc, configs, logg, false)
}

// Release returns previously sold rooms to the pool.
func Release(svc reservation.Service, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationMovement(svc, configs, logg, true)
}

func reservationMovement(svc reservation.Service, configs allotment.Service, logg *logger.Logger, release bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
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

		var payload reservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reservation.Input{
			ConfigID:  configID,
			ChannelID: payload.ChannelID,
			CheckIn:   payload.CheckIn,
			CheckOut:  payload.CheckOut,
			Rooms:     payload.Rooms,
			ActorID:   actor,
		}

		var result *reservation.Result
		if release {
			result, err = svc.Release(r.Context(), input)
		} else {
			result, err = svc.Reserve(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
