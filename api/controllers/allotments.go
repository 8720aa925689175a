package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/api/responses"
	"github.com/roomhive/allotment-backend/api/validators"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/record"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/pagination"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// AllotmentCreate registers a new room-type allotment configuration.
func AllotmentCreate(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allotment.CreateConfigInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := authorizeHotel(r.Context(), payload.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload.ActorID = actor
		cfg, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, cfg)
	}
}

// AllotmentUpdate patches the mutable fields of a configuration.
func AllotmentUpdate(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
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

		existing, err := svc.GetByID(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), existing.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allotment.UpdateConfigInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload.ActorID = actor
		cfg, err := svc.Update(r.Context(), configID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cfg)
	}
}

// AllotmentDelete soft-deletes a configuration, keeping its audit trail.
func AllotmentDelete(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
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

		existing, err := svc.GetByID(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), existing.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), configID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

// AllotmentList pages through a hotel's configurations.
func AllotmentList(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}

		hotelID, err := validators.PathUUID(chi.URLParam(r, "hotelId"), "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), hotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}

		filters := allotment.ConfigFilters{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseConfigStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		roomTypeID, err := validators.ParseQueryUUID(r, "room_type_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.RoomTypeID = roomTypeID

		list, err := svc.List(r.Context(), hotelID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// AllotmentGet returns one configuration with its full daily record map.
func AllotmentGet(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}

		configID, err := validators.PathUUID(chi.URLParam(r, "configId"), "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.GetByID(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), cfg.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cfg)
	}
}

// AllotmentByRoomType resolves the config for a hotel room type, optionally
// clipping records to a date range.
func AllotmentByRoomType(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}

		hotelID, err := validators.PathUUID(chi.URLParam(r, "hotelId"), "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), hotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomTypeID, err := validators.PathUUID(chi.URLParam(r, "roomTypeId"), "roomTypeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start, err := validators.ParseQueryDate(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryDate(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetByRoomType(r.Context(), hotelID, roomTypeID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// AllotmentRange returns every config for a hotel with records clipped to
// [start, end], optionally narrowed to one room type.
func AllotmentRange(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}

		hotelID, err := validators.PathUUID(chi.URLParam(r, "hotelId"), "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), hotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start, err := validators.RequireQueryDate(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.RequireQueryDate(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roomTypeID, err := validators.ParseQueryUUID(r, "room_type_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.RangeQuery(r.Context(), hotelID, start, end, roomTypeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, views)
	}
}

// Availability reports sellable rooms per date, optionally for one channel.
func Availability(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}

		hotelID, err := validators.PathUUID(chi.URLParam(r, "hotelId"), "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), hotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomTypeID, err := validators.PathUUID(chi.URLParam(r, "roomTypeId"), "roomTypeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start, err := validators.RequireQueryDate(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.RequireQueryDate(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var channel *enums.ChannelID
		if raw := strings.TrimSpace(r.URL.Query().Get("channel")); raw != "" {
			parsed, err := enums.ParseChannelID(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel filter"))
				return
			}
			channel = &parsed
		}

		days, err := svc.Availability(r.Context(), hotelID, roomTypeID, start, end, channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, days)
	}
}

type channelAllotmentRequest struct {
	Date         types.Date          `json:"date" validate:"required"`
	Allocated    *int                `json:"allocated,omitempty" validate:"omitempty,min=0"`
	Sold         *int                `json:"sold,omitempty" validate:"omitempty,min=0"`
	Blocked      *int                `json:"blocked,omitempty" validate:"omitempty,min=0"`
	Rate         *decimal.Decimal    `json:"rate,omitempty"`
	Restrictions *types.Restrictions `json:"restrictions,omitempty"`
}

func (req channelAllotmentRequest) toPatch() record.ChannelPatch {
	return record.ChannelPatch{
		Allocated:    req.Allocated,
		Sold:         req.Sold,
		Blocked:      req.Blocked,
		Rate:         req.Rate,
		Restrictions: req.Restrictions,
	}
}

// ChannelAllotmentUpdate patches one channel's counts on one date.
func ChannelAllotmentUpdate(svc allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
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

		channelID, err := enums.ParseChannelID(chi.URLParam(r, "channelId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel id"))
			return
		}

		existing, err := svc.GetByID(r.Context(), configID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeHotel(r.Context(), existing.HotelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload channelAllotmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dayRecord, err := svc.UpdateChannelAllotment(r.Context(), configID, channelID, payload.Date, payload.toPatch(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dayRecord)
	}
}
