package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/api/responses"
	"github.com/roomhive/allotment-backend/api/validators"
	"github.com/roomhive/allotment-backend/internal/channelsync"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
)

const channelManagerHeader = "X-Channel-Manager-Id"

type channelUpdateRequest struct {
	HotelID    uuid.UUID                    `json:"hotel_id" validate:"required"`
	RoomTypeID uuid.UUID                    `json:"room_type_id" validate:"required"`
	Updates    []channelsync.ExternalUpdate `json:"updates" validate:"required,min=1,dive"`
}

// ChannelUpdates ingests availability and rate feedback pushed by channel
// managers. The whole batch applies atomically or not at all.
func ChannelUpdates(svc *channelsync.WebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		source := strings.TrimSpace(r.Header.Get(channelManagerHeader))
		if source == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "channel manager id header required"))
			return
		}

		var payload channelUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := "channel-manager:" + source
		processed, err := svc.ApplyExternalUpdates(r.Context(), payload.HotelID, payload.RoomTypeID, payload.Updates, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"source":    source,
				"hotel_id":  payload.HotelID.String(),
				"processed": processed,
			})
			logg.Info(ctx, "channel updates applied")
		}

		responses.WriteSuccess(w, map[string]int{"processed": processed})
	}
}
