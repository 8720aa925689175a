package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/api/middleware"
	"github.com/roomhive/allotment-backend/pkg/auth"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
)

// actorFromContext returns the acting subject recorded by the auth middleware.
func actorFromContext(ctx context.Context) (string, error) {
	actor := middleware.ActorIDFromContext(ctx)
	if actor == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return actor, nil
}

// authorizeHotel rejects manager tokens scoped to a different hotel. Admin
// and service tokens pass.
func authorizeHotel(ctx context.Context, hotelID uuid.UUID) error {
	if middleware.RoleFromContext(ctx) != string(auth.RoleManager) {
		return nil
	}
	claimed := middleware.HotelIDFromContext(ctx)
	if claimed == "" || claimed != hotelID.String() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "hotel access denied")
	}
	return nil
}
