package channelsync

import (
	"context"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// Port is the outbound channel-manager interface. Implementations push one
// config's state for a date range; they do not decide when to push.
type Port interface {
	PushAllocation(ctx context.Context, cfg *models.AllotmentConfig, start, end types.Date) error
	PushRate(ctx context.Context, cfg *models.AllotmentConfig, start, end types.Date) error
	PushRestrictions(ctx context.Context, cfg *models.AllotmentConfig, start, end types.Date) error
}
