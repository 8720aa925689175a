package channelsync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/record"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// ExternalUpdate is one per-date, per-channel patch from a channel manager.
type ExternalUpdate struct {
	Date         types.Date          `json:"date" validate:"required"`
	ChannelID    enums.ChannelID     `json:"channel_id" validate:"required"`
	Allocated    *int                `json:"allocated,omitempty"`
	Sold         *int                `json:"sold,omitempty"`
	Blocked      *int                `json:"blocked,omitempty"`
	Rate         *decimal.Decimal    `json:"rate,omitempty"`
	Restrictions *types.Restrictions `json:"restrictions,omitempty"`
}

type configFinder interface {
	Mutate(ctx context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error)
	GetByRoomType(ctx context.Context, hotelID, roomTypeID uuid.UUID, start, end *types.Date) (*allotment.ConfigView, error)
}

// WebhookService ingests channel-manager feedback. It is a privileged path
// into the daily records: it bypasses the rule engine but never the
// invariants.
type WebhookService struct {
	configs configFinder
	now     func() time.Time
}

// NewWebhookService builds the inbound webhook handler's service.
func NewWebhookService(configs configFinder) (*WebhookService, error) {
	if configs == nil {
		return nil, fmt.Errorf("config finder required")
	}
	return &WebhookService{configs: configs, now: time.Now}, nil
}

// ApplyExternalUpdates applies every patch in one atomic mutation and returns
// the number processed. A single invalid patch rejects the whole batch.
func (s *WebhookService) ApplyExternalUpdates(ctx context.Context, hotelID, roomTypeID uuid.UUID, updates []ExternalUpdate, actorID string) (int, error) {
	if len(updates) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no updates supplied")
	}
	for _, u := range updates {
		if u.Date.IsZero() {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "update date required")
		}
		if !u.ChannelID.IsValid() {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel id %q", u.ChannelID))
		}
	}

	view, err := s.configs.GetByRoomType(ctx, hotelID, roomTypeID, nil, nil)
	if err != nil {
		return 0, err
	}

	ordered := append([]ExternalUpdate(nil), updates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ChannelID < ordered[j].ChannelID
	})

	processed := 0
	_, err = s.configs.Mutate(ctx, view.Config.ID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		if err := allotment.EnsureActive(cfg); err != nil {
			return nil, nil, err
		}
		processed = 0
		now := s.now()
		for _, u := range ordered {
			patch := record.ChannelPatch{
				Allocated:    u.Allocated,
				Sold:         u.Sold,
				Blocked:      u.Blocked,
				Rate:         u.Rate,
				Restrictions: u.Restrictions,
			}
			if patch.Empty() {
				continue
			}
			if _, err := record.UpsertChannel(cfg, u.Date, u.ChannelID, patch, now); err != nil {
				return nil, nil, err
			}
			processed++
		}
		if processed == 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "no effective updates supplied")
		}

		cfg.Integration.ChannelManager.NeedsSync = false
		return &allotment.LogDraft{
			ActorID:       actorID,
			Action:        enums.ChangeActionSynced,
			ChangedFields: []string{"daily_records", "integration"},
			Reason:        fmt.Sprintf("applied %d external channel updates", processed),
		}, nil, nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}
