package channelsync

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/internal/record"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// syncEnvelope is the wire format pushed to channel managers.
type syncEnvelope struct {
	HotelID    string         `json:"hotel_id"`
	RoomTypeID string         `json:"room_type_id"`
	ManagerID  string         `json:"manager_id,omitempty"`
	Kind       enums.SyncKind `json:"kind"`
	Start      types.Date     `json:"start"`
	End        types.Date     `json:"end"`
	Days       []syncEnvDay   `json:"days"`
}

type syncEnvDay struct {
	Date     types.Date       `json:"date"`
	Blackout bool             `json:"blackout"`
	Channels []syncEnvChannel `json:"channels"`
}

type syncEnvChannel struct {
	ChannelID    enums.ChannelID     `json:"channel_id"`
	Allocated    *int                `json:"allocated,omitempty"`
	Available    *int                `json:"available,omitempty"`
	Rate         *decimal.Decimal    `json:"rate,omitempty"`
	Restrictions *types.Restrictions `json:"restrictions,omitempty"`
}

// PubSubPort publishes sync envelopes to the channel sync topic.
type PubSubPort struct {
	publisher messagePublisher
}

// NewPubSubPort wraps a Pub/Sub publisher as a channel-manager port.
func NewPubSubPort(publisher messagePublisher) (*PubSubPort, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return &PubSubPort{publisher: publisher}, nil
}

func (p *PubSubPort) PushAllocation(ctx context.Context, cfg *models.AllotmentConfig, start, end types.Date) error {
	return p.push(ctx, cfg, enums.SyncKindAllocation, start, end)
}

func (p *PubSubPort) PushRate(ctx context.Context, cfg *models.AllotmentConfig, start, end types.Date) error {
	return p.push(ctx, cfg, enums.SyncKindRate, start, end)
}

func (p *PubSubPort) PushRestrictions(ctx context.Context, cfg *models.AllotmentConfig, start, end types.Date) error {
	return p.push(ctx, cfg, enums.SyncKindRestrictions, start, end)
}

func (p *PubSubPort) push(ctx context.Context, cfg *models.AllotmentConfig, kind enums.SyncKind, start, end types.Date) error {
	envelope := buildEnvelope(cfg, kind, start, end)
	payload, err := json.Marshal(envelope)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sync envelope")
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"hotel_id":     cfg.HotelID.String(),
			"room_type_id": cfg.RoomTypeID.String(),
			"kind":         string(kind),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish sync envelope")
	}
	return nil
}

// buildEnvelope projects only the fields the sync kind carries, so channel
// managers never act on stale data from another concern.
func buildEnvelope(cfg *models.AllotmentConfig, kind enums.SyncKind, start, end types.Date) syncEnvelope {
	envelope := syncEnvelope{
		HotelID:    cfg.HotelID.String(),
		RoomTypeID: cfg.RoomTypeID.String(),
		ManagerID:  cfg.Integration.ChannelManager.ManagerID,
		Kind:       kind,
		Start:      start,
		End:        end,
	}

	for _, rec := range record.RecordsInRange(cfg, start, end) {
		day := syncEnvDay{Date: rec.Date, Blackout: rec.Blackout}
		for i := range rec.Channels {
			ch := rec.Channels[i]
			entry := syncEnvChannel{ChannelID: ch.ChannelID}
			switch kind {
			case enums.SyncKindAllocation:
				allocated, available := ch.Allocated, ch.Available
				entry.Allocated = &allocated
				entry.Available = &available
			case enums.SyncKindRate:
				rate := ch.Rate
				entry.Rate = &rate
			case enums.SyncKindRestrictions:
				restrictions := ch.Restrictions
				entry.Restrictions = &restrictions
			}
			day.Channels = append(day.Channels, entry)
		}
		envelope.Days = append(envelope.Days, day)
	}
	return envelope
}
