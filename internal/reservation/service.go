package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/record"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type configMutator interface {
	Mutate(ctx context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error)
}

// Input describes one booking movement. CheckOut is exclusive: a stay
// 06-01..06-03 occupies the nights of 06-01 and 06-02.
type Input struct {
	ConfigID  uuid.UUID       `json:"config_id" validate:"required"`
	ChannelID enums.ChannelID `json:"channel_id" validate:"required"`
	CheckIn   types.Date      `json:"check_in" validate:"required"`
	CheckOut  types.Date      `json:"check_out" validate:"required"`
	Rooms     int             `json:"rooms" validate:"required,min=1"`

	ActorID string `json:"-"`
}

// NightState is one night's channel inventory after the movement.
type NightState struct {
	Date      types.Date `json:"date"`
	Sold      int        `json:"sold"`
	Available int        `json:"available"`
}

// Result reports the per-night state a reserve or release left behind.
type Result struct {
	ConfigID  uuid.UUID       `json:"config_id"`
	ChannelID enums.ChannelID `json:"channel_id"`
	Version   int64           `json:"version"`
	Nights    []NightState    `json:"nights"`
}

// Service moves sold counts across consecutive daily records. Every movement
// is all-or-nothing over its date range.
type Service interface {
	Reserve(ctx context.Context, input Input) (*Result, error)
	Release(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	configs configMutator
	now     func() time.Time
}

// NewService builds the reservation engine.
func NewService(configs configMutator) (Service, error) {
	if configs == nil {
		return nil, fmt.Errorf("config mutator required")
	}
	return &service{configs: configs, now: time.Now}, nil
}

func (s *service) Reserve(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var result *Result
	cfg, err := s.configs.Mutate(ctx, input.ConfigID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		if err := allotment.EnsureActive(cfg); err != nil {
			return nil, nil, err
		}
		channel := cfg.Channel(input.ChannelID)
		if channel == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("channel %s not configured", input.ChannelID))
		}
		if !channel.Active {
			return nil, nil, pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("channel %s is inactive", input.ChannelID))
		}

		nights := types.DatesBetween(input.CheckIn, input.CheckOut)
		if err := s.checkRestrictions(cfg, input, len(nights)); err != nil {
			return nil, nil, err
		}

		states, err := s.applyDelta(cfg, input.ChannelID, nights, input.Rooms)
		if err != nil {
			return nil, nil, err
		}
		result = &Result{ConfigID: cfg.ID, ChannelID: input.ChannelID, Nights: states}

		return &allotment.LogDraft{
				ActorID:       input.ActorID,
				Action:        enums.ChangeActionAllocated,
				ChangedFields: []string{"daily_records"},
				Reason:        fmt.Sprintf("reserved %d rooms on %s %s..%s", input.Rooms, input.ChannelID, input.CheckIn, input.CheckOut),
			}, []allotment.SyncRequest{
				{Kind: enums.SyncKindAllocation, Start: input.CheckIn, End: input.CheckOut.AddDays(-1)},
			}, nil
	})
	if err != nil {
		return nil, err
	}
	result.Version = cfg.Version
	return result, nil
}

func (s *service) Release(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var result *Result
	cfg, err := s.configs.Mutate(ctx, input.ConfigID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		if err := allotment.EnsureActive(cfg); err != nil {
			return nil, nil, err
		}
		if cfg.Channel(input.ChannelID) == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("channel %s not configured", input.ChannelID))
		}

		nights := types.DatesBetween(input.CheckIn, input.CheckOut)
		states, err := s.applyDelta(cfg, input.ChannelID, nights, -input.Rooms)
		if err != nil {
			return nil, nil, err
		}
		result = &Result{ConfigID: cfg.ID, ChannelID: input.ChannelID, Nights: states}

		return &allotment.LogDraft{
				ActorID:       input.ActorID,
				Action:        enums.ChangeActionReleased,
				ChangedFields: []string{"daily_records"},
				Reason:        fmt.Sprintf("released %d rooms on %s %s..%s", input.Rooms, input.ChannelID, input.CheckIn, input.CheckOut),
			}, []allotment.SyncRequest{
				{Kind: enums.SyncKindAllocation, Start: input.CheckIn, End: input.CheckOut.AddDays(-1)},
			}, nil
	})
	if err != nil {
		return nil, err
	}
	result.Version = cfg.Version
	return result, nil
}

func validateInput(input Input) error {
	if input.ConfigID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "config id required")
	}
	if !input.ChannelID.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel id %q", input.ChannelID))
	}
	if input.Rooms < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rooms must be at least 1")
	}
	if !input.CheckOut.After(input.CheckIn) {
		return pkgerrors.New(pkgerrors.CodeValidation, "check-out must be after check-in")
	}
	return nil
}

// checkRestrictions enforces the channel's stay and arrival rules before any
// inventory moves. Per-day stop-sell and blackout are checked during the walk.
func (s *service) checkRestrictions(cfg *models.AllotmentConfig, input Input, stayNights int) error {
	arrival := effectiveRestrictions(cfg, input.CheckIn, input.ChannelID)
	if arrival.MinStay > 0 && stayNights < arrival.MinStay {
		return pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("stay of %d nights below minimum %d", stayNights, arrival.MinStay))
	}
	if arrival.MaxStay > 0 && stayNights > arrival.MaxStay {
		return pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("stay of %d nights above maximum %d", stayNights, arrival.MaxStay))
	}
	if arrival.ClosedToArrival {
		return pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("closed to arrival on %s", input.CheckIn))
	}
	departure := effectiveRestrictions(cfg, input.CheckOut, input.ChannelID)
	if departure.ClosedToDeparture {
		return pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("closed to departure on %s", input.CheckOut))
	}
	return nil
}

// applyDelta walks the nights ascending and moves sold by delta on each. Any
// failure aborts the whole walk; the caller discards the config copy.
func (s *service) applyDelta(cfg *models.AllotmentConfig, channelID enums.ChannelID, nights []types.Date, delta int) ([]NightState, error) {
	tolerance := cfg.Defaults.OverbookingTolerance()
	now := s.now()

	states := make([]NightState, 0, len(nights))
	for _, d := range nights {
		rec := record.GetOrSeed(cfg, d)
		if delta > 0 {
			if rec.Blackout {
				return nil, pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("blackout on %s", d))
			}
			if effectiveRestrictions(cfg, d, channelID).StopSell {
				return nil, pkgerrors.New(pkgerrors.CodeClosed, fmt.Sprintf("stop-sell on %s", d))
			}
		}

		rec.Channels = append([]types.ChannelAllotment(nil), rec.Channels...)
		entry := rec.Channel(channelID)
		if entry == nil {
			rec.Channels = append(rec.Channels, types.ChannelAllotment{ChannelID: channelID})
			entry = &rec.Channels[len(rec.Channels)-1]
			if def := cfg.Channel(channelID); def != nil {
				entry.Restrictions = def.Restrictions
			}
		}

		if delta > 0 && entry.Available-delta < -tolerance {
			gap := delta - entry.Available - tolerance
			return nil, pkgerrors.New(pkgerrors.CodeInsufficient,
				fmt.Sprintf("%d rooms short on %s for channel %s", gap, d, channelID))
		}
		if delta < 0 && entry.Sold+delta < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInvariant,
				fmt.Sprintf("release would drop sold below zero on %s for channel %s", d, channelID))
		}

		entry.Sold += delta
		entry.LastUpdated = now
		record.Recompute(&rec)
		if err := record.Validate(rec, cfg.Defaults); err != nil {
			return nil, err
		}
		cfg.DailyRecords[d] = rec

		states = append(states, NightState{Date: d, Sold: entry.Sold, Available: entry.Available})
	}
	return states, nil
}

// effectiveRestrictions resolves a channel's restrictions for a date: the
// day-level snapshot when one exists, otherwise the channel defaults.
func effectiveRestrictions(cfg *models.AllotmentConfig, d types.Date, channelID enums.ChannelID) types.Restrictions {
	if rec, ok := cfg.DailyRecords[d]; ok {
		if entry := rec.Channel(channelID); entry != nil {
			return entry.Restrictions
		}
	}
	if def := cfg.Channel(channelID); def != nil {
		return def.Restrictions
	}
	return types.Restrictions{}
}
