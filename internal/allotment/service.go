package allotment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/internal/record"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/pagination"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// maxVersionRetries bounds the reload-and-retry loop on version conflicts.
const maxVersionRetries = 3

// SyncRequest asks for an outbound channel-manager push after a mutation.
type SyncRequest struct {
	Kind  enums.SyncKind
	Start types.Date
	End   types.Date
}

// SyncEnqueuer stores sync requests transactionally with the mutation they
// describe.
type SyncEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, configID uuid.UUID, kind enums.SyncKind, start, end types.Date) error
}

// MutateFunc edits a freshly loaded config in memory and describes the
// change-log entry (and optional sync pushes) the mutation produces.
type MutateFunc func(cfg *models.AllotmentConfig) (*LogDraft, []SyncRequest, error)

// Service defines configuration-level operations on allotment configs.
type Service interface {
	Create(ctx context.Context, input CreateConfigInput) (*models.AllotmentConfig, error)
	Update(ctx context.Context, configID uuid.UUID, input UpdateConfigInput) (*models.AllotmentConfig, error)
	Delete(ctx context.Context, configID uuid.UUID, actorID string) error
	List(ctx context.Context, hotelID uuid.UUID, params pagination.Params, filters ConfigFilters) (*ConfigList, error)
	GetByID(ctx context.Context, configID uuid.UUID) (*models.AllotmentConfig, error)
	GetByRoomType(ctx context.Context, hotelID, roomTypeID uuid.UUID, start, end *types.Date) (*ConfigView, error)
	RangeQuery(ctx context.Context, hotelID uuid.UUID, start, end types.Date, roomTypeID *uuid.UUID) ([]ConfigView, error)
	UpdateChannelAllotment(ctx context.Context, configID uuid.UUID, channelID enums.ChannelID, date types.Date, patch record.ChannelPatch, actorID string) (*types.DailyRecord, error)
	Availability(ctx context.Context, hotelID, roomTypeID uuid.UUID, start, end types.Date, channel *enums.ChannelID) ([]AvailabilityDay, error)
	// Mutate runs the optimistic read-modify-write loop other engines build on.
	Mutate(ctx context.Context, configID uuid.UUID, fn MutateFunc) (*models.AllotmentConfig, error)
}

type service struct {
	repo Repository
	tx   txRunner
	sync SyncEnqueuer
	now  func() time.Time
}

// NewService builds the allotment config service. The sync enqueuer is
// optional; without it auto-sync requests are dropped.
func NewService(repo Repository, tx txRunner, sync SyncEnqueuer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("allotment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo: repo,
		tx:   tx,
		sync: sync,
		now:  time.Now,
	}, nil
}

// EnsureActive rejects mutations against configs that are not active.
func EnsureActive(cfg *models.AllotmentConfig) error {
	if cfg.Status != enums.ConfigStatusActive {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("config %s is %s", cfg.ID, cfg.Status))
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateConfigInput) (*models.AllotmentConfig, error) {
	if input.HotelID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hotel id required")
	}
	if input.RoomTypeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room type id required")
	}
	if err := validateDefaults(input.Defaults); err != nil {
		return nil, err
	}
	if err := validateChannels(input.Channels); err != nil {
		return nil, err
	}
	rules := input.Rules
	for i := range rules {
		if rules[i].ID == uuid.Nil {
			rules[i].ID = uuid.New()
		}
	}
	if err := validateRules(rules, input.Defaults.TotalInventory); err != nil {
		return nil, err
	}
	timezone := input.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown timezone %q", timezone))
	}

	existing, err := s.repo.FindByRoomType(ctx, input.HotelID, input.RoomTypeID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing config")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("room type %s already has an allotment config", input.RoomTypeID))
	}

	cfg := &models.AllotmentConfig{
		HotelID:      input.HotelID,
		RoomTypeID:   input.RoomTypeID,
		Name:         input.Name,
		Description:  input.Description,
		Status:       enums.ConfigStatusActive,
		Timezone:     timezone,
		Defaults:     input.Defaults,
		Channels:     input.Channels,
		Rules:        rules,
		DailyRecords: map[types.Date]types.DailyRecord{},
		Analytics: types.Analytics{
			Frequency: enums.AnalyticsDaily,
		},
		Version: 1,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, cfg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create config")
		}
		return repo.AppendLog(ctx, &models.ChangeLogEntry{
			ConfigID:   cfg.ID,
			OccurredAt: s.now(),
			ActorID:    input.ActorID,
			Action:     enums.ChangeActionCreated,
			Reason:     "config created",
		})
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *service) Update(ctx context.Context, configID uuid.UUID, input UpdateConfigInput) (*models.AllotmentConfig, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *input.Status))
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown timezone %q", *input.Timezone))
		}
	}
	if input.Defaults != nil {
		if err := validateDefaults(*input.Defaults); err != nil {
			return nil, err
		}
	}
	if input.Channels != nil {
		if err := validateChannels(input.Channels); err != nil {
			return nil, err
		}
	}

	return s.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*LogDraft, []SyncRequest, error) {
		var changed []string
		if input.Name != nil {
			cfg.Name = *input.Name
			changed = append(changed, "name")
		}
		if input.Description != nil {
			cfg.Description = *input.Description
			changed = append(changed, "description")
		}
		if input.Status != nil {
			cfg.Status = *input.Status
			changed = append(changed, "status")
		}
		if input.Timezone != nil {
			cfg.Timezone = *input.Timezone
			changed = append(changed, "timezone")
		}
		if input.Defaults != nil {
			cfg.Defaults = *input.Defaults
			changed = append(changed, "defaults")
		}
		if input.Channels != nil {
			cfg.Channels = input.Channels
			changed = append(changed, "channels")
		}
		if input.Rules != nil {
			rules := input.Rules
			for i := range rules {
				if rules[i].ID == uuid.Nil {
					rules[i].ID = uuid.New()
				}
			}
			if err := validateRules(rules, cfg.Defaults.TotalInventory); err != nil {
				return nil, nil, err
			}
			cfg.Rules = rules
			changed = append(changed, "rules")
		}
		if input.Integration != nil {
			cfg.Integration = *input.Integration
			changed = append(changed, "integration")
		}
		if len(changed) == 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "empty patch")
		}

		reason := "config updated"
		var syncs []SyncRequest
		if input.Defaults != nil || input.Channels != nil {
			scaled := rescaleRecords(cfg)
			if len(scaled) > 0 {
				changed = append(changed, "daily_records")
				reason = fmt.Sprintf("config updated; allocations scaled to inventory cap on %d dates", len(scaled))
				syncs = append(syncs, SyncRequest{
					Kind:  enums.SyncKindAllocation,
					Start: scaled[0],
					End:   scaled[len(scaled)-1],
				})
			}
		}
		return &LogDraft{
			ActorID:       input.ActorID,
			Action:        enums.ChangeActionUpdated,
			ChangedFields: changed,
			Reason:        reason,
		}, syncs, nil
	})
}

func (s *service) Delete(ctx context.Context, configID uuid.UUID, actorID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SoftDelete(ctx, configID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete config")
		}
		return repo.AppendLog(ctx, &models.ChangeLogEntry{
			ConfigID:   configID,
			OccurredAt: s.now(),
			ActorID:    actorID,
			Action:     enums.ChangeActionDeleted,
			Reason:     "config deleted",
		})
	})
}

func (s *service) List(ctx context.Context, hotelID uuid.UUID, params pagination.Params, filters ConfigFilters) (*ConfigList, error) {
	if hotelID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hotel id required")
	}
	list, err := s.repo.List(ctx, hotelID, params, filters)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list configs")
	}
	return list, nil
}

func (s *service) GetByID(ctx context.Context, configID uuid.UUID) (*models.AllotmentConfig, error) {
	cfg, err := s.repo.FindByID(ctx, configID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load config")
	}
	return cfg, nil
}

func (s *service) GetByRoomType(ctx context.Context, hotelID, roomTypeID uuid.UUID, start, end *types.Date) (*ConfigView, error) {
	cfg, err := s.repo.FindByRoomType(ctx, hotelID, roomTypeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no config for room type")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load config")
	}

	var records []types.DailyRecord
	switch {
	case start != nil && end != nil:
		if end.Before(*start) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date before start date")
		}
		records = record.RecordsInRange(cfg, *start, *end)
	default:
		for _, d := range cfg.SortedDates() {
			records = append(records, cfg.DailyRecords[d])
		}
	}

	return &ConfigView{Config: cfg, Records: records}, nil
}

func (s *service) RangeQuery(ctx context.Context, hotelID uuid.UUID, start, end types.Date, roomTypeID *uuid.UUID) ([]ConfigView, error) {
	if hotelID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hotel id required")
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date before start date")
	}

	configs, err := s.repo.ListByHotel(ctx, hotelID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list configs")
	}

	views := make([]ConfigView, 0, len(configs))
	for i := range configs {
		cfg := &configs[i]
		if roomTypeID != nil && cfg.RoomTypeID != *roomTypeID {
			continue
		}
		views = append(views, ConfigView{
			Config:  cfg,
			Records: record.RecordsInRange(cfg, start, end),
		})
	}
	return views, nil
}

func (s *service) UpdateChannelAllotment(ctx context.Context, configID uuid.UUID, channelID enums.ChannelID, date types.Date, patch record.ChannelPatch, actorID string) (*types.DailyRecord, error) {
	if !channelID.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel id %q", channelID))
	}
	if patch.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty patch")
	}

	var updated types.DailyRecord
	_, err := s.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*LogDraft, []SyncRequest, error) {
		if err := EnsureActive(cfg); err != nil {
			return nil, nil, err
		}
		rec, err := record.UpsertChannel(cfg, date, channelID, patch, s.now())
		if err != nil {
			return nil, nil, err
		}
		updated = rec

		changed := patchFields(patch)
		return &LogDraft{
				ActorID:       actorID,
				Action:        enums.ChangeActionUpdated,
				ChangedFields: changed,
				Reason:        fmt.Sprintf("channel %s allotment updated for %s", channelID, date),
			},
			patchSyncRequests(patch, date), nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) Availability(ctx context.Context, hotelID, roomTypeID uuid.UUID, start, end types.Date, channel *enums.ChannelID) ([]AvailabilityDay, error) {
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date before start date")
	}

	view, err := s.GetByRoomType(ctx, hotelID, roomTypeID, nil, nil)
	if err != nil {
		return nil, err
	}
	cfg := view.Config

	days := make([]AvailabilityDay, 0, start.DaysUntil(end)+1)
	for _, d := range types.DatesThrough(start, end) {
		rec, ok := cfg.DailyRecords[d]
		if !ok {
			// untouched dates report the seeded shape without persisting it
			rec = types.DailyRecord{Date: d, TotalInventory: cfg.Defaults.TotalInventory, FreeStock: cfg.Defaults.TotalInventory}
		}
		day := AvailabilityDay{
			Date:      d,
			FreeStock: rec.FreeStock,
			Blackout:  rec.Blackout,
		}
		for _, ch := range rec.Channels {
			if channel != nil && ch.ChannelID != *channel {
				continue
			}
			day.Channels = append(day.Channels, ChannelAvailability{
				ChannelID: ch.ChannelID,
				Allocated: ch.Allocated,
				Available: ch.Available,
				StopSell:  ch.Restrictions.StopSell || rec.Blackout,
			})
		}
		days = append(days, day)
	}
	return days, nil
}

func (s *service) Mutate(ctx context.Context, configID uuid.UUID, fn MutateFunc) (*models.AllotmentConfig, error) {
	if configID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config id required")
	}

	var lastErr error
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "mutation aborted")
		}

		cfg, err := s.repo.FindByID(ctx, configID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load config")
		}
		expected := cfg.Version

		draft, syncs, err := fn(cfg)
		if err != nil {
			return nil, err
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.SaveWithVersion(ctx, cfg, expected); err != nil {
				return err
			}
			if draft != nil {
				entry := &models.ChangeLogEntry{
					ConfigID:      cfg.ID,
					OccurredAt:    s.now(),
					ActorID:       draft.ActorID,
					Action:        draft.Action,
					ChangedFields: draft.ChangedFields,
					Reason:        draft.Reason,
				}
				if err := repo.AppendLog(ctx, entry); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append change log")
				}
			}
			if s.sync != nil && cfg.Integration.ChannelManager.Enabled && cfg.Integration.ChannelManager.AutoSync {
				for _, req := range syncs {
					if err := s.sync.Enqueue(ctx, tx, cfg.ID, req.Kind, req.Start, req.End); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue sync")
					}
				}
			}
			return nil
		})
		if err == nil {
			return cfg, nil
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeVersionConflict) {
			lastErr = err
			continue
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save config")
	}
	return nil, lastErr
}

func patchFields(patch record.ChannelPatch) []string {
	var fields []string
	if patch.Allocated != nil {
		fields = append(fields, "allocated")
	}
	if patch.Sold != nil {
		fields = append(fields, "sold")
	}
	if patch.Blocked != nil {
		fields = append(fields, "blocked")
	}
	if patch.Rate != nil {
		fields = append(fields, "rate")
	}
	if patch.Restrictions != nil {
		fields = append(fields, "restrictions")
	}
	return fields
}

// rescaleRecords re-bases every stored daily record on the current defaults
// and scales over-allocated dates down to the inventory cap. It returns the
// scaled dates in ascending order.
func rescaleRecords(cfg *models.AllotmentConfig) []types.Date {
	var scaled []types.Date
	for _, d := range cfg.SortedDates() {
		rec := cfg.DailyRecords[d]
		rec.TotalInventory = cfg.Defaults.TotalInventory
		adjustments := record.EnforceTotalCap(&rec, cfg.Defaults)
		record.Recompute(&rec)
		cfg.DailyRecords[d] = rec
		if len(adjustments) > 0 {
			scaled = append(scaled, d)
		}
	}
	return scaled
}

func patchSyncRequests(patch record.ChannelPatch, date types.Date) []SyncRequest {
	var reqs []SyncRequest
	if patch.Allocated != nil || patch.Sold != nil || patch.Blocked != nil {
		reqs = append(reqs, SyncRequest{Kind: enums.SyncKindAllocation, Start: date, End: date})
	}
	if patch.Rate != nil {
		reqs = append(reqs, SyncRequest{Kind: enums.SyncKindRate, Start: date, End: date})
	}
	if patch.Restrictions != nil {
		reqs = append(reqs, SyncRequest{Kind: enums.SyncKindRestrictions, Start: date, End: date})
	}
	return reqs
}

func validateDefaults(defaults types.DefaultSettings) error {
	if defaults.TotalInventory < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total inventory must be >= 0")
	}
	if defaults.OverbookingLimit < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "overbooking limit must be >= 0")
	}
	if defaults.AllocationMethod != "" && !defaults.AllocationMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid allocation method %q", defaults.AllocationMethod))
	}
	return nil
}

func validateChannels(channels []types.Channel) error {
	if len(channels) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one channel required")
	}
	seen := map[enums.ChannelID]bool{}
	for _, ch := range channels {
		if !ch.ID.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel id %q", ch.ID))
		}
		if seen[ch.ID] {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate channel %s", ch.ID))
		}
		seen[ch.ID] = true
	}
	return nil
}

func validateRules(rules []types.AllocationRule, totalInventory int) error {
	for _, rule := range rules {
		if !rule.Type.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: invalid type %q", rule.Name, rule.Type))
		}
		switch rule.Type {
		case enums.RuleTypePercentage:
			sum := int64(0)
			for _, pct := range rule.Percentages {
				if pct.IsNegative() {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative percentage", rule.Name))
				}
				sum += pct.Shift(2).IntPart()
			}
			if sum > 100*100 {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: percentages sum above 100", rule.Name))
			}
		case enums.RuleTypeFixed:
			sum := 0
			for _, n := range rule.Fixed {
				if n < 0 {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative fixed allocation", rule.Name))
				}
				sum += n
			}
			if sum > totalInventory {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: fixed allocations sum above total inventory", rule.Name))
			}
		case enums.RuleTypePriority:
			for id, caps := range rule.Caps {
				if caps.Min < 0 || caps.Max < caps.Min {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: invalid caps for channel %s", rule.Name, id))
				}
			}
		case enums.RuleTypeDynamic:
			if rule.Fallback != "" && !rule.Fallback.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: invalid fallback %q", rule.Name, rule.Fallback))
			}
		}
	}
	return nil
}
