package changelog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
)

// recordCSVHeader is the stable export schema. Changing column order breaks
// downstream consumers.
var recordCSVHeader = []string{
	"Date", "Total Inventory", "Total Sold", "Free Stock", "Occupancy Rate",
	"Channel", "Allocated", "Sold", "Available", "Blocked",
}

var logCSVHeader = []string{"Timestamp", "Actor", "Action", "Changed Fields", "Reason"}

type configGetter interface {
	GetByID(ctx context.Context, configID uuid.UUID) (*models.AllotmentConfig, error)
}

// Export is one rendered payload ready to stream to a caller.
type Export struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Exporter renders configs and audit logs as JSON or CSV byte streams.
type Exporter interface {
	ExportConfig(ctx context.Context, configID uuid.UUID, format enums.ExportFormat) (*Export, error)
	ExportLog(ctx context.Context, configID uuid.UUID, format enums.ExportFormat, filters LogFilters) (*Export, error)
}

type exporter struct {
	configs configGetter
	logs    Repository
}

// NewExporter builds the audit and inventory exporter.
func NewExporter(configs configGetter, logs Repository) (Exporter, error) {
	if configs == nil {
		return nil, fmt.Errorf("config getter required")
	}
	if logs == nil {
		return nil, fmt.Errorf("log repository required")
	}
	return &exporter{configs: configs, logs: logs}, nil
}

func (e *exporter) ExportConfig(ctx context.Context, configID uuid.UUID, format enums.ExportFormat) (*Export, error) {
	if !format.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	cfg, err := e.configs.GetByID(ctx, configID)
	if err != nil {
		return nil, err
	}

	switch format {
	case enums.ExportFormatJSON:
		body, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode config")
		}
		return &Export{
			ContentType: "application/json",
			Filename:    exportFilename(cfg, "json"),
			Body:        body,
		}, nil
	default:
		body, err := renderRecordCSV(cfg)
		if err != nil {
			return nil, err
		}
		return &Export{
			ContentType: "text/csv",
			Filename:    exportFilename(cfg, "csv"),
			Body:        body,
		}, nil
	}
}

func (e *exporter) ExportLog(ctx context.Context, configID uuid.UUID, format enums.ExportFormat, filters LogFilters) (*Export, error) {
	if !format.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if _, err := e.configs.GetByID(ctx, configID); err != nil {
		return nil, err
	}
	entries, err := e.logs.AllByConfig(ctx, configID, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load change log")
	}

	switch format {
	case enums.ExportFormatJSON:
		body, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode change log")
		}
		return &Export{
			ContentType: "application/json",
			Filename:    fmt.Sprintf("changelog-%s.json", configID),
			Body:        body,
		}, nil
	default:
		body, err := renderLogCSV(entries)
		if err != nil {
			return nil, err
		}
		return &Export{
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("changelog-%s.csv", configID),
			Body:        body,
		}, nil
	}
}

// renderRecordCSV emits one row per (date, channel), dates ascending,
// channels in stored order.
func renderRecordCSV(cfg *models.AllotmentConfig) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(recordCSVHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}

	for _, d := range cfg.SortedDates() {
		rec := cfg.DailyRecords[d]
		for _, ch := range rec.Channels {
			row := []string{
				d.String(),
				strconv.Itoa(rec.TotalInventory),
				strconv.Itoa(rec.TotalSold),
				strconv.Itoa(rec.FreeStock),
				strconv.FormatFloat(rec.OccupancyRate, 'f', 2, 64),
				string(ch.ChannelID),
				strconv.Itoa(ch.Allocated),
				strconv.Itoa(ch.Sold),
				strconv.Itoa(ch.Available),
				strconv.Itoa(ch.Blocked),
			}
			if err := w.Write(row); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv row")
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return buf.Bytes(), nil
}

func renderLogCSV(entries []models.ChangeLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(logCSVHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	for _, entry := range entries {
		row := []string{
			entry.OccurredAt.UTC().Format(time.RFC3339),
			entry.ActorID,
			string(entry.Action),
			strings.Join(entry.ChangedFields, ";"),
			entry.Reason,
		}
		if err := w.Write(row); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return buf.Bytes(), nil
}

func exportFilename(cfg *models.AllotmentConfig, ext string) string {
	name := strings.ToLower(strings.ReplaceAll(cfg.Name, " ", "-"))
	if name == "" {
		name = cfg.ID.String()
	}
	return fmt.Sprintf("allotment-%s.%s", name, ext)
}
