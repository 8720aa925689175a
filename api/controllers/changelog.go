package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/api/responses"
	"github.com/roomhive/allotment-backend/api/validators"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/changelog"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/pagination"
)

// ChangeLogList pages through a config's audit entries, newest first.
func ChangeLogList(logs changelog.Repository, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logs == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "change log unavailable"))
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

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}

		filters, err := parseLogFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := logs.ListByConfig(r.Context(), configID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// ConfigExport streams the full config snapshot as JSON or CSV.
func ConfigExport(exp changelog.Exporter, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if exp == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exporter unavailable"))
			return
		}

		configID, format, err := exportTarget(r, configs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		export, err := exp.ExportConfig(r.Context(), configID, format)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeExport(w, export)
	}
}

// ChangeLogExport streams the audit trail as JSON or CSV.
func ChangeLogExport(exp changelog.Exporter, configs allotment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if exp == nil || configs == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exporter unavailable"))
			return
		}

		configID, format, err := exportTarget(r, configs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseLogFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		export, err := exp.ExportLog(r.Context(), configID, format, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeExport(w, export)
	}
}

func exportTarget(r *http.Request, configs allotment.Service) (configID uuid.UUID, format enums.ExportFormat, err error) {
	configID, err = validators.PathUUID(chi.URLParam(r, "configId"), "configId")
	if err != nil {
		return configID, format, err
	}

	existing, err := configs.GetByID(r.Context(), configID)
	if err != nil {
		return configID, format, err
	}
	if err = authorizeHotel(r.Context(), existing.HotelID); err != nil {
		return configID, format, err
	}

	raw := strings.TrimSpace(r.URL.Query().Get("format"))
	if raw == "" {
		raw = string(enums.ExportFormatJSON)
	}
	format, err = enums.ParseExportFormat(raw)
	if err != nil {
		return configID, format, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid export format")
	}
	return configID, format, nil
}

func parseLogFilters(r *http.Request) (changelog.LogFilters, error) {
	var filters changelog.LogFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "from must be an RFC3339 timestamp").WithDetails(map[string]any{"field": "from"})
		}
		filters.From = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "to must be an RFC3339 timestamp").WithDetails(map[string]any{"field": "to"})
		}
		filters.To = &to
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
		action, err := enums.ParseChangeAction(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action filter")
		}
		filters.Action = &action
	}

	return filters, nil
}

func writeExport(w http.ResponseWriter, export *changelog.Export) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Body)
}
