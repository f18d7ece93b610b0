package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/loxe-ai/evidence-tracer/pkg/adapters"
	"github.com/loxe-ai/evidence-tracer/pkg/models/api"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/report"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type Service interface {
	StartScan(ctx context.Context, req scan.Request) (*domain.Scan, error)
	GetScan(ctx context.Context, scanID string) (*domain.Scan, error)
}

type Inventory interface {
	ListAssets(ctx context.Context, accountID string) ([]domain.Asset, error)
	ListFindings(ctx context.Context, assetIDs []string) ([]domain.Finding, error)
}

type Handler struct {
	scans     Service
	inventory Inventory
}

func NewHandler(scans Service, inventory Inventory) *Handler {
	return &Handler{
		scans:     scans,
		inventory: inventory,
	}
}

func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var body api.StartScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc, err := h.scans.StartScan(ctx, scan.Request{
		ScanID:     body.ScanID,
		AccountID:  body.AccountID,
		RoleARN:    body.RoleARN,
		ExternalID: body.ExternalID,
		Region:     body.Region,
	})
	switch {
	case errors.Is(err, scan.ErrInvalidRequest):
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, postgres.ErrScanExists):
		writeError(ctx, w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, scan.ErrStorageUnavailable):
		logger.Error().Err(err).Msg("storage health check failed")
		writeError(ctx, w, http.StatusServiceUnavailable, "storage unavailable")
		return
	case err != nil:
		logger.Error().Err(err).Msg("failed to start scan")
		writeError(ctx, w, http.StatusInternalServerError, "failed to start scan")
		return
	}

	writeJSON(ctx, w, http.StatusAccepted, api.StartScanResponse{
		ScanID: sc.ID,
		Status: string(sc.Status),
	})
}

func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sc, ok := h.loadScan(w, r)
	if !ok {
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainScanToApi(*sc))
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	sc, ok := h.loadScan(w, r)
	if !ok {
		return
	}
	if !sc.Finished() {
		writeError(ctx, w, http.StatusConflict, "scan is still running")
		return
	}

	var buf bytes.Buffer
	if err := report.RenderScanCSV(&buf, sc.Findings); err != nil {
		logger.Error().Err(err).Str("scan_id", sc.ID).Msg("failed to render report")
		writeError(ctx, w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=evidence-%s.csv", sc.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
	}
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")

	assets, err := h.inventory.ListAssets(ctx, account)
	if err != nil {
		logger.Error().Err(err).Str("account", account).Msg("failed to list assets")
		writeError(ctx, w, http.StatusInternalServerError, "failed to list assets")
		return
	}

	findings, err := h.inventory.ListFindings(ctx, lo.Map(assets, func(a domain.Asset, _ int) string {
		return a.ID
	}))
	if err != nil {
		logger.Error().Err(err).Str("account", account).Msg("failed to list findings")
		writeError(ctx, w, http.StatusInternalServerError, "failed to list findings")
		return
	}

	response := make([]api.Asset, 0, len(assets))
	for _, a := range assets {
		response = append(response, adapters.MapDomainAssetToApi(a, findings))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) loadScan(w http.ResponseWriter, r *http.Request) (*domain.Scan, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	sc, err := h.scans.GetScan(ctx, id)
	if errors.Is(err, postgres.ErrScanNotFound) {
		writeError(ctx, w, http.StatusNotFound, "scan not found")
		return nil, false
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("scan_id", id).Msg("failed to load scan")
		writeError(ctx, w, http.StatusInternalServerError, "failed to load scan")
		return nil, false
	}
	return sc, true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, api.Error{Message: msg})
}
