package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/logging"
	"github.com/healthcampaign/project-factory/internal/metrics"
	"github.com/healthcampaign/project-factory/internal/middleware"
	"github.com/healthcampaign/project-factory/internal/pipeline"
)

// BasePath prefixes every business route.
const BasePath = "/project-factory/v1"

const maxBodyBytes = 1 << 20

// ResourceAccepter starts resource jobs.
type ResourceAccepter interface {
	Accept(ctx context.Context, req pipeline.AcceptRequest) (domain.ResourceDetails, error)
}

// ResourceSearcher reads recorded resource jobs.
type ResourceSearcher interface {
	Search(ctx context.Context, criteria domain.ResourceSearchCriteria) ([]domain.ResourceDetails, error)
}

// CampaignMapper starts campaign mapping in the background.
type CampaignMapper interface {
	Start(ctx context.Context, info client.RequestInfo, campaign domain.CampaignDetails)
}

// Handler serves the project factory HTTP API.
type Handler struct {
	resources ResourceAccepter
	search    ResourceSearcher
	mapper    CampaignMapper
	logger    *logrus.Entry
}

// NewHandler builds a Handler.
func NewHandler(resources ResourceAccepter, search ResourceSearcher, mapper CampaignMapper, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{resources: resources, search: search, mapper: mapper, logger: logger}
}

// Router mounts every route, the health check and the metrics endpoint.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(h.logger))

	api := r.PathPrefix(BasePath).Subrouter()
	api.HandleFunc("/data/_create", h.createResource).Methods(http.MethodPost)
	api.HandleFunc("/data/_search", h.searchResources).Methods(http.MethodPost)
	api.HandleFunc("/project-type/mapping", h.mapCampaign).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	metrics.Register(r, "/metrics")
	return r
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		_ = WriteError(w, http.StatusBadRequest, domain.CodeValidationError, "Malformed request body",
			map[string]string{"body": err.Error()})
		return false
	}
	if meta, ok := validationMeta(dst); !ok {
		_ = WriteError(w, http.StatusBadRequest, domain.CodeValidationError, "Request validation failed", meta)
		return false
	}
	return true
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if !decode(w, r, &req) {
		return
	}
	req.Normalize()

	rd, err := h.resources.Accept(r.Context(), req.ToAccept())
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"resource_id":   rd.ID,
		"resource_type": rd.Type,
		"tenant_id":     rd.TenantID,
	}).Info("resource accepted")

	_ = WriteJSON(w, http.StatusAccepted, map[string]any{
		"ResponseInfo":    newResponseInfo(req.RequestInfo),
		"ResourceDetails": rd,
	})
}

func (h *Handler) searchResources(w http.ResponseWriter, r *http.Request) {
	var req SearchResourceRequest
	if !decode(w, r, &req) {
		return
	}

	found, err := h.search.Search(r.Context(), req.ToCriteria())
	if err != nil {
		writeAppError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"ResponseInfo":    newResponseInfo(req.RequestInfo),
		"ResourceDetails": found,
	})
}

func (h *Handler) mapCampaign(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if !decode(w, r, &req) {
		return
	}

	campaign := req.ToCampaign()
	h.mapper.Start(r.Context(), req.RequestInfo, campaign)
	_ = WriteJSON(w, http.StatusAccepted, map[string]any{
		"ResponseInfo":    newResponseInfo(req.RequestInfo),
		"CampaignDetails": campaign,
	})
}
