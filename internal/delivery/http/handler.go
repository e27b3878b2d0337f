package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
	"github.com/barease/backend/internal/usecase"
)

const (
	serviceName    = "barease-backend"
	serviceVersion = "1.0.0"
)

// Recommender ranks menu items for a preference text
type Recommender interface {
	Recommend(ctx context.Context, request *domain.RecommendRequest) (*domain.RecommendResponse, error)
}

// MenuReader serves the public menu listing
type MenuReader interface {
	List(ctx context.Context, query domain.MenuQuery) (*domain.MenuSnapshot, error)
	Makers(ctx context.Context) ([]domain.MakerSummary, error)
}

// Syncer applies spreadsheet pushes
type Syncer interface {
	Sync(ctx context.Context, request *domain.SyncRequest) (*domain.SyncResult, error)
}

// Approver publishes approved images
type Approver interface {
	Approve(ctx context.Context, request *domain.ApprovalRequest) error
}

// SuggestionLister lists pending AI suggestions
type SuggestionLister interface {
	Suggestions(ctx context.Context) ([]domain.AiSuggestion, error)
}

// Services groups the usecases behind the HTTP surface. Nil members answer 503.
type Services struct {
	Recommender Recommender
	Menu        MenuReader
	Generator   usecase.MenuGenerator
	Sync        Syncer
	Approval    Approver
	Suggestions SuggestionLister
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services Services
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services) *Handler {
	return &Handler{services: services}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Recommend handles ranking requests
func (h *Handler) Recommend(c *gin.Context) {
	if h.services.Recommender == nil {
		notConfigured(c, "recommendation")
		return
	}

	var request domain.RecommendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", "invalid request body: "+err.Error()))
		return
	}

	response, err := h.services.Recommender.Recommend(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListMenu returns the published menu, optionally filtered
func (h *Handler) ListMenu(c *gin.Context) {
	if h.services.Menu == nil {
		notConfigured(c, "menu")
		return
	}

	var query domain.MenuQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}

	menu, err := h.services.Menu.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// ListMakers returns one summary per maker on the published menu
func (h *Handler) ListMakers(c *gin.Context) {
	if h.services.Menu == nil {
		notConfigured(c, "menu")
		return
	}

	makers, err := h.services.Menu.Makers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"makers": makers, "total": len(makers)})
}

// Sync handles signed spreadsheet pushes
func (h *Handler) Sync(c *gin.Context) {
	if h.services.Sync == nil {
		notConfigured(c, "sync")
		return
	}

	var request domain.SyncRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", "invalid JSON body"))
		return
	}

	result, err := h.services.Sync.Sync(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook handles signed image approvals
func (h *Handler) Webhook(c *gin.Context) {
	if h.services.Approval == nil {
		notConfigured(c, "webhook")
		return
	}

	var request domain.ApprovalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", "invalid JSON body"))
		return
	}

	if err := h.services.Approval.Approve(c.Request.Context(), &request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListSuggestions returns AI suggestions waiting for review
func (h *Handler) ListSuggestions(c *gin.Context) {
	if h.services.Suggestions == nil {
		notConfigured(c, "suggestions")
		return
	}

	items, err := h.services.Suggestions.Suggestions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Regenerate rebuilds menu.json and embeddings.json on demand
func (h *Handler) Regenerate(c *gin.Context) {
	if h.services.Generator == nil {
		notConfigured(c, "menu generation")
		return
	}

	result, err := h.services.Generator.Generate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func notConfigured(c *gin.Context, feature string) {
	c.JSON(http.StatusServiceUnavailable, errorBody("not_configured", feature+" service not configured"))
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": code, "message": message}
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status, code := statusForError(err)
	_ = c.Error(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		message = "internal server error"
	}
	c.JSON(status, errorBody(code, message))
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMissingPayload):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrModelAccessDenied):
		return http.StatusBadGateway, "model_access_denied"
	case errors.Is(err, domain.ErrEmbeddingFailure),
		errors.Is(err, domain.ErrCompletionFailure),
		errors.Is(err, domain.ErrModelThrottled):
		return http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, domain.ErrSnapshotUnavailable):
		return http.StatusServiceUnavailable, "snapshot_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
