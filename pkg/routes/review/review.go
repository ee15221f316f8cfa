package review

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	reviewrepo "github.com/Ramsey-B/clover/internal/repositories/review"
	clovercontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
)

// Resolution actions accepted by the resolve endpoint
const (
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionDismiss         = "dismiss"
	ActionRejectAutoMerge = "reject_auto_merge"
	ActionMergeDuplicate  = "merge_duplicate"
	ActionClean           = "clean"
	ActionDeleteProduct   = "delete_product"
)

type resolveRequest struct {
	Action        string                `json:"action" validate:"required,oneof=approve reject dismiss reject_auto_merge merge_duplicate clean delete_product"`
	ResolvedBy    string                `json:"resolved_by"`
	Notes         *string               `json:"notes,omitempty"`
	KeptProductID *string               `json:"kept_product_id,omitempty"`
	Corrections   *resolver.Corrections `json:"corrections,omitempty"`
}

// Handler serves the review queue endpoints
type Handler struct {
	reviews  *reviewrepo.Repository
	resolver *resolver.Service
	validate *validator.Validate
	logger   ectologger.Logger
}

// NewHandler creates a review handler
func NewHandler(reviews *reviewrepo.Repository, resolverSvc *resolver.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		reviews:  reviews,
		resolver: resolverSvc,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers review endpoints on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.POST("/:id/resolve", h.Resolve)
}

// List returns review records, pending first by default. Filters: kind,
// status, source_id, limit.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	filter := reviewrepo.ListFilter{Limit: 100}
	if v := c.QueryParam("kind"); v != "" {
		kind := models.ReviewKind(v)
		filter.Kind = &kind
	}
	if v := c.QueryParam("status"); v != "" {
		status := models.ReviewStatus(v)
		filter.Status = &status
	} else {
		pending := models.ReviewStatusPending
		filter.Status = &pending
	}
	if v := c.QueryParam("source_id"); v != "" {
		filter.SourceID = &v
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		filter.Limit = limit
	}

	records, err := h.reviews.List(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// Get returns a single review record
func (h *Handler) Get(c echo.Context) error {
	record, err := h.reviews.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Stats returns per-source resolution outcomes and field correction counts
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	var sourceID *string
	if v := c.QueryParam("source_id"); v != "" {
		sourceID = &v
	}

	stats, err := h.reviews.StatsBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Resolve applies an operator action to a review record
func (h *Handler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ResolvedBy == "" {
		req.ResolvedBy = clovercontext.GetUserID(ctx)
	}
	if req.ResolvedBy == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "resolved_by is required")
	}

	var (
		record *models.ReviewRecord
		err    error
	)
	overrides := resolver.Corrections{}
	if req.Corrections != nil {
		overrides = *req.Corrections
	}

	switch req.Action {
	case ActionApprove:
		record, err = h.resolver.ApproveFlag(ctx, id, overrides, req.ResolvedBy, req.Notes)
	case ActionReject:
		record, err = h.resolver.RejectFlag(ctx, id, overrides, req.ResolvedBy, req.Notes)
	case ActionDismiss:
		record, err = h.resolver.DismissFlag(ctx, id, req.ResolvedBy, req.Notes)
	case ActionRejectAutoMerge:
		record, err = h.resolver.RejectAutoMerge(ctx, id, req.ResolvedBy, req.Notes)
	case ActionMergeDuplicate:
		if req.KeptProductID == nil || *req.KeptProductID == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, "kept_product_id is required for merge_duplicate")
		}
		record, err = h.resolver.MergeDuplicateFlag(ctx, id, *req.KeptProductID, req.ResolvedBy, req.Notes)
	case ActionClean:
		if req.Corrections == nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "corrections are required for clean")
		}
		record, err = h.resolver.CleanAndActivate(ctx, id, *req.Corrections, req.ResolvedBy, req.Notes)
	case ActionDeleteProduct:
		record, err = h.resolver.DeleteFlaggedProduct(ctx, id, req.ResolvedBy, req.Notes)
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown action")
	}

	if err != nil {
		var resolved *resolver.AlreadyResolvedError
		if errors.As(err, &resolved) {
			return httperror.NewHTTPError(http.StatusConflict, resolved.Error())
		}
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"recordId":   id,
		"action":     req.Action,
		"resolvedBy": req.ResolvedBy,
	}).Info("Resolved review record")

	return c.JSON(http.StatusOK, record)
}
