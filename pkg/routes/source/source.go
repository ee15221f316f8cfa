package source

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	sourcerepo "github.com/Ramsey-B/clover/internal/repositories/source"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Handler serves the scrape source registry
type Handler struct {
	sources *sourcerepo.Repository
	logger  ectologger.Logger
}

// NewHandler creates a source handler
func NewHandler(sources *sourcerepo.Repository, logger ectologger.Logger) *Handler {
	return &Handler{
		sources: sources,
		logger:  logger,
	}
}

// RegisterRoutes registers source endpoints on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
}

// List returns all registered sources
func (h *Handler) List(c echo.Context) error {
	sources, err := h.sources.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sources)
}

// Get returns one source
func (h *Handler) Get(c echo.Context) error {
	source, err := h.sources.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, source)
}

type createRequest struct {
	Name    string  `json:"name"`
	BaseURL *string `json:"base_url,omitempty"`
}

// Create registers a new scrape source
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	source, err := h.sources.Create(ctx, &models.Source{
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		IsActive: true,
	})
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{"sourceId": source.ID}).Info("Registered scrape source")
	return c.JSON(http.StatusCreated, source)
}
