package product

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	pricerepo "github.com/Ramsey-B/clover/internal/repositories/price"
	productrepo "github.com/Ramsey-B/clover/internal/repositories/product"
	watchlistrepo "github.com/Ramsey-B/clover/internal/repositories/watchlist"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Handler serves the catalog read endpoints and watchlist subscriptions
type Handler struct {
	products  *productrepo.Repository
	prices    *pricerepo.Repository
	watchlist *watchlistrepo.Repository
	logger    ectologger.Logger
}

// NewHandler creates a product handler
func NewHandler(
	products *productrepo.Repository,
	prices *pricerepo.Repository,
	watchlist *watchlistrepo.Repository,
	logger ectologger.Logger,
) *Handler {
	return &Handler{
		products:  products,
		prices:    prices,
		watchlist: watchlist,
		logger:    logger,
	}
}

// RegisterRoutes registers product endpoints on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/prices", h.Prices)
	g.GET("/:id/watchlist", h.Watchers)
	g.POST("/:id/watchlist", h.Watch)
}

// productDetail is the parent view with its variants and prices
type productDetail struct {
	models.Product
	Variants []models.Product     `json:"variants"`
	Prices   []models.PriceRecord `json:"prices"`
}

// List returns parent products. Filters: brand_id, is_active, limit.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var brandID *string
	if v := c.QueryParam("brand_id"); v != "" {
		brandID = &v
	}
	var isActive *bool
	if v := c.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "is_active must be a boolean")
		}
		isActive = &active
	}
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	products, err := h.products.ListParents(ctx, brandID, isActive, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

// Get returns one parent with its variants and current prices
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	parent, err := h.products.Get(ctx, id)
	if err != nil {
		return err
	}
	if !parent.IsParent {
		return httperror.NewHTTPError(http.StatusNotFound, "product not found")
	}

	variants, err := h.products.ListVariants(ctx, id)
	if err != nil {
		return err
	}
	prices, err := h.prices.ListByParent(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, productDetail{
		Product:  *parent,
		Variants: variants,
		Prices:   prices,
	})
}

// Prices returns the current price records across a parent's variants
func (h *Handler) Prices(c echo.Context) error {
	prices, err := h.prices.ListByParent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prices)
}

// Watchers lists the subscriptions on a product
func (h *Handler) Watchers(c echo.Context) error {
	items, err := h.watchlist.ListByProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

type watchRequest struct {
	UserID string `json:"user_id"`
}

// Watch subscribes a user to a parent product
func (h *Handler) Watch(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req watchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	// 404 on unknown products before creating the subscription.
	if _, err := h.products.Get(ctx, id); err != nil {
		return err
	}

	item, err := h.watchlist.Add(ctx, req.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}
