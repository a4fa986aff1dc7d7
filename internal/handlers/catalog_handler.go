package handlers

import (
	"tokocheckout/internal/services"
	"tokocheckout/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CatalogHandler serves products and shipping options.
type CatalogHandler struct {
	service *services.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, logger: logger.OrNop(log)}
}

// RegisterRoutes registers the catalogue routes.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products", h.HandleGetProducts)
	router.Get("/products/:id", h.HandleGetProductByID)
	router.Get("/shipping-options", h.HandleGetShippingOptions)
}

func (h *CatalogHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

func (h *CatalogHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

func (h *CatalogHandler) HandleGetShippingOptions(c *fiber.Ctx) error {
	options, err := h.service.GetShippingOptions()
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve shipping options", err)
	}
	return c.JSON(options)
}
