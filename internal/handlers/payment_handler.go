package handlers

import (
	"tokocheckout/internal/middleware"
	"tokocheckout/internal/models"
	"tokocheckout/internal/services"
	"tokocheckout/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.OrNop(log),
	}
}

// RegisterRoutes registers the payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/", h.HandleCreatePayment)
	paymentRoutes.Get("/:id", h.HandleGetPayment)
	paymentRoutes.Get("/:id/status", h.HandleCheckStatus)
	paymentRoutes.Post("/:id/simulate", h.HandleSimulate)
}

func (h *PaymentHandler) HandleCreatePayment(c *fiber.Ctx) error {
	var req models.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err)
	}

	payment, err := h.service.CreatePayment(middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, "Could not create payment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func (h *PaymentHandler) HandleGetPayment(c *fiber.Ctx) error {
	payment, err := h.service.GetPayment(middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve payment", err)
	}
	return c.JSON(payment)
}

// HandleCheckStatus returns the payment after applying expiry.
func (h *PaymentHandler) HandleCheckStatus(c *fiber.Ctx) error {
	payment, err := h.service.CheckStatus(middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not check payment status", err)
	}
	return c.JSON(payment)
}

// HandleSimulate settles a payment in the sandbox.
func (h *PaymentHandler) HandleSimulate(c *fiber.Ctx) error {
	var req models.SimulatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err)
	}

	payment, err := h.service.Simulate(middleware.UserID(c), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, h.logger, "Could not settle payment", err)
	}
	return c.JSON(payment)
}
