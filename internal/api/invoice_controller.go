package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catererp/server/internal/models"
	"catererp/server/internal/services"
)

// InvoiceController управляет API endpoints для входящих накладных
type InvoiceController struct {
	service *services.InvoiceService
}

// NewInvoiceController создает новый контроллер накладных
func NewInvoiceController(service *services.InvoiceService) *InvoiceController {
	return &InvoiceController{
		service: service,
	}
}

// GetInvoices получает список накладных с фильтрацией
// GET /api/v1/invoices?status=...&supplier_id=...&limit=...
func (ic *InvoiceController) GetInvoices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	invoices, err := ic.service.GetInvoices(c.Query("status"), c.Query("supplier_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения накладных",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// GetInvoice получает накладную по ID
// GET /api/v1/invoices/:id
func (ic *InvoiceController) GetInvoice(c *gin.Context) {
	invoice, err := ic.service.GetInvoice(c.Param("id"))
	if err != nil {
		ic.handleInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// CreateInvoice создает накладную в статусе draft
// POST /api/v1/invoices
func (ic *InvoiceController) CreateInvoice(c *gin.Context) {
	var invoice models.Invoice
	if err := c.ShouldBindJSON(&invoice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	if err := ic.service.CreateInvoice(&invoice); err != nil {
		ic.handleInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// UpdateInvoice обновляет черновик накладной
// PUT /api/v1/invoices/:id
func (ic *InvoiceController) UpdateInvoice(c *gin.Context) {
	var invoice models.Invoice
	if err := c.ShouldBindJSON(&invoice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	updated, err := ic.service.UpdateInvoice(c.Param("id"), &invoice)
	if err != nil {
		ic.handleInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// CompleteInvoice проводит накладную (привязанная заявка закрывается)
// POST /api/v1/invoices/:id/complete
func (ic *InvoiceController) CompleteInvoice(c *gin.Context) {
	invoice, err := ic.service.CompleteInvoice(c.Param("id"), c.GetString("username"))
	if err != nil {
		ic.handleInvoiceError(c, err)
		return
	}

	BroadcastCatalogUpdate("invoice:completed", gin.H{
		"invoice_id": invoice.ID,
		"number":     invoice.Number,
	})

	c.JSON(http.StatusOK, invoice)
}

// CancelInvoice отменяет черновик накладной
// POST /api/v1/invoices/:id/cancel
func (ic *InvoiceController) CancelInvoice(c *gin.Context) {
	invoice, err := ic.service.CancelInvoice(c.Param("id"), c.GetString("username"))
	if err != nil {
		ic.handleInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice удаляет черновик накладной
// DELETE /api/v1/invoices/:id
func (ic *InvoiceController) DeleteInvoice(c *gin.Context) {
	if err := ic.service.DeleteInvoice(c.Param("id")); err != nil {
		ic.handleInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Накладная удалена"})
}

// handleInvoiceError переводит ошибки сервиса накладных в HTTP-статусы
func (ic *InvoiceController) handleInvoiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvoiceItemsRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvoiceNotEditable),
		errors.Is(err, services.ErrInvoiceStatusChange):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка обработки накладной",
			"details": err.Error(),
		})
	}
}
