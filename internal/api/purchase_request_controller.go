package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catererp/server/internal/models"
	"catererp/server/internal/services"
)

// PurchaseRequestController управляет API endpoints для заявок на закупку
type PurchaseRequestController struct {
	service *services.PurchaseRequestService
}

// NewPurchaseRequestController создает новый контроллер заявок
func NewPurchaseRequestController(service *services.PurchaseRequestService) *PurchaseRequestController {
	return &PurchaseRequestController{
		service: service,
	}
}

// GetPurchaseRequests получает список заявок с фильтрацией
// GET /api/v1/purchase-requests?status=...&supplier_id=...&limit=...
func (pc *PurchaseRequestController) GetPurchaseRequests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	requests, err := pc.service.GetPurchaseRequests(c.Query("status"), c.Query("supplier_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения заявок",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// GetPurchaseRequest получает заявку по ID
// GET /api/v1/purchase-requests/:id
func (pc *PurchaseRequestController) GetPurchaseRequest(c *gin.Context) {
	request, err := pc.service.GetPurchaseRequest(c.Param("id"))
	if err != nil {
		pc.handleRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// CreatePurchaseRequest создает новую заявку (в статусе draft)
// POST /api/v1/purchase-requests
func (pc *PurchaseRequestController) CreatePurchaseRequest(c *gin.Context) {
	var request models.PurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	// Автор заявки берется из токена
	request.CreatedBy = c.GetString("username")

	if err := pc.service.CreatePurchaseRequest(&request); err != nil {
		pc.handleRequestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// UpdatePurchaseRequest обновляет черновик заявки
// PUT /api/v1/purchase-requests/:id
func (pc *PurchaseRequestController) UpdatePurchaseRequest(c *gin.Context) {
	var request models.PurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	updated, err := pc.service.UpdatePurchaseRequest(c.Param("id"), &request)
	if err != nil {
		pc.handleRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// StatusChangeRequest представляет запрос на смену статуса заявки
type StatusChangeRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus переводит заявку в новый статус
// POST /api/v1/purchase-requests/:id/status
func (pc *PurchaseRequestController) UpdateStatus(c *gin.Context) {
	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	request, err := pc.service.UpdateStatus(
		c.Param("id"),
		models.PurchaseRequestStatus(req.Status),
		c.GetString("username"),
	)
	if err != nil {
		pc.handleRequestError(c, err)
		return
	}

	// Уведомляем подключенные рабочие места о смене статуса
	BroadcastCatalogUpdate("purchase_request:status", gin.H{
		"request_id":     request.ID,
		"request_number": request.RequestNumber,
		"status":         request.Status,
	})

	c.JSON(http.StatusOK, request)
}

// DeletePurchaseRequest удаляет черновик заявки
// DELETE /api/v1/purchase-requests/:id
func (pc *PurchaseRequestController) DeletePurchaseRequest(c *gin.Context) {
	if err := pc.service.DeletePurchaseRequest(c.Param("id")); err != nil {
		pc.handleRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Заявка удалена"})
}

// handleRequestError переводит ошибки сервиса заявок в HTTP-статусы
func (pc *PurchaseRequestController) handleRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRequestItemsRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRequestNotEditable),
		errors.Is(err, services.ErrInvalidStatusChange),
		errors.Is(err, services.ErrSupplierArchived):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка обработки заявки",
			"details": err.Error(),
		})
	}
}
